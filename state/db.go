package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree
	ldb    dbm.DB

	state    *State
	verifier IdentityVerifier
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "guardiandb")
	ldb, err := dbm.NewDB("guardian", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return openStateDB(ldb, dir, logger)
}

// NewMemStateDB keeps the tree in memory.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return openStateDB(dbm.NewMemDB(), "", logger.With("module", "guardiandb"))
}

func openStateDB(ldb dbm.DB, dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	tdb := iavl.NewMutableTree(ldb, 128, true, newTreeLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		ldb.Close()
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from guardiandb load fail", "err", err)
		ldb.Close()
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		ldb:    ldb,
		state:  st,
	}
	return
}

// Close releases the tree and then the backing store; the tree does not
// close the store it was opened on.
func (db *StateDB) Close() (err error) {
	if err = db.db.Close(); err != nil {
		return
	}
	return db.ldb.Close()
}

// SetVerifier replaces the identity verifier for every state derived from db.
func (db *StateDB) SetVerifier(v IdentityVerifier) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.verifier = v
	db.state.SetVerifier(v)
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

// ReadState returns a copy of the committed state that reads from the last
// saved tree version, so it is safe to use while a block is executing.
func (db *StateDB) ReadState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.Clone()
	if st.dbVer > 0 {
		imm, err := db.db.GetImmutable(st.dbVer)
		if err != nil {
			db.logger.Error("get immutable tree fail", "version", st.dbVer, "err", err)
			return
		}
		st.rd = imm
	}
	return
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	st.verifier = db.verifier
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	st.events = nil
	db.state = st
	return
}

// Commit flushes and saves st in one step.
func (db *StateDB) Commit(st *State) (hash common.Hash, err error) {
	if _, err = st.Update(); err != nil {
		return
	}
	return db.SetState(st)
}
