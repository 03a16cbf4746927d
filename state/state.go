package state

import (
	"encoding/json"
	"sort"

	"github.com/calehh/guardian-app/tx"
	abci_types "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState        = "s"
	KeyAccountNonce = "n%x"
)

type StateHeader struct {
	Height     uint64 `json:"height"`
	Time       int64  `json:"time"`
	ChainId    string `json:"chain_id"`
	EvmChainId uint64 `json:"evm_chain_id"`
	RootHash   []byte `json:"root_hash"`
	Hash       []byte `json:"hash"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = common.CopyBytes(h.RootHash)
	n.Hash = common.CopyBytes(h.Hash)
	return &n
}

type reader interface {
	Get(key []byte) ([]byte, error)
}

// State is a write overlay on top of the versioned tree. Writes stay in the
// overlay until Update flushes them into the working tree.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	rd     reader
	dbVer  int64

	header *StateHeader
	cache  map[string][]byte
	dirty  map[string]struct{}
	events []abci_types.Event

	verifier IdentityVerifier
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		rd:     db,
		dbVer:  0,
		header: new(StateHeader),
		cache:  make(map[string][]byte),
		dirty:  make(map[string]struct{}),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger:   s.logger,
		db:       s.db,
		rd:       s.db,
		dbVer:    s.dbVer,
		header:   s.header.Clone(),
		cache:    make(map[string][]byte),
		dirty:    make(map[string]struct{}),
		verifier: s.verifier,
	}
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) Clone() *State {
	n := &State{
		logger:   s.logger,
		db:       s.db,
		rd:       s.rd,
		dbVer:    s.dbVer,
		header:   s.header.Clone(),
		cache:    make(map[string][]byte, len(s.cache)),
		dirty:    make(map[string]struct{}, len(s.dirty)),
		events:   make([]abci_types.Event, len(s.events)),
		verifier: s.verifier,
	}
	for k, v := range s.cache {
		n.cache[k] = v
	}
	for k := range s.dirty {
		n.dirty[k] = struct{}{}
	}
	copy(n.events, s.events)
	return n
}

// Exec runs fn against a copy of the state and adopts the copy only when fn
// succeeds. A failed operation leaves s untouched.
func (s *State) Exec(fn func(st *State) error) error {
	n := s.Clone()
	if err := fn(n); err != nil {
		return err
	}
	*s = *n
	return nil
}

func (s *State) SetVerifier(v IdentityVerifier) {
	s.verifier = v
}

func (s *State) get(key string) (val []byte, err error) {
	if v, ok := s.cache[key]; ok {
		return v, nil
	}
	val, err = s.rd.Get([]byte(key))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return nil, err
		}
		val, err = nil, nil
	}
	s.cache[key] = val
	return
}

func (s *State) set(key string, val []byte) {
	s.cache[key] = val
	s.dirty[key] = struct{}{}
}

func (s *State) del(key string) {
	s.set(key, nil)
}

func (s *State) has(key string) (bool, error) {
	val, err := s.get(key)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (s *State) getJSON(key string, v any) (found bool, err error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return false, err
	}
	err = json.Unmarshal(val, v)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) setJSON(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, val)
	return nil
}

func (s *State) getUint64(key string) (n uint64, err error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return 0, err
	}
	err = rlp.DecodeBytes(val, &n)
	return
}

func (s *State) setUint64(key string, n uint64) error {
	val, err := rlp.EncodeToBytes(n)
	if err != nil {
		return err
	}
	s.set(key, val)
	return nil
}

func (s *State) emit(ev abci_types.Event) {
	s.events = append(s.events, ev)
}

// TakeEvents returns the events emitted since the last call and clears them.
func (s *State) TakeEvents() (events []abci_types.Event) {
	events = s.events
	s.events = nil
	return
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

// Update flushes the overlay into the working tree in key order and returns
// the resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}
	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := s.cache[k]
		if v == nil {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), v)
		}
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.dirty = make(map[string]struct{})
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) Height() uint64 {
	return s.header.Height
}

// Now is the ledger clock in unix seconds.
func (s *State) Now() int64 {
	return s.header.Time
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) SetEvmChainId(id uint64) {
	s.header.EvmChainId = id
}

// SetBlock advances the ledger clock. Time never moves backwards.
func (s *State) SetBlock(height uint64, unix int64) {
	s.header.Height = height
	if unix > s.header.Time {
		s.header.Time = unix
	}
}

func (s *State) AccountNonce(addr common.Address) (uint64, error) {
	return s.getUint64(sprintf(KeyAccountNonce, addr))
}

// Verify checks the envelope signature and the sender's sequential nonce.
func (s *State) Verify(btx *tx.GuardTx, allowNonceGap bool) (err error) {
	nonce, err := s.AccountNonce(btx.Sender)
	if err != nil {
		return err
	}
	if !(nonce == btx.Nonce || (allowNonceGap && nonce < btx.Nonce)) {
		return wrap(ErrTxNonceInvalid, btx.Nonce)
	}
	err = btx.Verify(s.header.ChainId)
	if err != nil {
		return wrap(ErrTxSigInvalid, btx.Sender)
	}
	return nil
}

// IncNonce consumes the sender's envelope nonce. It is applied even when the
// operation itself fails.
func (s *State) IncNonce(addr common.Address) error {
	nonce, err := s.AccountNonce(addr)
	if err != nil {
		return err
	}
	return s.setUint64(sprintf(KeyAccountNonce, addr), nonce+1)
}
