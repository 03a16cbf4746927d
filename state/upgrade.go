package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// UpgradeTimelock is the minimum delay between proposing and executing an
// upgrade, in seconds.
const UpgradeTimelock = 48 * 60 * 60

var (
	KeyUpgrade      = "v%x"
	KeyUpgradeIndex = "vi%d"
	KeyUpgradeCount = "vc"
)

type upgradeIdPreimage struct {
	Proxy      common.Address
	Impl       common.Address
	ProposedAt uint64
	Seq        uint64
}

func upgradeId(proxy, impl common.Address, proposedAt int64, seq uint64) (common.Hash, error) {
	dat, err := rlp.EncodeToBytes(&upgradeIdPreimage{
		Proxy:      proxy,
		Impl:       impl,
		ProposedAt: uint64(proposedAt),
		Seq:        seq,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(dat), nil
}

func (s *State) UpgradeCount() (uint64, error) {
	return s.getUint64(KeyUpgradeCount)
}

func (s *State) UpgradeIdAt(seq uint64) (id common.Hash, err error) {
	val, err := s.get(sprintf(KeyUpgradeIndex, seq))
	if err != nil || val == nil {
		return
	}
	id = common.BytesToHash(val)
	return
}

func (s *State) Upgrade(id common.Hash) (u *types.UpgradeProposal, err error) {
	u = new(types.UpgradeProposal)
	found, err := s.getJSON(sprintf(KeyUpgrade, id), u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, wrap(ErrUpgradeNotFound, id.Hex())
	}
	return
}

func (s *State) setUpgrade(u *types.UpgradeProposal) error {
	return s.setJSON(sprintf(KeyUpgrade, u.Id), u)
}

func (s *State) ProposeUpgrade(caller, proxy, impl common.Address) (id common.Hash, err error) {
	if err = s.requireAuthorized(caller, ActionProposeUpgrade, ErrAccessDenied); err != nil {
		return
	}
	if proxy == (common.Address{}) {
		return id, wrap(ErrInvalidAddress, proxy.Hex())
	}
	if impl == (common.Address{}) {
		return id, wrap(ErrInvalidAddress, impl.Hex())
	}
	n, err := s.UpgradeCount()
	if err != nil {
		return
	}
	n++
	id, err = upgradeId(proxy, impl, s.Now(), n)
	if err != nil {
		return
	}
	u := &types.UpgradeProposal{
		Id:                id,
		Proxy:             proxy,
		NewImplementation: impl,
		State:             types.UpgradeStatePending,
		ProposedAt:        s.Now(),
		Proposer:          caller,
	}
	if err = s.setUpgrade(u); err != nil {
		return
	}
	s.set(sprintf(KeyUpgradeIndex, n), id.Bytes())
	if err = s.setUint64(KeyUpgradeCount, n); err != nil {
		return
	}
	s.logger.Info("upgrade proposed", "id", id, "proxy", proxy, "impl", impl)
	s.emit(types.EncodeEventUpgradeProposed(&types.EventUpgrade{Id: id, Proxy: proxy, Impl: impl}))
	return
}

// ApproveUpgrade attaches a governance reference. The proposal stays Pending
// so it can still be cancelled.
func (s *State) ApproveUpgrade(caller common.Address, id, governanceRef common.Hash) error {
	if err := s.requireAuthorized(caller, ActionApproveUpgrade, ErrAccessDenied); err != nil {
		return err
	}
	u, err := s.Upgrade(id)
	if err != nil {
		return err
	}
	if u.State != types.UpgradeStatePending {
		return wrap(ErrProposalNotPending, id.Hex())
	}
	if governanceRef == (common.Hash{}) {
		return wrap(ErrProposalNotApproved, id.Hex())
	}
	u.GovernanceRef = governanceRef
	if err = s.setUpgrade(u); err != nil {
		return err
	}
	s.emit(types.EncodeEventUpgradeApproved(id, governanceRef))
	return nil
}

func (s *State) ExecuteUpgrade(caller common.Address, id common.Hash) error {
	if err := s.requireAuthorized(caller, ActionExecuteUpgrade, ErrAccessDenied); err != nil {
		return err
	}
	u, err := s.Upgrade(id)
	if err != nil {
		return err
	}
	if u.State != types.UpgradeStatePending {
		return wrap(ErrProposalNotPending, id.Hex())
	}
	if s.Now() < u.ProposedAt+UpgradeTimelock {
		return wrap(ErrTimelockNotExpired, u.ProposedAt+UpgradeTimelock)
	}
	if !u.Approved() {
		return wrap(ErrProposalNotApproved, id.Hex())
	}
	if err = s.UpgradeTo(UpgradeControllerAddress, u.Proxy, u.NewImplementation); err != nil {
		return err
	}
	u.State = types.UpgradeStateExecuted
	if err = s.setUpgrade(u); err != nil {
		return err
	}
	s.emit(types.EncodeEventUpgradeExecuted(&types.EventUpgrade{Id: id, Proxy: u.Proxy, Impl: u.NewImplementation}))
	return nil
}

func (s *State) CancelUpgrade(caller common.Address, id common.Hash) error {
	if err := s.requireAuthorized(caller, ActionCancelUpgrade, ErrAccessDenied); err != nil {
		return err
	}
	u, err := s.Upgrade(id)
	if err != nil {
		return err
	}
	if u.State != types.UpgradeStatePending {
		return wrap(ErrProposalNotPending, id.Hex())
	}
	u.State = types.UpgradeStateCancelled
	if err = s.setUpgrade(u); err != nil {
		return err
	}
	s.emit(types.EncodeEventUpgradeCancelled(id))
	return nil
}
