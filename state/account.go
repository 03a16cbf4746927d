package state

import (
	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

var KeyValidators = "k"

// Account is the read view of an address: its envelope nonce, token balance
// and roles.
type Account struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
	Balance uint64         `json:"balance"`
	Roles   []string       `json:"roles"`
}

func (s *State) Account(addr common.Address) (acnt *Account, err error) {
	acnt = &Account{Address: addr, Roles: []string{}}
	acnt.Nonce, err = s.AccountNonce(addr)
	if err != nil {
		return nil, err
	}
	acnt.Balance, err = s.Tokens().BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	for _, role := range AllRoles {
		ok, err := s.HasRole(role, addr)
		if err != nil {
			return nil, err
		}
		if ok {
			acnt.Roles = append(acnt.Roles, role)
		}
	}
	return
}

type Validator struct {
	Address string         `json:"address"`
	PubKey  ed25519.PubKey `json:"pubKey"`
	Power   int64          `json:"power"`
}

func (v *Validator) Clone() *Validator {
	n := *v
	n.PubKey = common.CopyBytes(v.PubKey)
	return &n
}

// SetValidators records the consensus set announced at genesis.
func (s *State) SetValidators(updates []abci_types.ValidatorUpdate) error {
	vals := make([]*Validator, 0, len(updates))
	for _, u := range updates {
		pk := ed25519.PubKey(u.PubKey.GetEd25519())
		vals = append(vals, &Validator{
			Address: pk.Address().String(),
			PubKey:  pk,
			Power:   u.Power,
		})
	}
	return s.setJSON(KeyValidators, vals)
}

func (s *State) Validators() (vals []*Validator, err error) {
	_, err = s.getJSON(KeyValidators, &vals)
	return
}
