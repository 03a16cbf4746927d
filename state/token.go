package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

var KeyTokenBalance = "t%x"

// TokenLedger is the fungible token the payment engine settles in.
type TokenLedger interface {
	BalanceOf(addr common.Address) (uint64, error)
	Transfer(from, to common.Address, amount uint64) error
	Mint(to common.Address, amount uint64) error
}

var _ TokenLedger = (*stateTokenLedger)(nil)

type stateTokenLedger struct {
	s *State
}

func (s *State) Tokens() TokenLedger {
	return &stateTokenLedger{s: s}
}

func (l *stateTokenLedger) BalanceOf(addr common.Address) (uint64, error) {
	return l.s.getUint64(sprintf(KeyTokenBalance, addr))
}

func (l *stateTokenLedger) Transfer(from, to common.Address, amount uint64) error {
	fb, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fb < amount {
		return wrap(ErrInsufficientBalance, from.Hex())
	}
	if err = l.s.setUint64(sprintf(KeyTokenBalance, from), fb-amount); err != nil {
		return err
	}
	tb, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if tb+amount < tb {
		return wrap(ErrInvalidAmount, amount)
	}
	return l.s.setUint64(sprintf(KeyTokenBalance, to), tb+amount)
}

func (l *stateTokenLedger) Mint(to common.Address, amount uint64) error {
	b, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if b+amount < b {
		return wrap(ErrInvalidAmount, amount)
	}
	return l.s.setUint64(sprintf(KeyTokenBalance, to), b+amount)
}

func (s *State) Mint(caller, to common.Address, amount uint64) error {
	if err := s.requireAuthorized(caller, ActionMint, ErrAccessDenied); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return wrap(ErrInvalidAddress, to.Hex())
	}
	if amount == 0 {
		return wrap(ErrInvalidAmount, amount)
	}
	if err := s.Tokens().Mint(to, amount); err != nil {
		return err
	}
	s.emit(types.EncodeEventMinted(to, amount))
	return nil
}
