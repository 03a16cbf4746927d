package state

import (
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	KeyWallet       = "w%x"
	KeyPaymentNonce = "q%x%x"
)

func (s *State) WalletBalance(agentId common.Hash) (uint64, error) {
	return s.getUint64(sprintf(KeyWallet, agentId))
}

func (s *State) setWalletBalance(agentId common.Hash, balance uint64) error {
	return s.setUint64(sprintf(KeyWallet, agentId), balance)
}

func (s *State) PaymentNonceUsed(agentId, nonce common.Hash) (bool, error) {
	return s.has(sprintf(KeyPaymentNonce, agentId, nonce))
}

// epochElapsed reports whether strictly more than one epoch has passed since
// the agent's last reset.
func (s *State) epochElapsed(a *types.Agent) (bool, error) {
	epoch, err := s.EpochDuration()
	if err != nil {
		return false, err
	}
	return s.Now()-a.LastReset > int64(epoch), nil
}

// rollDay resets the agent's spent amount and action count once the epoch has
// elapsed.
func (s *State) rollDay(a *types.Agent) error {
	elapsed, err := s.epochElapsed(a)
	if err != nil || !elapsed {
		return err
	}
	a.DailySpent = 0
	a.ActionCount = 0
	a.LastReset = s.Now()
	s.emit(types.EncodeEventDailyLimitReset(a.Id))
	return nil
}

func (s *State) Deposit(caller common.Address, agentId common.Hash, amount uint64) error {
	if amount == 0 {
		return wrap(ErrInvalidAmount, amount)
	}
	if _, err := s.activeAgent(agentId); err != nil {
		return err
	}
	if err := s.Tokens().Transfer(caller, PaymentEscrowAddress, amount); err != nil {
		return err
	}
	balance, err := s.WalletBalance(agentId)
	if err != nil {
		return err
	}
	if balance+amount < balance {
		return wrap(ErrInvalidAmount, amount)
	}
	if err = s.setWalletBalance(agentId, balance+amount); err != nil {
		return err
	}
	s.emit(types.EncodeEventDeposited(&types.EventDeposited{AgentId: agentId, Depositor: caller, Amount: amount}))
	return nil
}

// AuthorizePayment releases escrowed funds on a typed-data signature from the
// agent's wallet.
func (s *State) AuthorizePayment(auth *PaymentAuthorization, signature []byte) error {
	if auth.Amount == 0 {
		return wrap(ErrInvalidAmount, auth.Amount)
	}
	if auth.To == (common.Address{}) {
		return wrap(ErrInvalidAddress, auth.To.Hex())
	}
	a, err := s.activeAgent(auth.AgentId)
	if err != nil {
		return err
	}
	digest, err := PaymentDigest(s.header.EvmChainId, auth)
	if err != nil {
		return wrap(ErrInvalidSignature, err)
	}
	signer, err := tx.RecoverSigner(digest, signature)
	if err != nil || signer != a.Wallet {
		return wrap(ErrInvalidSignature, signer.Hex())
	}
	now := uint64(s.Now())
	if now < auth.ValidAfter || now >= auth.ValidBefore {
		return wrap(ErrSignatureExpired, now)
	}
	used, err := s.PaymentNonceUsed(auth.AgentId, auth.Nonce)
	if err != nil {
		return err
	}
	if used {
		return wrap(ErrNonceAlreadyUsed, auth.Nonce.Hex())
	}
	balance, err := s.WalletBalance(auth.AgentId)
	if err != nil {
		return err
	}
	if balance < auth.Amount {
		return wrap(ErrInsufficientBalance, auth.AgentId.Hex())
	}
	if err = s.rollDay(a); err != nil {
		return err
	}
	if a.DailySpent+auth.Amount < a.DailySpent || a.DailySpent+auth.Amount > a.DailyBudget {
		return wrap(ErrDailyLimitExceeded, auth.Amount)
	}
	if a.ActionBudget > 0 && a.ActionCount >= a.ActionBudget {
		return wrap(ErrActionBudgetExceeded, auth.AgentId.Hex())
	}
	if err = s.setWalletBalance(auth.AgentId, balance-auth.Amount); err != nil {
		return err
	}
	if err = s.Tokens().Transfer(PaymentEscrowAddress, auth.To, auth.Amount); err != nil {
		return err
	}
	s.set(sprintf(KeyPaymentNonce, auth.AgentId, auth.Nonce), []byte{1})
	a.DailySpent += auth.Amount
	a.ActionCount++
	if err = s.setAgent(a); err != nil {
		return err
	}
	s.logger.Debug("payment authorized", "agent", auth.AgentId, "to", auth.To, "amount", auth.Amount)
	s.emit(types.EncodeEventPaymentAuthorized(&types.EventPaymentAuthorized{
		AgentId: auth.AgentId,
		To:      auth.To,
		Amount:  auth.Amount,
		Nonce:   auth.Nonce,
	}))
	return nil
}

func (s *State) Withdraw(caller common.Address, agentId common.Hash, amount uint64, to common.Address) error {
	if err := s.requireAuthorized(caller, ActionWithdraw, ErrAccessDenied); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return wrap(ErrInvalidAddress, to.Hex())
	}
	if amount == 0 {
		return wrap(ErrInvalidAmount, amount)
	}
	balance, err := s.WalletBalance(agentId)
	if err != nil {
		return err
	}
	if balance < amount {
		return wrap(ErrInsufficientBalance, agentId.Hex())
	}
	if err = s.setWalletBalance(agentId, balance-amount); err != nil {
		return err
	}
	if err = s.Tokens().Transfer(PaymentEscrowAddress, to, amount); err != nil {
		return err
	}
	s.emit(types.EncodeEventWithdrawn(&types.EventWithdrawn{AgentId: agentId, To: to, Amount: amount}))
	return nil
}
