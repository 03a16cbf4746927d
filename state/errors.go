package state

import (
	"errors"
	"fmt"
)

var (
	ErrTxNonceInvalid = errors.New("nonce invalid")
	ErrTxSigInvalid   = errors.New("signature invalid")
)

// Authorization
var (
	ErrAccessDenied               = errors.New("access denied")
	ErrCallerNotAdminOrGovernance = errors.New("caller not admin or governance")
	ErrUnauthorizedAnchor         = errors.New("unauthorized anchor")
)

// Identity/Proof
var (
	ErrInvalidProof = errors.New("invalid proof")
	ErrDoubleVoting = errors.New("double voting")
)

// Temporal
var (
	ErrProposalExpired    = errors.New("proposal expired")
	ErrTimelockNotExpired = errors.New("timelock not expired")
	ErrSignatureExpired   = errors.New("signature expired")
	ErrVotingActive       = errors.New("voting still active")
)

// State
var (
	ErrProposalNotPassed         = errors.New("proposal not passed")
	ErrProposalNotApproved       = errors.New("proposal not approved")
	ErrProposalNotPending        = errors.New("proposal not pending")
	ErrProposalNotFound          = errors.New("proposal not found")
	ErrProposalAlreadyExecuted   = errors.New("proposal already executed")
	ErrReportAlreadyExists       = errors.New("report already exists")
	ErrReportNotFound            = errors.New("report not found")
	ErrAgentNotRegistered        = errors.New("agent not registered")
	ErrAgentAlreadyRegistered    = errors.New("agent already registered")
	ErrProtocolNotRegistered     = errors.New("protocol not registered")
	ErrProtocolAlreadyRegistered = errors.New("protocol already registered")
	ErrProtocolAlreadyPaused     = errors.New("protocol already paused")
	ErrProtocolNotPaused         = errors.New("protocol not paused")
	ErrUpgradeNotFound           = errors.New("upgrade proposal not found")
	ErrNotAProxy                 = errors.New("not a proxy")
	ErrUnknownImplementation     = errors.New("unknown implementation")
	ErrStaleImplementation       = errors.New("implementation not newer than current")
)

// Resource
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrDailyLimitExceeded    = errors.New("daily limit exceeded")
	ErrNonceAlreadyUsed      = errors.New("nonce already used")
	ErrActionBudgetExceeded  = errors.New("action budget exceeded")
	ErrConfidenceBelowThresh = errors.New("confidence below threshold")
)

// Input validation
var (
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidThreshold     = errors.New("invalid threshold")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidRiskTier      = errors.New("invalid risk tier")
	ErrInvalidEpochDuration = errors.New("invalid epoch duration")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidReportType    = errors.New("invalid report type")
	ErrInvalidHash          = errors.New("invalid hash")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidAlertAction   = errors.New("invalid alert action")
)

const (
	CategoryEnvelope      = 1
	CategoryAuthorization = 2
	CategoryIdentity      = 3
	CategoryTemporal      = 4
	CategoryState         = 5
	CategoryResource      = 6
	CategoryValidation    = 7
	CategoryInternal      = 9
)

var errorCategories = []struct {
	category uint32
	errs     []error
}{
	{CategoryEnvelope, []error{ErrTxNonceInvalid, ErrTxSigInvalid}},
	{CategoryAuthorization, []error{ErrAccessDenied, ErrCallerNotAdminOrGovernance, ErrUnauthorizedAnchor}},
	{CategoryIdentity, []error{ErrInvalidProof, ErrDoubleVoting}},
	{CategoryTemporal, []error{ErrProposalExpired, ErrTimelockNotExpired, ErrSignatureExpired, ErrVotingActive}},
	{CategoryState, []error{
		ErrProposalNotPassed, ErrProposalNotApproved, ErrProposalNotPending, ErrProposalNotFound,
		ErrProposalAlreadyExecuted, ErrReportAlreadyExists, ErrReportNotFound, ErrAgentNotRegistered,
		ErrAgentAlreadyRegistered, ErrProtocolNotRegistered, ErrProtocolAlreadyRegistered,
		ErrProtocolAlreadyPaused, ErrProtocolNotPaused, ErrUpgradeNotFound, ErrNotAProxy,
		ErrUnknownImplementation, ErrStaleImplementation,
	}},
	{CategoryResource, []error{
		ErrInsufficientBalance, ErrDailyLimitExceeded, ErrNonceAlreadyUsed, ErrActionBudgetExceeded,
		ErrConfidenceBelowThresh,
	}},
	{CategoryValidation, []error{
		ErrInvalidAddress, ErrInvalidThreshold, ErrInvalidSignature, ErrInvalidRiskTier,
		ErrInvalidEpochDuration, ErrInvalidAmount, ErrInvalidReportType, ErrInvalidHash, ErrInvalidRole,
		ErrInvalidAlertAction,
	}},
}

// ErrorCode maps an operation error to a stable ABCI result code
// (category*100 + position). Unknown errors map to the internal category.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}
	for _, c := range errorCategories {
		for i, e := range c.errs {
			if errors.Is(err, e) {
				return c.category*100 + uint32(i) + 1
			}
		}
	}
	return CategoryInternal * 100
}

// ErrorCategory is the leading digit group of an error code.
func ErrorCategory(err error) uint32 {
	return ErrorCode(err) / 100
}

func wrap(err error, arg any) error {
	return fmt.Errorf("%w: %v", err, arg)
}

func sprintf(format string, a ...any) string {
	return fmt.Sprintf(format, a...)
}
