package domain

import "errors"

var (
	ErrElectionNotFound        = errors.New("election not found")
	ErrElectionNotActive       = errors.New("election is not active")
	ErrCandidateNotFound       = errors.New("candidate does not belong to this election")
	ErrTokenNotFound           = errors.New("voting token not found for this voter and election")
	ErrTokenAlreadyUsed        = errors.New("voting token has already been used")
	ErrTokenExpired            = errors.New("voting token has expired")
	ErrChainIntegrityViolation = errors.New("vote chain integrity violation")
	ErrConcurrencyConflict     = errors.New("ledger is busy, try again")
	ErrPersistence             = errors.New("persistence failure")
	ErrInvalidTransition       = errors.New("invalid election status transition")
	ErrInvalidInput            = errors.New("invalid input")
	ErrReceiptNotFound         = errors.New("receipt not found in this election")
)

// IsTransient reports whether err is worth retrying by the caller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
