package services

import "errors"

var (
	// Input errors are surfaced to the caller and never retried.
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnknownReferralCode = errors.New("unknown referral code")

	// ErrPersistence wraps ledger or notification write failures.
	ErrPersistence = errors.New("persistence failure")

	ErrDuplicateRequest = errors.New("request with this idempotency key is already in progress")
	ErrLevelOutOfRange  = errors.New("level out of range")
)
