package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure independently of the transport exposing it.
type ErrorKind string

const (
	KindNotFound                 ErrorKind = "not_found"
	KindAlreadyExists            ErrorKind = "already_exists"
	KindValidation               ErrorKind = "validation"
	KindUnauthorized             ErrorKind = "unauthorized"
	KindResourceExhausted        ErrorKind = "resource_exhausted"
	KindInsufficientFunds        ErrorKind = "insufficient_funds"
	KindNoUtxos                  ErrorKind = "no_utxos"
	KindFeeEstimationUnavailable ErrorKind = "fee_estimation_unavailable"
	KindUpstreamUnavailable      ErrorKind = "upstream_unavailable"
	KindCryptoFailure            ErrorKind = "crypto_failure"
	KindInternal                 ErrorKind = "internal"
)

// Error tags an error with its kind. errors.Is matches both the wrapped
// error chain and any other *Error of the same kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// NewError returns an error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapError tags err with kind, unless err is already tagged.
func WrapError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, KindInternal if untagged.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Kind returns a matcher usable with errors.Is for any error of kind k.
func Kind(k ErrorKind) error {
	return &Error{Kind: k}
}

func kinded(kind ErrorKind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

var (
	// ErrVaultNotFound is returned when no wallet or guardian set is
	// registered for a vault.
	ErrVaultNotFound = kinded(KindNotFound, "vault not found")
	// ErrGuardianNotFound is returned when no guardian of a vault matches the
	// given email hash.
	ErrGuardianNotFound = kinded(KindNotFound, "guardian entry not found for provided hash")
	// ErrWalletAlreadyExists is returned by the wallet commit when another
	// request won the race for the first address of a vault.
	ErrWalletAlreadyExists = kinded(KindAlreadyExists, "vault already has a registered wallet")
	// ErrVaultAlreadyRegistered ...
	ErrVaultAlreadyRegistered = kinded(KindAlreadyExists, "vault already registered")

	// ErrInvalidHeirs is returned for empty heir lists, weights not summing to
	// 10000 bps or payouts below the dust floor.
	ErrInvalidHeirs = kinded(KindValidation, "invalid heir configuration")
	// ErrInvalidGuardianCount ...
	ErrInvalidGuardianCount = kinded(KindValidation, fmt.Sprintf(
		"guardian count must be between %d and %d", MinGuardians, MaxGuardians,
	))
	// ErrInvalidThreshold ...
	ErrInvalidThreshold = kinded(KindValidation, "guardian threshold must be >=2 and <= guardian count")
	// ErrMissingEmail ...
	ErrMissingEmail = kinded(KindValidation, "guardian email required")
	// ErrDuplicateEmail ...
	ErrDuplicateEmail = kinded(KindValidation, "duplicate guardian email detected")
	// ErrMissingAlias ...
	ErrMissingAlias = kinded(KindValidation, "guardian alias required")
	// ErrMissingKeyReference ...
	ErrMissingKeyReference = kinded(KindValidation, "key reference required")
	// ErrInvalidHeirAddress is returned for heir addresses that do not parse
	// or belong to another network.
	ErrInvalidHeirAddress = kinded(KindValidation, "invalid heir address")
	// ErrMissingVaultManager ...
	ErrMissingVaultManager = kinded(KindValidation, "vault manager required")
	// ErrMissingSharePayload ...
	ErrMissingSharePayload = kinded(KindValidation, "share payload required")
	// ErrGuardianNotAccepted is returned when submitting a share for a
	// guardian that did not accept the invitation.
	ErrGuardianNotAccepted = kinded(KindValidation, "guardian has not accepted invitation")
	// ErrShareAlreadySubmitted ...
	ErrShareAlreadySubmitted = kinded(KindAlreadyExists, "guardian share already submitted")
	// ErrGuardianStateChanged is returned by the share commit when the guardian
	// was modified while its share was being encrypted.
	ErrGuardianStateChanged = kinded(KindValidation, "guardian state changed during share submission")

	// ErrPrincipalMismatch is returned when a guardian already bound to an
	// identity is accepted by another one.
	ErrPrincipalMismatch = kinded(KindUnauthorized, "guardian already accepted invitation under different principal")
	// ErrUnauthorized ...
	ErrUnauthorized = kinded(KindUnauthorized, "caller is not authorized")
	// ErrKeyReferenceMismatch is returned when an inheritance is requested
	// with a key reference other than the one the wallet was derived with.
	ErrKeyReferenceMismatch = kinded(KindCryptoFailure, "mismatched key id")

	// ErrMalformedUtxo is returned when the chain oracle reports an outpoint
	// that cannot be parsed.
	ErrMalformedUtxo = kinded(KindCryptoFailure, "malformed utxo outpoint")

	// ErrShareTooLarge ...
	ErrShareTooLarge = kinded(KindResourceExhausted, fmt.Sprintf(
		"share payload exceeds %d bytes", MaxShareBytes,
	))

	// ErrNoUtxos ...
	ErrNoUtxos = kinded(KindNoUtxos, "no spendable utxos for vault")
	// ErrInsufficientFunds ...
	ErrInsufficientFunds = kinded(KindInsufficientFunds, "insufficient funds after accounting for fees")
	// ErrFeeEstimationUnavailable ...
	ErrFeeEstimationUnavailable = kinded(KindFeeEstimationUnavailable, "fee estimation unavailable")
	// ErrPayoutOverflow ...
	ErrPayoutOverflow = kinded(KindCryptoFailure, "payout overflow")
	// ErrRandomnessUnavailable ...
	ErrRandomnessUnavailable = kinded(KindCryptoFailure, "system randomness unavailable")
)
