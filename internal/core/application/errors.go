package application

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

// Operation names a caller facing operation of the services.
type Operation string

const (
	OpGenerateAddress     Operation = "generateAddress"
	OpGetAddress          Operation = "getAddress"
	OpExecuteInheritance  Operation = "executeInheritance"
	OpSetVaultManager     Operation = "setVaultManager"
	OpRegisterGuardians   Operation = "registerGuardians"
	OpAcceptInvitation    Operation = "acceptInvitation"
	OpSubmitGuardianShare Operation = "submitGuardianShare"
	OpThresholdStatus     Operation = "thresholdStatus"
	OpListGuardians       Operation = "listGuardians"
	OpGetGuardian         Operation = "getGuardian"
	OpListGuardianVaults  Operation = "listGuardianVaults"
)

// Policy tells how a failure is reported to the caller.
type Policy int

const (
	// PolicySurface returns the error as is, the caller may retry.
	PolicySurface Policy = iota
	// PolicyAbort reports the failure as a *CallAbortedError. The call
	// committed nothing and must not be retried without correcting the
	// request.
	PolicyAbort
)

// ErrorPolicy lists, per operation, the error kinds that abort the call.
// Anything not listed here is surfaced.
var ErrorPolicy = map[Operation]map[domain.ErrorKind]Policy{
	OpRegisterGuardians: {
		domain.KindValidation:    PolicyAbort,
		domain.KindUnauthorized:  PolicyAbort,
		domain.KindAlreadyExists: PolicyAbort,
	},
	OpListGuardians: {
		domain.KindNotFound: PolicyAbort,
	},
	OpThresholdStatus: {
		domain.KindNotFound: PolicyAbort,
	},
}

// CallAbortedError wraps a failure that aborted a whole call.
type CallAbortedError struct {
	Operation Operation
	Err       error
}

func (e *CallAbortedError) Error() string {
	return fmt.Sprintf("%s aborted: %s", e.Operation, e.Err)
}

func (e *CallAbortedError) Unwrap() error {
	return e.Err
}

// IsAborted returns whether err aborted the call it was returned by.
func IsAborted(err error) bool {
	var e *CallAbortedError
	return errors.As(err, &e)
}

// PolicyFor returns the policy of the given failure kind for op.
func PolicyFor(op Operation, kind domain.ErrorKind) Policy {
	return ErrorPolicy[op][kind]
}

func applyPolicy(op Operation, err error) error {
	if err == nil {
		return nil
	}
	kind := domain.KindOf(err)
	if PolicyFor(op, kind) != PolicyAbort {
		return err
	}

	log.WithError(err).WithFields(log.Fields{
		"operation": op,
		"kind":      kind,
	}).Error("call aborted")
	return &CallAbortedError{Operation: op, Err: err}
}
