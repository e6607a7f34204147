package domain

import "context"

// GuardianRepository is the abstraction for any kind of storage intended to
// hold the guardian sets of the vaults.
type GuardianRepository interface {
	// AddGuardianSet commits a new guardian set or fails with
	// ErrVaultAlreadyRegistered.
	AddGuardianSet(ctx context.Context, set *VaultGuardianSet) error
	// GetGuardianSet returns a copy of the guardian set of the vault or
	// ErrVaultNotFound.
	GetGuardianSet(ctx context.Context, vaultID VaultID) (*VaultGuardianSet, error)
	// UpdateGuardianSet applies updateFn to the current state of the set and
	// commits the result atomically. Nothing is written if updateFn errors.
	UpdateGuardianSet(
		ctx context.Context,
		vaultID VaultID,
		updateFn func(s *VaultGuardianSet) (*VaultGuardianSet, error),
	) error
	// GetVaultsForGuardian returns the ids of the vaults p is a bound
	// guardian of, sorted.
	GetVaultsForGuardian(ctx context.Context, p Principal) ([]VaultID, error)
	// GetVaultManager returns the configured delegate, if any.
	GetVaultManager(ctx context.Context) (Principal, bool, error)
	// SetVaultManager ...
	SetVaultManager(ctx context.Context, manager Principal) error
}
