package domain

import "context"

// WalletRepository is the abstraction for any kind of storage intended to
// hold the wallets of the vaults.
type WalletRepository interface {
	// AddWallet commits a new wallet. It fails with ErrWalletAlreadyExists if
	// the vault already has one, in which case the existing record is left
	// untouched.
	AddWallet(ctx context.Context, wallet *VaultWallet) error
	// GetWallet returns a copy of the wallet of the vault or ErrVaultNotFound.
	GetWallet(ctx context.Context, vaultID VaultID) (*VaultWallet, error)
	// GetAllWallets ...
	GetAllWallets(ctx context.Context) ([]VaultWallet, error)
}
