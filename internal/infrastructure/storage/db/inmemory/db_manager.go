package inmemory

import (
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

type RepoManager struct {
	walletRepository   *WalletRepositoryImpl
	guardianRepository *GuardianRepositoryImpl
}

func NewRepoManager() ports.RepoManager {
	return &RepoManager{
		walletRepository:   NewWalletRepositoryImpl(),
		guardianRepository: NewGuardianRepositoryImpl(),
	}
}

func (d *RepoManager) WalletRepository() domain.WalletRepository {
	return d.walletRepository
}

func (d *RepoManager) GuardianRepository() domain.GuardianRepository {
	return d.guardianRepository
}

func (d *RepoManager) WalletSnapshotter() ports.Snapshotter {
	return d.walletRepository
}

func (d *RepoManager) GuardianSnapshotter() ports.Snapshotter {
	return d.guardianRepository
}
