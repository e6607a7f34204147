package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

const (
	WalletSnapshotKey   = "wallet"
	GuardianSnapshotKey = "guardian"
)

// LifecycleService restores the state of the services at startup and
// persists it at shutdown.
type LifecycleService interface {
	// Restore imports the latest snapshots. Missing or unparsable snapshots
	// leave the state empty, while failing to read the store is an error.
	Restore(ctx context.Context) error
	Persist(ctx context.Context) error
}

type snapshotHook struct {
	key         string
	snapshotter ports.Snapshotter
}

type lifecycleService struct {
	store            ports.SnapshotStore
	hooks            []snapshotHook
	walletRepository domain.WalletRepository
}

func NewLifecycleService(
	store ports.SnapshotStore, repoManager ports.RepoManager,
) LifecycleService {
	return &lifecycleService{
		store: store,
		hooks: []snapshotHook{
			{WalletSnapshotKey, repoManager.WalletSnapshotter()},
			{GuardianSnapshotKey, repoManager.GuardianSnapshotter()},
		},
		walletRepository: repoManager.WalletRepository(),
	}
}

func (l *lifecycleService) Restore(ctx context.Context) error {
	for _, hook := range l.hooks {
		data, err := l.store.LoadSnapshot(ctx, hook.key)
		if err != nil {
			return fmt.Errorf("failed to load %s snapshot: %w", hook.key, err)
		}
		if len(data) <= 0 {
			log.Infof("no %s snapshot found, starting with empty state", hook.key)
			continue
		}
		if err := hook.snapshotter.Import(data); err != nil {
			log.WithError(err).Warnf(
				"failed to parse %s snapshot, starting with empty state", hook.key,
			)
			continue
		}
		log.Infof("%s state restored from snapshot", hook.key)
	}

	wallets, err := l.walletRepository.GetAllWallets(ctx)
	if err != nil {
		return err
	}
	log.Infof("%d vault wallets loaded", len(wallets))
	return nil
}

func (l *lifecycleService) Persist(ctx context.Context) error {
	for _, hook := range l.hooks {
		data, err := hook.snapshotter.Export()
		if err != nil {
			return fmt.Errorf("failed to export %s state: %w", hook.key, err)
		}
		if err := l.store.SaveSnapshot(ctx, hook.key, data); err != nil {
			return fmt.Errorf("failed to save %s snapshot: %w", hook.key, err)
		}
		log.Debugf("%s snapshot persisted", hook.key)
	}
	log.Info("state persisted")
	return nil
}
