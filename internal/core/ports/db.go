package ports

import (
	"context"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

// Snapshotter serializes the whole state of a repository and restores it.
type Snapshotter interface {
	Export() ([]byte, error)
	Import(data []byte) error
}

// RepoManager interface defines the repositories of the services and their
// snapshot hooks.
type RepoManager interface {
	WalletRepository() domain.WalletRepository
	GuardianRepository() domain.GuardianRepository
	WalletSnapshotter() Snapshotter
	GuardianSnapshotter() Snapshotter
}

// SnapshotStore durably holds the serialized state of the services across
// restarts.
type SnapshotStore interface {
	// LoadSnapshot returns nil, nil if no snapshot exists for key.
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, data []byte) error
	Close() error
}
