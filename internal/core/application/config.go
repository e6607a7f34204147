package application

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	dbbadger "github.com/thresholdvault/vault-daemon/internal/infrastructure/storage/db/badger"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/storage/db/inmemory"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}

	// ErrUnsupportedDBType ...
	ErrUnsupportedDBType = errors.New("unsupported snapshot store type")
	// ErrMissingOracle ...
	ErrMissingOracle = errors.New("signing, key derivation, randomness and bitcoin oracles are required")
)

type Config struct {
	// DBType selects the snapshot store, DBConfig is its datadir for badger.
	DBType   string
	DBConfig interface{}

	Network     string
	Controllers []string
	Now         func() time.Time

	SigningOracle       ports.SigningOracle
	KeyDerivationOracle ports.KeyDerivationOracle
	RandomnessSource    ports.RandomnessSource
	BitcoinOracle       ports.BitcoinOracle

	repo      ports.RepoManager
	store     ports.SnapshotStore
	custody   ShareCustody
	wallet    WalletService
	guardian  GuardianService
	lifecycle LifecycleService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return ErrUnsupportedDBType
	}
	if c.SigningOracle == nil || c.KeyDerivationOracle == nil ||
		c.RandomnessSource == nil || c.BitcoinOracle == nil {
		return ErrMissingOracle
	}
	if _, err := c.walletService(); err != nil {
		return err
	}
	if _, err := c.snapshotStore(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repoManager()
}

func (c *Config) SnapshotStore() ports.SnapshotStore {
	store, _ := c.snapshotStore()
	return store
}

func (c *Config) WalletService() WalletService {
	svc, _ := c.walletService()
	return svc
}

func (c *Config) GuardianService() GuardianService {
	return c.guardianService()
}

func (c *Config) LifecycleService() LifecycleService {
	svc, _ := c.lifecycleService()
	return svc
}

func (c *Config) repoManager() ports.RepoManager {
	if c.repo == nil {
		c.repo = inmemory.NewRepoManager()
	}
	return c.repo
}

func (c *Config) snapshotStore() (ports.SnapshotStore, error) {
	if c.store == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			store, err := dbbadger.NewSnapshotStore(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.store = store
		case DBInMemory:
			c.store = inmemory.NewSnapshotStore()
		default:
			return nil, ErrUnsupportedDBType
		}
	}
	return c.store, nil
}

func (c *Config) shareCustody() ShareCustody {
	if c.custody == nil {
		c.custody = NewShareCustody(c.KeyDerivationOracle, c.RandomnessSource)
	}
	return c.custody
}

func (c *Config) walletService() (WalletService, error) {
	if c.wallet == nil {
		svc, err := NewWalletService(
			c.repoManager().WalletRepository(), c.SigningOracle, c.BitcoinOracle,
			c.Network,
		)
		if err != nil {
			return nil, err
		}
		c.wallet = svc
	}
	return c.wallet, nil
}

func (c *Config) guardianService() GuardianService {
	if c.guardian == nil {
		c.guardian = NewGuardianService(
			c.repoManager().GuardianRepository(), c.shareCustody(),
			c.Controllers, c.Now,
		)
	}
	return c.guardian
}

func (c *Config) lifecycleService() (LifecycleService, error) {
	if c.lifecycle == nil {
		store, err := c.snapshotStore()
		if err != nil {
			return nil, err
		}
		c.lifecycle = NewLifecycleService(store, c.repoManager())
	}
	return c.lifecycle, nil
}
