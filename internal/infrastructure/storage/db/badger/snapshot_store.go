package dbbadger

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const snapshotsDir = "snapshots"

type snapshot struct {
	Key     string
	Data    []byte
	SavedAt int64
}

type snapshotStore struct {
	store *badgerhold.Store
}

// NewSnapshotStore opens, or creates, the badger db holding the service
// snapshots in the given datadir. An empty datadir opens an in-memory db.
func NewSnapshotStore(
	datadir string, logger badger.Logger,
) (ports.SnapshotStore, error) {
	store, err := createDb(datadir, logger)
	if err != nil {
		return nil, err
	}
	return &snapshotStore{store}, nil
}

func (s *snapshotStore) LoadSnapshot(
	_ context.Context, key string,
) ([]byte, error) {
	var snap snapshot
	if err := s.store.Get(key, &snap); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return snap.Data, nil
}

func (s *snapshotStore) SaveSnapshot(
	_ context.Context, key string, data []byte,
) error {
	return s.store.Upsert(key, snapshot{
		Key:     key,
		Data:    data,
		SavedAt: time.Now().Unix(),
	})
}

func (s *snapshotStore) Close() error {
	return s.store.Close()
}

func createDb(datadir string, logger badger.Logger) (*badgerhold.Store, error) {
	var opts badger.Options
	if datadir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(datadir, snapshotsDir))
		opts.Compression = options.ZSTD
	}
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
