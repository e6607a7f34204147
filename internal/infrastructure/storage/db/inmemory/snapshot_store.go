package inmemory

import (
	"context"
	"sync"

	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

type snapshotStore struct {
	snapshots map[string][]byte
	lock      *sync.RWMutex
}

// NewSnapshotStore returns a volatile snapshot store, mostly useful for
// tests and throwaway deployments.
func NewSnapshotStore() ports.SnapshotStore {
	return &snapshotStore{
		snapshots: map[string][]byte{},
		lock:      &sync.RWMutex{},
	}
}

func (s *snapshotStore) LoadSnapshot(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, ok := s.snapshots[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, data...), nil
}

func (s *snapshotStore) SaveSnapshot(_ context.Context, key string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.snapshots[key] = append([]byte{}, data...)
	return nil
}

func (s *snapshotStore) Close() error {
	return nil
}
