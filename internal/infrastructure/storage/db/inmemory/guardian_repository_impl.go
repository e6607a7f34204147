package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

// GuardianRepositoryImpl represents an in memory storage
type GuardianRepositoryImpl struct {
	sets    map[domain.VaultID]domain.VaultGuardianSet
	manager domain.Principal

	lock *sync.RWMutex
}

// NewGuardianRepositoryImpl returns a new empty GuardianRepositoryImpl
func NewGuardianRepositoryImpl() *GuardianRepositoryImpl {
	return &GuardianRepositoryImpl{
		sets: map[domain.VaultID]domain.VaultGuardianSet{},
		lock: &sync.RWMutex{},
	}
}

func (r *GuardianRepositoryImpl) AddGuardianSet(
	_ context.Context, set *domain.VaultGuardianSet,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.sets[set.VaultID]; ok {
		return domain.ErrVaultAlreadyRegistered
	}
	r.sets[set.VaultID] = set.Copy()
	return nil
}

func (r *GuardianRepositoryImpl) GetGuardianSet(
	_ context.Context, vaultID domain.VaultID,
) (*domain.VaultGuardianSet, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	set, ok := r.sets[vaultID]
	if !ok {
		return nil, domain.ErrVaultNotFound
	}
	s := set.Copy()
	return &s, nil
}

// UpdateGuardianSet runs updateFn on a copy of the current set under the
// write lock, so that reads and commits of concurrent updates never
// interleave.
func (r *GuardianRepositoryImpl) UpdateGuardianSet(
	_ context.Context,
	vaultID domain.VaultID,
	updateFn func(s *domain.VaultGuardianSet) (*domain.VaultGuardianSet, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	set, ok := r.sets[vaultID]
	if !ok {
		return domain.ErrVaultNotFound
	}
	current := set.Copy()
	updated, err := updateFn(&current)
	if err != nil {
		return err
	}
	if updated.VaultID != vaultID {
		return fmt.Errorf("vault id of guardian set must not change")
	}
	r.sets[vaultID] = updated.Copy()
	return nil
}

func (r *GuardianRepositoryImpl) GetVaultsForGuardian(
	_ context.Context, p domain.Principal,
) ([]domain.VaultID, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ids := make([]domain.VaultID, 0)
	for id, set := range r.sets {
		if set.IsGuardian(p) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *GuardianRepositoryImpl) GetVaultManager(
	_ context.Context,
) (domain.Principal, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.manager, r.manager != "", nil
}

func (r *GuardianRepositoryImpl) SetVaultManager(
	_ context.Context, manager domain.Principal,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.manager = manager
	return nil
}

type guardianSnapshot struct {
	Manager domain.Principal          `json:"manager,omitempty"`
	Sets    []domain.VaultGuardianSet `json:"sets"`
}

// Export serializes the whole repository.
func (r *GuardianRepositoryImpl) Export() ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	sets := make([]domain.VaultGuardianSet, 0, len(r.sets))
	for _, s := range r.sets {
		sets = append(sets, s.Copy())
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].VaultID < sets[j].VaultID })

	return json.Marshal(guardianSnapshot{r.manager, sets})
}

// Import replaces the content of the repository with the given snapshot.
// The repository is left empty if the snapshot is invalid.
func (r *GuardianRepositoryImpl) Import(data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.sets = map[domain.VaultID]domain.VaultGuardianSet{}
	r.manager = ""

	var snapshot guardianSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	sets := make(map[domain.VaultID]domain.VaultGuardianSet, len(snapshot.Sets))
	for _, s := range snapshot.Sets {
		if _, ok := sets[s.VaultID]; ok {
			return fmt.Errorf("duplicate guardian set for vault %d", s.VaultID)
		}
		sets[s.VaultID] = s
	}
	r.sets = sets
	r.manager = snapshot.Manager
	return nil
}
