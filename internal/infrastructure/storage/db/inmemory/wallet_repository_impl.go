package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

// WalletRepositoryImpl represents an in memory storage
type WalletRepositoryImpl struct {
	wallets map[domain.VaultID]domain.VaultWallet

	lock *sync.RWMutex
}

// NewWalletRepositoryImpl returns a new empty WalletRepositoryImpl
func NewWalletRepositoryImpl() *WalletRepositoryImpl {
	return &WalletRepositoryImpl{
		wallets: map[domain.VaultID]domain.VaultWallet{},
		lock:    &sync.RWMutex{},
	}
}

// AddWallet inserts the wallet only if the vault does not have one yet.
func (r *WalletRepositoryImpl) AddWallet(
	_ context.Context, wallet *domain.VaultWallet,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.wallets[wallet.VaultID]; ok {
		return domain.ErrWalletAlreadyExists
	}
	r.wallets[wallet.VaultID] = wallet.Copy()
	return nil
}

func (r *WalletRepositoryImpl) GetWallet(
	_ context.Context, vaultID domain.VaultID,
) (*domain.VaultWallet, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	wallet, ok := r.wallets[vaultID]
	if !ok {
		return nil, domain.ErrVaultNotFound
	}
	w := wallet.Copy()
	return &w, nil
}

// GetAllWallets returns the wallets sorted by vault id.
func (r *WalletRepositoryImpl) GetAllWallets(
	_ context.Context,
) ([]domain.VaultWallet, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.sortedWallets(), nil
}

func (r *WalletRepositoryImpl) sortedWallets() []domain.VaultWallet {
	wallets := make([]domain.VaultWallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		wallets = append(wallets, w.Copy())
	}
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].VaultID < wallets[j].VaultID
	})
	return wallets
}

type walletSnapshot struct {
	Wallets []domain.VaultWallet `json:"wallets"`
}

// Export serializes the whole repository.
func (r *WalletRepositoryImpl) Export() ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return json.Marshal(walletSnapshot{r.sortedWallets()})
}

// Import replaces the content of the repository with the given snapshot.
// The repository is left empty if the snapshot is invalid.
func (r *WalletRepositoryImpl) Import(data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.wallets = map[domain.VaultID]domain.VaultWallet{}

	var snapshot walletSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	wallets := make(map[domain.VaultID]domain.VaultWallet, len(snapshot.Wallets))
	for _, w := range snapshot.Wallets {
		if w.IsZero() {
			return fmt.Errorf("empty wallet for vault %d", w.VaultID)
		}
		if _, ok := wallets[w.VaultID]; ok {
			return fmt.Errorf("duplicate wallet for vault %d", w.VaultID)
		}
		wallets[w.VaultID] = w
	}
	r.wallets = wallets
	return nil
}
