package application_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/storage/db/inmemory"
)

func TestLifecycle(t *testing.T) {
	store := inmemory.NewSnapshotStore()
	repoManager := inmemory.NewRepoManager()

	vaultWallet := &domain.VaultWallet{
		VaultID:        vaultID,
		KeyReference:   keyRef,
		DerivationPath: domain.WalletDerivationPath(vaultID),
		Address:        "bcrt1qaddress",
		ScriptPubKey:   []byte{0x00, 0x14},
		PublicKey:      []byte{0x02},
		Network:        network,
	}
	require.NoError(t, repoManager.WalletRepository().AddWallet(ctx, vaultWallet))

	set, err := domain.NewVaultGuardianSet(
		vaultID, owner, 2, keyRef, newTestInvites(), now.Unix(),
	)
	require.NoError(t, err)
	require.NoError(t, set.Guardians[0].Accept(alice, now.Unix()))
	require.NoError(t, repoManager.GuardianRepository().AddGuardianSet(ctx, set))
	require.NoError(t, repoManager.GuardianRepository().SetVaultManager(ctx, owner))

	svc := application.NewLifecycleService(store, repoManager)
	require.NoError(t, svc.Persist(ctx))

	restoredManager := inmemory.NewRepoManager()
	restored := application.NewLifecycleService(store, restoredManager)
	require.NoError(t, restored.Restore(ctx))

	gotWallet, err := restoredManager.WalletRepository().GetWallet(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, vaultWallet, gotWallet)

	gotSet, err := restoredManager.GuardianRepository().GetGuardianSet(ctx, vaultID)
	require.NoError(t, err)
	require.Equal(t, set, gotSet)

	vaults, err := restoredManager.GuardianRepository().GetVaultsForGuardian(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []domain.VaultID{vaultID}, vaults)

	manager, ok, err := restoredManager.GuardianRepository().GetVaultManager(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, owner, manager)
}

func TestLifecycleRestore(t *testing.T) {
	t.Run("empty_store", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		svc := application.NewLifecycleService(inmemory.NewSnapshotStore(), repoManager)
		require.NoError(t, svc.Restore(ctx))

		wallets, err := repoManager.WalletRepository().GetAllWallets(ctx)
		require.NoError(t, err)
		require.Empty(t, wallets)
	})

	t.Run("corrupted_snapshot", func(t *testing.T) {
		store := inmemory.NewSnapshotStore()
		require.NoError(t, store.SaveSnapshot(ctx, application.WalletSnapshotKey, []byte("{")))
		require.NoError(t, store.SaveSnapshot(ctx, application.GuardianSnapshotKey, []byte("nope")))

		repoManager := inmemory.NewRepoManager()
		svc := application.NewLifecycleService(store, repoManager)
		require.NoError(t, svc.Restore(ctx))

		_, err := repoManager.GuardianRepository().GetGuardianSet(ctx, vaultID)
		require.ErrorIs(t, err, domain.ErrVaultNotFound)
	})

	t.Run("store_failure", func(t *testing.T) {
		store := &mockSnapshotStore{}
		store.On("LoadSnapshot", application.WalletSnapshotKey).
			Return(nil, errors.New("io error"))

		svc := application.NewLifecycleService(store, inmemory.NewRepoManager())
		require.Error(t, svc.Restore(ctx))
	})
}

func TestLifecyclePersistFailure(t *testing.T) {
	store := &mockSnapshotStore{}
	store.On("SaveSnapshot", application.WalletSnapshotKey, mock.Anything).
		Return(errors.New("disk full"))

	svc := application.NewLifecycleService(store, inmemory.NewRepoManager())
	require.Error(t, svc.Persist(ctx))
	store.AssertNotCalled(t, "SaveSnapshot", application.GuardianSnapshotKey, mock.Anything)
}
