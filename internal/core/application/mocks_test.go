package application_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

// **** Signing oracle ****

// signFn lets a test compute the signature of the digest requested.
type signFn func(digest []byte) []byte

type mockSigningOracle struct {
	mock.Mock
}

func (m *mockSigningOracle) DeriveSigningPublicKey(
	_ context.Context, derivationPath [][]byte, keyReference string,
) ([]byte, error) {
	args := m.Called(derivationPath, keyReference)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockSigningOracle) Sign(
	_ context.Context, digest []byte, derivationPath [][]byte,
	keyReference string,
) ([]byte, error) {
	args := m.Called(digest, derivationPath, keyReference)

	var res []byte
	switch a := args.Get(0).(type) {
	case []byte:
		res = a
	case signFn:
		res = a(digest)
	}
	return res, args.Error(1)
}

// **** Key derivation oracle ****

type mockKeyDerivationOracle struct {
	mock.Mock
}

func (m *mockKeyDerivationOracle) DeriveEncryptedKey(
	_ context.Context, input, derivationContext []byte,
	keyReference string, transportPublicKey []byte,
) ([]byte, error) {
	args := m.Called(input, derivationContext, keyReference, transportPublicKey)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockKeyDerivationOracle) DerivedPublicKey(
	_ context.Context, derivationContext []byte, keyReference string,
) ([]byte, error) {
	args := m.Called(derivationContext, keyReference)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

// **** Randomness source ****

type mockRandomnessSource struct {
	mock.Mock
}

func (m *mockRandomnessSource) RawRandom(_ context.Context) ([]byte, error) {
	args := m.Called()

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

// **** Bitcoin oracle ****

type mockBitcoinOracle struct {
	mock.Mock
}

func (m *mockBitcoinOracle) FetchUtxos(
	_ context.Context, address, network string, minConfirmations uint32,
) ([]ports.Utxo, error) {
	args := m.Called(address, network, minConfirmations)

	var res []ports.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]ports.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockBitcoinOracle) FetchFeePercentiles(
	_ context.Context, network string,
) ([]uint64, error) {
	args := m.Called(network)

	var res []uint64
	if a := args.Get(0); a != nil {
		res = a.([]uint64)
	}
	return res, args.Error(1)
}

func (m *mockBitcoinOracle) BroadcastTransaction(
	_ context.Context, rawTx []byte, network string,
) error {
	args := m.Called(rawTx, network)
	return args.Error(0)
}

type mockUtxo struct {
	txid  string
	index uint32
	value uint64
}

func (u mockUtxo) GetTxid() string {
	return u.txid
}

func (u mockUtxo) GetIndex() uint32 {
	return u.index
}

func (u mockUtxo) GetValue() uint64 {
	return u.value
}

// **** Share custody ****

type mockShareCustody struct {
	mock.Mock
}

func (m *mockShareCustody) EncryptShare(
	_ context.Context, vaultID domain.VaultID, keyReference string,
	guardian domain.GuardianEntry, plaintext []byte,
) ([]byte, error) {
	args := m.Called(vaultID, keyReference, guardian.EmailHash, plaintext)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockShareCustody) DecryptShare(
	_ context.Context, vaultID domain.VaultID, keyReference string,
	guardian domain.GuardianEntry, ciphertext []byte,
) ([]byte, error) {
	args := m.Called(vaultID, keyReference, guardian.EmailHash, ciphertext)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

// **** Snapshot store ****

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) LoadSnapshot(
	_ context.Context, key string,
) ([]byte, error) {
	args := m.Called(key)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockSnapshotStore) SaveSnapshot(
	_ context.Context, key string, data []byte,
) error {
	args := m.Called(key, data)
	return args.Error(0)
}

func (m *mockSnapshotStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
