package application_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/thresholdvault/vault-daemon/pkg/wallet"
)

const (
	network = "regtest"
	keyRef  = "test_key_1"
	vaultID = domain.VaultID(42)
)

var (
	ctx   = context.Background()
	txidA = strings.Repeat("aa", 32)
	txidB = strings.Repeat("bb", 32)
)

func newTestKey(label string) *btcec.PrivateKey {
	seed := sha256.Sum256([]byte(label))
	key, _ := btcec.PrivKeyFromBytes(seed[:])
	return key
}

func newTestP2WPKH(t *testing.T, label string, net *chaincfg.Params) *wallet.P2WPKH {
	t.Helper()
	p, err := wallet.NewP2WPKH(newTestKey(label).PubKey().SerializeCompressed(), net)
	require.NoError(t, err)
	return p
}

func compactSign(key *btcec.PrivateKey) signFn {
	return func(digest []byte) []byte {
		sig := ecdsa.SignCompact(key, digest, true)
		return sig[1:]
	}
}

// gatedSigningOracle blocks every key derivation until released or until the
// context of the caller is done.
type gatedSigningOracle struct {
	pubkey  []byte
	entered chan struct{}
	release chan struct{}
}

func newGatedSigningOracle(pubkey []byte) *gatedSigningOracle {
	return &gatedSigningOracle{
		pubkey:  pubkey,
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (g *gatedSigningOracle) DeriveSigningPublicKey(
	ctx context.Context, _ [][]byte, _ string,
) ([]byte, error) {
	g.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.release:
		return g.pubkey, nil
	}
}

func (g *gatedSigningOracle) Sign(
	context.Context, []byte, [][]byte, string,
) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type walletTestSetup struct {
	svc     application.WalletService
	signer  *mockSigningOracle
	bitcoin *mockBitcoinOracle
	key     *btcec.PrivateKey
	vault   *wallet.P2WPKH
}

// newWalletTestSetup returns a wallet service whose vaultID already has a
// deposit address.
func newWalletTestSetup(t *testing.T) *walletTestSetup {
	t.Helper()

	key := newTestKey("vault")
	signer := &mockSigningOracle{}
	signer.On(
		"DeriveSigningPublicKey", domain.WalletDerivationPath(vaultID), keyRef,
	).Return(key.PubKey().SerializeCompressed(), nil)
	bitcoin := &mockBitcoinOracle{}

	svc, err := application.NewWalletService(
		inmemory.NewWalletRepositoryImpl(), signer, bitcoin, network,
	)
	require.NoError(t, err)

	_, err = svc.GenerateAddress(ctx, vaultID, keyRef)
	require.NoError(t, err)

	return &walletTestSetup{
		svc:     svc,
		signer:  signer,
		bitcoin: bitcoin,
		key:     key,
		vault:   newTestP2WPKH(t, "vault", &chaincfg.RegressionNetParams),
	}
}

func TestNewWalletService(t *testing.T) {
	_, err := application.NewWalletService(
		inmemory.NewWalletRepositoryImpl(), &mockSigningOracle{},
		&mockBitcoinOracle{}, "simnet",
	)
	require.ErrorIs(t, err, wallet.ErrUnknownNetwork)
}

func TestGenerateAddress(t *testing.T) {
	key := newTestKey("vault")
	expected := newTestP2WPKH(t, "vault", &chaincfg.RegressionNetParams)

	t.Run("idempotent", func(t *testing.T) {
		signer := &mockSigningOracle{}
		signer.On(
			"DeriveSigningPublicKey", domain.WalletDerivationPath(vaultID), keyRef,
		).Return(key.PubKey().SerializeCompressed(), nil)

		svc, err := application.NewWalletService(
			inmemory.NewWalletRepositoryImpl(), signer, &mockBitcoinOracle{}, network,
		)
		require.NoError(t, err)

		info, err := svc.GetAddress(ctx, vaultID)
		require.NoError(t, err)
		require.Nil(t, info)

		first, err := svc.GenerateAddress(ctx, vaultID, keyRef)
		require.NoError(t, err)
		require.Equal(t, expected.Address, first.Address)
		require.Equal(t, keyRef, first.KeyReference)

		second, err := svc.GenerateAddress(ctx, vaultID, keyRef)
		require.NoError(t, err)
		require.Equal(t, first, second)

		// A different key reference does not change an existing wallet.
		third, err := svc.GenerateAddress(ctx, vaultID, "test_key_2")
		require.NoError(t, err)
		require.Equal(t, first, third)

		info, err = svc.GetAddress(ctx, vaultID)
		require.NoError(t, err)
		require.Equal(t, first, info)

		signer.AssertNumberOfCalls(t, "DeriveSigningPublicKey", 1)
	})

	t.Run("concurrent", func(t *testing.T) {
		signer := newGatedSigningOracle(key.PubKey().SerializeCompressed())
		repo := inmemory.NewWalletRepositoryImpl()
		svc, err := application.NewWalletService(
			repo, signer, &mockBitcoinOracle{}, network,
		)
		require.NoError(t, err)

		count := 2
		results := make([]*domain.AddressInfo, count)
		errs := make([]error, count)
		wg := &sync.WaitGroup{}
		wg.Add(count)
		for i := 0; i < count; i++ {
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.GenerateAddress(ctx, vaultID, keyRef)
			}(i)
		}
		// Both requests derive before either commits.
		for i := 0; i < count; i++ {
			<-signer.entered
		}
		close(signer.release)
		wg.Wait()

		var winners, losers int
		for i := 0; i < count; i++ {
			if errs[i] != nil {
				require.ErrorIs(t, errs[i], domain.ErrWalletAlreadyExists)
				require.ErrorIs(t, errs[i], domain.Kind(domain.KindAlreadyExists))
				losers++
				continue
			}
			require.Equal(t, expected.Address, results[i].Address)
			winners++
		}
		require.Equal(t, 1, winners)
		require.Equal(t, 1, losers)

		all, err := repo.GetAllWallets(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)

		info, err := svc.GetAddress(ctx, vaultID)
		require.NoError(t, err)
		require.Equal(t, expected.Address, info.Address)
	})

	t.Run("canceled caller", func(t *testing.T) {
		signer := newGatedSigningOracle(key.PubKey().SerializeCompressed())
		svc, err := application.NewWalletService(
			inmemory.NewWalletRepositoryImpl(), signer, &mockBitcoinOracle{}, network,
		)
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		canceledErr := make(chan error, 1)
		go func() {
			_, err := svc.GenerateAddress(canceled, vaultID, keyRef)
			canceledErr <- err
		}()
		<-signer.entered

		type result struct {
			info *domain.AddressInfo
			err  error
		}
		other := make(chan result, 1)
		go func() {
			info, err := svc.GenerateAddress(ctx, vaultID, keyRef)
			other <- result{info, err}
		}()
		<-signer.entered

		cancel()
		err = <-canceledErr
		require.ErrorIs(t, err, context.Canceled)

		close(signer.release)
		res := <-other
		require.NoError(t, res.err)
		require.Equal(t, expected.Address, res.info.Address)
	})

	t.Run("invalid", func(t *testing.T) {
		signer := &mockSigningOracle{}
		signer.On(
			"DeriveSigningPublicKey", domain.WalletDerivationPath(1), keyRef,
		).Return(nil, errors.New("oracle unavailable"))
		signer.On(
			"DeriveSigningPublicKey", domain.WalletDerivationPath(2), keyRef,
		).Return([]byte{0x02, 0x01}, nil)

		svc, err := application.NewWalletService(
			inmemory.NewWalletRepositoryImpl(), signer, &mockBitcoinOracle{}, network,
		)
		require.NoError(t, err)

		_, err = svc.GenerateAddress(ctx, 1, " ")
		require.ErrorIs(t, err, domain.ErrMissingKeyReference)

		_, err = svc.GenerateAddress(ctx, 1, keyRef)
		require.ErrorIs(t, err, domain.Kind(domain.KindCryptoFailure))

		_, err = svc.GenerateAddress(ctx, 2, keyRef)
		require.ErrorIs(t, err, domain.Kind(domain.KindCryptoFailure))

		for _, id := range []domain.VaultID{1, 2} {
			info, err := svc.GetAddress(ctx, id)
			require.NoError(t, err)
			require.Nil(t, info)
		}
	})
}

func TestExecuteInheritance(t *testing.T) {
	heirA := newTestP2WPKH(t, "heir_a", &chaincfg.RegressionNetParams)
	heirB := newTestP2WPKH(t, "heir_b", &chaincfg.RegressionNetParams)

	s := newWalletTestSetup(t)
	utxos := []ports.Utxo{
		mockUtxo{txidA, 0, 60000},
		mockUtxo{txidB, 1, 40208},
	}
	s.bitcoin.On(
		"FetchUtxos", s.vault.Address, network, uint32(domain.MinConfirmations),
	).Return(utxos, nil)
	s.bitcoin.On("FetchFeePercentiles", network).Return([]uint64{500, 1000, 1500}, nil)
	var rawTx []byte
	s.bitcoin.On("BroadcastTransaction", mock.Anything, network).Run(
		func(args mock.Arguments) {
			rawTx = args.Get(0).([]byte)
		},
	).Return(nil)
	s.signer.On(
		"Sign", mock.Anything, domain.WalletDerivationPath(vaultID), keyRef,
	).Return(compactSign(s.key), nil)

	receipt, err := s.svc.ExecuteInheritance(ctx, application.ExecuteInheritanceRequest{
		VaultID:      vaultID,
		KeyReference: keyRef,
		Heirs: []domain.HeirRecord{
			{Address: heirA.Address, WeightBps: 6000},
			{Address: heirB.Address, WeightBps: 4000},
		},
		GuardianSubmissions: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Equal(t, 2, receipt.NumInputs)
	require.Equal(t, uint64(100208), receipt.Total)
	require.Equal(t, uint64(1), receipt.FeeRate)
	require.Equal(t, uint64(208), receipt.Fee)
	require.Equal(t, []application.Payout{
		{Address: heirA.Address, Amount: 60000},
		{Address: heirB.Address, Amount: 40000},
	}, receipt.Payouts)
	s.signer.AssertNumberOfCalls(t, "Sign", 2)

	tx := wire.NewMsgTx(wire.TxVersion)
	require.NoError(t, tx.Deserialize(bytes.NewReader(rawTx)))
	require.Equal(t, receipt.TxID, tx.TxHash().String())
	require.Len(t, tx.TxOut, 2)
	require.Equal(t, heirA.ScriptPubKey, tx.TxOut[0].PkScript)
	require.Equal(t, int64(60000), tx.TxOut[0].Value)
	require.Equal(t, heirB.ScriptPubKey, tx.TxOut[1].PkScript)
	require.Equal(t, int64(40000), tx.TxOut[1].Value)

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		fetcher.AddPrevOut(
			in.PreviousOutPoint,
			wire.NewTxOut(int64(utxos[i].GetValue()), s.vault.ScriptPubKey),
		)
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i := range tx.TxIn {
		vm, err := txscript.NewEngine(
			s.vault.ScriptPubKey, tx, i, txscript.StandardVerifyFlags, nil,
			sigHashes, int64(utxos[i].GetValue()), fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())
	}
}

func TestFailingExecuteInheritance(t *testing.T) {
	heir := newTestP2WPKH(t, "heir_a", &chaincfg.RegressionNetParams)
	mainnetHeir := newTestP2WPKH(t, "heir_a", &chaincfg.MainNetParams)
	singleHeir := []domain.HeirRecord{{Address: heir.Address, WeightBps: 10000}}

	tests := []struct {
		name          string
		req           application.ExecuteInheritanceRequest
		utxos         []ports.Utxo
		utxosErr      error
		percentiles   []uint64
		feeErr        error
		signErr       error
		broadcastErr  error
		expectedErr   error
		expectedKind  domain.ErrorKind
		expectedCalls []string
	}{
		{
			name: "invalid_weights",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef,
				Heirs: []domain.HeirRecord{{Address: heir.Address, WeightBps: 9999}},
			},
			expectedErr: domain.ErrInvalidHeirs,
		},
		{
			name: "missing_key_reference",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, Heirs: singleHeir,
			},
			expectedErr: domain.ErrMissingKeyReference,
		},
		{
			name: "heir_address_of_other_network",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef,
				Heirs: []domain.HeirRecord{{Address: mainnetHeir.Address, WeightBps: 10000}},
			},
			expectedErr:  domain.ErrInvalidHeirAddress,
			expectedKind: domain.KindValidation,
		},
		{
			name: "unknown_vault",
			req: application.ExecuteInheritanceRequest{
				VaultID: 7, KeyReference: keyRef, Heirs: singleHeir,
			},
			expectedErr: domain.ErrVaultNotFound,
		},
		{
			name: "key_reference_mismatch",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: "test_key_2", Heirs: singleHeir,
			},
			expectedErr:  domain.ErrKeyReferenceMismatch,
			expectedKind: domain.KindCryptoFailure,
		},
		{
			name: "utxos_unavailable",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxosErr:      errors.New("explorer down"),
			expectedKind:  domain.KindUpstreamUnavailable,
			expectedCalls: []string{"FetchUtxos"},
		},
		{
			name: "no_utxos",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{},
			expectedErr:   domain.ErrNoUtxos,
			expectedCalls: []string{"FetchUtxos"},
		},
		{
			name: "malformed_utxo",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{mockUtxo{"zz", 0, 10000}},
			expectedErr:   domain.ErrMalformedUtxo,
			expectedKind:  domain.KindCryptoFailure,
			expectedCalls: []string{"FetchUtxos"},
		},
		{
			name: "fees_unavailable",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{mockUtxo{txidA, 0, 10000}},
			feeErr:        errors.New("explorer down"),
			expectedKind:  domain.KindUpstreamUnavailable,
			expectedCalls: []string{"FetchUtxos", "FetchFeePercentiles"},
		},
		{
			name: "insufficient_funds",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{mockUtxo{txidA, 0, 100}},
			percentiles:   []uint64{1000},
			expectedErr:   domain.ErrInsufficientFunds,
			expectedCalls: []string{"FetchUtxos", "FetchFeePercentiles"},
		},
		{
			// 649 - 109 fee = 540 below dust.
			name: "payout_below_dust",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{mockUtxo{txidA, 0, 649}},
			percentiles:   []uint64{1000},
			expectedErr:   domain.ErrInvalidHeirs,
			expectedCalls: []string{"FetchUtxos", "FetchFeePercentiles"},
		},
		{
			name: "sign_failure",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:         []ports.Utxo{mockUtxo{txidA, 0, 10000}},
			percentiles:   []uint64{1000},
			signErr:       errors.New("signing rejected"),
			expectedKind:  domain.KindCryptoFailure,
			expectedCalls: []string{"FetchUtxos", "FetchFeePercentiles"},
		},
		{
			name: "broadcast_rejected",
			req: application.ExecuteInheritanceRequest{
				VaultID: vaultID, KeyReference: keyRef, Heirs: singleHeir,
			},
			utxos:        []ports.Utxo{mockUtxo{txidA, 0, 10000}},
			percentiles:  []uint64{1000},
			broadcastErr: errors.New("bad-txns-inputs-missingorspent"),
			expectedKind: domain.KindUpstreamUnavailable,
			expectedCalls: []string{
				"FetchUtxos", "FetchFeePercentiles", "BroadcastTransaction",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newWalletTestSetup(t)
			s.bitcoin.On("FetchUtxos", mock.Anything, network, mock.Anything).
				Return(tt.utxos, tt.utxosErr)
			s.bitcoin.On("FetchFeePercentiles", network).
				Return(tt.percentiles, tt.feeErr)
			s.bitcoin.On("BroadcastTransaction", mock.Anything, network).
				Return(tt.broadcastErr)
			if tt.signErr != nil {
				s.signer.On("Sign", mock.Anything, mock.Anything, keyRef).
					Return(nil, tt.signErr)
			} else {
				s.signer.On("Sign", mock.Anything, mock.Anything, keyRef).
					Return(compactSign(s.key), nil)
			}

			receipt, err := s.svc.ExecuteInheritance(ctx, tt.req)
			require.Error(t, err)
			require.Nil(t, receipt)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			}
			if tt.expectedKind != "" {
				require.Equal(t, tt.expectedKind, domain.KindOf(err))
			}

			for _, method := range []string{
				"FetchUtxos", "FetchFeePercentiles", "BroadcastTransaction",
			} {
				expected := 0
				for _, m := range tt.expectedCalls {
					if m == method {
						expected = 1
					}
				}
				s.bitcoin.AssertNumberOfCalls(t, method, expected)
			}
		})
	}
}
