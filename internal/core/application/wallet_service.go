package application

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/pkg/wallet"
)

type WalletService interface {
	// GenerateAddress returns the deposit address of the vault, deriving it
	// on first request. The loser of two concurrent first requests fails
	// with ErrWalletAlreadyExists.
	GenerateAddress(
		ctx context.Context, vaultID domain.VaultID, keyReference string,
	) (*domain.AddressInfo, error)
	// GetAddress returns nil if the vault has no wallet yet.
	GetAddress(
		ctx context.Context, vaultID domain.VaultID,
	) (*domain.AddressInfo, error)
	ExecuteInheritance(
		ctx context.Context, req ExecuteInheritanceRequest,
	) (*InheritanceReceipt, error)
}

type walletService struct {
	walletRepository domain.WalletRepository
	signer           ports.SigningOracle
	bitcoin          ports.BitcoinOracle
	network          *chaincfg.Params
	networkName      string
}

func NewWalletService(
	walletRepository domain.WalletRepository,
	signer ports.SigningOracle,
	bitcoin ports.BitcoinOracle,
	network string,
) (WalletService, error) {
	params, err := wallet.NetworkFromString(network)
	if err != nil {
		return nil, err
	}
	return &walletService{
		walletRepository: walletRepository,
		signer:           signer,
		bitcoin:          bitcoin,
		network:          params,
		networkName:      network,
	}, nil
}

func (w *walletService) GenerateAddress(
	ctx context.Context, vaultID domain.VaultID, keyReference string,
) (*domain.AddressInfo, error) {
	if strings.TrimSpace(keyReference) == "" {
		return nil, domain.ErrMissingKeyReference
	}

	if info, err := w.GetAddress(ctx, vaultID); err != nil || info != nil {
		return info, err
	}

	vaultWallet, err := w.createWallet(ctx, vaultID, keyReference)
	if err != nil {
		return nil, err
	}
	info := vaultWallet.Info()
	return &info, nil
}

func (w *walletService) GetAddress(
	ctx context.Context, vaultID domain.VaultID,
) (*domain.AddressInfo, error) {
	vaultWallet, err := w.walletRepository.GetWallet(ctx, vaultID)
	if err != nil {
		if errors.Is(err, domain.ErrVaultNotFound) {
			return nil, nil
		}
		return nil, err
	}
	info := vaultWallet.Info()
	return &info, nil
}

func (w *walletService) createWallet(
	ctx context.Context, vaultID domain.VaultID, keyReference string,
) (*domain.VaultWallet, error) {
	derivationPath := domain.WalletDerivationPath(vaultID)
	pubkey, err := w.signer.DeriveSigningPublicKey(ctx, derivationPath, keyReference)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure,
			fmt.Errorf("failed to derive vault public key: %w", err),
		)
	}
	payment, err := wallet.NewP2WPKH(pubkey, w.network)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}

	vaultWallet := &domain.VaultWallet{
		VaultID:        vaultID,
		KeyReference:   keyReference,
		DerivationPath: derivationPath,
		Address:        payment.Address,
		ScriptPubKey:   payment.ScriptPubKey,
		PublicKey:      payment.PublicKey,
		Network:        w.networkName,
	}
	if err := w.walletRepository.AddWallet(ctx, vaultWallet); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vault_id": vaultID,
		"address":  vaultWallet.Address,
	}).Info("generated vault deposit address")
	return vaultWallet, nil
}

func (w *walletService) ExecuteInheritance(
	ctx context.Context, req ExecuteInheritanceRequest,
) (*InheritanceReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	heirScripts, err := w.heirScripts(req.Heirs)
	if err != nil {
		return nil, err
	}

	vaultWallet, err := w.walletRepository.GetWallet(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if vaultWallet.KeyReference != req.KeyReference {
		return nil, domain.ErrKeyReferenceMismatch
	}

	utxos, err := w.bitcoin.FetchUtxos(
		ctx, vaultWallet.Address, vaultWallet.Network, domain.MinConfirmations,
	)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindUpstreamUnavailable,
			fmt.Errorf("failed to fetch utxos: %w", err),
		)
	}
	if len(utxos) <= 0 {
		return nil, domain.ErrNoUtxos
	}
	ins, total, err := normalizeUtxos(utxos)
	if err != nil {
		return nil, err
	}

	percentiles, err := w.bitcoin.FetchFeePercentiles(ctx, vaultWallet.Network)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindUpstreamUnavailable,
			fmt.Errorf("failed to fetch fee percentiles: %w", err),
		)
	}
	feeRate := domain.FeeRateFromPercentiles(percentiles)
	fee, err := domain.EstimateFee(feeRate, len(ins), len(req.Heirs))
	if err != nil {
		return nil, err
	}
	if total <= fee {
		return nil, domain.ErrInsufficientFunds
	}

	amounts, err := domain.AllocatePayouts(total-fee, req.Heirs)
	if err != nil {
		return nil, err
	}
	outs := make([]wallet.Output, 0, len(amounts))
	payouts := make([]Payout, 0, len(amounts))
	for i, amount := range amounts {
		outs = append(outs, wallet.Output{Script: heirScripts[i], Amount: amount})
		payouts = append(payouts, Payout{req.Heirs[i].Address, amount})
	}

	tx, err := wallet.NewUnsignedTx(ins, outs)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}

	prevValues := make([]uint64, 0, len(ins))
	for _, in := range ins {
		prevValues = append(prevValues, in.Value)
	}
	if err := wallet.SignP2WPKHInputs(wallet.SignP2WPKHInputsOpts{
		Tx:         tx,
		PrevValues: prevValues,
		PrevScript: vaultWallet.ScriptPubKey,
		PublicKey:  vaultWallet.PublicKey,
		Sign: func(_ int, digest []byte) ([]byte, error) {
			return w.signer.Sign(
				ctx, digest, vaultWallet.DerivationPath, vaultWallet.KeyReference,
			)
		},
	}); err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure,
			fmt.Errorf("failed to sign transaction: %w", err),
		)
	}

	rawTx, err := wallet.SerializeTx(tx)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}
	if err := w.bitcoin.BroadcastTransaction(ctx, rawTx, vaultWallet.Network); err != nil {
		return nil, domain.WrapError(
			domain.KindUpstreamUnavailable,
			fmt.Errorf("failed to broadcast transaction: %w", err),
		)
	}
	txid := wallet.TxID(tx)

	log.WithFields(log.Fields{
		"vault_id":             req.VaultID,
		"txid":                 txid,
		"fee":                  fee,
		"guardian_submissions": req.GuardianSubmissions,
	}).Info("inheritance transaction broadcasted")

	return &InheritanceReceipt{
		TxID:      txid,
		NumInputs: len(ins),
		Total:     total,
		Fee:       fee,
		FeeRate:   feeRate,
		Payouts:   payouts,
	}, nil
}

func (w *walletService) heirScripts(heirs []domain.HeirRecord) ([][]byte, error) {
	scripts := make([][]byte, 0, len(heirs))
	for _, heir := range heirs {
		script, err := wallet.AddressToScript(heir.Address, w.network)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidHeirAddress, err)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

func normalizeUtxos(utxos []ports.Utxo) ([]wallet.Input, uint64, error) {
	ins := make([]wallet.Input, 0, len(utxos))
	var total uint64
	for _, u := range utxos {
		if _, err := wallet.NewOutPoint(u.GetTxid(), u.GetIndex()); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedUtxo, err)
		}
		sum, carry := bits.Add64(total, u.GetValue(), 0)
		if carry != 0 {
			return nil, 0, domain.ErrPayoutOverflow
		}
		total = sum
		ins = append(ins, wallet.Input{
			Txid:  u.GetTxid(),
			Index: u.GetIndex(),
			Value: u.GetValue(),
		})
	}
	return ins, total, nil
}
