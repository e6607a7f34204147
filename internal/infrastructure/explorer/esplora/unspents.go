package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

type utxoStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
}

type utxo struct {
	Txid   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Amount uint64     `json:"value"`
	Status utxoStatus `json:"status"`
}

func (u utxo) GetTxid() string {
	return u.Txid
}

func (u utxo) GetIndex() uint32 {
	return u.Vout
}

func (u utxo) GetValue() uint64 {
	return u.Amount
}

// confirmations returns the number of blocks including the one that mined
// the utxo, 0 if still in mempool.
func (u utxo) confirmations(tip uint32) uint32 {
	if !u.Status.Confirmed || u.Status.BlockHeight > tip {
		return 0
	}
	return tip - u.Status.BlockHeight + 1
}

// FetchUtxos returns the unspents of address with at least minConfirmations.
func (e *esplora) FetchUtxos(
	ctx context.Context, address, network string, minConfirmations uint32,
) ([]ports.Utxo, error) {
	if err := e.checkNetwork(network); err != nil {
		return nil, err
	}

	tip, err := e.getBlockHeight(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/address/%s/utxo", e.apiURL, address)
	resp, err := e.request(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("error on retrieving utxos: %w", err)
	}

	var outs []utxo
	if err := json.Unmarshal([]byte(resp), &outs); err != nil {
		return nil, fmt.Errorf("error on retrieving utxos: %w", err)
	}

	unspents := make([]ports.Utxo, 0, len(outs))
	for _, out := range outs {
		if out.confirmations(tip) < minConfirmations {
			continue
		}
		unspents = append(unspents, out)
	}
	return unspents, nil
}
