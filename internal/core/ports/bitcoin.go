package ports

import "context"

type UtxoKey interface {
	GetTxid() string
	GetIndex() uint32
}

type Utxo interface {
	UtxoKey
	GetValue() uint64
}

// BitcoinOracle gives access to chain data and to the broadcast relay of a
// Bitcoin network.
type BitcoinOracle interface {
	FetchUtxos(
		ctx context.Context, address, network string, minConfirmations uint32,
	) ([]Utxo, error)
	// FetchFeePercentiles returns the fee rate percentiles in millisatoshi
	// per vbyte, sorted ascending. The list may be empty.
	FetchFeePercentiles(ctx context.Context, network string) ([]uint64, error)
	BroadcastTransaction(ctx context.Context, rawTx []byte, network string) error
}
