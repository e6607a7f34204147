package esplora

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// BroadcastTransaction relays the serialized tx to the network.
func (e *esplora) BroadcastTransaction(
	ctx context.Context, rawTx []byte, network string,
) error {
	if err := e.checkNetwork(network); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/tx", e.apiURL)
	headers := map[string]string{
		"Content-Type": "text/plain",
	}

	txid, err := e.request(ctx, http.MethodPost, url, hex.EncodeToString(rawTx), headers)
	if err != nil {
		return fmt.Errorf("error on broadcasting tx: %w", err)
	}

	log.Debugf("broadcasted tx %s", txid)
	return nil
}
