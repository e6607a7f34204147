package esplora

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func (e *esplora) getBlockHeight(ctx context.Context) (uint32, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	resp, err := e.request(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(resp), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block height: %w", err)
	}
	return uint32(height), nil
}
