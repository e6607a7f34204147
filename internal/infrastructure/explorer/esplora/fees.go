package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
)

var milliSatsPerSat = decimal.NewFromInt(1000)

// FetchFeePercentiles returns the fee rates estimated by the explorer for
// every confirmation target, converted to millisatoshi per vbyte and sorted
// ascending.
func (e *esplora) FetchFeePercentiles(
	ctx context.Context, network string,
) ([]uint64, error) {
	if err := e.checkNetwork(network); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/fee-estimates", e.apiURL)
	resp, err := e.request(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("error on retrieving fee estimates: %w", err)
	}

	estimates := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(resp), &estimates); err != nil {
		return nil, fmt.Errorf("error on retrieving fee estimates: %w", err)
	}

	rates := make([]uint64, 0, len(estimates))
	for target, satsPerVByte := range estimates {
		if satsPerVByte.IsNegative() {
			return nil, fmt.Errorf("negative fee rate for target %s", target)
		}
		rates = append(rates, uint64(satsPerVByte.Mul(milliSatsPerSat).Ceil().IntPart()))
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })

	return rates, nil
}
