package esplora

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/pkg/circuitbreaker"
	"github.com/thresholdvault/vault-daemon/pkg/httputil"
	"go.uber.org/ratelimit"
)

const (
	// DefaultRequestsPerSecond ...
	DefaultRequestsPerSecond = 10
)

// ErrNetworkMismatch is returned when a request targets a network other than
// the one the explorer is connected to.
var ErrNetworkMismatch = fmt.Errorf("explorer network mismatch")

type esplora struct {
	apiURL  string
	network string
	client  *httputil.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// Config ...
type Config struct {
	APIURL            string
	Network           string
	RequestTimeout    time.Duration
	RequestsPerSecond int
}

// NewService returns a new esplora service as a ports.BitcoinOracle
// interface. The explorer is reached once to make sure it's up and running.
func NewService(cfg Config) (ports.BitcoinOracle, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("missing explorer url")
	}
	if cfg.Network == "" {
		return nil, fmt.Errorf("missing network")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	service := &esplora{
		apiURL:  strings.TrimSuffix(cfg.APIURL, "/"),
		network: cfg.Network,
		client:  httputil.NewClient(cfg.RequestTimeout),
		cb:      circuitbreaker.NewCircuitBreaker("explorer"),
		limiter: ratelimit.New(rps),
	}

	if _, err := service.getBlockHeight(context.Background()); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	log.Debugf("connected to explorer %s (%s)", service.apiURL, service.network)
	return service, nil
}

func (e *esplora) checkNetwork(network string) error {
	if network != e.network {
		return fmt.Errorf(
			"%w: got %s, expected %s", ErrNetworkMismatch, network, e.network,
		)
	}
	return nil
}

// request rate limits and wraps with the circuit breaker every call to the
// explorer. Any non-2xx status is turned into an error.
func (e *esplora) request(
	ctx context.Context, method, url, body string, headers map[string]string,
) (string, error) {
	e.limiter.Take()

	resp, err := e.cb.Execute(func() (interface{}, error) {
		status, resp, err := e.client.NewHTTPRequest(ctx, method, url, body, headers)
		if err != nil {
			return nil, err
		}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("explorer returned status %d: %s", status, resp)
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}
