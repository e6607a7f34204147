package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/interfaces"
	"github.com/thresholdvault/vault-daemon/pkg/stats"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type ServiceOpts struct {
	Address        string
	AuthSecret     []byte
	EnableProfiler bool

	// Gatherer is exposed at /metrics, Metrics are updated by every call.
	// Both are optional.
	Gatherer prometheus.Gatherer
	Metrics  *stats.Metrics

	WalletSvc   application.WalletService
	GuardianSvc application.GuardianService
}

func (o ServiceOpts) validate() error {
	if o.Address == "" {
		return fmt.Errorf("missing listening address")
	}
	if len(o.AuthSecret) <= 0 {
		return fmt.Errorf("auth secret must not be empty")
	}
	if o.WalletSvc == nil {
		return fmt.Errorf("wallet app service must not be null")
	}
	if o.GuardianSvc == nil {
		return fmt.Errorf("guardian app service must not be null")
	}
	return nil
}

type service struct {
	opts   ServiceOpts
	server *http.Server
}

// NewService returns the HTTP interface of the daemon.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	return &service{
		opts: opts,
		server: &http.Server{
			Addr:              opts.Address,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

func (s *service) Start() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	log.Infof("http interface listening on %s", listener.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http interface")
		return
	}
	log.Debug("disabled http interface")
}

// NewRouter wires every endpoint of the API. Routes under /v1 require a
// bearer token.
func NewRouter(opts ServiceOpts) http.Handler {
	h := &handler{
		walletSvc:   opts.WalletSvc,
		guardianSvc: opts.GuardianSvc,
		metrics:     opts.Metrics,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer)
	r.Use(accessLogger)

	r.Get("/healthz", healthz)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.EnableProfiler {
		r.Mount("/debug", middleware.Profiler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(opts.AuthSecret))

		r.Put("/manager", h.handle(application.OpSetVaultManager, h.setVaultManager))
		r.Get("/guardian/vaults", h.handle(application.OpListGuardianVaults, h.listGuardianVaults))

		r.Route("/vaults/{vaultID}", func(r chi.Router) {
			r.Get("/address", h.handle(application.OpGetAddress, h.getAddress))
			r.Post("/address", h.handle(application.OpGenerateAddress, h.generateAddress))
			r.Post("/inheritance", h.handle(application.OpExecuteInheritance, h.executeInheritance))
			r.Get("/threshold", h.handle(application.OpThresholdStatus, h.thresholdStatus))

			r.Route("/guardians", func(r chi.Router) {
				r.Get("/", h.handle(application.OpListGuardians, h.listGuardians))
				r.Post("/", h.handle(application.OpRegisterGuardians, h.registerGuardians))
				r.Get("/{emailHash}", h.handle(application.OpGetGuardian, h.getGuardian))
				r.Post("/{emailHash}/accept", h.handle(application.OpAcceptInvitation, h.acceptInvitation))
				r.Post("/{emailHash}/share", h.handle(application.OpSubmitGuardianShare, h.submitGuardianShare))
			})
		})
	})

	return r
}
