package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/thresholdvault/vault-daemon/internal/config"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/oracle/local"
	httpinterface "github.com/thresholdvault/vault-daemon/internal/interfaces/http"
	"github.com/thresholdvault/vault-daemon/pkg/stats"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("error while loading config")
	}
	log.SetLevel(config.GetLogLevel())

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	if err := run(ctx); err != nil {
		log.WithError(err).Fatal("daemon stopped with error")
	}
	log.Info("exiting")
}

func run(ctx context.Context) error {
	seed, err := config.GetOracleSeed()
	if err != nil {
		return err
	}
	signer, err := local.NewSigningOracle(seed)
	if err != nil {
		return err
	}
	keyDerivation, err := local.NewKeyDerivationOracle(seed)
	if err != nil {
		return err
	}
	explorerSvc, err := config.GetExplorer()
	if err != nil {
		return err
	}

	appConfig := &application.Config{
		DBType:              config.GetString(config.DBTypeKey),
		DBConfig:            config.GetDbDir(),
		Network:             config.GetNetwork(),
		Controllers:         config.GetControllers(),
		SigningOracle:       signer,
		KeyDerivationOracle: keyDerivation,
		RandomnessSource:    local.NewRandomnessSource(),
		BitcoinOracle:       explorerSvc,
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}
	store := appConfig.SnapshotStore()
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close snapshot store")
		}
	}()

	lifecycleSvc := appConfig.LifecycleService()
	if err := lifecycleSvc.Restore(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := stats.NewMetrics(registry)
	if err != nil {
		return err
	}

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:        config.GetListeningAddress(),
		AuthSecret:     config.GetAuthSecret(),
		EnableProfiler: config.GetBool(config.EnableProfilerKey),
		Gatherer:       registry,
		Metrics:        metrics,
		WalletSvc:      appConfig.WalletService(),
		GuardianSvc:    appConfig.GuardianService(),
	})
	if err != nil {
		return err
	}
	if err := httpSvc.Start(); err != nil {
		return err
	}

	if interval := config.GetDuration(config.StatsIntervalKey, time.Second); interval > 0 {
		stats.EnableMemoryStatistics(ctx, interval, registry, config.GetStatsDir())
	}

	log.WithFields(log.Fields{
		"network":  config.GetNetwork(),
		"explorer": config.GetExplorerURL(),
		"datadir":  config.GetDatadir(),
	}).Info("vault daemon started")

	g, gctx := errgroup.WithContext(ctx)
	if interval := config.GetDuration(config.SnapshotIntervalKey, time.Second); interval > 0 {
		g.Go(func() error {
			return persistPeriodically(gctx, lifecycleSvc, interval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		httpSvc.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// The run context is canceled at this point.
	persistCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return lifecycleSvc.Persist(persistCtx)
}

func persistPeriodically(
	ctx context.Context, lifecycleSvc application.LifecycleService,
	interval time.Duration,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := lifecycleSvc.Persist(ctx); err != nil {
				log.WithError(err).Warn("failed to persist snapshots")
			}
		}
	}
}
