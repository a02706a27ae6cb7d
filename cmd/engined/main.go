package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/siglab/settlement/config"
	"github.com/siglab/settlement/internal/api"
	"github.com/siglab/settlement/internal/audit"
	"github.com/siglab/settlement/internal/engine"
	"github.com/siglab/settlement/internal/metrics"
	"github.com/siglab/settlement/internal/types"
	"github.com/siglab/settlement/pkg/logger"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "1.0.0"
)

// ledgerOnlyFunds records fund movements in the log. Actual custody sits
// with the upstream payment rail; the engine's ledger is the book of record
// until that integration lands.
type ledgerOnlyFunds struct {
	log zerolog.Logger
}

func (f ledgerOnlyFunds) Collect(asset types.AssetClass, amount uint64, from string) error {
	f.log.Debug().Str("asset", asset.String()).Uint64("amount", amount).Str("from", from).Msg("collect")
	return nil
}

func (f ledgerOnlyFunds) Disburse(asset types.AssetClass, amount uint64, to string) error {
	f.log.Debug().Str("asset", asset.String()).Uint64("amount", amount).Str("to", to).Msg("disburse")
	return nil
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Pretty)
	log.Info().Str("version", version).Msg("starting settlement engine")

	eng := engine.New(
		cfg.Engine,
		log,
		engine.NewStaticAuthorizer(cfg.Admins),
		engine.SystemClock{},
		ledgerOnlyFunds{log: log.With().Str("component", "funds").Logger()},
		audit.NewLogSink(log),
	)

	if len(cfg.Admins) > 0 {
		if err := eng.InitializeTreasury(cfg.Admins[0], cfg.Treasury.MinReserveRatioBps); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize treasury")
		}
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Host, cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		log.Info().Int("port", cfg.Metrics.Port).Msg("metrics server started")
	}

	apiServer := api.NewServer(cfg.API, eng, log)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("api server shutdown failed")
	}
	if err := metricsServer.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}
	log.Info().Msg("settlement engine stopped")
}
