package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"nftmarket/cmd/internal/passphrase"
	"nftmarket/config"
	"nftmarket/core"
	"nftmarket/core/genesis"
	"nftmarket/indexer"
	"nftmarket/observability"
	"nftmarket/observability/logging"
	telemetry "nftmarket/observability/otel"
	"nftmarket/rpc"
	"nftmarket/storage"
)

const (
	genesisPathEnv = "MARKET_GENESIS"
	rpcTokenEnv    = "MARKET_RPC_TOKEN"
	rpcJWTEnv      = "MARKET_RPC_JWT_SECRET"
	rpcJWTIssuer   = "MARKET_RPC_JWT_ISSUER"
)

type options struct {
	configPath   string
	genesisPath  string
	allowMigrate bool
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides MARKET_GENESIS and config GenesisFile)")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{configPath: *configFile, genesisPath: *genesisFlag, allowMigrate: *allowMigrateFlag}
	if err := run(ctx, opts); err != nil {
		slog.Error("marketd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	passSource := passphrase.NewSource(config.KeystorePassphraseEnv, "operator keystore")
	cfg, err := config.Load(opts.configPath, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("marketd", cfg.Environment, cfg.LoggingOptions())

	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	operator, err := cfg.OperatorAddress()
	if err != nil {
		return err
	}

	var spec *genesis.Spec
	if path := resolveGenesisPath(opts.genesisPath, cfg.GenesisFile, os.LookupEnv); path != "" {
		spec, err = genesis.Load(path)
		if err != nil {
			return fmt.Errorf("load genesis %s: %w", path, err)
		}
		logger.Info("genesis spec loaded", slog.String("path", path))
	}

	db, err := storage.Open(cfg.Database, cfg.DataDir)
	if err != nil {
		return err
	}

	node, err := core.NewNode(db, core.Config{
		Operator:      operator,
		CommissionBps: cfg.CommissionBps,
		AllowMigrate:  opts.allowMigrate,
	}, spec)
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()
	node.SetLogger(logger)
	node.Subscribe(observability.Events())

	var index *indexer.Indexer
	if strings.TrimSpace(cfg.Index.Driver) != "" {
		sqlDB, err := indexer.Open(cfg.Index.Driver, cfg.Index.DSN)
		if err != nil {
			return fmt.Errorf("open offer index: %w", err)
		}
		index, err = indexer.New(sqlDB)
		if err != nil {
			return fmt.Errorf("migrate offer index: %w", err)
		}
		node.Subscribe(index)
		backfilled, err := index.Backfill(ctx, node)
		if err != nil {
			return fmt.Errorf("backfill offer index: %w", err)
		}
		logger.Info("offer index synchronised", slog.Int("offers", backfilled))
	}

	logger.Info("marketplace node ready",
		slog.String("operator", cfg.Operator),
		slog.Uint64("commission_bps", uint64(cfg.CommissionBps)),
		slog.String("state_root", node.StateRoot().Hex()),
		slog.Bool("index", index != nil))

	server := rpc.NewServer(node, index, rpc.ServerConfig{
		AuthToken: strings.TrimSpace(os.Getenv(rpcTokenEnv)),
		JWTSecret: strings.TrimSpace(os.Getenv(rpcJWTEnv)),
		JWTIssuer: strings.TrimSpace(os.Getenv(rpcJWTIssuer)),
		RateLimit: cfg.RateLimit.Limit(),
		Burst:     cfg.RateLimit.Burst,

		TrustedProxies: cfg.TrustedProxies,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Start(groupCtx, cfg.ListenAddress)
	})
	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" && addr != cfg.ListenAddress {
		group.Go(func() error {
			return serveMetrics(groupCtx, addr, logger)
		})
	}
	return group.Wait()
}

// resolveGenesisPath picks the genesis file by precedence: command line flag,
// environment, then config file.
func resolveGenesisPath(flagValue, configValue string, lookupEnv func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if lookupEnv != nil {
		if value, ok := lookupEnv(genesisPathEnv); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(configValue)
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	out := telemetry.Config{
		ServiceName: "marketd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		SampleRatio: cfg.Telemetry.SampleRatio,

		Operator:      cfg.Operator,
		CommissionBps: cfg.CommissionBps,
		StateBackend:  cfg.Database,
		IndexDriver:   cfg.Index.Driver,
	}
	if strings.TrimSpace(cfg.Telemetry.Endpoint) != "" {
		out.Traces = cfg.Telemetry.Traces
		out.Metrics = cfg.Telemetry.Metrics
	}
	return out
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
