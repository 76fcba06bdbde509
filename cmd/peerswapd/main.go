package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"peerswap/config"
	"peerswap/core"
	"peerswap/core/events"
	"peerswap/core/genesis"
	"peerswap/indexer"
	"peerswap/native/peerswap"
	"peerswap/observability/logging"
	"peerswap/observability/otel"
	"peerswap/rpc"
	"peerswap/storage"
)

const serviceName = "peerswapd"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	switch command {
	case "serve":
		return runServe(args, stderr)
	case "export":
		return runExport(args, stdout, stderr)
	case "help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: peerswapd [command] [flags]",
		"",
		"Commands:",
		"  serve   run the node and its JSON-RPC server (default)",
		"  export  write every stored offer to a parquet file; the node must be stopped",
	}, "\n")
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := fs.String("genesis", "", "Path to a genesis YAML file (overrides [Genesis] File)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := logging.Setup(serviceName, cfg.Environment, cfg.LoggingOptions())
	logger.Info("configuration loaded",
		slog.String("config", *configFile),
		slog.String("rpc_address", cfg.RPCAddress),
		slog.String("data_dir", cfg.DataDir),
		slog.Bool("indexer", cfg.Indexer.Enabled),
		logging.MaskField("jwt_secret", cfg.Auth.JWTSecret))
	logger.Debug("effective configuration", slog.Any("config", cfg.Redacted()))
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no RPC secret configured; state-changing methods will be rejected",
			slog.String("env", config.EnvRPCSecret))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := otel.Init(ctx, cfg.TelemetryConfig(serviceName))
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.LevelDBPath())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		return 1
	}
	defer db.Close()

	hub := events.NewHub()
	var lister rpc.EventLister
	if cfg.Indexer.Enabled {
		store, err := indexer.Open(cfg.Indexer.DSN, logger.With(slog.String("component", "indexer")))
		if err != nil {
			logger.Error("failed to open event indexer", slog.Any("error", err))
			return 1
		}
		defer store.Close()
		hub.AddSink(store)
		lister = store
	}

	node, err := core.NewNode(db, core.WithEmitter(hub), core.WithLogger(logger.With(slog.String("component", "node"))))
	if err != nil {
		logger.Error("failed to open node", slog.Any("error", err))
		return 1
	}
	if err := initGenesis(node, resolveGenesisPath(*genesisFlag, cfg.Genesis.File), logger); err != nil {
		logger.Error("failed to apply genesis", slog.Any("error", err))
		return 1
	}

	server, err := rpc.NewServer(node, hub, lister, cfg.RPCConfig(), logger.With(slog.String("component", "rpc")))
	if err != nil {
		logger.Error("failed to build RPC server", slog.Any("error", err))
		return 1
	}
	if err := server.Serve(ctx, cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

func resolveGenesisPath(flagValue, configured string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(configured)
}

// initGenesis instantiates the engine from path. A missing file is tolerated
// once the engine has been instantiated.
func initGenesis(node *core.Node, path string, logger *slog.Logger) error {
	if path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err == nil {
			return node.InitGenesis(spec)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if _, err := node.Config(); err != nil {
		return fmt.Errorf("engine not instantiated and no genesis file at %q: %w", path, err)
	}
	logger.Info("genesis file absent, using stored configuration", slog.String("path", path))
	return nil
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	out := fs.String("out", "offers.parquet", "Destination parquet file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	db, err := storage.NewLevelDB(cfg.LevelDBPath())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	rows, err := exportOffers(db, *out, time.Now)
	if err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %d rows to %s\n", rows, *out)
	return 0
}

func exportOffers(db storage.Database, out string, clock func() time.Time) (int, error) {
	node, err := core.NewNode(db, core.WithClock(clock))
	if err != nil {
		return 0, err
	}
	entries, err := node.Snapshot()
	if err != nil {
		return 0, err
	}
	height, err := node.Height()
	if err != nil {
		return 0, err
	}
	return indexer.ExportOffers(out, entries, peerswap.BlockInfo{Height: height + 1, Time: clock()})
}
