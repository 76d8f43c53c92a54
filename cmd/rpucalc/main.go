package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/quantbridge/rpucalc/internal/api"
	"github.com/quantbridge/rpucalc/internal/config"
	"github.com/quantbridge/rpucalc/internal/document"
	"github.com/quantbridge/rpucalc/internal/mcp"
	"github.com/quantbridge/rpucalc/internal/pipeline"
	"github.com/quantbridge/rpucalc/internal/product"
	"github.com/quantbridge/rpucalc/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogger builds the JSON logger for the configured mode and level.
// In stdio mode log output goes to stderr so it cannot corrupt the MCP
// protocol stream on stdout.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stdout
	if cfg.IsStdioMode() {
		out = os.Stderr
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// buildPipeline assembles the loader, parse cache and product registry.
func buildPipeline(cfg *config.Config) *pipeline.Service {
	return pipeline.NewService(
		document.NewLoader(cfg.MaxFileSize),
		document.NewParseCache(cfg.CacheSize, cfg.CacheTTL),
		product.NewRegistry(product.NewGISHandler()),
	)
}

// runServerMode serves the HTTP API until a shutdown signal arrives.
func runServerMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, handler *api.Handler, logger *slog.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("serving HTTP API", "addr", cfg.Address())
		serverErrCh <- api.Serve(ctx, cfg.Address(), handler)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", "error", err)
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// runStdioMode serves MCP over standard I/O. The parent process controls
// the lifecycle.
func runStdioMode(ctx context.Context, server *mcp.Server) {
	if err := server.Run(ctx); err != nil {
		slog.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		logger.Debug("starting", "config", cfg.String())
	}

	service := buildPipeline(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cases *store.Store
	if cfg.DatabaseURL != "" {
		cases, err = store.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer cases.Close()
		if err := cases.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	}

	if cfg.IsServerMode() {
		var caseStore api.CaseStore
		if cases != nil {
			caseStore = cases
		}
		handler := api.NewHandler(service, caseStore, logger)
		runServerMode(ctx, cancel, cfg, handler, logger)
	} else {
		server, err := mcp.NewServer(cfg, service)
		if err != nil {
			log.Fatalf("Failed to create MCP server: %v", err)
		}
		runStdioMode(ctx, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("rpucalc\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
