package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/bookstore-mcp/internal/config"
	"github.com/dshills/bookstore-mcp/internal/mcp"
	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/internal/telemetry"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	configFile := flag.String("config", "", "path to a YAML or JSON config file")
	seedFile := flag.String("seed", "", "YAML catalog imported at startup")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Bookstore MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.SQLiteDriverName)
		os.Exit(0)
	}

	var opts []config.Option
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *seedFile != "" {
		opts = append(opts, config.WithCatalogSeed(*seedFile))
	}

	cfg, err := config.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for the MCP protocol
	logger := telemetry.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("bookstore MCP server starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"db_driver", cfg.Database.Driver,
		"cart_backend", cfg.Cart.Backend)

	shutdownTracing, err := telemetry.SetupTracing(cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, version, os.Stderr)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := mcp.NewServerFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		if err := server.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
			cancel()
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
