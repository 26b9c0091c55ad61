package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wassette-dev/wassette/internal/application/mcp"
	"github.com/wassette-dev/wassette/internal/application/registry"
	"github.com/wassette-dev/wassette/internal/domain/resolver"
	"github.com/wassette-dev/wassette/internal/infrastructure/config"
	"github.com/wassette-dev/wassette/internal/infrastructure/logging"
	"github.com/wassette-dev/wassette/internal/infrastructure/policystore"
	"github.com/wassette-dev/wassette/internal/infrastructure/redaction"
	"github.com/wassette-dev/wassette/internal/infrastructure/transport"

	"github.com/wassette-dev/wassette/internal/application/lifecycle"
)

var (
	sseMode bool
)

// serveCmd starts the MCP server. Grounded on the teacher's
// PersistentPreRun logging setup (root.go), generalized into an
// explicit RunE since this command, unlike the teacher's one-shot
// check command, runs until signaled.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio or SSE",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&sseMode, "sse", false, "serve over HTTP/SSE instead of stdio")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	zapLogger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := resolver.NewCache(cfg.CacheRoot)
	if err != nil {
		return err
	}
	stagingDir := cfg.CacheRoot + "/staging"
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return err
	}
	httpFetcher, httpsFetcher := resolver.NewHTTPFetchers(stagingDir)
	res := resolver.New(
		cache,
		resolver.DefaultBackoff(),
		resolver.NewFileFetcher(stagingDir),
		httpFetcher,
		httpsFetcher,
		resolver.NewOCIFetcher(stagingDir),
	)

	redactor, err := redaction.New(redaction.Config{})
	if err != nil {
		logger.Warn("secret redaction disabled", "error", err)
		redactor = nil
	}

	manager, err := lifecycle.New(ctx, res, redactor)
	if err != nil {
		return err
	}
	defer manager.Close(context.Background()) //nolint:errcheck

	var reg *registry.Registry
	if cfg.RegistryPath != "" {
		reg, err = registry.Load(cfg.RegistryPath)
		if err != nil {
			logger.Warn("component registry disabled", "path", cfg.RegistryPath, "error", err)
			reg = nil
		}
	}
	if reg != nil {
		manager.SetRegistryLookup(reg.Lookup)
	}
	if cfg.PolicyDir != "" {
		manager.SetPolicyStore(policystore.New(cfg.PolicyDir))
	}

	server := mcp.NewServer(manager, reg)

	if sseMode || !cfg.StdioMode {
		logger.Info("serving MCP over SSE", "addr", cfg.SSEAddr)
		sse := transport.NewSSEServer(server)
		return transport.Serve(ctx, cfg.SSEAddr, sse.Handler())
	}

	logger.Info("serving MCP over stdio")
	return transport.ServeStdio(ctx, server)
}
