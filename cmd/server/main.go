package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/formsync/pkg/api"
	"github.com/hazyhaar/formsync/pkg/chassis"
	"github.com/hazyhaar/formsync/pkg/importer"
	"github.com/hazyhaar/formsync/pkg/mcpquic"
	"github.com/hazyhaar/formsync/pkg/store"
	"github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "query":
		cmdQuery(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: formsync <command>

Commands:
  import  Import forms and responses into the store
  serve   Start the HTTP browse API (MCP over QUIC with mcp_addr, TLS chassis with secure_addr)
  mcp     Serve the browse tools over stdio
  query   Call a browse tool on a running server over QUIC
`)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func mustConfig(path string, logger *slog.Logger) config {
	cfg, found, err := loadConfig(path)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if !found {
		logger.Info("no config file, using defaults", "path", path)
	}
	return cfg
}

func mustOpenStore(cfg config, logger *slog.Logger) *store.Store {
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	return st
}

func newMCPServer(st *store.Store, logger *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("formsync", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, st, logger)
	return srv
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(args)

	logger := newLogger(*verbose)
	cfg := mustConfig(*cfgPath, logger)
	st := mustOpenStore(cfg, logger)
	defer st.Close()

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(st, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.MCPAddr != "" {
		tlsCfg, err := listenerTLS(cfg)
		if err != nil {
			logger.Error("mcp tls", "error", err)
			os.Exit(1)
		}
		ql, err := mcpquic.NewListener(cfg.MCPAddr, tlsCfg, newMCPServer(st, logger), logger)
		if err != nil {
			logger.Error("mcp listener", "addr", cfg.MCPAddr, "error", err)
			os.Exit(1)
		}
		defer ql.Close()
		go func() {
			if err := ql.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error("mcp listener stopped", "error", err)
			}
		}()
	}

	if cfg.SecureAddr != "" {
		cs, err := chassis.New(chassis.Config{
			Addr:      cfg.SecureAddr,
			CertFile:  cfg.TLSCert,
			KeyFile:   cfg.TLSKey,
			Handler:   router,
			MCPServer: newMCPServer(st, logger),
			Logger:    logger,
		})
		if err != nil {
			logger.Error("chassis", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := cs.Run(ctx); err != nil {
				logger.Error("chassis stopped", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			cs.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Import.Schedule != "" {
		client, err := cfg.formsClient()
		if err != nil {
			logger.Error("import schedule needs a forms token", "error", err)
			os.Exit(1)
		}
		opts := cfg.importOptions()
		sched, err := importer.NewSchedule(ctx, cfg.Import.Schedule, func(ctx context.Context) (importer.Totals, error) {
			return importer.New(client, st, opts, logger, nil).Run(ctx)
		}, logger)
		if err != nil {
			logger.Error("configuration error", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	go func() {
		logger.Info("formsync listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func listenerTLS(cfg config) (*tls.Config, error) {
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		return mcpquic.LoadTLSConfig(cfg.TLSCert, cfg.TLSKey)
	}
	return mcpquic.SelfSignedTLSConfig()
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	// stdout carries JSON-RPC, keep logs on stderr and quiet.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := mustConfig(*cfgPath, logger)
	st := mustOpenStore(cfg, logger)
	defer st.Close()

	if err := server.ServeStdio(newMCPServer(st, logger)); err != nil {
		logger.Error("mcp stdio", "error", err)
		os.Exit(1)
	}
}
