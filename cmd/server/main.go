package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/bridge"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/mcpserver"
	"github.com/dgallion1/docnav/internal/session"
)

func main() {
	cfg := config.Load()

	// In MCP stdio mode stdout carries the protocol, so diagnostics
	// leave the process as console envelopes on stderr instead of raw
	// JSON log lines.
	var log *slog.Logger
	if cfg.MCPEnabled {
		log = slog.New(bridge.NewSinkHandler(bridge.EnvelopeSink{W: bridge.NewWriter(os.Stderr)}, slog.LevelInfo))
	} else {
		log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := session.NewStore(cfg.SessionTTL, cfg.MaxOpenSessions)

	// Evict idle sessions in the background.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Cleanup(); n > 0 {
					log.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()

	// MCP stdio mode: no HTTP surface, no API key needed.
	if cfg.MCPEnabled {
		svc := mcpserver.New(sessions, log)
		log.Info("starting docnav mcp server")
		if err := svc.ServeStdio(ctx); err != nil {
			log.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(sessions, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docnav", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
