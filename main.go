package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvus-sh/orchd/config"
	"github.com/corvus-sh/orchd/engine"
	"github.com/corvus-sh/orchd/httpapi"
	"github.com/corvus-sh/orchd/reconciler"
	"github.com/corvus-sh/orchd/sidecar"
	"github.com/corvus-sh/orchd/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.NewLogger()

	logger.Info("corvus orchestration daemon starting",
		"db_path", cfg.DBPath,
		"state_dir", cfg.StateDir,
		"node_mode", cfg.NodeMode,
		"log_format", cfg.LogFormat,
	)

	// opening the store and running schema migration. if this fails, the
	// daemon cannot serve requests, so exit immediately.
	db, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	eng, err := engine.NewClient(logger, cfg.EngineSocket)
	if err != nil {
		log.Fatalf("failed to connect to engine: %v", err)
	}
	defer eng.Close()

	rec := reconciler.New(db, eng, cfg.StateDir, logger)

	if cfg.NodeMode == "master" {
		sidecars := sidecar.New(db, eng, cfg, logger)
		bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 60*time.Second)
		err = sidecars.Bootstrap(bootstrapCtx)
		cancelBootstrap()
		if err != nil {
			log.Fatalf("side-car bootstrap failed: %v", err)
		}
	}

	router := httpapi.NewRouter(httpapi.RouterDependencies{
		Store:         db,
		Engine:        eng,
		Reconciler:    rec,
		Logger:        logger,
		AllowedOrigin: cfg.CORSAllowedOrigin,
	})

	// one http.Server per configured host (§6.5 allows multiple unix://
	// and tcp:// listeners at once), all sharing the router and shut
	// down together.
	servers := make([]*http.Server, 0, len(cfg.Hosts))
	listeners := make([]net.Listener, 0, len(cfg.Hosts))

	for _, host := range cfg.Hosts {
		listener, err := listen(host)
		if err != nil {
			log.Fatalf("failed to listen on %s://%s: %v", host.Scheme, host.Address, err)
		}
		listeners = append(listeners, listener)

		servers = append(servers, &http.Server{
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		})
	}

	shutdownChannel := make(chan error, len(servers))
	for i, server := range servers {
		server, listener, host := server, listeners[i], cfg.Hosts[i]
		go func() {
			logger.Info("http server listening", "scheme", host.Scheme, "address", host.Address)
			err := server.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				shutdownChannel <- err
			}
		}()
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("startup complete, daemon ready to serve")

	select {
	case sig := <-signalChannel:
		logger.Info("shutdown signal received", "signal", sig)
	case err := <-shutdownChannel:
		logger.Error("http server failed", "error", err)
	}

	shutdownContext, cancelShutdownContext := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdownContext()

	for _, server := range servers {
		if err := server.Shutdown(shutdownContext); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
	logger.Info("daemon shut down cleanly")
}

// listen opens the raw net.Listener for a parsed Host, removing a stale
// unix socket file left behind by an unclean previous shutdown.
func listen(host config.Host) (net.Listener, error) {
	if host.Scheme == "unix" {
		if _, err := os.Stat(host.Address); err == nil {
			os.Remove(host.Address)
		}
		return net.Listen("unix", host.Address)
	}
	return net.Listen("tcp", host.Address)
}
