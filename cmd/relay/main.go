// Package main runs the presence and broadcast relay that game clients
// dial with -relay.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/realtime"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", ":8080", "Listen address")
	path := flag.String("path", "/realtime", "Websocket endpoint path")
	statsEvery := flag.Duration("stats", 30*time.Second, "Interval between relay stats logs (0 = off)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	hub := realtime.NewHub(cfg.Network.InboxSize)
	relay := realtime.NewServer(hub, realtime.ServerConfig{
		InboxSize:    cfg.Network.InboxSize,
		WriteTimeout: time.Duration(cfg.Network.WriteTimeout * float64(time.Second)),
		ReadLimit:    cfg.Network.ReadLimit,
	})

	mux := http.NewServeMux()
	mux.Handle(*path, relay)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *statsEvery > 0 {
		go func() {
			t := time.NewTicker(*statsEvery)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					slog.Info("relay_stats", "conns", relay.Conns(), "dropped", hub.Dropped())
				}
			}
		}()
	}

	go func() {
		slog.Info("relay_listening", "addr", *addr, "path", *path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	if err := hub.Close(); err != nil {
		slog.Error("hub close failed", "error", err)
	}
}
