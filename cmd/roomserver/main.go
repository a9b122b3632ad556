// Command roomserver runs the decorate-a-shared-tree room server: it
// accepts websocket connections, assigns them to rooms, and drives each
// room's simulation tick loop.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snowline-games/roomserver/internal/config"
	"github.com/snowline-games/roomserver/internal/rooms"
	"github.com/snowline-games/roomserver/internal/store/cache"
	"github.com/snowline-games/roomserver/internal/store/durable"
	"github.com/snowline-games/roomserver/internal/wire"
)

const (
	idleReapInterval = 30 * time.Second
	statsLogInterval = 5 * time.Minute
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	logger := log.Default()

	settings := config.Load()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStartup()

	var cacheStore *cache.Store
	var durableStore *durable.Store

	g, gctx := errgroup.WithContext(startupCtx)
	g.Go(func() error {
		cacheStore = cache.Connect(gctx, settings.RedisURL, logger)
		return nil
	})
	g.Go(func() error {
		store, err := durable.Connect(gctx, settings.MySQLDSN, logger)
		if err != nil {
			return err
		}
		durableStore = store
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("durable store setup failed: %v", err)
	}
	defer cacheStore.Close()
	defer durableStore.Close()

	manager := rooms.NewManager(settings, cacheStore, durableStore, logger)
	handler := wire.NewHandler(manager, settings, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.RunIdleReaper(ctx, idleReapInterval, time.Duration(settings.RoomIdleReapMinutes)*time.Minute)
	go logStats(ctx, manager, logger)

	mux := http.NewServeMux()
	mux.HandleFunc(settings.WSPath, handler.ServeWS)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/stats", handleStats(manager))

	srv := &http.Server{
		Addr:    settings.HTTPAddr,
		Handler: mux,
	}

	logger.Printf("=================================")
	logger.Printf("  %s", settings.AppName)
	logger.Printf("=================================")
	logger.Printf("  Listening: %s", settings.HTTPAddr)
	logger.Printf("  WS path: %s", settings.WSPath)
	logger.Printf("  Tick rate: %d Hz", settings.ServerTickHz)
	logger.Printf("  Snapshot rate: %d Hz", settings.SnapshotHz)
	logger.Printf("  Max players/room: %d", settings.MaxPlayersPerRoom)
	logger.Printf("=================================")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStats(manager *rooms.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := manager.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"rooms":%d,"players":%d}`, stats.TotalRooms, stats.TotalPlayers)
	}
}

func logStats(ctx context.Context, manager *rooms.Manager, logger *log.Logger) {
	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := manager.Stats()
			if stats.TotalRooms > 0 || stats.TotalPlayers > 0 {
				logger.Printf("stats: %d rooms, %d total players", stats.TotalRooms, stats.TotalPlayers)
			}
		}
	}
}
