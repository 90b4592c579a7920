package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geocoin/internal/api"
	"geocoin/internal/config"
	"geocoin/internal/engine"
	"geocoin/internal/grid"
	"geocoin/internal/sensor"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

func main() {
	logger := log.New(os.Stdout, "[geocoin] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	board, err := grid.NewBoard(cfg.TileSize, cfg.NeighborhoodRadius)
	if err != nil {
		logger.Fatalf("board: %v", err)
	}
	gen, err := engine.NewGenerator(cfg.Seed, cfg.SpawnProbability, cfg.MaxCoinsPerCache)
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}

	saves, err := store.OpenSQLite(cfg.DBPath, cfg.SaveSlot)
	if err != nil {
		logger.Fatalf("save store: %v", err)
	}
	defer saves.Close()

	sess, err := world.NewSession(board, gen, world.NopView{}, cfg.HomeLat, cfg.HomeLng)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	restoreSession(logger, sess, saves)

	srv := api.NewServer(sess, saves, positionSource(logger, cfg))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening addr=%s slot=%s seed=%d", cfg.ListenAddr, cfg.SaveSlot, cfg.Seed)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown error=%v", err)
	}
}

// restoreSession loads the persisted snapshot if one exists. Any failure
// along the way falls back to the fresh session — a broken save file never
// blocks the game from starting.
func restoreSession(logger *log.Logger, sess *world.Session, saves store.SaveStore) {
	payload, ok, err := saves.Load(context.Background())
	if err != nil {
		logger.Printf("load_failed error=%v (starting fresh)", err)
		return
	}
	if !ok {
		logger.Printf("no saved session, starting fresh")
		return
	}
	snap, err := world.DecodeSnapshot(payload)
	if err != nil {
		logger.Printf("decode_failed error=%v (starting fresh)", err)
		return
	}
	if err := sess.Restore(snap); err != nil {
		logger.Printf("restore_failed error=%v (starting fresh)", err)
		if err := sess.Reset(); err != nil {
			logger.Printf("reset_failed error=%v", err)
		}
		return
	}
	logger.Printf("session restored caches=%d coins=%d", len(snap.CacheStates), len(snap.Coins))
}

// positionSource builds the replay sensor from the configured track file,
// or nothing when no track is configured.
func positionSource(logger *log.Logger, cfg config.Config) sensor.Source {
	if cfg.TrackFile == "" {
		return nil
	}
	raw, err := os.ReadFile(cfg.TrackFile)
	if err != nil {
		logger.Printf("track_unreadable path=%s error=%v (sensor disabled)", cfg.TrackFile, err)
		return nil
	}
	var track [][2]float64
	if err := json.Unmarshal(raw, &track); err != nil {
		logger.Printf("track_malformed path=%s error=%v (sensor disabled)", cfg.TrackFile, err)
		return nil
	}
	return sensor.NewReplay(track, time.Duration(cfg.TrackIntervalMs)*time.Millisecond)
}
