package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/dice-duel-backend/internal/character"
	"github.com/DoyleJ11/dice-duel-backend/internal/config"
	"github.com/DoyleJ11/dice-duel-backend/internal/httpapi"
	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
	"github.com/DoyleJ11/dice-duel-backend/internal/npc"
	"github.com/DoyleJ11/dice-duel-backend/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms, closeRooms, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRooms()

	chars, closeChars, err := openCharacters(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeChars()

	h := hub.NewHub(ctx, rooms, log,
		hub.WithAutoPlayer(npc.Launcher(log, npc.WithDelay(cfg.NPCDelay))))
	defer h.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:        h,
			Characters: chars,
			BaseURL:    cfg.BaseURL,
			Log:        log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
			zap.String("characters", cfg.CharacterSource))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store.NewRedis(rdb, cfg.RoomTTL), func() { rdb.Close() }, nil
	case config.StorePostgres:
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func openCharacters(ctx context.Context, cfg config.Config) (character.Repository, func(), error) {
	if cfg.CharacterSource != config.CharactersGorm {
		return character.NewMemoryRepository(character.Starters...), func() {}, nil
	}
	repo, err := character.OpenGorm(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Seed(ctx, character.Starters...); err != nil {
		repo.Close()
		return nil, nil, err
	}
	return repo, func() { repo.Close() }, nil
}
