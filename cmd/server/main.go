package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/internal/auth"
	"github.com/stevehill1981/rachel-sub001/internal/config"
	"github.com/stevehill1981/rachel-sub001/internal/database"
	"github.com/stevehill1981/rachel-sub001/internal/game"
	"github.com/stevehill1981/rachel-sub001/internal/server"
	"github.com/stevehill1981/rachel-sub001/internal/stats"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional PostgreSQL persistence for finished games.
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("failed to ensure database schema")
		}
		log.Info("finished-game persistence enabled")
	}

	// Optional Redis statistics.
	var recorder *stats.Recorder
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		recorder = stats.NewRecorder(rdb, log)
		log.Info("statistics recording enabled")
	}

	broker := server.NewBroker(log)
	pubs := []game.Publisher{broker}
	if recorder != nil {
		// Appending the nil *stats.Recorder directly would wrap it in a
		// non-nil interface value.
		pubs = append(pubs, recorder)
	}
	publisher := server.CombinePublishers(pubs...)

	var onGameEnd game.OnGameEndFunc
	if db != nil {
		onGameEnd = func(rec game.GameRecord) {
			go func() {
				saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := db.SaveGameRecord(saveCtx, rec); err != nil {
					log.WithError(err).WithField("game_id", rec.GameID).Error("failed to persist game record")
				}
			}()
		}
	}

	store := game.NewStore(game.Options{
		IdleTimeout: cfg.IdleTimeout,
		AIDelay:     cfg.AIDelay,
		Publisher:   publisher,
		OnGameEnd:   onGameEnd,
		Logger:      log,
	})
	store.StartSweeper(cfg.SweepInterval)
	defer store.Shutdown()

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	srv := server.New(store, broker, issuer, recorder, log)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}()

	log.WithField("addr", cfg.Addr).Info("rachel server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server exited")
	}
}
