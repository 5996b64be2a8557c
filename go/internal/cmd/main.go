package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/dbconfig"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/cache"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/gateway"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/outbox"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/repository"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Publisher first: it owns the NATS connection and the stream the cache
	// buckets and the gateway consumer hang off.
	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer publisher.Close()

	kvCfg := cache.DefaultKVConfig()
	kvCfg.LockTTL = cfg.LockTTL()
	kv, err := cache.NewKV(ctx, publisher.JetStream(), kvCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create state cache")
	}

	repo := repository.NewRepository(db)
	app := draft.NewApp(repo, kv, kv, clockwork.NewRealClock(), draft.Config{
		DriftTolerance: cfg.DriftTolerance(),
	})
	orch := draft.NewOrchestrator(app, draft.NewRandomStrategy(app), clockwork.NewRealClock(), cfg.Draft.SchedulerBatch)

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	listener, err := outbox.NewListener(repo, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	consumerCfg := gateway.DefaultConsumerConfig()
	consumerCfg.URL = cfg.NATS.URL
	consumer, err := gateway.NewEventConsumer(cm, consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway event consumer")
	}

	go cm.Start(ctx)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener failed")
		}
	}()
	go func() {
		if err := orch.RunScheduler(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler failed")
		}
	}()

	server := setupServer(cfg, gateway.NewHandler(orch, cm))
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := consumer.Stop(); err != nil {
		log.Error().Err(err).Msg("consumer shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
