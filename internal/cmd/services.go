package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/clients/identity"
	"github.com/mcdev12/examroom/internal/authn"
	"github.com/mcdev12/examroom/internal/exam"
	"github.com/mcdev12/examroom/internal/gateway"
	"github.com/mcdev12/examroom/internal/history"
	"github.com/mcdev12/examroom/internal/notify"
)

type Services struct {
	Controller *exam.Controller
	Router     *exam.Router
	Gateway    *gateway.Service

	publisher *notify.JetStreamPublisher
	archive   *history.Repository
	pool      *pgxpool.Pool
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	clock := clockwork.NewRealClock()

	timezone, err := time.LoadLocation(config.Exam.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", config.Exam.Timezone, err)
	}

	// Authn: identity backend behind a verdict cache.
	identityClient := identity.NewClient(config.Auth.BackendURL)
	cache, err := setupVerdictCache(ctx, config, clock)
	if err != nil {
		return nil, err
	}
	verifier := authn.NewVerifier(identityClient, cache, config.verdictTTL())

	// The connection manager doubles as the controller's broadcaster, so
	// it is built first and bound to the router afterwards.
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), verifier)

	broadcaster := exam.Broadcaster(connectionManager)
	var publisher *notify.JetStreamPublisher
	if config.Nats.Enabled {
		natsConfig := notify.DefaultJetStreamConfig()
		natsConfig.URL = config.Nats.URL
		natsConfig.StreamName = config.Nats.Stream
		natsConfig.SubjectPrefix = config.Nats.SubjectPrefix

		publisher, err = notify.NewJetStreamPublisher(natsConfig)
		if err != nil {
			return nil, fmt.Errorf("setup JetStream publisher: %w", err)
		}
		broadcaster = exam.MultiBroadcaster{connectionManager, publisher}
	}

	var archive *history.Repository
	var pool *pgxpool.Pool
	if config.History.Enabled {
		pool, err = setupDatabase(ctx)
		if err != nil {
			if publisher != nil {
				publisher.Close()
			}
			return nil, err
		}
		archive = history.NewRepository(pool)
	}

	registry := exam.NewRegistry()
	scheduler := exam.NewClockScheduler(clock)
	controller := exam.NewController(registry, broadcaster, scheduler, clock, exam.ControllerConfig{
		TickPeriod: config.tickPeriod(),
		Timezone:   timezone,
		Recorder:   recorderOrNil(archive),
	})
	router := exam.NewRouter(controller)
	connectionManager.BindCommander(router)

	gatewayService := gateway.NewService(connectionManager, router, verifier, controller)

	return &Services{
		Controller: controller,
		Router:     router,
		Gateway:    gatewayService,
		publisher:  publisher,
		archive:    archive,
		pool:       pool,
	}, nil
}

// recorderOrNil keeps a typed-nil repository out of the controller's
// interface field.
func recorderOrNil(archive *history.Repository) exam.HistoryRecorder {
	if archive == nil {
		return nil
	}
	return archive
}

func setupVerdictCache(ctx context.Context, config *Config, clock clockwork.Clock) (authn.VerdictCache, error) {
	switch config.Auth.Cache.Kind {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: config.Auth.Cache.RedisAddr,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info().Str("addr", config.Auth.Cache.RedisAddr).Msg("using redis verdict cache")
		return authn.NewRedisCache(client), nil
	case "memory", "":
		return authn.NewMemoryCache(clock), nil
	default:
		return nil, fmt.Errorf("unknown verdict cache kind %q", config.Auth.Cache.Kind)
	}
}

func setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig := databaseConfigFromEnv()

	pool, err := pgxpool.New(ctx, dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("connected to database")
	return pool, nil
}

// Close releases external connections held by the service graph.
func (s *Services) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
