package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sessiongate/internal/auth/credentials"
	"sessiongate/internal/auth/service"
	"sessiongate/internal/auth/session"
	"sessiongate/internal/auth/store/identity"
	"sessiongate/internal/auth/store/kv"
	"sessiongate/internal/platform/config"
	"sessiongate/internal/platform/httpserver"
	"sessiongate/internal/platform/logger"
	"sessiongate/internal/platform/metrics"
	platformmongo "sessiongate/internal/platform/mongo"
	"sessiongate/internal/platform/postgres"
	platformredis "sessiongate/internal/platform/redis"
	"sessiongate/internal/status"
	httptransport "sessiongate/internal/transport/http"
	"sessiongate/pkg/platform/audit"
	auditpublisher "sessiongate/pkg/platform/audit/publisher"
	auditmemory "sessiongate/pkg/platform/audit/store/memory"
	auditmongo "sessiongate/pkg/platform/audit/store/mongo"
	"sessiongate/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)
	for _, w := range cfg.Warnings {
		log.Warn("configuration fallback", "detail", w)
	}

	if err := run(cfg, log); err != nil {
		log.Error("sessiongate stopped", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	mongo    *platformmongo.Client
	postgres *sql.DB
	redis    *platformredis.Client
}

func (i *infra) close(ctx context.Context, log *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("closing redis", "error", err)
		}
	}
	if i.postgres != nil {
		if err := i.postgres.Close(); err != nil {
			log.Warn("closing postgres", "error", err)
		}
	}
	if i.mongo != nil {
		if err := i.mongo.Close(ctx); err != nil {
			log.Warn("closing mongo", "error", err)
		}
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deps := &infra{}
	defer deps.close(context.Background(), log)

	identities, err := buildIdentityStore(ctx, cfg, deps, m)
	if err != nil {
		return err
	}
	sessionStore, err := buildSessionStore(ctx, cfg, deps, m)
	if err != nil {
		return err
	}

	hasher := credentials.NewBcryptHasher(cfg.Auth.BcryptCost)
	verifier := credentials.NewVerifier(identities, hasher, credentials.WithMetrics(m))
	sessions := session.NewManager(sessionStore,
		session.WithTTL(cfg.Session.TTL),
		session.WithMetrics(m),
	)

	serviceOpts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}
	if cfg.Audit.Enabled {
		publisher, err := buildAuditPublisher(ctx, cfg, deps, log, m)
		if err != nil {
			return err
		}
		defer publisher.Close()
		serviceOpts = append(serviceOpts, service.WithAuditPublisher(publisher))
	}
	authService := service.New(identities, verifier, sessions, hasher, serviceOpts...)

	reporter := status.New(sessionStore, identities,
		status.WithProbeTimeout(cfg.Status.ProbeTimeout),
		status.WithMetrics(m),
	)

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(authService, log),
		httptransport.NewStatusHandler(reporter, log),
		log,
		m,
		cfg.Server.ExposeMetrics,
	)
	srv := httpserver.New(cfg.Server, router, log)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting sessiongate",
			"addr", cfg.Server.Addr,
			"identity_backend", cfg.Auth.IdentityBackend,
			"session_backend", cfg.Session.Backend,
			"session_ttl", cfg.Session.TTL.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

type identityStore interface {
	service.IdentityStore
	status.IdentityBackend
}

func buildIdentityStore(ctx context.Context, cfg config.Config, deps *infra, m *metrics.Metrics) (identityStore, error) {
	switch cfg.Auth.IdentityBackend {
	case config.BackendMemory:
		return identity.NewInMemory(), nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		deps.postgres = db
		return identity.NewPostgres(db, identity.WithPostgresMetrics(m)), nil
	default:
		client, err := platformmongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		deps.mongo = client
		store := identity.NewMongo(client.DB, identity.WithMongoMetrics(m))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure identity indexes: %w", err)
		}
		return store, nil
	}
}

type sessionStore interface {
	session.Store
	status.Prober
}

func buildSessionStore(ctx context.Context, cfg config.Config, deps *infra, m *metrics.Metrics) (sessionStore, error) {
	if cfg.Session.Backend == config.BackendMemory {
		return kv.NewInMemory(), nil
	}
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("SESSION_BACKEND=redis requires REDIS_URL")
	}
	deps.redis = client
	return kv.NewRedis(client.Client, kv.WithMetrics(m)), nil
}

// buildAuditPublisher persists audit events to MongoDB when a Mongo client is
// already connected and keeps them in memory otherwise.
func buildAuditPublisher(ctx context.Context, cfg config.Config, deps *infra, log *slog.Logger, m *metrics.Metrics) (*auditpublisher.Publisher, error) {
	var store audit.Store = auditmemory.NewInMemoryStore()
	if deps.mongo != nil {
		mongoStore := auditmongo.New(deps.mongo.DB)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store = mongoStore
	}
	return auditpublisher.NewPublisher(store,
		auditpublisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		auditpublisher.WithBreaker(circuit.New("audit")),
		auditpublisher.WithDropHook(m.IncrementAuditDropped),
		auditpublisher.WithLogger(log),
	), nil
}
