package userprefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/userprefs/internal/cache"
	"github.com/magabrotheeeer/userprefs/internal/config"
	"github.com/magabrotheeeer/userprefs/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userprefs/internal/lib/jwt"
	"github.com/magabrotheeeer/userprefs/internal/lib/password"
	"github.com/magabrotheeeer/userprefs/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userprefs/internal/lib/sl"
	"github.com/magabrotheeeer/userprefs/internal/metrics"
	"github.com/magabrotheeeer/userprefs/internal/migrations"
	authservice "github.com/magabrotheeeer/userprefs/internal/services/auth"
	"github.com/magabrotheeeer/userprefs/internal/services/team"
	userservice "github.com/magabrotheeeer/userprefs/internal/services/user"
	"github.com/magabrotheeeer/userprefs/internal/storage"
	"github.com/magabrotheeeer/userprefs/internal/storage/mongodb"
	"github.com/magabrotheeeer/userprefs/internal/storage/postgresql"
)

// ShutdownTimeout время на завершение активных запросов при остановке.
const ShutdownTimeout = 15 * time.Second

// Параметры подключения к RabbitMQ.
const (
	amqpRetries = 5
	amqpDelay   = 2 * time.Second
)

type eventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// App HTTP-сервер вместе с ресурсами, которыми он владеет.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  storage.Storage
	cache  cache.Cache
	events eventPublisher
}

// New создаёт все зависимости по конфигу. Хранилище открывается здесь и закрывается в Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.userprefs.New"

	if cfg.JWTSecretKey == "" {
		logger.Warn("jwt secret key is not set, authenticated routes will fail")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profiles, err := openCache(ctx, cfg, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events, err := openPublisher(cfg, logger)
	if err != nil {
		_ = profiles.Close()
		_ = store.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	teams, err := team.Load(cfg.TeamsFile)
	if err != nil {
		_ = events.Close()
		_ = profiles.Close()
		_ = store.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey)
	hasher := password.NewHasher(cfg.BcryptCost)
	if hasher.Cost() != cfg.BcryptCost {
		logger.Warn("bcrypt cost out of range, using default",
			slog.Int("configured", cfg.BcryptCost),
			slog.Int("cost", hasher.Cost()),
		)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:       logger,
		Auth:      authservice.New(logger, store, hasher, tokens, events, m),
		User:      userservice.New(logger, store, profiles, tokens, events),
		Teams:     teams,
		Store:     store,
		Tokens:    tokens,
		Metrics:   m,
		Gatherer:  prometheus.DefaultGatherer,
		Cookies:   middlewarectx.Cookies{Secure: cfg.IsProd()},
		RateLimit: cfg.RateLimit,
		StaticDir: cfg.StaticDir,
		Timeout:   cfg.TimeoutHTTP,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		store:  store,
		cache:  profiles,
		events: events,
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMongoDB:
		return mongodb.New(ctx, cfg.StorageConnectionString, cfg.Database, cfg.Collection)
	default:
		db, err := postgresql.New(ctx, cfg.StorageConnectionString)
		if err != nil {
			return nil, err
		}
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return db, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.AddressRedis == "" {
		logger.Info("redis address is not set, using in-memory profile cache")
		return cache.NewMemory(userservice.ProfileTTL, 2*userservice.ProfileTTL), nil
	}
	return cache.InitServer(ctx, cfg.RedisConnection)
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (eventPublisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("rabbitmq url is not set, account events are disabled")
		return rabbitmq.Noop{}, nil
	}
	return rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.Exchange, amqpRetries, amqpDelay)
}

// Run запускает сервер и блокируется до его остановки или отмены ctx.
// При отмене сервер завершает активные запросы, после чего освобождаются хранилище, кеш и publisher.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.release()
	return err
}

func (a *App) release() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := a.events.Close(); err != nil {
		a.logger.Error("failed to close event publisher", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
