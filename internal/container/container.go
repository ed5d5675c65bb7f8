package container

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/fabrico-auth/app/db"
	"github.com/FACorreiaa/fabrico-auth/config"
	"github.com/FACorreiaa/fabrico-auth/internal/api/auth"
	"github.com/FACorreiaa/fabrico-auth/internal/api/user"
	"github.com/FACorreiaa/fabrico-auth/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Store       auth.UserStore
	Codec       *auth.TokenCodec
	Hasher      auth.PasswordHasher
	AuthService auth.AuthService

	AuthHandler *auth.HandlerImpl
	UserHandler *user.HandlerImpl
}

// NewContainer wires the application. With the postgres driver it connects,
// migrates and waits for the database first.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	var store auth.UserStore
	switch cfg.Repositories.Driver {
	case "memory":
		logger.Warn("Using in-memory user store, users are lost on restart")
		store = auth.NewMemoryUserStore(logger)
	default:
		dbConfig, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			return nil, err
		}
		pool, err := database.Init(dbConfig, logger)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		if !database.WaitForDB(ctx, pool, logger) {
			pool.Close()
			return nil, errors.New("database not ready")
		}
		store = auth.NewPostgresUserStore(pool, logger)
	}
	if cfg.Cache.UserTTL > 0 {
		store = auth.NewCachedUserStore(store, cfg.Cache.UserTTL, logger)
	}

	if err := c.wire(store); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithStore wires the application around an existing store.
func NewContainerWithStore(cfg *config.Config, logger *slog.Logger, store auth.UserStore) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.wire(store); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(store auth.UserStore) error {
	codec, err := auth.NewTokenCodecFromConfig(c.Config.JWT)
	if err != nil {
		return err
	}
	hasher, err := auth.NewBcryptHasher(c.Config.Password.Cost, c.Config.Password.Workers)
	if err != nil {
		return err
	}

	c.Store = store
	c.Codec = codec
	c.Hasher = hasher
	c.AuthService = auth.NewAuthService(store, hasher, codec, c.Logger)
	c.AuthHandler = auth.NewAuthHandlerImpl(c.AuthService, c.Logger)
	c.UserHandler = user.NewHandlerImpl(c.Logger)
	return nil
}

// Router returns the public API handler.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		AuthHandler:            c.AuthHandler,
		UserHandler:            c.UserHandler,
		AuthenticateMiddleware: auth.Authenticate(c.Logger, c.Codec, c.Store),
		AuthorizeMiddleware:    auth.Authorize(c.Logger, auth.DefaultPolicy()),
		AllowedOrigins:         c.Config.CORS.AllowedOrigins,
		Timeout:                c.Config.Server.Timeout,
		Logger:                 c.Logger,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
