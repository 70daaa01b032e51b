// Package bootstrap loads what every rentmarket binary needs before it wires
// its own services: environment, config, logger, database and optional redis.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/instance"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/migrate"
	"github.com/angelmondragon/rentmarket-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime owns the shared clients of one process and closes them in reverse
// order of creation.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []closer
}

// Start loads .env and config, builds the leveled logger, connects the
// database and applies dev migrations. On error every opened client is closed.
func Start(ctx context.Context, kind string) (_ *Runtime, err error) {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "config.load_failed", err)
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       cfg.App.LogLevel,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return rt, nil
}

// Redis connects the shared redis client and closes it with the runtime.
func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	r.OnClose("redis", client.Close)
	return client, nil
}

// OnClose registers fn to run during Close.
func (r *Runtime) OnClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// Close runs the registered closers newest first. Failures are logged.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil {
			r.Logger.Error(r.Logger.WithField(context.Background(), "client", c.name), "runtime.close_failed", err)
		}
	}
	r.closers = nil
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the process
// identity fields plus extra.
func (r *Runtime) SignalContext(extra map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Kind,
		"instance":    instance.GetID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return r.Logger.WithFields(ctx, fields), stop
}
