package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/activitymap"
	"github.com/goliatone/go-auth-starter/config"
	"github.com/goliatone/go-auth-starter/persistence"
	"github.com/goliatone/go-auth-starter/repository"
	"github.com/goliatone/go-auth-starter/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	logger, err := auth.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.IsDevelopment() {
		logger.Debug("configuration", zap.String("config", print.MaybePrettyJSON(cfg.Redacted())))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	auth.SetPasswordHashCost(cfg.GetBcryptCost())

	if cfg.Database.SeedFile != "" {
		n, err := persistence.SeedFromFile(ctx, repo.Users(), cfg.Database.SeedFile)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "seed users")
		}
		logger.Info("seeded users", zap.Int("created", n), zap.String("file", cfg.Database.SeedFile))
	}

	activity, closeActivity, err := openActivitySink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeActivity()

	srv := server.New(server.Deps{
		Config:   cfg,
		Repo:     repo,
		Logger:   logger,
		Activity: activity,
	})

	return srv.Run(ctx)
}

// openActivitySink logs activity events and, when an activity log is
// configured, appends them as JSON lines to that file too.
func openActivitySink(cfg *config.Config, logger *zap.Logger) (auth.ActivitySink, func(), error) {
	logging := auth.NewLoggingActivitySink(auth.NewZapLogger(logger.Named("auth.activity")))
	if cfg.Logging.ActivityLog == "" {
		return logging, func() {}, nil
	}

	f, err := os.OpenFile(cfg.Logging.ActivityLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "open activity log")
	}

	return activitymap.Multi(logging, activitymap.NewWriterSink(f)), func() { _ = f.Close() }, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.RepositoryManager, func(), error) {
	driver, err := persistence.DriverFromDSN(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	if driver == persistence.DriverMongo {
		mgr, err := repository.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := mgr.EnsureIndexes(ctx); err != nil {
			_ = mgr.Close(context.Background())
			return nil, nil, errors.Wrap(err, errors.CategoryInternal, "ensure indexes")
		}
		logger.Info("connected to mongo", zap.String("database", repository.DatabaseFromURI(cfg.Database.DSN)))
		return mgr, func() { _ = mgr.Close(context.Background()) }, nil
	}

	db, driver, err := persistence.Open(persistence.Options{
		DSN:   cfg.Database.DSN,
		Debug: cfg.Database.Debug,
	})
	if err != nil {
		return nil, nil, err
	}

	applied, err := persistence.Migrate(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("database ready", zap.String("driver", string(driver)), zap.Strings("migrations", applied))

	return auth.NewRepositoryManager(db), func() { _ = db.Close() }, nil
}
