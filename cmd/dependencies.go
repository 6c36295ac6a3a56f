package cmd

import (
	"context"
	"time"

	"agent-scheduler/config"
	"agent-scheduler/pkg/cache"
	"agent-scheduler/pkg/logger"
	"agent-scheduler/pkg/postgres"
	"agent-scheduler/pkg/telegram"
	"agent-scheduler/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	notifier  *telegram.Notifier
	loc       *time.Location
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	loc, err := utils.LoadTimeLocation(cfg.Scheduler.TimeZone)
	if err != nil {
		log.Error("Invalid scheduler time zone", zap.Error(err))
		return nil, err
	}

	// Persistence is optional: without a database host the process runs on
	// its in-memory state alone.
	var db *postgres.DB
	if cfg.DB.Host != "" {
		db, err = postgres.NewDB(cfg.DB, log)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return nil, err
		}
	} else {
		log.Warn("No database configured, tasks will not survive restarts")
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram, log)
	if err != nil {
		log.Error("Failed to create telegram notifier", zap.Error(err))
		return nil, err
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		notifier:  notifier,
		loc:       loc,
	}, nil
}

// gormDB unwraps the connection for the repository layer; nil when
// persistence is disabled.
func (d *AppDependency) gormDB() *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.DB
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
