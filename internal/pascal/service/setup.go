package service

import (
	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/store"
	"github.com/msto63/pascal/pkg/core/cache"
	"github.com/msto63/pascal/pkg/core/config"
	"github.com/msto63/pascal/pkg/core/logging"
)

// NewFromConfig builds a service from application configuration. The
// history lives in SQLite unless the store is disabled, in which case an
// in-memory store is used.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.New(cfg.General.Name)
	}

	var st store.Store
	if cfg.Store.Disabled {
		st = store.NewMemoryStore()
	} else {
		sqlite, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Store.Path})
		if err != nil {
			return nil, mdwerror.Wrap(err, "failed to open history store").
				WithCode(mdwerror.CodeServiceInitialization).
				WithSeverity(mdwerror.SeverityHigh).
				WithDetail("path", cfg.Store.Path)
		}
		logger.Debug("History store opened", "path", sqlite.Path())
		st = sqlite
	}

	var rc *cache.ResultCache
	if !cfg.Cache.Disabled {
		rc = cache.NewResultCache(cache.Config{
			MaxItems: cfg.Cache.MaxItems,
			TTL:      cfg.Cache.TTL.Duration,
		})
	}

	return NewService(Config{
		Strict:              !cfg.Evaluator.Lenient,
		MaxDepth:            cfg.Evaluator.MaxDepth,
		MaxExpressionLength: cfg.Evaluator.MaxExpressionLength,
		Store:               st,
		Cache:               rc,
		Logger:              logger.Named("service"),
	}), nil
}
