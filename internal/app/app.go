// Package app assembles the shopping list service from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/cache"
	"github.com/vyrodovalexey/shoplist/internal/catalog"
	"github.com/vyrodovalexey/shoplist/internal/config"
	"github.com/vyrodovalexey/shoplist/internal/history"
	"github.com/vyrodovalexey/shoplist/internal/notifier"
	"github.com/vyrodovalexey/shoplist/internal/shoplist"
	"github.com/vyrodovalexey/shoplist/internal/tabular"
)

// App holds the assembled service and the resources it owns.
type App struct {
	Service *shoplist.Service
	Store   tabular.Store
	Cache   *cache.Cache

	closer io.Closer
}

// Option adjusts how an App is built.
type Option func(*options)

type options struct {
	store    tabular.Store
	notifier notifier.Notifier
}

// WithStore uses store instead of the configured driver.
func WithStore(store tabular.Store) Option {
	return func(o *options) { o.store = store }
}

// WithNotifier uses n instead of the configured notifier.
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// New opens the backing store, creates the catalog tables when missing and
// wires the service together.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, closer, err := openStore(cfg, o.store)
	if err != nil {
		return nil, err
	}
	store = tabular.Instrument(store)

	created, err := tabular.Seed(ctx, store, catalog.Tables()...)
	if err != nil {
		closeQuietly(closer, logger)
		return nil, fmt.Errorf("initialize tables: %w", err)
	}
	for _, name := range created {
		logger.Info("table created", zap.String("table", name))
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.DefaultTTL = cfg.CacheTTL
	cacheCfg.KeyTTLs = map[string]time.Duration{cache.KeyHistory: cfg.HistoryCacheTTL}
	c, err := cache.New(cacheCfg)
	if err != nil {
		closeQuietly(closer, logger)
		return nil, fmt.Errorf("create cache: %w", err)
	}

	n := o.notifier
	if n == nil {
		n = newNotifier(cfg, logger)
	}

	svc := shoplist.NewService(shoplist.Dependencies{
		Catalog:  catalog.New(store, c, logger.Named("catalog")),
		History:  history.New(store, c, logger.Named("history"), history.WithEditWindow(cfg.EditWindow)),
		Notifier: n,
		Cache:    c,
		Store:    store,
		Logger:   logger.Named("shoplist"),
	}, cfg.WhatsAppTo)

	return &App{Service: svc, Store: store, Cache: c, closer: closer}, nil
}

// Close releases the backing store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func openStore(cfg *config.Config, override tabular.Store) (tabular.Store, io.Closer, error) {
	if override != nil {
		return override, nil, nil
	}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		return tabular.NewMemoryStore(), nil, nil
	case config.StoreSQLite:
		s, err := tabular.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, config.ErrInvalidStoreDriver
	}
}

func newNotifier(cfg *config.Config, logger *zap.Logger) notifier.Notifier {
	if cfg.Notifier == config.NotifierLog {
		return notifier.NewLog(logger.Named("notifier"))
	}
	if !cfg.TwilioConfigured() {
		logger.Warn("twilio credentials missing, finalize will be rejected")
	}
	return notifier.NewTwilio(notifier.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioFrom,
	}, logger.Named("notifier"))
}

func closeQuietly(c io.Closer, logger *zap.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}
