package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/logger"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/store/badgerstore"
	"github.com/shelfnotes/shelfnotes-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured store, retrying while it is unavailable.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var open func() (store.Store, error)
	switch cfg.Store.Driver {
	case "sqlite":
		open = func() (store.Store, error) {
			db, err := sqlite.Open(cfg.Store.Path, log.Logger)
			if err != nil {
				return nil, err
			}
			return db, nil
		}
	case "badger":
		open = func() (store.Store, error) {
			db, err := badgerstore.Open(cfg.Store.Path, log.Logger, badgerstore.Options{})
			if err != nil {
				return nil, err
			}
			return db, nil
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	db, err := store.OpenWithRetry(context.Background(), cfg.Store.ConnectRetries, cfg.Store.RetryDelay, log.Logger, open)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	return &StoreHandle{Store: db}, nil
}
