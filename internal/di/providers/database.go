package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/logger"
	"github.com/forgeapp/forge-server/internal/sse"
	"github.com/forgeapp/forge-server/internal/store"
	"github.com/forgeapp/forge-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the sqlite store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the relational store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)
	return &StoreHandle{Store: db}, nil
}

// KVHandle wraps the badger key-value store with shutdown capability.
type KVHandle struct {
	*store.KV
}

// Shutdown implements do.Shutdownable.
func (h *KVHandle) Shutdown() error {
	return h.Close()
}

// ProvideKV provides the key-value store for sessions and autosave state.
func ProvideKV(i do.Injector) (*KVHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	kv, err := store.OpenKV(cfg.KVPath(), log.Logger)
	if err != nil {
		return nil, err
	}
	return &KVHandle{KV: kv}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
