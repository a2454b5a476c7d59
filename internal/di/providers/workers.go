package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/logger"
)

const (
	kvGCInterval     = 10 * time.Minute
	kvGCDiscardRatio = 0.5
)

// KVMaintenanceJob periodically reclaims space in the key-value store, where
// expired sessions and autosave checkpoints leave garbage behind.
type KVMaintenanceJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *KVMaintenanceJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideKVMaintenanceJob provides the periodic value log GC job.
func ProvideKVMaintenanceJob(i do.Injector) (*KVMaintenanceJob, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(kvGCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if count, err := kvHandle.CollectGarbage(kvGCDiscardRatio); err != nil {
					log.Warn("KV garbage collection failed", "error", err)
				} else if count > 0 {
					log.Info("KV garbage collection completed", "rewritten", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("KV maintenance job started", "interval", kvGCInterval)

	return &KVMaintenanceJob{cancel: cancel}, nil
}
