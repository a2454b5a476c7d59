package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/api"
	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/logger"
	"github.com/forgeapp/forge-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:   do.MustInvoke[*service.AuthService](i),
		Spaces: do.MustInvoke[*service.SpaceService](i),
		Boards: do.MustInvoke[*service.BoardService](i),
		Pages:  do.MustInvoke[*service.PageService](i),
		Shares: do.MustInvoke[*service.ShareService](i),
		Search: do.MustInvoke[*service.SearchService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
