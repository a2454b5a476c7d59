// Package di provides dependency injection configuration for the Forge server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/auth"
	"github.com/forgeapp/forge-server/internal/autosave"
	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/di/providers"
	"github.com/forgeapp/forge-server/internal/logger"
	"github.com/forgeapp/forge-server/internal/mail"
	"github.com/forgeapp/forge-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideKV)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideSessionStore)

	// Business services
	do.Provide(injector, providers.ProvideAutosaveTracker)
	do.Provide(injector, providers.ProvideMailer)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBoardService)
	do.Provide(injector, providers.ProvidePageService)
	do.Provide(injector, providers.ProvideShareService)
	do.Provide(injector, providers.ProvideSpaceService)

	// Workers
	do.Provide(injector, providers.ProvideKVMaintenanceJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.KVHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.SessionStore](injector)

	// Business services
	_ = do.MustInvoke[*autosave.Tracker](injector)
	_ = do.MustInvoke[*mail.Mailer](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BoardService](injector)
	_ = do.MustInvoke[*service.PageService](injector)
	_ = do.MustInvoke[*service.ShareService](injector)
	_ = do.MustInvoke[*service.SpaceService](injector)

	// Workers
	_ = do.MustInvoke[*providers.KVMaintenanceJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
