package providers

import (
	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/auth"
	"github.com/forgeapp/forge-server/internal/autosave"
	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/logger"
	"github.com/forgeapp/forge-server/internal/mail"
	"github.com/forgeapp/forge-server/internal/service"
)

// ProvideAutosaveTracker provides the per-session autosave tracker.
func ProvideAutosaveTracker(i do.Injector) (*autosave.Tracker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	kvHandle := do.MustInvoke[*KVHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return autosave.NewTracker(kvHandle.KV, cfg.Autosave.SessionTTL, log.Logger), nil
}

// ProvideMailer provides the invite mailer. Without SMTP settings invites
// are only logged.
func ProvideMailer(i do.Injector) (*mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var sender mail.Sender
	if cfg.Mail.Enabled() {
		sender = mail.NewSMTPSender(cfg.Mail)
		log.Info("SMTP delivery enabled", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	} else {
		sender = mail.NewLogSender(log.Logger)
		log.Info("SMTP not configured, invite emails will be logged")
	}

	return mail.NewMailer(sender, cfg.Server.PublicURL, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessions := do.MustInvoke[*auth.SessionStore](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessions, log.Logger), nil
}

// ProvideBoardService provides the board service.
func ProvideBoardService(i do.Injector) (*service.BoardService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBoardService(storeHandle.Store, sseHandle.Manager, searchService, log.Logger), nil
}

// ProvidePageService provides the page service.
func ProvidePageService(i do.Injector) (*service.PageService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	tracker := do.MustInvoke[*autosave.Tracker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPageService(storeHandle.Store, sseHandle.Manager, searchService, tracker, log.Logger), nil
}

// ProvideShareService provides the page sharing service.
func ProvideShareService(i do.Injector) (*service.ShareService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	pageService := do.MustInvoke[*service.PageService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShareService(storeHandle.Store, pageService, cfg.Share.DefaultTTL, log.Logger), nil
}

// ProvideSpaceService provides the space and membership service.
func ProvideSpaceService(i do.Injector) (*service.SpaceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	boardService := do.MustInvoke[*service.BoardService](i)
	pageService := do.MustInvoke[*service.PageService](i)
	mailer := do.MustInvoke[*mail.Mailer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSpaceService(
		storeHandle.Store,
		sseHandle.Manager,
		boardService,
		pageService,
		mailer,
		log.Logger,
	), nil
}
