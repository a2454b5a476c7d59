package providers

import (
	"github.com/samber/do/v2"

	"github.com/forgeapp/forge-server/internal/auth"
	"github.com/forgeapp/forge-server/internal/config"
	"github.com/forgeapp/forge-server/internal/logger"
)

// AuthKey is the hex-encoded token key.
type AuthKey string

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.App.DataPath)
	if err != nil {
		return "", err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(authKey), cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}

// ProvideSessionStore provides the refresh session store.
func ProvideSessionStore(i do.Injector) (*auth.SessionStore, error) {
	kvHandle := do.MustInvoke[*KVHandle](i)
	return auth.NewSessionStore(kvHandle.KV), nil
}
