package providers

import (
	"aidanwoods.dev/go-paseto"
	"github.com/samber/do/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/auth"
	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/logger"
)

// ProvideSigningKey loads the session signing key from configuration, or
// loads or generates one in the data directory.
func ProvideSigningKey(i do.Injector) (paseto.V4AsymmetricSecretKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.SessionKey != "" {
		log.Info("Session signing key loaded from configuration")
		return auth.ParseSigningKey(cfg.Auth.SessionKey)
	}

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return paseto.V4AsymmetricSecretKey{}, err
	}
	log.Info("Session signing key loaded", "data_path", cfg.Data.BasePath)
	return key, nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	key := do.MustInvoke[paseto.V4AsymmetricSecretKey](i)
	return auth.NewTokenService(key, auth.SessionDuration), nil
}

// ProvideGoogleVerifier provides the Google ID token verifier.
func ProvideGoogleVerifier(i do.Injector) (*auth.GoogleVerifier, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return auth.NewGoogleVerifier(auth.GoogleConfig{
		ClientID: cfg.Auth.GoogleClientID,
		CertsURL: cfg.Auth.GoogleCertsURL,
		Issuers:  cfg.Auth.GoogleIssuers,
	}, nil), nil
}
