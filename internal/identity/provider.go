package identity

import (
	"fmt"

	"tweetqueue/internal/config"
	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
)

// New returns the provider selected by identity.provider.
func New(cfg *config.Config) (session.IdentityProvider, error) {
	switch cfg.Identity.Provider {
	case "local":
		return NewLocalProvider(
			cfg.Identity.Username,
			cfg.Identity.PasswordHash,
			cfg.Identity.TokenSecret,
			cfg.Identity.TokenTTLDuration(),
		), nil
	case "platform":
		return NewPlatformProvider(cfg.Platform.BaseURL, cfg.Platform.UserAgent, cfg.Identity.LoginTimeoutDuration()), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "identity", "new",
			fmt.Sprintf("unknown provider %q", cfg.Identity.Provider), nil)
	}
}
