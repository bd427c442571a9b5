package config

const (
	defaultConfigPath             = "~/.config/tweetqueue/config.toml"
	defaultStateDir               = "~/.local/share/tweetqueue"
	defaultLogDir                 = "~/.local/share/tweetqueue/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultIdentityProvider       = "platform"
	defaultTokenTTL               = 86400
	defaultLoginTimeout           = 10
	defaultPlatformMode           = "http"
	defaultPlatformRequestTimeout = 15
	defaultMaxTextLength          = 280
	defaultUserAgent              = "tweetqueue/0.1.0"
	defaultMaxRetries             = 2
	defaultInitialBackoffMS       = 500
	defaultBackoffMultiplier      = 2.0
	defaultMaxBackoffMS           = 30000
	defaultRateLimitPrefix        = "tweetqueue:ratelimit"
	defaultRateLimit              = 50
	defaultRateLimitWindowSeconds = 900
	defaultNotifyRequestTimeout   = 10
	defaultServiceName            = "tweetqueue"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Identity: Identity{
			Provider:     defaultIdentityProvider,
			TokenTTL:     defaultTokenTTL,
			LoginTimeout: defaultLoginTimeout,
		},
		Platform: Platform{
			Mode:           defaultPlatformMode,
			RequestTimeout: defaultPlatformRequestTimeout,
			MaxTextLength:  defaultMaxTextLength,
			UserAgent:      defaultUserAgent,
		},
		Publish: Publish{
			MaxRetries:        defaultMaxRetries,
			InitialBackoffMS:  defaultInitialBackoffMS,
			BackoffMultiplier: defaultBackoffMultiplier,
			MaxBackoffMS:      defaultMaxBackoffMS,
		},
		RateLimit: RateLimit{
			Prefix:        defaultRateLimitPrefix,
			Limit:         defaultRateLimit,
			WindowSeconds: defaultRateLimitWindowSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			SessionExpired: true,
			Errors:         true,
		},
		Telemetry: Telemetry{
			ServiceName: defaultServiceName,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
