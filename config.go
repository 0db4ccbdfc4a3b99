package goguard

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goguard APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	Endpoints EndpointConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Token     TokenConfig
	Authority AuthorityConfig
	Logout    LogoutConfig
	Events    EventConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig binds the consumed backend paths to configuration. Paths
// are joined onto BaseURL; none of them are hard-coded elsewhere.
type EndpointConfig struct {
	BaseURL         string
	ValidateSession string
	Refresh         string
	Logout          string
	Authorities     string
	CSRFToken       string
	CreateOrder     string
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig defines a public type used by goguard APIs.
//
// HTTPConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	// RequestTimeout bounds every outbound call. A timeout classifies as
	// network_error on validation and as refresh failure on refresh.
	RequestTimeout time.Duration
	UserAgent      string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the three persisted credential fields. All three are
// written together and cleared together; partial state reads as "no
// session".
type StorageConfig struct {
	TokenKey        string
	RefreshTokenKey string
	UserKey         string
	RedisPrefix     string
	RedisTTL        time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by goguard APIs.
//
// TokenConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// Leeway widens the local expiry check. Zero keeps the strict
	// exp-before-now rule.
	Leeway time.Duration
}

/*
====================================
AUTHORITY CONFIG
====================================
*/

// AuthorityConfig defines a public type used by goguard APIs.
//
// AuthorityConfig instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type AuthorityConfig struct {
	CacheTTL   time.Duration
	AdminRoles []string
	// Hierarchy orders roles for PrimaryRole selection; higher wins.
	Hierarchy map[string]int
}

/*
====================================
LOGOUT CONFIG
====================================
*/

// LogoutConfig defines a public type used by goguard APIs.
//
// LogoutConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type LogoutConfig struct {
	LoginPath        string
	UnauthorizedPath string
	// RedirectGrace delays the post-logout redirect so a user-visible
	// notice can render first.
	RedirectGrace time.Duration
}

/*
====================================
EVENT CONFIG
====================================
*/

// EventConfig controls the async event dispatcher.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goguard APIs.
//
// MetricsConfig instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointConfig{
			ValidateSession: "/auth/validate-session",
			Refresh:         "/auth/refresh",
			Logout:          "/auth/logout",
			Authorities:     "/auth/roles-permissions",
			CSRFToken:       "/payments/csrf-token",
			CreateOrder:     "/payments/create-order",
		},
		HTTP: HTTPConfig{
			RequestTimeout: 10 * time.Second,
			UserAgent:      "goGuard",
		},
		Storage: StorageConfig{
			TokenKey:        "auth_token",
			RefreshTokenKey: "refresh_token",
			UserKey:         "user_data",
			RedisPrefix:     "goguard:credentials:",
		},
		Authority: AuthorityConfig{
			CacheTTL:   5 * time.Minute,
			AdminRoles: []string{"super_admin", "admin"},
		},
		Logout: LogoutConfig{
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
			RedirectGrace:    2 * time.Second,
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Endpoints.BaseURL) == "" {
		return errors.New("endpoints: BaseURL required")
	}
	for _, p := range []string{
		cfg.Endpoints.ValidateSession,
		cfg.Endpoints.Refresh,
		cfg.Endpoints.Logout,
		cfg.Endpoints.Authorities,
		cfg.Endpoints.CSRFToken,
		cfg.Endpoints.CreateOrder,
	} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("endpoints: paths must start with /")
		}
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		return errors.New("http: RequestTimeout must be positive")
	}
	if cfg.Storage.TokenKey == "" || cfg.Storage.RefreshTokenKey == "" || cfg.Storage.UserKey == "" {
		return errors.New("storage: all three field keys required")
	}
	if cfg.Storage.TokenKey == cfg.Storage.RefreshTokenKey ||
		cfg.Storage.TokenKey == cfg.Storage.UserKey ||
		cfg.Storage.RefreshTokenKey == cfg.Storage.UserKey {
		return errors.New("storage: field keys must be distinct")
	}
	if cfg.Token.Leeway < 0 || cfg.Token.Leeway > 2*time.Minute {
		return errors.New("token: invalid leeway")
	}
	if cfg.Authority.CacheTTL < 0 {
		return errors.New("authority: CacheTTL must not be negative")
	}
	if cfg.Logout.LoginPath == "" || cfg.Logout.UnauthorizedPath == "" {
		return errors.New("logout: redirect paths required")
	}
	if cfg.Logout.RedirectGrace < 0 {
		return errors.New("logout: RedirectGrace must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Authority.AdminRoles = append([]string(nil), cfg.Authority.AdminRoles...)
	if cfg.Authority.Hierarchy != nil {
		out.Authority.Hierarchy = make(map[string]int, len(cfg.Authority.Hierarchy))
		for role, level := range cfg.Authority.Hierarchy {
			out.Authority.Hierarchy[role] = level
		}
	}
	return out
}
