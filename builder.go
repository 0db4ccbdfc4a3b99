package goguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/authority"
	internalevents "github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/store"
	"github.com/MrEthical07/goGuard/token"
)

// Builder defines a public type used by goguard APIs.
//
// Builder instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	credentialStore store.CredentialStore
	redisClient     *redis.Client
	authorityImpl   Authority
	httpClient      *http.Client
	eventSink       EventSink
	redirect        func(path string)
	routes          []RouteRule

	built bool
}

// New creates a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration. Endpoint BaseURL is the
// only field with no default and must be set here.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets only the backend base URL, keeping every other default.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Endpoints.BaseURL = baseURL
	return b
}

// WithCredentialStore injects the credential persistence. Defaults to an
// in-memory store when neither this nor WithRedis is used.
func (b *Builder) WithCredentialStore(s store.CredentialStore) *Builder {
	b.credentialStore = s
	return b
}

// WithRedis backs credential persistence with Redis using the Storage
// configuration section. Ignored when an explicit store is injected.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redisClient = client
	return b
}

// WithAuthority injects a custom authority oracle. Defaults to an HTTP
// oracle against the configured authorities endpoint.
func (b *Builder) WithAuthority(a Authority) *Builder {
	b.authorityImpl = a
	return b
}

// WithHTTPClient injects the transport used for every backend call.
// Defaults to a client bounded by HTTP.RequestTimeout.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithEventSink receives logout, refresh-failure, and access-denied
// events. Defaults to discarding them.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithRedirectHandler receives the navigation target scheduled after
// logout. The handler runs on a timer goroutine once the grace period
// elapses; without one, no navigation is attempted.
func (b *Builder) WithRedirectHandler(redirect func(path string)) *Builder {
	b.redirect = redirect
	return b
}

// WithRoute registers one route rule at build time. Rules can also be
// registered on the Guard before its first authorization.
func (b *Builder) WithRoute(rule RouteRule) *Builder {
	b.routes = append(b.routes, rule)
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate-path latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build wires the Coordinator and Guard. The builder is single-use.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := validateConfig(b.config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	credentialStore := b.credentialStore
	if credentialStore == nil && b.redisClient != nil {
		rs, err := store.NewRedis(b.redisClient, store.RedisConfig{
			Prefix:          b.config.Storage.RedisPrefix,
			TokenKey:        b.config.Storage.TokenKey,
			RefreshTokenKey: b.config.Storage.RefreshTokenKey,
			UserKey:         b.config.Storage.UserKey,
			TTL:             b.config.Storage.RedisTTL,
		})
		if err != nil {
			return nil, err
		}
		credentialStore = rs
	}
	if credentialStore == nil {
		credentialStore = store.NewMemory()
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: b.config.HTTP.RequestTimeout}
	}

	coordinator := &Coordinator{
		config:     b.config,
		store:      credentialStore,
		inspector:  token.NewInspector(token.Config{Leeway: b.config.Token.Leeway}),
		httpClient: httpClient,
		metrics:    NewMetrics(b.config.Metrics),
		events:     internalevents.NewDispatcher(internalevents.Config(b.config.Events), b.eventSink),
		redirect:   b.redirect,
	}

	authorityImpl := b.authorityImpl
	if authorityImpl == nil {
		authorityImpl = authority.New(authorityFetcher(coordinator), authority.Config{
			CacheTTL:   b.config.Authority.CacheTTL,
			AdminRoles: b.config.Authority.AdminRoles,
			Hierarchy:  b.config.Authority.Hierarchy,
		})
	}
	coordinator.authority = authorityImpl

	guard := &Guard{
		config:      b.config,
		coordinator: coordinator,
		store:       credentialStore,
		authority:   authorityImpl,
		inspector:   coordinator.inspector,
		rules:       make(map[string]RouteRule, len(b.routes)),
	}
	for _, rule := range b.routes {
		if err := guard.RegisterRoute(rule); err != nil {
			return nil, fmt.Errorf("route %q: %w", rule.Route, err)
		}
	}

	return guard, nil
}

// authorityFetcher adapts the coordinator's transport into the authority
// oracle's fetch function.
func authorityFetcher(c *Coordinator) authority.FetchFunc {
	return func(ctx context.Context) (authority.Snapshot, error) {
		creds, err := c.store.Load(ctx)
		if err != nil {
			return authority.Snapshot{}, err
		}

		res := c.send(ctx, http.MethodGet, c.config.Endpoints.Authorities, creds.Token, nil)
		if res.Err != nil {
			return authority.Snapshot{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, res.Err)
		}
		if !res.OK() {
			return authority.Snapshot{}, fmt.Errorf("authority fetch: backend status %d", res.Status)
		}

		var payload struct {
			Roles       []string `json:"roles"`
			Permissions []string `json:"permissions"`
		}
		if err := json.Unmarshal(res.Body, &payload); err != nil {
			return authority.Snapshot{}, fmt.Errorf("authority fetch: %w", err)
		}
		return authority.Snapshot{Roles: payload.Roles, Permissions: payload.Permissions}, nil
	}
}
