package goguard

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MrEthical07/goGuard/authority"
	"github.com/MrEthical07/goGuard/internal/events"
	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/store"
	"github.com/MrEthical07/goGuard/token"
)

// Authority is the role/permission oracle the guard consults. It is the
// interface satisfied by [authority.Service]; substitute an in-memory
// implementation in tests. Every predicate must fail closed: an error is a
// denial, never a grant.
type Authority interface {
	Current(ctx context.Context, force bool) (authority.Snapshot, error)
	HasRole(ctx context.Context, name string) (bool, error)
	HasAnyRole(ctx context.Context, names []string) (bool, error)
	HasAllPermissions(ctx context.Context, names []string) (bool, error)
	PrimaryRole(ctx context.Context) (string, error)
	IsAdmin(ctx context.Context) (bool, error)
	HierarchyLevel(ctx context.Context) (int, error)
	CanPerformAction(ctx context.Context, resource, action string) (bool, error)
	AccessSummary(ctx context.Context) (authority.Summary, error)
	ClearCache()
}

// Guard produces access verdicts for routes and exposes authorization
// predicates usable outside routing (gating an action button, for
// instance). Construct it through [Builder.Build].
//
//	Docs: docs/guard.md
type Guard struct {
	config      Config
	coordinator *Coordinator
	store       store.CredentialStore
	authority   Authority
	inspector   *token.Inspector

	mu     sync.RWMutex
	rules  map[string]RouteRule
	frozen bool
}

// Coordinator returns the request coordinator built alongside this guard.
func (g *Guard) Coordinator() *Coordinator {
	return g.coordinator
}

// RegisterRoute associates a route identifier with its required
// permissions and acceptable roles. Registration is a one-time
// configuration step: once the first Authorize runs, the rule table is
// frozen and further registration fails.
func (g *Guard) RegisterRoute(rule RouteRule) error {
	if rule.Route == "" {
		return ErrRouteRuleDuplicate
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return ErrRouteRulesFrozen
	}
	if _, exists := g.rules[rule.Route]; exists {
		return ErrRouteRuleDuplicate
	}
	g.rules[rule.Route] = RouteRule{
		Route:               rule.Route,
		RequiredPermissions: append([]string(nil), rule.RequiredPermissions...),
		AcceptableRoles:     append([]string(nil), rule.AcceptableRoles...),
	}
	return nil
}

func (g *Guard) ruleFor(route string) RouteRule {
	g.mu.Lock()
	g.frozen = true
	rule := g.rules[route]
	g.mu.Unlock()
	return rule
}

// Authorize runs the per-check state machine for the requested route and
// returns the verdict: local session liveness, then required permissions
// (all must hold), then acceptable roles (any one suffices). Authority
// errors deny at the stage where they occur; a transient cache or network
// error never grants access. Denial is data, not an error; RedirectTo
// distinguishes the login entry point from the unauthorized page.
func (g *Guard) Authorize(ctx context.Context, route string) Verdict {
	rule := g.ruleFor(route)

	reason := flows.RunAuthorize(ctx, flows.AuthorizeDeps{
		SessionLive:         func() bool { return g.sessionLive(ctx) },
		RequiredPermissions: rule.RequiredPermissions,
		AcceptableRoles:     rule.AcceptableRoles,
		HasAllPermissions:   g.authority.HasAllPermissions,
		HasAnyRole:          g.authority.HasAnyRole,
	})

	switch reason {
	case flows.AccessAuthorized:
		g.coordinator.metricInc(MetricAccessAuthorized)
		return Verdict{Allowed: true, Reason: ReasonAuthorized}
	case flows.AccessUnauthenticated:
		g.coordinator.metricInc(MetricAccessUnauthenticated)
		g.emitDenied(ctx, route, ReasonUnauthenticated)
		return Verdict{Allowed: false, Reason: ReasonUnauthenticated, RedirectTo: g.config.Logout.LoginPath}
	case flows.AccessPermissionDenied:
		g.coordinator.metricInc(MetricAccessPermissionDenied)
		g.emitDenied(ctx, route, ReasonInsufficientPermissions)
		return Verdict{Allowed: false, Reason: ReasonInsufficientPermissions, RedirectTo: g.config.Logout.UnauthorizedPath}
	default:
		g.coordinator.metricInc(MetricAccessRoleDenied)
		g.emitDenied(ctx, route, ReasonInsufficientRoles)
		return Verdict{Allowed: false, Reason: ReasonInsufficientRoles, RedirectTo: g.config.Logout.UnauthorizedPath}
	}
}

func (g *Guard) emitDenied(ctx context.Context, route string, reason VerdictReason) {
	g.coordinator.emitEvent(ctx, events.Event{
		EventType: eventTypeAccessDenied,
		Route:     route,
		Reason:    string(reason),
		Success:   false,
	})
}

// sessionLive is the synchronous local liveness check that runs on every
// route transition: all three persisted fields present and the bearer
// token structurally valid and unexpired. No network.
func (g *Guard) sessionLive(ctx context.Context) bool {
	creds, err := g.store.Load(ctx)
	if err != nil {
		return false
	}
	if !creds.Complete() {
		return false
	}
	return g.inspector.Live(creds.Token)
}

// IsAuthenticated reports whether a live session is present locally.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	return g.sessionLive(ctx)
}

// HasPermission reports whether the actor holds the named permission.
// Unauthenticated or erroring lookups report false, never raise.
func (g *Guard) HasPermission(ctx context.Context, name string) bool {
	if !g.sessionLive(ctx) {
		return false
	}
	ok, err := g.authority.HasAllPermissions(ctx, []string{name})
	return err == nil && ok
}

// HasRole reports whether the actor holds the named role, with the same
// safe-default contract as HasPermission.
func (g *Guard) HasRole(ctx context.Context, name string) bool {
	if !g.sessionLive(ctx) {
		return false
	}
	ok, err := g.authority.HasRole(ctx, name)
	return err == nil && ok
}

// HasAnyRole reports whether the actor holds at least one of the named
// roles.
func (g *Guard) HasAnyRole(ctx context.Context, names []string) bool {
	if !g.sessionLive(ctx) {
		return false
	}
	ok, err := g.authority.HasAnyRole(ctx, names)
	return err == nil && ok
}

// IsAdmin reports whether the actor holds a configured admin role.
func (g *Guard) IsAdmin(ctx context.Context) bool {
	if !g.sessionLive(ctx) {
		return false
	}
	ok, err := g.authority.IsAdmin(ctx)
	return err == nil && ok
}

// RoleHierarchyLevel returns the actor's highest role level, zero when
// unauthenticated or unranked.
func (g *Guard) RoleHierarchyLevel(ctx context.Context) int {
	if !g.sessionLive(ctx) {
		return 0
	}
	level, err := g.authority.HierarchyLevel(ctx)
	if err != nil {
		return 0
	}
	return level
}

// CanPerformAction reports whether the actor may perform action on
// resource, per the authority's permission naming convention.
func (g *Guard) CanPerformAction(ctx context.Context, resource, action string) bool {
	if !g.sessionLive(ctx) {
		return false
	}
	ok, err := g.authority.CanPerformAction(ctx, resource, action)
	return err == nil && ok
}

// AccessSummary returns the flattened authority snapshot for diagnostics.
// The second return is false when unauthenticated or the lookup failed.
func (g *Guard) AccessSummary(ctx context.Context) (authority.Summary, bool) {
	if !g.sessionLive(ctx) {
		return authority.Summary{}, false
	}
	summary, err := g.authority.AccessSummary(ctx)
	if err != nil {
		return authority.Summary{}, false
	}
	return summary, true
}

// CurrentUser decodes the persisted user record. Best-effort: a missing or
// unparseable record returns nil rather than an error.
func (g *Guard) CurrentUser(ctx context.Context) *User {
	creds, err := g.store.Load(ctx)
	if err != nil || creds.UserJSON == "" {
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(creds.UserJSON), &user); err != nil {
		return nil
	}
	return &user
}

// RefreshAuthorities forces the authority oracle past its memoized
// snapshot. A no-op when unauthenticated.
func (g *Guard) RefreshAuthorities(ctx context.Context) error {
	if !g.sessionLive(ctx) {
		return nil
	}
	g.coordinator.metricInc(MetricAuthorityRefresh)
	_, err := g.authority.Current(ctx, true)
	return err
}

// Logout notifies the backend best-effort, then runs the terminal
// auth-failure path: credentials wiped, authority cache cleared, logout
// event emitted, and the login redirect scheduled after the grace period.
func (g *Guard) Logout(ctx context.Context) {
	g.coordinator.logoutBackend(ctx)
	g.coordinator.handleAuthFailure(ctx, logoutReasonUserRequested)
}

// Close stops the event dispatcher, flushing queued events.
func (g *Guard) Close() {
	g.coordinator.events.Close()
}
