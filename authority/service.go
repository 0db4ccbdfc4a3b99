package authority

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNoFetcher is an exported constant or variable used by the session guard.
var ErrNoFetcher = errors.New("authority fetcher not configured")

// Snapshot is one resolved set of authorities. Role and permission order
// is not significant; membership is.
type Snapshot struct {
	Roles       []string
	Permissions []string
	FetchedAt   time.Time
}

func (s Snapshot) hasRole(name string) bool {
	for _, r := range s.Roles {
		if r == name {
			return true
		}
	}
	return false
}

func (s Snapshot) hasPermission(name string) bool {
	for _, p := range s.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// Summary is the flattened access description returned by AccessSummary,
// intended for diagnostics surfaces rather than decisions.
type Summary struct {
	Roles          []string
	Permissions    []string
	PrimaryRole    string
	IsAdmin        bool
	HierarchyLevel int
}

// FetchFunc retrieves the actor's authorities from the backing source.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// Config defines a public type used by goguard APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	// CacheTTL bounds memoization. Zero disables caching entirely: every
	// lookup fetches.
	CacheTTL time.Duration
	// AdminRoles lists the roles that make IsAdmin true.
	AdminRoles []string
	// Hierarchy assigns each role a level; PrimaryRole is the held role
	// with the highest level. Unlisted roles rank at level zero.
	Hierarchy map[string]int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Service is the memoized oracle. All methods are safe for concurrent use.
// The mutex is held across the fetch so a burst of cold lookups costs one
// round-trip, not one per caller.
type Service struct {
	cfg   Config
	fetch FetchFunc

	mu     sync.Mutex
	cached *Snapshot
}

// New creates a Service around the given fetcher.
func New(fetch FetchFunc, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{cfg: cfg, fetch: fetch}
}

// Current returns the memoized snapshot, fetching when the memo is stale,
// absent, or force is set. Fetch errors are returned and never cached.
func (s *Service) Current(ctx context.Context, force bool) (Snapshot, error) {
	if s.fetch == nil {
		return Snapshot{}, ErrNoFetcher
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.cached != nil && s.cfg.CacheTTL > 0 {
		if s.cfg.Now().Sub(s.cached.FetchedAt) < s.cfg.CacheTTL {
			return *s.cached, nil
		}
	}

	snap, err := s.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.cfg.Now()
	}
	s.cached = &snap
	return snap, nil
}

// ClearCache drops the memoized snapshot. The next lookup fetches.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// HasRole reports whether the actor holds the named role.
func (s *Service) HasRole(ctx context.Context, name string) (bool, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return false, err
	}
	return snap.hasRole(name), nil
}

// HasAnyRole reports whether the actor holds at least one of the named
// roles (OR semantics).
func (s *Service) HasAnyRole(ctx context.Context, names []string) (bool, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if snap.hasRole(name) {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether the actor holds every named permission
// (AND semantics).
func (s *Service) HasAllPermissions(ctx context.Context, names []string) (bool, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if !snap.hasPermission(name) {
			return false, nil
		}
	}
	return true, nil
}

// PrimaryRole returns the held role with the highest hierarchy level.
// Ties and unranked roles resolve lexicographically for stability.
func (s *Service) PrimaryRole(ctx context.Context) (string, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return "", err
	}
	if len(snap.Roles) == 0 {
		return "", nil
	}

	roles := append([]string(nil), snap.Roles...)
	sort.Strings(roles)
	primary := roles[0]
	for _, role := range roles[1:] {
		if s.cfg.Hierarchy[role] > s.cfg.Hierarchy[primary] {
			primary = role
		}
	}
	return primary, nil
}

// IsAdmin reports whether the actor holds any configured admin role.
func (s *Service) IsAdmin(ctx context.Context) (bool, error) {
	return s.HasAnyRole(ctx, s.cfg.AdminRoles)
}

// HierarchyLevel returns the highest level among held roles, zero when
// none rank.
func (s *Service) HierarchyLevel(ctx context.Context) (int, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return 0, err
	}
	level := 0
	for _, role := range snap.Roles {
		if l := s.cfg.Hierarchy[role]; l > level {
			level = l
		}
	}
	return level, nil
}

// CanPerformAction maps a resource/action pair onto the permission set
// using the action_resource naming convention (view+users → view_users).
func (s *Service) CanPerformAction(ctx context.Context, resource, action string) (bool, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return false, err
	}
	return snap.hasPermission(action + "_" + resource), nil
}

// AccessSummary flattens the current snapshot for diagnostics.
func (s *Service) AccessSummary(ctx context.Context) (Summary, error) {
	snap, err := s.Current(ctx, false)
	if err != nil {
		return Summary{}, err
	}
	primary, err := s.PrimaryRole(ctx)
	if err != nil {
		return Summary{}, err
	}
	admin, err := s.IsAdmin(ctx)
	if err != nil {
		return Summary{}, err
	}
	level, err := s.HierarchyLevel(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Roles:          append([]string(nil), snap.Roles...),
		Permissions:    append([]string(nil), snap.Permissions...),
		PrimaryRole:    primary,
		IsAdmin:        admin,
		HierarchyLevel: level,
	}, nil
}
