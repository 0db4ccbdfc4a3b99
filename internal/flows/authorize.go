package flows

import "context"

// AccessReason is the verdict reason produced by the authorization state
// machine. Exactly one reason applies per check.
type AccessReason int

const (
	AccessAuthorized AccessReason = iota
	AccessUnauthenticated
	AccessPermissionDenied
	AccessRoleDenied
)

// AuthorizeDeps captures the authorization state machine dependencies for
// one access check.
type AuthorizeDeps struct {
	// SessionLive is the synchronous local liveness check; it must not
	// touch the network.
	SessionLive func() bool
	// RequiredPermissions use AND semantics, AcceptableRoles use OR.
	RequiredPermissions []string
	AcceptableRoles     []string
	HasAllPermissions   func(ctx context.Context, perms []string) (bool, error)
	HasAnyRole          func(ctx context.Context, roles []string) (bool, error)
}

// RunAuthorize walks the per-check state machine: unauthenticated →
// permission check → role check → authorized. Authority lookup errors deny
// at the stage where they occur; uncertainty never grants access.
func RunAuthorize(ctx context.Context, deps AuthorizeDeps) AccessReason {
	if !deps.SessionLive() {
		return AccessUnauthenticated
	}

	if len(deps.RequiredPermissions) > 0 {
		ok, err := deps.HasAllPermissions(ctx, deps.RequiredPermissions)
		if err != nil || !ok {
			return AccessPermissionDenied
		}
	}

	if len(deps.AcceptableRoles) > 0 {
		ok, err := deps.HasAnyRole(ctx, deps.AcceptableRoles)
		if err != nil || !ok {
			return AccessRoleDenied
		}
	}

	return AccessAuthorized
}
