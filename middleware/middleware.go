package middleware

import (
	"context"
	"net/http"

	goguard "github.com/MrEthical07/goGuard"
)

type contextKey string

const verdictKey contextKey = "goguard_verdict"

// Protect wraps a handler behind a guard authorization check for the
// named route. Denied requests receive 401 when unauthenticated and 403
// otherwise; the handler only runs for allowed requests, with the
// verdict stored on the request context.
//
//	Docs: docs/middleware.md
func Protect(g *goguard.Guard, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goguard.WithOriginRoute(r.Context(), route)
			verdict := g.Authorize(ctx, route)
			if !verdict.Allowed {
				status := http.StatusForbidden
				if verdict.Reason == goguard.ReasonUnauthenticated {
					status = http.StatusUnauthorized
				}
				http.Error(w, string(verdict.Reason), status)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, verdictKey, verdict)))
		})
	}
}

// VerdictFromContext recovers the verdict stored by Protect. The second
// return is false for requests that did not pass through Protect.
func VerdictFromContext(ctx context.Context) (goguard.Verdict, bool) {
	v, ok := ctx.Value(verdictKey).(goguard.Verdict)
	return v, ok
}
