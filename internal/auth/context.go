// Package auth resolves the acting reviewer's identity. Authentication
// itself is out of scope: the identity arrives as a forwarded header from
// the hosting proxy, with a configured fallback for local development.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorHeader is set by the hosting proxy in front of the review surface.
const ActorHeader = "X-Forwarded-Email"

// ContextWithActor returns a new context carrying the acting reviewer.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the acting reviewer from the context, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	actor, ok := ctx.Value(actorKey).(string)
	if !ok || strings.TrimSpace(actor) == "" {
		return "", false
	}
	return actor, true
}

// Middleware extracts the actor header into the request context, falling
// back to defaultActor when the header is absent.
func Middleware(defaultActor string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				actor = defaultActor
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}
