package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

// Identity is asserted by the authenticating proxy in front of the service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

var (
	errUnauthenticated = apperr.New(apperr.CodeUnauthenticated, "missing or invalid caller identity")
	errWrongRole       = apperr.New(apperr.CodeAccessDenied, "this endpoint is not available for your role")
)

// RequireRole admits only callers whose asserted role is role.
func RequireRole(role appointment.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(HeaderActorID))
			if err != nil {
				writeError(w, r, errUnauthenticated)
				return
			}
			actorRole := appointment.Role(r.Header.Get(HeaderActorRole))
			if !actorRole.Valid() {
				writeError(w, r, errUnauthenticated)
				return
			}
			if actorRole != role {
				writeError(w, r, errWrongRole)
				return
			}

			actor := appointment.Actor{ID: id, Role: actorRole}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the caller admitted by RequireRole.
func ActorFrom(ctx context.Context) appointment.Actor {
	actor, _ := ctx.Value(actorKey).(appointment.Actor)
	return actor
}
