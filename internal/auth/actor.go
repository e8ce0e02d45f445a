package auth

import (
	"context"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// RoleAny admits every authenticated actor regardless of role.
const RoleAny store.Role = "Any"

// Actor is the authenticated user performing a request.
type Actor struct {
	ID   int64
	Role store.Role
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached to ctx, or nil for anonymous
// requests.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorKey{}).(*Actor)
	return actor
}

// Authorize checks actor against the allowed roles. A nil actor is
// Unauthorized; an actor whose role is not allowed is Forbidden.
func Authorize(actor *Actor, roles ...store.Role) error {
	if actor == nil {
		return app.Unauthorized("Not authorized")
	}
	for _, role := range roles {
		if role == RoleAny || role == actor.Role {
			return nil
		}
	}
	return app.Forbidden("Not allowed")
}
