package auth

import (
	"context"
	"errors"
)

type contextKey string

const actorKey contextKey = "actor"

// ErrMissingActor is returned when no actor has been attached to the context
var ErrMissingActor = errors.New("actor context is required")

// ToContext attaches the actor to context.Context
func ToContext(ctx context.Context, actor *Actor) context.Context {
	if actor == nil {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor)
}

// FromContext extracts the actor from context.Context
func FromContext(ctx context.Context) (*Actor, error) {
	if v := ctx.Value(actorKey); v != nil {
		if actor, ok := v.(*Actor); ok {
			return actor, nil
		}
	}
	return nil, ErrMissingActor
}

// ActorID returns the acting user's ID, or empty if no actor is attached
func ActorID(ctx context.Context) string {
	actor, err := FromContext(ctx)
	if err != nil {
		return ""
	}
	return actor.UserID
}
