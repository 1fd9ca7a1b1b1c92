// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// ActorKey is the context key for the acting user.
type ActorKey struct{}

// Actor identifies who is performing an operation.
// Admin gates review, override and catalog operations.
type Actor struct {
	ID    string
	Admin bool
}

// WithActor returns a context with the actor embedded.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorKey{}, actor)
}

// ActorFromContext returns the actor from context, or the zero Actor if not set.
func ActorFromContext(ctx context.Context) Actor {
	if v, ok := ctx.Value(ActorKey{}).(Actor); ok {
		return v
	}
	return Actor{}
}

// ActorIDFromContext returns the actor ID from context, or empty string if not set.
func ActorIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).ID
}
