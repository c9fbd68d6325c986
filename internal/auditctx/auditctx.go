// Package auditctx carries the identity behind a change through service calls
// so that recorded history can name who made it.
package auditctx

import "context"

// Actor captures contextual information about the caller that initiated a change.
type Actor struct {
	Email     string
	IPAddress string
	UserAgent string
}

// Label names the actor in recorded history.
func (a Actor) Label() string {
	return a.Email
}

type actorContextKey struct{}

// WithActor injects actor metadata into the supplied context, returning a derived context that
// callers can pass down into service layers.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
