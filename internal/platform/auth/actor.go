package auth

import "context"

// Actor is the authenticated caller as recorded on audit entries.
type Actor struct {
	UserID        string `json:"user_id"`
	Name          string `json:"user_name"`
	Role          string `json:"user_role"`
	SourceAddress string `json:"ip_address"`
}

// SystemActor is used for work not triggered by a request, e.g. CLI seeding.
func SystemActor(name string) Actor {
	return Actor{UserID: "system", Name: name, Role: RoleSuperAdmin, SourceAddress: "local"}
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ActorKey, a)
}

// ActorFromContext returns the caller bound by the auth middleware, or a
// zero Actor.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ActorKey).(Actor)
	return a
}
