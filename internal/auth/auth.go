package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the capability level granted to an actor.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleViewer Role = "viewer"
)

// Action names a privileged operation checked against the gate.
type Action string

const (
	ActionCreateSale Action = "sale:create"
	ActionVoidSale   Action = "sale:void"
)

// Actor is an authenticated user as seen by the engine. Who authenticates
// them is someone else's problem; we only care about identity and role.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role Role
}

// Gate decides whether an actor may perform an action.
type Gate interface {
	Allows(actor Actor, action Action) bool
}

// RoleGate is a static role table. Voiding a sale is restricted to sellers
// and admins; creating one is open to any non-viewer actor.
type RoleGate struct{}

func NewRoleGate() RoleGate {
	return RoleGate{}
}

func (RoleGate) Allows(actor Actor, action Action) bool {
	switch action {
	case ActionVoidSale:
		return actor.Role == RoleSeller || actor.Role == RoleAdmin
	case ActionCreateSale:
		return actor.Role == RoleSeller || actor.Role == RoleAdmin
	default:
		return false
	}
}

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext returns the actor placed by the auth middleware, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
