package models

import "context"

type Role string // Роль участника компании

const (
	RoleBuyer    Role = "BUYER"
	RoleSupplier Role = "SUPPLIER"
	RoleAny      Role = ""
)

// Actor - аутентифицированный пользователь, выполняющий операцию.
type Actor struct {
	UserID string
}

type actorKey struct{}

// WithActor кладет пользователя в контекст запроса.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom достает пользователя из контекста.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.UserID != ""
}
