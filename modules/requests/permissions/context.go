package permissions

import (
	"context"
	"errors"

	"github.com/iota-uz/projecthub/pkg/constants"
)

var ErrNoActor = errors.New("actor not found in context")

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actor)
}

// UseActor returns the signed-in member for the current operation.
func UseActor(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(constants.ActorKey).(Actor)
	if !ok || actor.IsZero() {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}
