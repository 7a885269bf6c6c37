package events

import (
	"context"
	"errors"

	"boardgame-server/internal/room"
)

// Fanout hands each event to every publisher, even when some of them fail.
type Fanout []room.Publisher

func (f Fanout) Publish(ctx context.Context, ev room.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, room.Event) error { return nil }
