// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"errors"
)

type Subscriber interface {
	// C returns a read-only event channel. It is closed by Close.
	C() <-chan Event
	// Close unsubscribes.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
	Close() error
}

// PublishAll publishes every event and returns the joined errors. One failed
// delivery does not stop the rest of the batch.
func PublishAll(ctx context.Context, b Bus, evs []Event) error {
	var errs []error
	for _, e := range evs {
		if err := b.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}
