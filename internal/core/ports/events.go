package ports

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

// EventPublisher is called synchronously from inside state transitions, in commit order.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
	Close()
}
