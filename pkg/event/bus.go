package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Bus publishes business events without making callers wait on the Event log.
type Bus struct {
	Service Service
	Logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewBus creates a Bus that records events with the supplied Service.
func NewBus(s Service, logger zerolog.Logger) *Bus {
	return &Bus{Service: s, Logger: logger}
}

// Publish records the named event in the background. The caller's context
// values are kept but its cancellation is not, so a finished request does not
// abort the write. Failures are logged, never returned.
func (b *Bus) Publish(ctx context.Context, name string, e Event) {
	e.Name = name
	b.wg.Add(1)
	go func(ctx context.Context) {
		defer b.wg.Done()
		created, problems, err := b.Service.Create(ctx, e)
		if err != nil {
			b.Logger.Error().Err(err).Str("event", name).Strs("problems", problems).
				Str("entity_id", e.EntityID).Msg("event not recorded")
			return
		}
		b.Logger.WithLevel(created.LogLevel.Zerolog()).Str("event", name).Str("event_id", created.ID).
			Str("entity_id", created.EntityID).Msg(created.Message)
	}(context.WithoutCancel(ctx))
}

// Wait blocks until every in-flight Publish has finished.
func (b *Bus) Wait() {
	b.wg.Wait()
}
