package ingest

import (
	"context"
	"fmt"
)

// compensation undoes one completed forward action.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga is the log of completed forward actions for one attempt. Compensations
// run in reverse order of registration, and every one of them runs.
type saga struct {
	steps []compensation
}

func (s *saga) push(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// names lists the registered compensations in the order they would run.
func (s *saga) names() []string {
	names := make([]string, 0, len(s.steps))
	for i := len(s.steps) - 1; i >= 0; i-- {
		names = append(names, s.steps[i].name)
	}
	return names
}

// compensate runs the compensations and returns their failures.
func (s *saga) compensate(ctx context.Context) []error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	s.steps = nil
	return errs
}
