package metric

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Recorder writes Metrics in the background, so that measuring never slows down
// or fails the measured operation.
type Recorder struct {
	Service Service
	Logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewRecorder creates a Recorder that stores Metrics with the supplied Service.
func NewRecorder(s Service, logger zerolog.Logger) *Recorder {
	return &Recorder{Service: s, Logger: logger}
}

// Record stores the Metric asynchronously. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, m Metric) {
	r.wg.Add(1)
	go func(ctx context.Context) {
		defer r.wg.Done()
		if _, problems, err := r.Service.Create(ctx, m); err != nil {
			r.Logger.Warn().Err(err).Str("metric", m.Title).Strs("problems", problems).Msg("metric not recorded")
		}
	}(context.WithoutCancel(ctx))
}

// Wait blocks until every in-flight Record has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
