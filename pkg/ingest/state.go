package ingest

import (
	"github.com/rs/zerolog"
)

// State is a step of one ingestion attempt.
type State string

const (
	INIT                State = "INIT"
	TEXT_CHECKED        State = "TEXT_CHECKED"
	RECORD_CREATED      State = "RECORD_CREATED"
	VALIDATED           State = "VALIDATED"
	FINGERPRINTED       State = "FINGERPRINTED"
	UPLOADED            State = "UPLOADED"
	PHOTOS_COMMITTED    State = "PHOTOS_COMMITTED"
	FINGERPRINTS_STORED State = "FINGERPRINTS_STORED"
	DONE                State = "DONE"
	ABORTED             State = "ABORTED"
)

// attempt tracks the state of one ingestion and its compensations.
type attempt struct {
	state  State
	trail  []State
	saga   saga
	logger zerolog.Logger
}

func newAttempt(logger zerolog.Logger) *attempt {
	return &attempt{state: INIT, trail: []State{INIT}, logger: logger}
}

// to records a transition. Per-image states carry the photo index.
func (a *attempt) to(s State, photo ...int) {
	a.state = s
	a.trail = append(a.trail, s)
	e := a.logger.Debug().Str("state", string(s))
	if len(photo) > 0 {
		e = e.Int("photo", photo[0])
	}
	e.Msg("ingest transition")
}

// reportTo adds the record ID to every later log line.
func (a *attempt) reportTo(id string) {
	a.logger = a.logger.With().Str("issue_id", id).Logger()
}
