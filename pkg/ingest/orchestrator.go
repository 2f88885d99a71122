// Package ingest creates Issues with photo evidence across the document store
// and the object store, compensating completed steps when a later one fails.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civic-api/pkg/event"
	"civic-api/pkg/fingerprint"
	"civic-api/pkg/metric"
	"civic-api/pkg/photo"
	"civic-api/pkg/quality"
	"civic-api/pkg/report"

	"github.com/rs/zerolog"
)

// Outcome is the kind of result an ingestion produced.
type Outcome string

const (
	// Created means a new Issue was committed with all of its photos.
	Created Outcome = "created"

	// DuplicateFound means a recent Issue already describes the problem; nothing was written.
	DuplicateFound Outcome = "duplicate_found"
)

// Request is a citizen's submission: the Issue text and location plus photos in order.
type Request struct {
	Issue   report.Issue
	Uploads []Upload
}

// Warning carries advisory findings about one photo of a committed Issue.
type Warning struct {
	Index      int                              `json:"index"`
	FileName   string                           `json:"fileName,omitempty"`
	Quality    []string                         `json:"quality,omitempty"`
	Duplicates []fingerprint.DuplicateCandidate `json:"duplicates,omitempty"`
}

// Result is the outcome of a successful ingestion.
type Result struct {
	Outcome   Outcome                        `json:"outcome"`
	Issue     *report.Issue                  `json:"issue,omitempty"`
	Duplicate *report.TextDuplicateCandidate `json:"duplicate,omitempty"`
	Warnings  []Warning                      `json:"warnings,omitempty"`
	Skipped   []*PersistenceWarning          `json:"-"`
}

// ImageCheck is the side-effect-free evaluation of a single photo.
type ImageCheck struct {
	Metadata   photo.Metadata                   `json:"metadata"`
	Quality    quality.Result                   `json:"quality"`
	Hashes     fingerprint.Hashes               `json:"hashes"`
	Duplicates []fingerprint.DuplicateCandidate `json:"duplicates"`
}

// Orchestrator sequences one ingestion per call. It is safe for concurrent use.
type Orchestrator struct {
	Config       Config
	Issues       IssueStore
	Fingerprints FingerprintStore
	Photos       ObjectStore
	Events       Publisher
	Metrics      MetricRecorder
	Scorer       report.Scorer
	Logger       zerolog.Logger
	categories   *keyedMutex
}

// New creates an Orchestrator, rejecting an invalid configuration.
// A nil Publisher discards notifications.
func New(cfg Config, issues IssueStore, prints FingerprintStore, photos ObjectStore, events Publisher, logger zerolog.Logger) (*Orchestrator, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid ingest config: %s", strings.Join(problems, ", "))
	}
	if issues == nil || prints == nil || photos == nil {
		return nil, errors.New("ingest: issue, fingerprint and photo stores are required")
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &Orchestrator{
		Config:       cfg,
		Issues:       issues,
		Fingerprints: prints,
		Photos:       photos,
		Events:       events,
		Metrics:      nopRecorder{},
		Scorer:       report.NewScorer(cfg.DuplicateScore),
		Logger:       logger,
		categories:   &keyedMutex{},
	}, nil
}

// stored is a photo that reached object storage during this attempt.
type stored struct {
	index  int
	ref    photo.Ref
	hashes fingerprint.Hashes
}

// Ingest validates the submission, short-circuits on a recent text duplicate,
// and otherwise creates the Issue and commits its photos. If any photo fails,
// everything written for this attempt is removed and the original error returned.
// Temporary upload files are always removed before Ingest returns.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result, err := o.ingest(ctx, req)
	o.measure(ctx, req, result, err, time.Since(start))
	return result, err
}

func (o *Orchestrator) ingest(ctx context.Context, req Request) (Result, error) {
	defer discard(req.Uploads, o.Logger)
	a := newAttempt(o.Logger.With().Int("photos", len(req.Uploads)).Logger())

	// Validate required fields before any side effect.
	draft := req.Issue.Sanitize()
	draft.Photos = []photo.Ref{}
	draft.Status = report.PHOTOS_PENDING
	if problems := draft.ValidateDraft(); len(problems) > 0 {
		return Result{}, &ValidationError{Problems: problems}
	}

	// The text check and record creation are serialized per category.
	unlock := o.categories.Lock(draft.Category)
	dups, err := o.Issues.ScoreDuplicates(ctx, o.Scorer, draft.Title, draft.Description, draft.Category, o.Config.DuplicateWindow)
	if err != nil {
		unlock()
		return Result{}, fmt.Errorf("ingest: text duplicate check: %w", err)
	}
	a.to(TEXT_CHECKED)
	if len(dups) > 0 {
		unlock()
		a.logger.Info().Str("duplicate_of", dups[0].ReportID).Float64("score", dups[0].Score).Msg("ingest short-circuited on text duplicate")
		return Result{Outcome: DuplicateFound, Duplicate: &dups[0]}, nil
	}
	issue, problems, err := o.Issues.Create(ctx, draft)
	unlock()
	if err != nil {
		if len(problems) > 0 {
			return Result{}, &ValidationError{Problems: problems}
		}
		return Result{}, fmt.Errorf("ingest: create issue: %w", err)
	}
	a.reportTo(issue.ID)
	a.to(RECORD_CREATED)
	a.saga.push("delete fingerprints", func(ctx context.Context) error {
		_, err := o.Fingerprints.DeleteByReport(ctx, issue.ID)
		return err
	})
	a.saga.push("delete issue "+issue.ID, func(ctx context.Context) error {
		_, err := o.Issues.Delete(ctx, issue.ID)
		return err
	})

	// Photos are processed strictly in order so the saga holds an exact prefix.
	var index []fingerprint.Fingerprint
	indexRead := false
	var warnings []Warning
	var committed []stored
	for i, up := range req.Uploads {
		if err := ctx.Err(); err != nil {
			return o.abort(ctx, a, fmt.Errorf("ingest: photo %d: %w", i+1, err))
		}
		blob, err := up.load(o.Config.MaxImageBytes)
		if err != nil {
			var big *oversizeError
			if errors.As(err, &big) {
				return o.abort(ctx, a, &QualityError{Index: i, FileName: up.FileName, Problems: []string{big.Error()}})
			}
			return o.abort(ctx, a, &DecodeError{Index: i, FileName: up.FileName, Err: err})
		}
		meta, err := photo.Inspect(blob)
		if err != nil {
			return o.abort(ctx, a, &DecodeError{Index: i, FileName: up.FileName, Err: err})
		}
		gate := quality.Check(meta, o.Config.Limits())
		if !gate.OK {
			return o.abort(ctx, a, &QualityError{Index: i, FileName: up.FileName, Problems: gate.Problems})
		}
		a.to(VALIDATED, i)

		hashes, err := fingerprint.Generate(blob)
		if err != nil {
			return o.abort(ctx, a, &DecodeError{Index: i, FileName: up.FileName, Err: err})
		}
		a.to(FINGERPRINTED, i)

		// Advisory only: a failed index read never aborts the attempt.
		if !indexRead {
			if index, err = o.Fingerprints.ReadIndex(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("fingerprint index unavailable; skipping similarity check")
			}
			indexRead = true
		}
		matches := fingerprint.FindSimilar(hashes, index, o.Config.SimilarityThreshold)
		if len(matches) > 0 || len(gate.Warnings) > 0 {
			warnings = append(warnings, Warning{Index: i, FileName: up.FileName, Quality: gate.Warnings, Duplicates: matches})
		}

		ref, err := o.put(ctx, blob)
		if err != nil {
			return o.abort(ctx, a, &UploadError{Index: i, FileName: up.FileName, Err: err})
		}
		a.saga.push("delete photo "+ref.FileName, func(ctx context.Context) error {
			if !o.Photos.Delete(ctx, ref) {
				return fmt.Errorf("object %s not deleted", ref.FileName)
			}
			return nil
		})
		committed = append(committed, stored{index: i, ref: ref, hashes: hashes})
		a.to(UPLOADED, i)
	}

	// Commit the photo list on the record.
	issue.Photos = make([]photo.Ref, 0, len(committed))
	for _, s := range committed {
		issue.Photos = append(issue.Photos, s.ref)
	}
	issue.Status = report.PHOTOS_COMMITTED
	issue, _, err = o.Issues.Update(ctx, issue)
	if err != nil {
		return o.abort(ctx, a, fmt.Errorf("ingest: commit photos: %w", err))
	}
	a.to(PHOTOS_COMMITTED)

	// Fingerprint rows are best-effort once the Issue is committed.
	var skipped []*PersistenceWarning
	printIDs := make([]string, 0, len(committed))
	for _, s := range committed {
		f, _, err := o.Fingerprints.Create(ctx, fingerprint.New(issue.ID, s.hashes, s.ref))
		if err != nil {
			w := &PersistenceWarning{ReportID: issue.ID, Index: s.index, Err: err}
			a.logger.Warn().Err(w).Int("photo", s.index).Msg("fingerprint not stored")
			skipped = append(skipped, w)
			continue
		}
		printIDs = append(printIDs, f.ID)
	}
	a.to(FINGERPRINTS_STORED)

	o.Events.Publish(ctx, "issue.created", event.Event{
		EntityID:   issue.ID,
		EntityType: issue.Type(),
		OtherIDs:   printIDs,
		LogLevel:   event.INFO,
		Message:    fmt.Sprintf("created %s %s with %d photo(s)", issue.Type(), issue.ID, len(issue.Photos)),
	}.WithData(map[string]int{"photos": len(issue.Photos), "warnings": len(warnings), "skipped": len(skipped)}))
	a.to(DONE)
	return Result{Outcome: Created, Issue: &issue, Warnings: warnings, Skipped: skipped}, nil
}

// measure records the latency of an attempt, tagged with its outcome and category,
// and the photo count of a created Issue.
func (o *Orchestrator) measure(ctx context.Context, req Request, result Result, err error, elapsed time.Duration) {
	if o.Metrics == nil {
		return
	}
	m := metric.Metric{
		Title: metric.IngestLatency,
		Tags:  []string{outcomeTag(result, err), report.NormalizeCategory(req.Issue.Category)},
		Value: float64(elapsed.Microseconds()) / 1000,
		Units: "ms",
	}
	if result.Issue != nil {
		m.EntityID = result.Issue.ID
		m.EntityType = result.Issue.Type()
	}
	o.Metrics.Record(ctx, m)
	if result.Issue != nil {
		m.Title = metric.IngestPhotos
		m.Value = float64(len(result.Issue.Photos))
		m.Units = "photos"
		o.Metrics.Record(ctx, m)
	}
}

// outcomeTag classifies an attempt for metrics.
func outcomeTag(result Result, err error) string {
	var ve *ValidationError
	var de *DecodeError
	var qe *QualityError
	var ue *UploadError
	switch {
	case err == nil:
		return string(result.Outcome)
	case errors.As(err, &ve), errors.As(err, &de), errors.As(err, &qe):
		return "rejected"
	case errors.As(err, &ue):
		return "upload_failed"
	default:
		return "failed"
	}
}

// put uploads the photo, bounded by the configured upload timeout.
func (o *Orchestrator) put(ctx context.Context, blob []byte) (photo.Ref, error) {
	if o.Config.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Config.UploadTimeout)
		defer cancel()
	}
	return o.Photos.Put(ctx, blob, o.Config.PhotoFolder)
}

// abort runs every compensation for the attempt and returns the original cause.
// Compensation failures are logged; they never replace the cause.
func (o *Orchestrator) abort(ctx context.Context, a *attempt, cause error) (Result, error) {
	a.to(ABORTED)
	a.logger.Warn().Err(cause).Strs("compensations", a.saga.names()).Msg("ingest aborted")
	for _, err := range a.saga.compensate(context.WithoutCancel(ctx)) {
		a.logger.Error().Err(err).Msg("compensation failed; reconcile out of band")
	}
	return Result{}, cause
}

// CheckImage runs the quality gate, fingerprinting and similarity search for
// one photo without writing anything.
func (o *Orchestrator) CheckImage(ctx context.Context, blob []byte) (ImageCheck, error) {
	var check ImageCheck
	meta, err := photo.Inspect(blob)
	if err != nil {
		return check, &DecodeError{Err: err}
	}
	check.Metadata = meta
	check.Quality = quality.Check(meta, o.Config.Limits())
	if !check.Quality.OK {
		return check, &QualityError{Problems: check.Quality.Problems}
	}
	if check.Hashes, err = fingerprint.Generate(blob); err != nil {
		return check, &DecodeError{Err: err}
	}
	index, err := o.Fingerprints.ReadIndex(ctx)
	if err != nil {
		return check, fmt.Errorf("check image: read fingerprint index: %w", err)
	}
	check.Duplicates = fingerprint.FindSimilar(check.Hashes, index, o.Config.SimilarityThreshold)
	return check, nil
}

// Remove deletes an Issue with its fingerprints and photos. Fingerprints go
// first so a failure leaves the Issue in place for a retry; photo deletion is
// best-effort.
func (o *Orchestrator) Remove(ctx context.Context, issueID string) (report.Issue, error) {
	issue, err := o.Issues.Read(ctx, issueID)
	if err != nil {
		return issue, fmt.Errorf("remove issue %s: %w", issueID, err)
	}
	logger := o.Logger.With().Str("issue_id", issueID).Logger()
	prints, err := o.Fingerprints.DeleteByReport(ctx, issueID)
	if err != nil {
		return issue, fmt.Errorf("remove issue %s: delete fingerprints: %w", issueID, err)
	}
	for _, ref := range issue.Photos {
		if !o.Photos.Delete(ctx, ref) {
			logger.Error().Str("object", ref.FileName).Msg("photo not deleted; reconcile out of band")
		}
	}
	if _, err = o.Issues.Delete(ctx, issueID); err != nil {
		return issue, fmt.Errorf("remove issue %s: %w", issueID, err)
	}
	o.Events.Publish(ctx, "issue.deleted", event.Event{
		EntityID:   issue.ID,
		EntityType: issue.Type(),
		LogLevel:   event.INFO,
		Message:    fmt.Sprintf("deleted %s %s with %d photo(s) and %d fingerprint(s)", issue.Type(), issue.ID, len(issue.Photos), len(prints)),
	})
	logger.Info().Int("fingerprints", len(prints)).Msg("issue removed")
	return issue, nil
}
