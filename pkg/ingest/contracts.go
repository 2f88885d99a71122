package ingest

import (
	"context"
	"time"

	"civic-api/pkg/event"
	"civic-api/pkg/fingerprint"
	"civic-api/pkg/metric"
	"civic-api/pkg/photo"
	"civic-api/pkg/report"
)

// IssueStore persists primary records. report.Service satisfies it.
type IssueStore interface {
	Create(ctx context.Context, i report.Issue) (report.Issue, []string, error)
	Update(ctx context.Context, i report.Issue) (report.Issue, []string, error)
	Delete(ctx context.Context, id string) (report.Issue, error)
	Read(ctx context.Context, id string) (report.Issue, error)
	ScoreDuplicates(ctx context.Context, sc report.Scorer, title, description, category string, window time.Duration) ([]report.TextDuplicateCandidate, error)
}

// FingerprintStore persists the fingerprint index. fingerprint.Service satisfies it.
type FingerprintStore interface {
	Create(ctx context.Context, f fingerprint.Fingerprint) (fingerprint.Fingerprint, []string, error)
	ReadIndex(ctx context.Context) ([]fingerprint.Fingerprint, error)
	DeleteByReport(ctx context.Context, reportID string) ([]fingerprint.Fingerprint, error)
}

// ObjectStore holds photo bytes. photo.Service satisfies it.
// Delete never fails on a missing object; it returns false only on a storage failure.
type ObjectStore interface {
	Put(ctx context.Context, blob []byte, folder string) (photo.Ref, error)
	Delete(ctx context.Context, ref photo.Ref) bool
}

// Publisher is a fire-and-forget notification sink. *event.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, name string, e event.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, event.Event) {}

// MetricRecorder is a fire-and-forget measurement sink. *metric.Recorder satisfies it.
type MetricRecorder interface {
	Record(ctx context.Context, m metric.Metric)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, metric.Metric) {}
