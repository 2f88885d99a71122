package report

import (
	"context"
	"fmt"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultWindow is the trailing lookback for text duplicates.
const DefaultWindow = 7 * 24 * time.Hour

// TextDuplicateCandidate is a prior Issue whose text closely matches a new report.
type TextDuplicateCandidate struct {
	ReportID         string    `json:"reportId"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	CreatedAt        time.Time `json:"createdAt"`
	TitleScore       float64   `json:"titleScore"`
	DescriptionScore float64   `json:"descriptionScore"`
	Score            float64   `json:"score"`
}

// Scorer computes a weighted text similarity between a new report and prior Issues.
type Scorer struct {
	Metric            strutil.StringMetric
	TitleWeight       float64
	DescriptionWeight float64
	MinScore          float64
}

// NewScorer returns a Scorer using the case-insensitive Sorensen-Dice bigram coefficient,
// weighting the description over the title, and qualifying scores above minScore.
func NewScorer(minScore float64) Scorer {
	return Scorer{
		Metric:            &metrics.SorensenDice{CaseSensitive: false, NgramSize: 2},
		TitleWeight:       0.3,
		DescriptionWeight: 0.7,
		MinScore:          minScore,
	}
}

// Score compares the new text with a prior Issue.
func (sc Scorer) Score(title, description string, prior Issue) TextDuplicateCandidate {
	ts := strutil.Similarity(title, prior.Title, sc.Metric)
	ds := strutil.Similarity(description, prior.Description, sc.Metric)
	return TextDuplicateCandidate{
		ReportID:         prior.ID,
		Title:            prior.Title,
		Category:         prior.Category,
		CreatedAt:        prior.CreatedAt,
		TitleScore:       ts,
		DescriptionScore: ds,
		Score:            sc.TitleWeight*ts + sc.DescriptionWeight*ds,
	}
}

// Qualifying returns the candidates scoring above MinScore, preserving the order of recent.
func (sc Scorer) Qualifying(title, description string, recent []Issue) []TextDuplicateCandidate {
	candidates := make([]TextDuplicateCandidate, 0)
	for _, prior := range recent {
		if c := sc.Score(title, description, prior); c.Score > sc.MinScore {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// ScoreDuplicates compares the new text against Issues in the same category created
// within the trailing window, returning qualifying candidates most recent first.
// A non-positive window selects DefaultWindow.
func (s Service) ScoreDuplicates(ctx context.Context, sc Scorer, title, description, category string, window time.Duration) ([]TextDuplicateCandidate, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	recent, err := s.ReadRecentInCategory(ctx, category, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("score duplicates: %w", err)
	}
	return sc.Qualifying(title, description, recent), nil
}
