package metric

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// Well-known metric titles.
const (
	IngestLatency = "Ingest Latency"
	IngestPhotos  = "Ingest Photos"
)

// Metric is a measurement of system activity, such as the latency of one ingestion attempt.
// Metric is never updated; it has no version. Metrics expire after 90 days.
type Metric struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Title      string    `json:"title"`
	EntityID   string    `json:"entityId,omitempty"`
	EntityType string    `json:"entityType,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Value      float64   `json:"value"`
	Units      string    `json:"units"`
}

// Type returns the entity type of the Metric.
func (m Metric) Type() string {
	return "Metric"
}

// CreatedOn returns an ISO-8601 formatted string of the Metric's creation date.
func (m Metric) CreatedOn() string {
	if m.CreatedAt.IsZero() {
		return ""
	}
	return m.CreatedAt.Format("2006-01-02")
}

// EntityIDs returns the associated entity ID, if any, for the entity index row.
func (m Metric) EntityIDs() []string {
	if m.EntityID == "" {
		return []string{}
	}
	return []string{m.EntityID}
}

// TitleTags returns the title combined with each tag (e.g. "Ingest Latency|created"),
// partitioning values so that statistics can be gathered per tag.
func (m Metric) TitleTags() []string {
	keys := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t != "" {
			keys = append(keys, TitleTag(m.Title, t))
		}
	}
	return keys
}

// TitleTag returns the partition key for a title and tag.
func TitleTag(title, tag string) string {
	return title + "|" + tag
}

// CompressedJSON returns a compressed JSON representation of the Metric.
func (m Metric) CompressedJSON() []byte {
	j, err := v.ToCompressedJSON(m)
	if err != nil {
		return nil
	}
	return j
}

// Validate checks whether the Metric has all required fields and whether
// the supplied values are valid, returning a list of problems. If the list is
// empty, then the Metric is valid.
func (m Metric) Validate() []string {
	var problems []string
	if m.ID == "" || !tuid.IsValid(tuid.TUID(m.ID)) {
		problems = append(problems, "ID is missing")
	}
	if m.CreatedAt.IsZero() {
		problems = append(problems, "CreatedAt is missing")
	}
	if m.ExpiresAt.IsZero() {
		problems = append(problems, "ExpiresAt is missing")
	}
	if m.Title == "" {
		problems = append(problems, "Title is missing")
	}
	if strings.Contains(m.Title, "|") {
		problems = append(problems, "Title contains '|'")
	}
	if m.EntityID != "" && !tuid.IsValid(tuid.TUID(m.EntityID)) {
		problems = append(problems, "EntityID is not a valid TUID")
	}
	if m.Units == "" {
		problems = append(problems, "Units are missing")
	}
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		problems = append(problems, "Value is not a finite number")
	}
	return problems
}

// String renders the Metric for console output.
func (m Metric) String() string {
	s := "Metric " + m.ID + ": " + strconv.FormatFloat(m.Value, 'f', -1, 64) + " " + m.Units
	s += " at " + m.CreatedAt.Format("2006-01-02 15:04:05")
	if m.EntityType != "" && m.EntityID != "" {
		s += " for " + m.EntityType + "-" + m.EntityID
	} else if m.EntityID != "" {
		s += " for " + m.EntityID
	}
	if len(m.Tags) > 0 {
		s += " tagged " + strings.Join(m.Tags, ", ")
	}
	s += " (" + m.Title + ")"
	return s
}

// Stat summarizes the values of a metric over a period.
type Stat struct {
	Title    string    `json:"title"`
	Tag      string    `json:"tag,omitempty"`
	Units    string    `json:"units,omitempty"`
	FromTime time.Time `json:"fromTime"`
	ToTime   time.Time `json:"toTime"`
	Count    int64     `json:"count"`
	Sum      float64   `json:"sum"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Mean     float64   `json:"mean"`
	Median   float64   `json:"median"`
	P95      float64   `json:"p95"`
	StdDev   float64   `json:"stdDev"`
}

// NewStat computes descriptive statistics from Metric ID/value pairs, which must
// be in chronological order. The embedded ID timestamps provide the time range.
func NewStat(title, tag, units string, values []v.NumValue) Stat {
	s := Stat{Title: title, Tag: tag, Units: units, Count: int64(len(values))}
	if len(values) == 0 {
		return s
	}
	if t, err := tuid.TUID(values[0].Key).Time(); err == nil {
		s.FromTime = t
	}
	if t, err := tuid.TUID(values[len(values)-1].Key).Time(); err == nil {
		s.ToTime = t
	}

	sorted := make([]float64, len(values))
	for i, nv := range values {
		sorted[i] = nv.Value
		s.Sum += nv.Value
	}
	slices.Sort(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = s.Sum / float64(s.Count)
	if n := len(sorted); n%2 == 0 {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		s.Median = sorted[n/2]
	}
	// nearest-rank percentile
	rank := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	s.P95 = sorted[max(rank, 0)]

	var sumSquares float64
	for _, x := range sorted {
		sumSquares += (x - s.Mean) * (x - s.Mean)
	}
	s.StdDev = math.Sqrt(sumSquares / float64(len(sorted)))
	return s
}
