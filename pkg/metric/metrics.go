package metric

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civic-api/pkg/util"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

//==============================================================================
// Metric Table
//==============================================================================

// rowMetrics is a TableRow definition for Metrics, indexed by ID.
var rowMetrics = v.TableRow[Metric]{
	RowName:      "metrics",
	PartKeyName:  "id",
	PartKeyValue: func(m Metric) string { return m.ID },
	SortKeyName:  "id",
	SortKeyValue: func(m Metric) string { return m.ID },
	JsonValue:    func(m Metric) []byte { return m.CompressedJSON() },
	TimeToLive:   func(m Metric) int64 { return m.ExpiresAt.Unix() },
}

// rowMetricsEntity is a TableRow definition for Metrics, indexed by Entity ID.
var rowMetricsEntity = v.TableRow[Metric]{
	RowName:       "metrics_entity",
	PartKeyName:   "entity_id",
	PartKeyValues: func(m Metric) []string { return m.EntityIDs() },
	SortKeyName:   "id",
	SortKeyValue:  func(m Metric) string { return m.ID },
	JsonValue:     func(m Metric) []byte { return m.CompressedJSON() },
	TimeToLive:    func(m Metric) int64 { return m.ExpiresAt.Unix() },
}

// rowMetricsTitle is a TableRow definition for Metrics, indexed by Title.
var rowMetricsTitle = v.TableRow[Metric]{
	RowName:      "metrics_title",
	PartKeyName:  "title",
	PartKeyValue: func(m Metric) string { return m.Title },
	SortKeyName:  "id",
	SortKeyValue: func(m Metric) string { return m.ID },
	JsonValue:    func(m Metric) []byte { return m.CompressedJSON() },
	NumericValue: func(m Metric) float64 { return m.Value },
	TimeToLive:   func(m Metric) int64 { return m.ExpiresAt.Unix() },
}

// rowMetricsTitleTag is a TableRow definition for Metrics, indexed by Title and Tag.
var rowMetricsTitleTag = v.TableRow[Metric]{
	RowName:       "metrics_title_tag",
	PartKeyName:   "title_tag",
	PartKeyValues: func(m Metric) []string { return m.TitleTags() },
	SortKeyName:   "id",
	SortKeyValue:  func(m Metric) string { return m.ID },
	JsonValue:     func(m Metric) []byte { return m.CompressedJSON() },
	NumericValue:  func(m Metric) float64 { return m.Value },
	TimeToLive:    func(m Metric) int64 { return m.ExpiresAt.Unix() },
}

// NewTable instantiates a new DynamoDB table definition for metrics.
func NewTable(dbClient *dynamodb.Client, env string) v.Table[Metric] {
	if env == "" {
		env = "dev"
	}
	return v.Table[Metric]{
		Client:     dbClient,
		EntityType: "Metric",
		TableName:  "metrics" + "_" + env,
		TTL:        true,
		EntityRow:  rowMetrics,
		IndexRows: map[string]v.TableRow[Metric]{
			rowMetricsEntity.RowName:   rowMetricsEntity,
			rowMetricsTitle.RowName:    rowMetricsTitle,
			rowMetricsTitleTag.RowName: rowMetricsTitleTag,
		},
	}
}

// NewMemTable creates an in-memory Metric table for testing purposes.
func NewMemTable(table v.Table[Metric]) v.MemTable[Metric] {
	return v.NewMemTable(table)
}

//==============================================================================
// Metric Service
//==============================================================================

// Service is used to manage Metrics in a DynamoDB table.
type Service struct {
	EntityType string
	Table      v.TableReadWriter[Metric]
}

// NewService creates a new Metric service backed by a Versionary Table for specified environment.
func NewService(dbClient *dynamodb.Client, env string) Service {
	table := NewTable(dbClient, env)
	return Service{
		EntityType: table.EntityType,
		Table:      table,
	}
}

// NewMockService creates a new Metric service backed by an in-memory table for testing purposes.
func NewMockService(env string) Service {
	table := NewMemTable(NewTable(nil, env))
	return Service{
		EntityType: table.EntityType,
		Table:      util.NewSyncTable[Metric](table),
	}
}

// Create a Metric in the table.
func (s Service) Create(ctx context.Context, m Metric) (Metric, []string, error) {
	t := tuid.NewID()
	at, _ := t.Time()
	m.ID = t.String()
	m.CreatedAt = at
	m.ExpiresAt = at.AddDate(0, 0, 90)
	problems := m.Validate()
	if len(problems) > 0 {
		return m, problems, fmt.Errorf("error creating %s %s: invalid field(s): %s", s.EntityType, m.ID, strings.Join(problems, ", "))
	}
	return m, problems, s.Table.WriteEntity(ctx, m)
}

// Write a Metric to the Metric table. This method assumes that the Metric has all the required fields.
// It would most likely be used for "refreshing" the index rows in the Metric table.
func (s Service) Write(ctx context.Context, m Metric) (Metric, error) {
	return m, s.Table.WriteEntity(ctx, m)
}

// Read a Metric from the Metric table.
func (s Service) Read(ctx context.Context, id string) (Metric, error) {
	return s.Table.ReadEntity(ctx, id)
}

// Exists checks if a Metric exists in the Metric table.
func (s Service) Exists(ctx context.Context, id string) bool {
	return s.Table.EntityExists(ctx, id)
}

// ReadAsJSON gets a specified Metric from the Metric table, serialized as JSON.
func (s Service) ReadAsJSON(ctx context.Context, id string) ([]byte, error) {
	return s.Table.ReadEntityAsJSON(ctx, id)
}

// Delete a Metric from the Metric table. The deleted Metric is returned.
func (s Service) Delete(ctx context.Context, id string) (Metric, error) {
	return s.Table.DeleteEntityWithID(ctx, id)
}

// ReadAllTitles returns a complete, alphabetical list of Metric titles.
func (s Service) ReadAllTitles(ctx context.Context) ([]string, error) {
	return s.Table.ReadAllPartKeyValues(ctx, rowMetricsTitle)
}

// ReadMetricsByTitle returns paginated Metrics with the specified title.
// Sorting is chronological (or reverse). The offset is the ID of the last Metric returned in a previous request.
func (s Service) ReadMetricsByTitle(ctx context.Context, title string, reverse bool, limit int, offset string) ([]Metric, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowMetricsTitle, title, reverse, limit, offset)
}

// ReadMetricsByTitleTag returns paginated Metrics with the specified title and tag.
func (s Service) ReadMetricsByTitleTag(ctx context.Context, title, tag string, reverse bool, limit int, offset string) ([]Metric, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowMetricsTitleTag, TitleTag(title, tag), reverse, limit, offset)
}

// ReadMetricsByEntityID returns the Metrics recorded for an entity, in chronological order.
func (s Service) ReadMetricsByEntityID(ctx context.Context, entityID string) ([]Metric, error) {
	return s.Table.ReadAllEntitiesFromRow(ctx, rowMetricsEntity, entityID)
}

// ReadMetricsByEntityIDAsJSON returns the Metrics recorded for an entity as a JSON array.
func (s Service) ReadMetricsByEntityIDAsJSON(ctx context.Context, entityID string) ([]byte, error) {
	return s.Table.ReadAllEntitiesFromRowAsJSON(ctx, rowMetricsEntity, entityID)
}

// ReadStat summarizes the Metrics with a title (and optionally a tag) created since the specified time.
func (s Service) ReadStat(ctx context.Context, title, tag string, since time.Time) (Stat, error) {
	const page = 1000
	var values []v.NumValue
	var units string
	offset := util.SinceID(since)
	for {
		var ms []Metric
		var err error
		if tag == "" {
			ms, err = s.ReadMetricsByTitle(ctx, title, false, page, offset)
		} else {
			ms, err = s.ReadMetricsByTitleTag(ctx, title, tag, false, page, offset)
		}
		if err != nil {
			return Stat{}, fmt.Errorf("read metric stat %s: %w", title, err)
		}
		for _, m := range ms {
			values = append(values, v.NumValue{Key: m.ID, Value: m.Value})
			units = m.Units
		}
		if len(ms) < page {
			break
		}
		offset = ms[len(ms)-1].ID
	}
	return NewStat(title, tag, units, values), nil
}
