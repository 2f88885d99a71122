package event

import (
	"context"
	"fmt"
	"strings"

	"civic-api/pkg/util"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

//==============================================================================
// Event Table
//==============================================================================

// rowEvents is a TableRow definition for Events by Event ID. Events are not versioned.
var rowEvents = v.TableRow[Event]{
	RowName:      "events",
	PartKeyName:  "id",
	PartKeyValue: func(e Event) string { return e.ID },
	SortKeyName:  "id",
	SortKeyValue: func(e Event) string { return e.ID },
	JsonValue:    func(e Event) []byte { return e.CompressedJSON() },
	TimeToLive:   func(e Event) int64 { return e.ExpiresAt.Unix() },
}

// rowEventsDate is a TableRow definition for Events by Event Date.
var rowEventsDate = v.TableRow[Event]{
	RowName:      "events_date",
	PartKeyName:  "date",
	PartKeyValue: func(e Event) string { return e.CreatedOn() },
	SortKeyName:  "id",
	SortKeyValue: func(e Event) string { return e.ID },
	JsonValue:    func(e Event) []byte { return e.CompressedJSON() },
	TimeToLive:   func(e Event) int64 { return e.ExpiresAt.Unix() },
}

// rowEventsEntity is a TableRow definition for Events by associated entity ID.
var rowEventsEntity = v.TableRow[Event]{
	RowName:       "events_entity",
	PartKeyName:   "entity_id",
	PartKeyValues: func(e Event) []string { return e.IDs() },
	SortKeyName:   "id",
	SortKeyValue:  func(e Event) string { return e.ID },
	JsonValue:     func(e Event) []byte { return e.CompressedJSON() },
	TimeToLive:    func(e Event) int64 { return e.ExpiresAt.Unix() },
}

// rowEventsName is a TableRow definition for Events by Event Name.
var rowEventsName = v.TableRow[Event]{
	RowName:      "events_name",
	PartKeyName:  "name",
	PartKeyValue: func(e Event) string { return e.Name },
	SortKeyName:  "id",
	SortKeyValue: func(e Event) string { return e.ID },
	JsonValue:    func(e Event) []byte { return e.CompressedJSON() },
	TimeToLive:   func(e Event) int64 { return e.ExpiresAt.Unix() },
}

// rowEventsLogLevel is a TableRow definition for Events by LogLevel.
var rowEventsLogLevel = v.TableRow[Event]{
	RowName:      "events_log_level",
	PartKeyName:  "log_level",
	PartKeyValue: func(e Event) string { return string(e.LogLevel) },
	SortKeyName:  "id",
	SortKeyValue: func(e Event) string { return e.ID },
	JsonValue:    func(e Event) []byte { return e.CompressedJSON() },
	TimeToLive:   func(e Event) int64 { return e.ExpiresAt.Unix() },
}

// NewTable instantiates a new DynamoDB table definition for events.
func NewTable(dbClient *dynamodb.Client, env string) v.Table[Event] {
	if env == "" {
		env = "dev"
	}
	return v.Table[Event]{
		Client:     dbClient,
		EntityType: "Event",
		TableName:  "events" + "_" + env,
		TTL:        true,
		EntityRow:  rowEvents,
		IndexRows: map[string]v.TableRow[Event]{
			rowEventsDate.RowName:     rowEventsDate,
			rowEventsEntity.RowName:   rowEventsEntity,
			rowEventsName.RowName:     rowEventsName,
			rowEventsLogLevel.RowName: rowEventsLogLevel,
		},
	}
}

// NewMemTable creates an in-memory Event table for testing purposes.
func NewMemTable(table v.Table[Event]) v.MemTable[Event] {
	return v.NewMemTable(table)
}

//==============================================================================
// Event Service
//==============================================================================

// Service is used to manage the Event log in a DynamoDB table.
type Service struct {
	EntityType string
	Table      v.TableReadWriter[Event]
}

// NewService creates a new Event service backed by a Versionary Table for the specified environment.
func NewService(dbClient *dynamodb.Client, env string) Service {
	table := NewTable(dbClient, env)
	return Service{
		EntityType: table.EntityType,
		Table:      table,
	}
}

// NewMockService creates a new Event service backed by an in-memory table for testing purposes.
func NewMockService(env string) Service {
	table := NewMemTable(NewTable(nil, env))
	return Service{
		EntityType: table.EntityType,
		Table:      util.NewSyncTable[Event](table),
	}
}

// Create an Event in the Event log. Events expire after one year.
func (s Service) Create(ctx context.Context, e Event) (Event, []string, error) {
	t := tuid.NewID()
	at, _ := t.Time()
	e.ID = t.String()
	e.CreatedAt = at
	e.ExpiresAt = at.AddDate(1, 0, 0)
	if e.LogLevel == "" {
		e.LogLevel = INFO
	}
	problems := e.Validate()
	if len(problems) > 0 {
		return e, problems, fmt.Errorf("error creating %s %s: invalid field(s): %s", s.EntityType, e.ID, strings.Join(problems, ", "))
	}
	return e, problems, s.Table.WriteEntity(ctx, e)
}

// Write an Event to the Event log. This method assumes that the Event has all the required fields.
func (s Service) Write(ctx context.Context, e Event) (Event, error) {
	return e, s.Table.WriteEntity(ctx, e)
}

// Delete an Event from the Event log. The deleted Event is returned.
func (s Service) Delete(ctx context.Context, id string) (Event, error) {
	return s.Table.DeleteEntityWithID(ctx, id)
}

// Read a specified Event from the Event log.
func (s Service) Read(ctx context.Context, id string) (Event, error) {
	return s.Table.ReadEntity(ctx, id)
}

// Exists checks if an Event exists in the Event table.
func (s Service) Exists(ctx context.Context, id string) bool {
	return s.Table.EntityExists(ctx, id)
}

// ReadAsJSON gets a specified Event from the Event log, serialized as JSON.
func (s Service) ReadAsJSON(ctx context.Context, id string) ([]byte, error) {
	return s.Table.ReadEntityAsJSON(ctx, id)
}

// ReadEventIDs returns a paginated list of Event IDs in the Event log.
// Sorting is chronological (or reverse). The offset is the last ID returned in a previous request.
func (s Service) ReadEventIDs(ctx context.Context, reverse bool, limit int, offset string) ([]string, error) {
	return s.Table.ReadEntityIDs(ctx, reverse, limit, offset)
}

// ReadRecentEvents returns a list of recent Events in the Event log, retrieved as Events by Date.
// Starting with the most recent day, we gather events in reverse-chronological order until the limit is reached.
func (s Service) ReadRecentEvents(ctx context.Context, limit int) ([]Event, error) {
	es := make([]Event, 0, limit)
	dates, err := s.ReadDates(ctx, true, 365, "9999-99-99")
	if err != nil {
		return es, fmt.Errorf("read recent events: unable to read dates: %w", err)
	}
	for _, d := range dates {
		dayEvents, err := s.ReadEventsByDate(ctx, d, true, limit-len(es), tuid.MaxID)
		if err != nil {
			return es, fmt.Errorf("read recent events: unable to read events for date %s: %w", d, err)
		}
		es = append(es, dayEvents...)
		if len(es) >= limit {
			break
		}
	}
	return es, nil
}

// ReadDates returns a paginated list of dates for which there are Events in the Event log.
// Sorting is chronological (or reverse). The offset is the last date returned in a previous request.
func (s Service) ReadDates(ctx context.Context, reverse bool, limit int, offset string) ([]string, error) {
	return s.Table.ReadPartKeyValues(ctx, rowEventsDate, reverse, limit, offset)
}

// ReadEventsByDate returns paginated Events by date, expressed as an ISO-8601 formatted yyyy-mm-dd string.
// Sorting is chronological (or reverse). The offset is the ID of the last Event returned in a previous request.
func (s Service) ReadEventsByDate(ctx context.Context, date string, reverse bool, limit int, offset string) ([]Event, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowEventsDate, date, reverse, limit, offset)
}

// ReadEventsByEntityID returns paginated Events by associated entity ID.
// Sorting is chronological (or reverse). The offset is the ID of the last Event returned in a previous request.
func (s Service) ReadEventsByEntityID(ctx context.Context, entityID string, reverse bool, limit int, offset string) ([]Event, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowEventsEntity, entityID, reverse, limit, offset)
}

// ReadEventsByEntityIDAsJSON returns paginated JSON Events by associated entity ID.
func (s Service) ReadEventsByEntityIDAsJSON(ctx context.Context, entityID string, reverse bool, limit int, offset string) ([]byte, error) {
	return s.Table.ReadEntitiesFromRowAsJSON(ctx, rowEventsEntity, entityID, reverse, limit, offset)
}

// ReadAllNames returns a complete, alphabetical list of Event names in the Event log.
func (s Service) ReadAllNames(ctx context.Context) ([]string, error) {
	return s.Table.ReadAllPartKeyValues(ctx, rowEventsName)
}

// ReadEventsByName returns paginated Events by name (e.g. issue.created).
func (s Service) ReadEventsByName(ctx context.Context, name string, reverse bool, limit int, offset string) ([]Event, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowEventsName, name, reverse, limit, offset)
}

// ReadEventsByLogLevel returns paginated Events by log level (DEBUG, INFO, WARN, ERROR).
func (s Service) ReadEventsByLogLevel(ctx context.Context, logLevel string, reverse bool, limit int, offset string) ([]Event, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowEventsLogLevel, strings.ToUpper(logLevel), reverse, limit, offset)
}
