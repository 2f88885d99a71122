package event

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// namePattern matches dotted, lower-case event names such as "issue.created".
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// Event is a business-level notification that something happened to an entity, recorded in the audit log.
// Events are never updated; they have no versions. The list of associated entity IDs should be kept short.
type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	EntityID   string          `json:"entityId"`
	EntityType string          `json:"entityType"`
	OtherIDs   []string        `json:"otherIds,omitempty"`
	LogLevel   LogLevel        `json:"logLevel"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// CreatedOn returns an ISO-8601 formatted string of the event's creation date.
func (e Event) CreatedOn() string {
	if e.CreatedAt.IsZero() {
		return ""
	}
	return e.CreatedAt.Format("2006-01-02")
}

// IDs returns the entity IDs associated with the event, excluding the Event ID.
func (e Event) IDs() []string {
	var ids []string
	if e.EntityID != "" {
		ids = append(ids, e.EntityID)
	}
	for _, id := range e.OtherIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Error returns the event message, so an error Event can be returned as an error.
func (e Event) Error() string {
	return e.Message
}

// WithData returns a copy of the event carrying the JSON encoding of the supplied value.
// Values that cannot be encoded are dropped.
func (e Event) WithData(data any) Event {
	if j, err := json.Marshal(data); err == nil {
		e.Data = j
	}
	return e
}

// CompressedJSON returns a compressed JSON representation of the event.
func (e Event) CompressedJSON() []byte {
	j, err := v.ToCompressedJSON(e)
	if err != nil {
		// skip persistence if we can't serialize and compress the event
		return nil
	}
	return j
}

// Validate checks whether the Event has all required fields, returning a list of problems.
func (e Event) Validate() []string {
	var problems []string
	if e.ID == "" || !tuid.IsValid(tuid.TUID(e.ID)) {
		problems = append(problems, "ID is missing or invalid")
	}
	if !namePattern.MatchString(e.Name) {
		problems = append(problems, "Name is missing or invalid (expecting e.g. issue.created)")
	}
	if e.EntityType == "" {
		problems = append(problems, "EntityType is missing")
	}
	if !e.LogLevel.IsValid() {
		problems = append(problems, "LogLevel is missing or invalid")
	}
	if e.CreatedAt.IsZero() {
		problems = append(problems, "CreatedAt is missing")
	}
	return problems
}
