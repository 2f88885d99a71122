package report

import (
	"fmt"
	"strings"
	"time"

	"civic-api/pkg/photo"
	"civic-api/pkg/policy"

	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// Location is where a citizen observed the Issue.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// IsZero returns true if no coordinates were supplied.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// Validate returns problems with the coordinates.
func (l Location) Validate() []string {
	var problems []string
	if l.IsZero() {
		return append(problems, "Location coordinates are missing")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		problems = append(problems, "Location latitude must be between -90 and 90")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		problems = append(problems, "Location longitude must be between -180 and 180")
	}
	return problems
}

// Issue is a citizen's report of a civic problem, with ordered photo evidence.
// An Issue is versioned: the photo list is committed in a later version than the one created.
type Issue struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"createdAt"`
	VersionID   string      `json:"versionId"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Location    Location    `json:"location"`
	Photos      []photo.Ref `json:"photos"`
	Status      Status      `json:"status"`
}

// Type returns the entity type of the Issue.
func (i Issue) Type() string {
	return "Issue"
}

// CreatedOn returns an ISO-8601 formatted string of the Issue's creation date.
func (i Issue) CreatedOn() string {
	if i.CreatedAt.IsZero() {
		return ""
	}
	return i.CreatedAt.Format("2006-01-02")
}

// CompressedJSON returns a compressed JSON representation of the Issue.
func (i Issue) CompressedJSON() []byte {
	j, err := v.ToCompressedJSON(i)
	if err != nil {
		return nil
	}
	return j
}

// Sanitize strips markup from the user-supplied text and normalizes the category.
func (i Issue) Sanitize() Issue {
	i.Title = policy.SanitizeText(i.Title)
	i.Description = policy.SanitizeText(i.Description)
	i.Category = NormalizeCategory(i.Category)
	i.Location.Address = policy.SanitizeText(i.Location.Address)
	return i
}

// NormalizeCategory lower-cases and trims a category name.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// ValidateDraft checks the fields a citizen must supply, returning a list of problems.
func (i Issue) ValidateDraft() []string {
	var problems []string
	if i.Title == "" {
		problems = append(problems, "Title is missing")
	}
	if i.Description == "" {
		problems = append(problems, "Description is missing")
	}
	if i.Category == "" {
		problems = append(problems, "Category is missing")
	}
	return append(problems, i.Location.Validate()...)
}

// Validate checks whether the Issue has all required fields and whether
// the supplied values are valid, returning a list of problems. If the list is
// empty, then the Issue is valid.
func (i Issue) Validate() []string {
	var problems []string
	if i.ID == "" || !tuid.IsValid(tuid.TUID(i.ID)) {
		problems = append(problems, "ID is missing or invalid")
	}
	if i.CreatedAt.IsZero() {
		problems = append(problems, "CreatedAt is missing")
	}
	if i.VersionID == "" || !tuid.IsValid(tuid.TUID(i.VersionID)) {
		problems = append(problems, "VersionID is missing or invalid")
	}
	if i.UpdatedAt.IsZero() {
		problems = append(problems, "UpdatedAt is missing")
	}
	problems = append(problems, i.ValidateDraft()...)
	for n, p := range i.Photos {
		if p.IsEmpty() {
			problems = append(problems, fmt.Sprintf("Photo %d reference is empty", n+1))
		}
	}
	if i.Status == "" || !i.Status.IsValid() {
		statuses := v.Map(Statuses, func(s Status) string { return string(s) })
		problems = append(problems, "Status is missing or invalid. Expecting: "+strings.Join(statuses, ", "))
	}
	return problems
}
