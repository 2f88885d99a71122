package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"civic-api/pkg/util"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// recentPageSize is the page size used when scanning a category for recent Issues.
const recentPageSize = 500

//==============================================================================
// Issue Table
//==============================================================================

// rowIssues is a TableRow definition for Issue versions.
var rowIssues = v.TableRow[Issue]{
	RowName:      "issues_version",
	PartKeyName:  "id",
	PartKeyValue: func(i Issue) string { return i.ID },
	PartKeyLabel: func(i Issue) string { return i.Title },
	SortKeyName:  "version_id",
	SortKeyValue: func(i Issue) string { return i.VersionID },
	JsonValue:    func(i Issue) []byte { return i.CompressedJSON() },
}

// rowIssuesStatus is a TableRow definition for Issues by Status.
var rowIssuesStatus = v.TableRow[Issue]{
	RowName:      "issues_status",
	PartKeyName:  "status",
	PartKeyValue: func(i Issue) string { return string(i.Status) },
	SortKeyName:  "id",
	SortKeyValue: func(i Issue) string { return i.ID },
	JsonValue:    func(i Issue) []byte { return i.CompressedJSON() },
}

// rowIssuesCategory is a TableRow definition for Issues by Category.
// Sort keys are TUIDs, so a forward read from a cutoff ID yields the Issues created since then.
var rowIssuesCategory = v.TableRow[Issue]{
	RowName:      "issues_category",
	PartKeyName:  "category",
	PartKeyValue: func(i Issue) string { return i.Category },
	SortKeyName:  "id",
	SortKeyValue: func(i Issue) string { return i.ID },
	JsonValue:    func(i Issue) []byte { return i.CompressedJSON() },
}

// NewTable instantiates a new DynamoDB table for issues.
func NewTable(dbClient *dynamodb.Client, env string) v.Table[Issue] {
	if env == "" {
		env = "dev"
	}
	return v.Table[Issue]{
		Client:     dbClient,
		EntityType: "Issue",
		TableName:  "issues" + "_" + env,
		TTL:        false,
		EntityRow:  rowIssues,
		IndexRows: map[string]v.TableRow[Issue]{
			rowIssuesStatus.RowName:   rowIssuesStatus,
			rowIssuesCategory.RowName: rowIssuesCategory,
		},
	}
}

// NewMemTable creates an in-memory Issue table for testing purposes.
func NewMemTable(table v.Table[Issue]) v.MemTable[Issue] {
	return v.NewMemTable(table)
}

//==============================================================================
// Issue Service
//==============================================================================

// Service is used to manage Issues in a DynamoDB table.
type Service struct {
	EntityType string
	Table      v.TableReadWriter[Issue]
}

// NewService creates a new Issue service backed by a Versionary Table for the specified environment.
func NewService(dbClient *dynamodb.Client, env string) Service {
	table := NewTable(dbClient, env)
	return Service{
		EntityType: table.EntityType,
		Table:      table,
	}
}

// NewMockService creates a new Issue service backed by an in-memory table for testing purposes.
func NewMockService(env string) Service {
	table := NewMemTable(NewTable(nil, env))
	return Service{
		EntityType: table.EntityType,
		Table:      util.NewSyncTable[Issue](table),
	}
}

//------------------------------------------------------------------------------
// Issue Versions
//------------------------------------------------------------------------------

// Create an Issue in the Issue table. User-supplied text is sanitized first.
// A new Issue has no photos yet and is PHOTOS_PENDING unless a Status was supplied.
func (s Service) Create(ctx context.Context, i Issue) (Issue, []string, error) {
	t := tuid.NewID()
	at, _ := t.Time()
	i = i.Sanitize()
	i.ID = t.String()
	i.CreatedAt = at
	i.VersionID = t.String()
	i.UpdatedAt = at
	if i.Status == "" {
		i.Status = PHOTOS_PENDING
	}
	problems := i.Validate()
	if len(problems) > 0 {
		return i, problems, fmt.Errorf("error creating %s %s: invalid field(s): %s", s.EntityType, i.ID, strings.Join(problems, ", "))
	}
	if err := s.Table.WriteEntity(ctx, i); err != nil {
		return i, problems, fmt.Errorf("error creating %s %s %s: %w", s.EntityType, i.ID, i.Title, err)
	}
	return i, problems, nil
}

// Update an Issue in the Issue table. If a previous version does not exist, the Issue is created.
func (s Service) Update(ctx context.Context, i Issue) (Issue, []string, error) {
	t := tuid.NewID()
	at, _ := t.Time()
	i = i.Sanitize()
	i.VersionID = t.String()
	i.UpdatedAt = at
	problems := i.Validate()
	if len(problems) > 0 {
		return i, problems, fmt.Errorf("error updating %s %s: invalid field(s): %s", s.EntityType, i.ID, strings.Join(problems, ", "))
	}
	return i, problems, s.Table.UpdateEntity(ctx, i)
}

// Write an Issue to the Issue table. This method assumes that the Issue has all the required fields.
// It would most likely be used for "refreshing" the index rows in the Issue table.
func (s Service) Write(ctx context.Context, i Issue) (Issue, error) {
	return i, s.Table.WriteEntity(ctx, i)
}

// Delete an Issue and all of its versions from the Issue table. The deleted Issue is returned.
func (s Service) Delete(ctx context.Context, id string) (Issue, error) {
	return s.Table.DeleteEntityWithID(ctx, id)
}

// Exists checks if an Issue exists in the Issue table.
func (s Service) Exists(ctx context.Context, id string) bool {
	return s.Table.EntityExists(ctx, id)
}

// Read a specified Issue from the Issue table.
func (s Service) Read(ctx context.Context, id string) (Issue, error) {
	return s.Table.ReadEntity(ctx, id)
}

// ReadAsJSON gets a specified Issue from the Issue table, serialized as JSON.
func (s Service) ReadAsJSON(ctx context.Context, id string) ([]byte, error) {
	return s.Table.ReadEntityAsJSON(ctx, id)
}

// ReadVersions returns paginated versions of the specified Issue.
// Sorting is chronological (or reverse). The offset is the last ID returned in a previous request.
func (s Service) ReadVersions(ctx context.Context, id string, reverse bool, limit int, offset string) ([]Issue, error) {
	return s.Table.ReadEntityVersions(ctx, id, reverse, limit, offset)
}

// ReadIDs returns a paginated list of Issue IDs in the Issue table.
// Sorting is chronological (or reverse). The offset is the last ID returned in a previous request.
func (s Service) ReadIDs(ctx context.Context, reverse bool, limit int, offset string) ([]string, error) {
	return s.Table.ReadEntityIDs(ctx, reverse, limit, offset)
}

// ReadIssues returns a paginated list of Issues, retrieved individually, in parallel.
// Sorting is chronological (or reverse). The offset is the last ID returned in a previous request.
func (s Service) ReadIssues(ctx context.Context, reverse bool, limit int, offset string) []Issue {
	ids, err := s.Table.ReadEntityIDs(ctx, reverse, limit, offset)
	if err != nil {
		return []Issue{}
	}
	return s.Table.ReadEntities(ctx, ids)
}

// ReadIssuesByDateRange returns up to limit Issues created from startDate (inclusive) to
// endDate (exclusive), oldest first. Dates are formatted as yyyy-mm-dd.
func (s Service) ReadIssuesByDateRange(ctx context.Context, startDate, endDate string, limit int) ([]Issue, error) {
	start, end, err := util.DateRangeIDs(startDate, endDate)
	if err != nil {
		return []Issue{}, err
	}
	if start >= end {
		return []Issue{}, fmt.Errorf("invalid date range %s to %s", startDate, endDate)
	}
	issues := s.ReadIssues(ctx, false, limit, start)
	for i, issue := range issues {
		if issue.ID >= end {
			return issues[:i], nil
		}
	}
	return issues, nil
}

// FilterIssueLabels returns a filtered list of Issue IDs and Titles.
// The case-insensitive contains query is split into words, and the words are compared with the Title.
// If anyMatch is true, then any word may match (OR filter); otherwise all words must match (AND filter).
func (s Service) FilterIssueLabels(ctx context.Context, contains string, anyMatch bool) ([]v.TextValue, error) {
	filter, err := util.ContainsFilter(contains, anyMatch)
	if err != nil {
		return []v.TextValue{}, err
	}
	return s.Table.FilterEntityLabels(ctx, filter)
}

//------------------------------------------------------------------------------
// Issues by Status
//------------------------------------------------------------------------------

// ReadAllStatuses returns a complete, alphabetical Status list for which there are Issues.
func (s Service) ReadAllStatuses(ctx context.Context) ([]string, error) {
	return s.Table.ReadAllPartKeyValues(ctx, rowIssuesStatus)
}

// ReadIssuesByStatus returns paginated Issues by Status. Sorting is chronological (or reverse).
// The offset is the ID of the last Issue returned in a previous request.
func (s Service) ReadIssuesByStatus(ctx context.Context, status string, reverse bool, limit int, offset string) ([]Issue, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowIssuesStatus, strings.ToUpper(status), reverse, limit, offset)
}

//------------------------------------------------------------------------------
// Issues by Category
//------------------------------------------------------------------------------

// ReadAllCategories returns a complete, alphabetical Category list for which there are Issues.
func (s Service) ReadAllCategories(ctx context.Context) ([]string, error) {
	return s.Table.ReadAllPartKeyValues(ctx, rowIssuesCategory)
}

// ReadIssuesByCategory returns paginated Issues by Category. Sorting is chronological (or reverse).
// The offset is the ID of the last Issue returned in a previous request.
func (s Service) ReadIssuesByCategory(ctx context.Context, category string, reverse bool, limit int, offset string) ([]Issue, error) {
	return s.Table.ReadEntitiesFromRow(ctx, rowIssuesCategory, NormalizeCategory(category), reverse, limit, offset)
}

// ReadIssuesByCategoryAsJSON returns paginated JSON Issues by Category. Sorting is chronological (or reverse).
func (s Service) ReadIssuesByCategoryAsJSON(ctx context.Context, category string, reverse bool, limit int, offset string) ([]byte, error) {
	return s.Table.ReadEntitiesFromRowAsJSON(ctx, rowIssuesCategory, NormalizeCategory(category), reverse, limit, offset)
}

// ReadRecentInCategory returns the Issues in a Category created at or after the specified time,
// most recent first.
func (s Service) ReadRecentInCategory(ctx context.Context, category string, since time.Time) ([]Issue, error) {
	category = NormalizeCategory(category)
	offset := util.SinceID(since)
	issues := make([]Issue, 0)
	for {
		page, err := s.Table.ReadEntitiesFromRow(ctx, rowIssuesCategory, category, false, recentPageSize, offset)
		if errors.Is(err, v.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read recent %s in category %s: %w", s.EntityType, category, err)
		}
		issues = append(issues, page...)
		if len(page) < recentPageSize {
			break
		}
		offset = page[len(page)-1].ID
	}
	slices.Reverse(issues)
	return issues, nil
}
