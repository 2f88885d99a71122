package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"civic-api/pkg/util"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

// hashedPartition is the single partition of the index snapshot row.
const hashedPartition = "hashed"

//==============================================================================
// Fingerprint Table
//==============================================================================

// rowFingerprints is a TableRow definition for Fingerprints by ID. Fingerprints are not versioned.
var rowFingerprints = v.TableRow[Fingerprint]{
	RowName:      "fingerprints",
	PartKeyName:  "id",
	PartKeyValue: func(f Fingerprint) string { return f.ID },
	SortKeyName:  "id",
	SortKeyValue: func(f Fingerprint) string { return f.ID },
	JsonValue:    func(f Fingerprint) []byte { return f.CompressedJSON() },
}

// rowFingerprintsHashed is the similarity index: every Fingerprint with at least one perceptual hash.
var rowFingerprintsHashed = v.TableRow[Fingerprint]{
	RowName:     "fingerprints_hashed",
	PartKeyName: "hashed",
	PartKeyValues: func(f Fingerprint) []string {
		if f.HasHash() {
			return []string{hashedPartition}
		}
		return nil
	},
	SortKeyName:  "id",
	SortKeyValue: func(f Fingerprint) string { return f.ID },
	JsonValue:    func(f Fingerprint) []byte { return f.CompressedJSON() },
}

// rowFingerprintsReport is a TableRow definition for Fingerprints by owning Issue.
var rowFingerprintsReport = v.TableRow[Fingerprint]{
	RowName:      "fingerprints_report",
	PartKeyName:  "report_id",
	PartKeyValue: func(f Fingerprint) string { return f.ReportID },
	SortKeyName:  "id",
	SortKeyValue: func(f Fingerprint) string { return f.ID },
	JsonValue:    func(f Fingerprint) []byte { return f.CompressedJSON() },
}

// rowFingerprintsDigest is a TableRow definition for Fingerprints by exact content digest.
var rowFingerprintsDigest = v.TableRow[Fingerprint]{
	RowName:     "fingerprints_digest",
	PartKeyName: "digest",
	PartKeyValues: func(f Fingerprint) []string {
		if f.ExactDigest != "" {
			return []string{f.ExactDigest}
		}
		return nil
	},
	SortKeyName:  "id",
	SortKeyValue: func(f Fingerprint) string { return f.ID },
	TextValue:    func(f Fingerprint) string { return f.ReportID },
}

// NewTable instantiates a new DynamoDB Fingerprint table.
func NewTable(dbClient *dynamodb.Client, env string) v.Table[Fingerprint] {
	if env == "" {
		env = "dev"
	}
	return v.Table[Fingerprint]{
		Client:     dbClient,
		EntityType: "Fingerprint",
		TableName:  "fingerprints" + "_" + env,
		TTL:        false,
		EntityRow:  rowFingerprints,
		IndexRows: map[string]v.TableRow[Fingerprint]{
			rowFingerprintsHashed.RowName: rowFingerprintsHashed,
			rowFingerprintsReport.RowName: rowFingerprintsReport,
			rowFingerprintsDigest.RowName: rowFingerprintsDigest,
		},
	}
}

// NewMemTable creates an in-memory Fingerprint table for testing purposes.
func NewMemTable(table v.Table[Fingerprint]) v.MemTable[Fingerprint] {
	return v.NewMemTable(table)
}

//==============================================================================
// Fingerprint Service
//==============================================================================

// Service manages the Fingerprint index in a DynamoDB table.
type Service struct {
	EntityType string
	Table      v.TableReadWriter[Fingerprint]
}

// NewService creates a new Fingerprint service backed by a Versionary Table for the specified environment.
func NewService(dbClient *dynamodb.Client, env string) Service {
	table := NewTable(dbClient, env)
	return Service{
		EntityType: table.EntityType,
		Table:      table,
	}
}

// NewMockService creates a new Fingerprint service backed by an in-memory table for testing purposes.
func NewMockService(env string) Service {
	table := NewMemTable(NewTable(nil, env))
	return Service{
		EntityType: table.EntityType,
		Table:      util.NewSyncTable[Fingerprint](table),
	}
}

// Create a Fingerprint in the Fingerprint table.
func (s Service) Create(ctx context.Context, f Fingerprint) (Fingerprint, []string, error) {
	t := tuid.NewID()
	at, _ := t.Time()
	f.ID = t.String()
	f.CreatedAt = at
	problems := f.Validate()
	if len(problems) > 0 {
		return f, problems, fmt.Errorf("error creating %s %s: invalid field(s): %s", s.EntityType, f.ID, strings.Join(problems, ", "))
	}
	if err := s.Table.WriteEntity(ctx, f); err != nil {
		return f, problems, fmt.Errorf("error creating %s %s: %w", s.EntityType, f.ID, err)
	}
	return f, problems, nil
}

// Write a Fingerprint to the Fingerprint table. This method assumes that the Fingerprint has all the required fields.
// It would most likely be used for "refreshing" the index rows in the Fingerprint table.
func (s Service) Write(ctx context.Context, f Fingerprint) (Fingerprint, error) {
	return f, s.Table.WriteEntity(ctx, f)
}

// Delete a Fingerprint from the Fingerprint table. The deleted Fingerprint is returned.
func (s Service) Delete(ctx context.Context, id string) (Fingerprint, error) {
	return s.Table.DeleteEntityWithID(ctx, id)
}

// Read a specified Fingerprint from the Fingerprint table.
func (s Service) Read(ctx context.Context, id string) (Fingerprint, error) {
	return s.Table.ReadEntity(ctx, id)
}

// Exists checks if a Fingerprint exists in the Fingerprint table.
func (s Service) Exists(ctx context.Context, id string) bool {
	return s.Table.EntityExists(ctx, id)
}

// ReadFingerprintIDs returns a paginated list of Fingerprint IDs.
// Sorting is chronological (or reverse). The offset is the last ID returned in a previous request.
func (s Service) ReadFingerprintIDs(ctx context.Context, reverse bool, limit int, offset string) ([]string, error) {
	return s.Table.ReadEntityIDs(ctx, reverse, limit, offset)
}

// ReadIndex returns a snapshot of every Fingerprint that carries a perceptual hash.
// Caution: this may be a LOT of data!
func (s Service) ReadIndex(ctx context.Context) ([]Fingerprint, error) {
	return s.readAll(ctx, rowFingerprintsHashed, hashedPartition)
}

// ReadByReport returns the Fingerprints owned by the specified Issue.
func (s Service) ReadByReport(ctx context.Context, reportID string) ([]Fingerprint, error) {
	return s.readAll(ctx, rowFingerprintsReport, reportID)
}

// ReadByReportAsJSON returns the Fingerprints owned by the specified Issue, serialized as JSON.
func (s Service) ReadByReportAsJSON(ctx context.Context, reportID string) ([]byte, error) {
	return s.Table.ReadAllEntitiesFromRowAsJSON(ctx, rowFingerprintsReport, reportID)
}

// ReadByDigest returns the Fingerprint ID to Issue ID pairs sharing an exact digest.
func (s Service) ReadByDigest(ctx context.Context, digest string) ([]v.TextValue, error) {
	tvs, err := s.Table.ReadAllTextValues(ctx, rowFingerprintsDigest, digest, false)
	if errors.Is(err, v.ErrNotFound) {
		return []v.TextValue{}, nil
	}
	return tvs, err
}

// DeleteByReport deletes every Fingerprint owned by the specified Issue.
// The deleted Fingerprints are returned; deletion continues past individual failures.
func (s Service) DeleteByReport(ctx context.Context, reportID string) ([]Fingerprint, error) {
	fs, err := s.ReadByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("delete %s by report %s: %w", s.EntityType, reportID, err)
	}
	deleted := make([]Fingerprint, 0, len(fs))
	var errs []error
	for _, f := range fs {
		if _, err := s.Table.DeleteEntityWithID(ctx, f.ID); err != nil && !errors.Is(err, v.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s %s: %w", s.EntityType, f.ID, err))
			continue
		}
		deleted = append(deleted, f)
	}
	return deleted, errors.Join(errs...)
}

// FindSimilar reads the current index snapshot and ranks the matches for the candidate hashes.
func (s Service) FindSimilar(ctx context.Context, candidate Hashes, threshold int) ([]DuplicateCandidate, error) {
	index, err := s.ReadIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("find similar %s: %w", s.EntityType, err)
	}
	return FindSimilar(candidate, index, threshold), nil
}

func (s Service) readAll(ctx context.Context, row v.TableRow[Fingerprint], partKey string) ([]Fingerprint, error) {
	fs, err := s.Table.ReadAllEntitiesFromRow(ctx, row, partKey)
	if errors.Is(err, v.ErrNotFound) {
		return []Fingerprint{}, nil
	}
	return fs, err
}
