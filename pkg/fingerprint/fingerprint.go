package fingerprint

import (
	"fmt"
	"regexp"
	"time"

	"civic-api/pkg/photo"

	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

var md5Pattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Fingerprint is the stored, content-derived identity of one uploaded issue photo.
// Fingerprints are never updated; they have no versions. A Fingerprint is created
// only after its photo was stored, and is deleted with its owning Issue.
type Fingerprint struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	ReportID       string    `json:"reportId"`
	AverageHash    string    `json:"averageHash,omitempty"`
	DifferenceHash string    `json:"differenceHash,omitempty"`
	ExactDigest    string    `json:"exactDigest,omitempty"`
	StorageRef     photo.Ref `json:"storageRef"`
}

// New builds an unsaved Fingerprint for a stored photo.
func New(reportID string, h Hashes, ref photo.Ref) Fingerprint {
	return Fingerprint{
		ReportID:       reportID,
		AverageHash:    h.AverageHash,
		DifferenceHash: h.DifferenceHash,
		ExactDigest:    h.ExactDigest,
		StorageRef:     ref,
	}
}

// Type returns the entity type of the Fingerprint.
func (f Fingerprint) Type() string {
	return "Fingerprint"
}

// Hashes returns the fingerprint triple.
func (f Fingerprint) Hashes() Hashes {
	return Hashes{
		AverageHash:    f.AverageHash,
		DifferenceHash: f.DifferenceHash,
		ExactDigest:    f.ExactDigest,
	}
}

// HasHash returns true if at least one perceptual hash is present.
func (f Fingerprint) HasHash() bool {
	return f.AverageHash != "" || f.DifferenceHash != ""
}

// String returns a string representation of the Fingerprint.
func (f Fingerprint) String() string {
	return fmt.Sprintf("Fingerprint %s (report %s, %s)", f.ID, f.ReportID, f.StorageRef.FileName)
}

// CompressedJSON returns a compressed JSON representation of the Fingerprint.
func (f Fingerprint) CompressedJSON() []byte {
	j, err := v.ToCompressedJSON(f)
	if err != nil {
		return nil
	}
	return j
}

// Validate checks whether the Fingerprint has all required fields and whether the
// supplied values are valid, returning a list of problems.
func (f Fingerprint) Validate() []string {
	var problems []string
	if f.ID == "" || !tuid.IsValid(tuid.TUID(f.ID)) {
		problems = append(problems, "ID is missing or invalid")
	}
	if f.CreatedAt.IsZero() {
		problems = append(problems, "CreatedAt is missing")
	}
	if f.ReportID == "" || !tuid.IsValid(tuid.TUID(f.ReportID)) {
		problems = append(problems, "ReportID is missing or invalid")
	}
	if !f.HasHash() {
		problems = append(problems, "AverageHash and DifferenceHash are both missing")
	}
	if f.AverageHash != "" && !IsBitString(f.AverageHash) {
		problems = append(problems, "AverageHash must be 64 characters of 0 and 1")
	}
	if f.DifferenceHash != "" && !IsBitString(f.DifferenceHash) {
		problems = append(problems, "DifferenceHash must be 64 characters of 0 and 1")
	}
	if f.ExactDigest != "" && !md5Pattern.MatchString(f.ExactDigest) {
		problems = append(problems, "ExactDigest is not a hex MD5 digest")
	}
	if f.StorageRef.IsEmpty() {
		problems = append(problems, "StorageRef is missing")
	}
	return problems
}
