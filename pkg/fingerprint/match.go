package fingerprint

import (
	"cmp"
	"math"
	"slices"

	"civic-api/pkg/photo"
)

// Infinite is the distance between hashes that cannot be compared.
// It exceeds any threshold a caller can meaningfully supply.
const Infinite = math.MaxInt16

// DefaultThreshold is the default maximum Hamming distance for a near match.
const DefaultThreshold = 10

// Class classifies a duplicate candidate.
type Class string

const (
	// Exact candidates share the exact content digest.
	Exact Class = "exact"

	// Near candidates are perceptually similar within the threshold.
	Near Class = "near"
)

// DuplicateCandidate is an advisory match between a new photo and a stored fingerprint.
type DuplicateCandidate struct {
	FingerprintID      string    `json:"fingerprintId"`
	ReportID           string    `json:"reportId"`
	StorageRef         photo.Ref `json:"storageRef"`
	Class              Class     `json:"class"`
	AverageDistance    int       `json:"averageDistance"`
	DifferenceDistance int       `json:"differenceDistance"`
	Score              int       `json:"score"`
}

// Distance returns the sum of both perceptual distances, used for ranking.
func (c DuplicateCandidate) Distance() int {
	return c.AverageDistance + c.DifferenceDistance
}

// HammingDistance counts the differing positions of two equal-length bit strings.
// Missing or unequal-length strings are Infinite apart.
func HammingDistance(a, b string) int {
	if a == "" || b == "" || len(a) != len(b) {
		return Infinite
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Similarity converts a match into a 0..100 display score.
func Similarity(class Class, averageDistance, differenceDistance int) int {
	if class == Exact {
		return 100
	}
	d := min(averageDistance, differenceDistance)
	if d >= Infinite {
		return 0
	}
	return int(math.Round(100 - float64(d)/Bits*100))
}

// Compare classifies a stored fingerprint against the candidate hashes.
// The boolean result is false when the fingerprint does not match.
func Compare(candidate Hashes, f Fingerprint, threshold int) (DuplicateCandidate, bool) {
	c := DuplicateCandidate{
		FingerprintID:      f.ID,
		ReportID:           f.ReportID,
		StorageRef:         f.StorageRef,
		AverageDistance:    HammingDistance(candidate.AverageHash, f.AverageHash),
		DifferenceDistance: HammingDistance(candidate.DifferenceHash, f.DifferenceHash),
	}
	switch {
	case candidate.ExactDigest != "" && candidate.ExactDigest == f.ExactDigest:
		c.Class = Exact
	case c.AverageDistance <= threshold || c.DifferenceDistance <= threshold:
		c.Class = Near
	default:
		return c, false
	}
	c.Score = Similarity(c.Class, c.AverageDistance, c.DifferenceDistance)
	return c, true
}

// FindSimilar compares the candidate against an index snapshot and returns the
// matches: exact before near, then by ascending summed distance.
// A negative threshold selects DefaultThreshold.
func FindSimilar(candidate Hashes, index []Fingerprint, threshold int) []DuplicateCandidate {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	matches := make([]DuplicateCandidate, 0)
	for _, f := range index {
		if c, ok := Compare(candidate, f, threshold); ok {
			matches = append(matches, c)
		}
	}
	slices.SortFunc(matches, func(a, b DuplicateCandidate) int {
		if a.Class != b.Class {
			if a.Class == Exact {
				return -1
			}
			return 1
		}
		if d := cmp.Compare(a.Distance(), b.Distance()); d != 0 {
			return d
		}
		return cmp.Compare(a.FingerprintID, b.FingerprintID)
	})
	return matches
}
