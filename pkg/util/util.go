package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxtechnica/tuid-go"
	"github.com/voxtechnica/versionary"
)

// ErrEmptyFilter is returned when the filter string is empty.
var ErrEmptyFilter = errors.New("empty filter")

// ContainsFilter returns a function that can be used to filter TextValues.
// The case-insensitive contains query is split into words, and the words are compared with the value in the TextValue.
// If anyMatch is true, then a TextValue is included in the results if any of the words are found (OR filter).
// If anyMatch is false, then the TextValue must contain all the words in the query string (AND filter).
func ContainsFilter(contains string, anyMatch bool) (func(tv versionary.TextValue) bool, error) {
	terms := strings.Fields(strings.ToLower(contains))
	if len(terms) == 0 {
		return func(tv versionary.TextValue) bool { return false }, ErrEmptyFilter
	}
	if anyMatch {
		return func(tv versionary.TextValue) bool { return tv.ContainsAny(terms) }, nil
	}
	return func(tv versionary.TextValue) bool { return tv.ContainsAll(terms) }, nil
}

// SinceID returns the smallest TUID that could have been minted at the specified time.
// Reading a TUID-sorted row forward from it yields the entities created since then.
func SinceID(since time.Time) string {
	return tuid.FirstIDWithTime(since).String()
}

// DateRangeIDs returns a pair of first IDs (TUIDs) for the specified date range.
// The start date is inclusive, and the end date is effectively exclusive.
// The expected date format is YYYY-MM-DD.
func DateRangeIDs(startDate, endDate string) (string, string, error) {
	var start, end string
	startTime, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid date %s (expect yyyy-mm-dd): %w", startDate, err)
	}
	endTime, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid date %s (expect yyyy-mm-dd): %w", endDate, err)
	}
	return SinceID(startTime), SinceID(endTime), nil
}
