package ingest

import (
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input. Nothing was written.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid issue: " + strings.Join(e.Problems, ", ")
}

// DecodeError reports a photo that could not be read or decoded.
type DecodeError struct {
	Index    int
	FileName string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("photo %d (%s) could not be decoded: %v", e.Index+1, e.FileName, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// QualityError reports a photo rejected by the local quality gate.
type QualityError struct {
	Index    int
	FileName string
	Problems []string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("photo %d (%s) rejected: %s", e.Index+1, e.FileName, strings.Join(e.Problems, ", "))
}

// UploadError reports an object storage failure.
type UploadError struct {
	Index    int
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("photo %d (%s) upload failed: %v", e.Index+1, e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistenceWarning reports a fingerprint that was not stored for a committed Issue.
// It is never returned as an error.
type PersistenceWarning struct {
	ReportID string
	Index    int
	Err      error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("fingerprint for photo %d of issue %s not stored: %v", e.Index+1, e.ReportID, e.Err)
}

func (e *PersistenceWarning) Unwrap() error {
	return e.Err
}
