package ingest

import (
	"fmt"
	"strings"
	"time"

	"civic-api/pkg/fingerprint"
	"civic-api/pkg/quality"
)

// Config holds the tunables of the ingestion pipeline. It is passed explicitly
// to the Orchestrator; nothing in the pipeline reads process state.
type Config struct {
	MaxImageBytes       int64         `json:"maxImageBytes"`
	MinImageBytes       int64         `json:"minImageBytes"`
	MinDimension        int           `json:"minDimension"`
	MaxDimension        int           `json:"maxDimension"`
	SimilarityThreshold int           `json:"similarityThreshold"`
	DuplicateWindow     time.Duration `json:"duplicateWindow"`
	DuplicateScore      float64       `json:"duplicateScore"`
	PhotoFolder         string        `json:"photoFolder"`
	UploadTimeout       time.Duration `json:"uploadTimeout"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	limits := quality.DefaultLimits()
	return Config{
		MaxImageBytes:       limits.MaxBytes,
		MinImageBytes:       limits.MinBytes,
		MinDimension:        limits.MinDimension,
		MaxDimension:        limits.MaxDimension,
		SimilarityThreshold: fingerprint.DefaultThreshold,
		DuplicateWindow:     7 * 24 * time.Hour,
		DuplicateScore:      0.75,
		PhotoFolder:         "issues",
		UploadTimeout:       30 * time.Second,
	}
}

// Limits returns the quality gate bounds.
func (c Config) Limits() quality.Limits {
	return quality.Limits{
		MinDimension: c.MinDimension,
		MaxDimension: c.MaxDimension,
		MaxBytes:     c.MaxImageBytes,
		MinBytes:     c.MinImageBytes,
	}
}

// Validate returns a list of problems with the configuration.
func (c Config) Validate() []string {
	var problems []string
	if c.MaxImageBytes <= 0 {
		problems = append(problems, "MaxImageBytes must be positive")
	}
	if c.MinImageBytes < 0 || c.MinImageBytes >= c.MaxImageBytes {
		problems = append(problems, "MinImageBytes must be between 0 and MaxImageBytes")
	}
	if c.MinDimension <= 0 || c.MaxDimension < c.MinDimension {
		problems = append(problems, "MinDimension must be positive and no greater than MaxDimension")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > fingerprint.Bits {
		problems = append(problems, fmt.Sprintf("SimilarityThreshold must be between 0 and %d", fingerprint.Bits))
	}
	if c.DuplicateWindow <= 0 {
		problems = append(problems, "DuplicateWindow must be positive")
	}
	if c.DuplicateScore <= 0 || c.DuplicateScore >= 1 {
		problems = append(problems, "DuplicateScore must be between 0 and 1")
	}
	if strings.Trim(c.PhotoFolder, "/ ") == "" {
		problems = append(problems, "PhotoFolder is missing")
	}
	if c.UploadTimeout < 0 {
		problems = append(problems, "UploadTimeout must not be negative")
	}
	return problems
}
