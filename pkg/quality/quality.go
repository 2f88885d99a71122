// Package quality is a local, pure check over image metadata that runs before
// any photo is fingerprinted or uploaded.
package quality

import (
	"fmt"

	"civic-api/pkg/photo"
)

// Limits bound acceptable photos. Zero values are replaced by the defaults.
type Limits struct {
	MinDimension int   `json:"minDimension"`
	MaxDimension int   `json:"maxDimension"`
	MaxBytes     int64 `json:"maxBytes"`
	MinBytes     int64 `json:"minBytes"`
}

// DefaultLimits returns the default photo bounds.
func DefaultLimits() Limits {
	return Limits{
		MinDimension: 100,
		MaxDimension: 8000,
		MaxBytes:     10 << 20,
		MinBytes:     1 << 10,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinDimension <= 0 {
		l.MinDimension = d.MinDimension
	}
	if l.MaxDimension <= 0 {
		l.MaxDimension = d.MaxDimension
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MinBytes < 0 {
		l.MinBytes = 0
	}
	return l
}

// Result is the outcome of a quality check. Problems reject the photo;
// Warnings are advisory.
type Result struct {
	OK       bool     `json:"ok"`
	Problems []string `json:"problems,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Check evaluates photo metadata against the limits. Missing metadata fails closed.
func Check(meta photo.Metadata, limits Limits) Result {
	l := limits.withDefaults()
	var r Result
	if meta.Width <= 0 || meta.Height <= 0 || meta.Size <= 0 {
		r.Problems = append(r.Problems, "image metadata is missing")
		return r
	}
	if meta.Width < l.MinDimension || meta.Height < l.MinDimension {
		r.Problems = append(r.Problems, fmt.Sprintf("image %dx%d is smaller than %dpx", meta.Width, meta.Height, l.MinDimension))
	}
	if meta.Width > l.MaxDimension || meta.Height > l.MaxDimension {
		r.Problems = append(r.Problems, fmt.Sprintf("image %dx%d is larger than %dpx", meta.Width, meta.Height, l.MaxDimension))
	}
	if meta.Size > l.MaxBytes {
		r.Problems = append(r.Problems, fmt.Sprintf("image size %d bytes exceeds %d bytes", meta.Size, l.MaxBytes))
	}
	if meta.Size < l.MinBytes {
		r.Warnings = append(r.Warnings, fmt.Sprintf("image size %d bytes is implausibly small; it may be corrupt", meta.Size))
	}
	r.OK = len(r.Problems) == 0
	return r
}
