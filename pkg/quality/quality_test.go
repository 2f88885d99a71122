package quality

import (
	"testing"

	"civic-api/pkg/photo"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	expect := assert.New(t)
	limits := DefaultLimits()

	r := Check(photo.Metadata{Width: 1024, Height: 768, Size: 200_000, MediaType: photo.JPEG}, limits)
	expect.True(r.OK)
	expect.Empty(r.Problems)
	expect.Empty(r.Warnings)

	r = Check(photo.Metadata{Width: 50, Height: 50, Size: 4_000, MediaType: photo.PNG}, limits)
	expect.False(r.OK)
	expect.Equal([]string{"image 50x50 is smaller than 100px"}, r.Problems)

	r = Check(photo.Metadata{Width: 8001, Height: 600, Size: 4_000}, limits)
	expect.False(r.OK)
	expect.Equal(1, len(r.Problems))

	r = Check(photo.Metadata{Width: 800, Height: 600, Size: 11 << 20}, limits)
	expect.False(r.OK)
	expect.Contains(r.Problems[0], "exceeds")

	// Boundaries are inclusive
	r = Check(photo.Metadata{Width: 100, Height: 8000, Size: 10 << 20}, limits)
	expect.True(r.OK)
}

func TestCheckWarnsOnTinyFiles(t *testing.T) {
	expect := assert.New(t)
	r := Check(photo.Metadata{Width: 400, Height: 300, Size: 512}, DefaultLimits())
	expect.True(r.OK)
	expect.Equal(1, len(r.Warnings))
}

func TestCheckFailsClosed(t *testing.T) {
	expect := assert.New(t)
	r := Check(photo.Metadata{}, DefaultLimits())
	expect.False(r.OK)
	expect.Equal([]string{"image metadata is missing"}, r.Problems)

	r = Check(photo.Metadata{Width: 400, Height: 300}, DefaultLimits())
	expect.False(r.OK)
}

func TestZeroLimitsUseDefaults(t *testing.T) {
	expect := assert.New(t)
	expect.False(Check(photo.Metadata{Width: 99, Height: 400, Size: 5_000}, Limits{}).OK)
	expect.True(Check(photo.Metadata{Width: 120, Height: 120, Size: 5_000}, Limits{MaxBytes: 6_000}).OK)
	expect.False(Check(photo.Metadata{Width: 120, Height: 120, Size: 7_000}, Limits{MaxBytes: 6_000}).OK)
}
