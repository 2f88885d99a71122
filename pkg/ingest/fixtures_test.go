package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"civic-api/pkg/event"
	"civic-api/pkg/fingerprint"
	"civic-api/pkg/metric"
	"civic-api/pkg/photo"
	"civic-api/pkg/report"

	"github.com/rs/zerolog"
	"github.com/voxtechnica/tuid-go"
)

var ctx = context.Background()

// scene renders a distinct photo for each seed: a random 8x8 block layout,
// so perceptual hashes differ across seeds, plus fine texture.
func scene(t *testing.T, w, h, seed int) []byte {
	rnd := rand.New(rand.NewSource(int64(seed)))
	var blocks [8][8]uint8
	for r := range blocks {
		for c := range blocks[r] {
			blocks[r][c] = uint8(rnd.Intn(256))
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(blocks[y*8/h][x*8/w]) + (x*7+y*13)%16 - 8
			v = max(0, min(255, v))
			img.Set(x, y, color.RGBA{R: uint8(v), G: uint8(v), B: uint8(v), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal("error encoding jpeg:", err)
	}
	return buf.Bytes()
}

// tempUpload writes the photo to a temporary file, as the HTTP layer does.
func tempUpload(t *testing.T, name string, blob []byte) Upload {
	path := filepath.Join(t.TempDir(), tuid.NewID().String()+"-"+name)
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal("error writing temp file:", err)
	}
	return Upload{FileName: name, Path: path}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// flakyPhotos wraps the in-memory object store, failing chosen calls.
type flakyPhotos struct {
	photo.Service
	mu          sync.Mutex
	puts        int
	failPutAt   int
	failDeletes bool
}

func (f *flakyPhotos) Put(ctx context.Context, blob []byte, folder string) (photo.Ref, error) {
	f.mu.Lock()
	f.puts++
	n := f.puts
	f.mu.Unlock()
	if n == f.failPutAt {
		return photo.Ref{}, errors.New("object store unavailable")
	}
	return f.Service.Put(ctx, blob, folder)
}

func (f *flakyPhotos) Delete(ctx context.Context, ref photo.Ref) bool {
	if f.failDeletes {
		return false
	}
	return f.Service.Delete(ctx, ref)
}

func (f *flakyPhotos) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// brokenPrints refuses to store fingerprint rows.
type brokenPrints struct {
	fingerprint.Service
}

func (brokenPrints) Create(ctx context.Context, f fingerprint.Fingerprint) (fingerprint.Fingerprint, []string, error) {
	return f, nil, errors.New("fingerprint table unavailable")
}

// fixedMetric scores every pair of strings the same.
type fixedMetric float64

func (m fixedMetric) Compare(a, b string) float64 {
	return float64(m)
}

// harness wires an Orchestrator to in-memory stores.
type harness struct {
	issues report.Service
	prints fingerprint.Service
	photos *flakyPhotos
	events event.Service
	bus    *event.Bus
	stats  metric.Service
	rec    *metric.Recorder
	o      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		issues: report.NewMockService("test"),
		prints: fingerprint.NewMockService("test"),
		photos: &flakyPhotos{Service: photo.NewMockService("test")},
		events: event.NewMockService("test"),
		stats:  metric.NewMockService("test"),
	}
	h.bus = event.NewBus(h.events, zerolog.Nop())
	h.rec = metric.NewRecorder(h.stats, zerolog.Nop())
	o, err := New(DefaultConfig(), h.issues, h.prints, h.photos, h.bus, zerolog.Nop())
	if err != nil {
		t.Fatal("error creating orchestrator:", err)
	}
	o.Metrics = h.rec
	h.o = o
	return h
}

func (h *harness) issueIDs() []string {
	ids, _ := h.issues.ReadIDs(ctx, false, 100, tuid.MinID)
	return ids
}

func (h *harness) objectCount() int {
	files, _ := h.photos.ListFolder(ctx, DefaultConfig().PhotoFolder)
	return len(files)
}

func (h *harness) indexSize() int {
	index, _ := h.prints.ReadIndex(ctx)
	return len(index)
}

func draft(title, description, category string) report.Issue {
	return report.Issue{
		Title:       title,
		Description: description,
		Category:    category,
		Location:    report.Location{Latitude: 40.7128, Longitude: -74.006, Address: "City Hall Park"},
	}
}
