package photo

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	b "civic-api/pkg/bucket"

	"github.com/stretchr/testify/assert"
)

var (
	ctx     = context.Background()
	service = NewMockService("test")
)

func makeJPEG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal("error encoding jpeg:", err)
	}
	return buf.Bytes()
}

func makePNG(t *testing.T, w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal("error encoding png:", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	expect := assert.New(t)

	blob := makeJPEG(t, 320, 200)
	meta, err := Inspect(blob)
	expect.NoError(err)
	expect.Equal(320, meta.Width)
	expect.Equal(200, meta.Height)
	expect.Equal(JPEG, meta.MediaType)
	expect.Equal(int64(len(blob)), meta.Size)

	meta, err = Inspect(makePNG(t, 64, 48))
	expect.NoError(err)
	expect.Equal(PNG, meta.MediaType)
	expect.Equal("png", meta.MediaType.Format())

	_, err = Inspect([]byte("definitely not an image"))
	expect.True(errors.Is(err, ErrUnsupportedFormat))
	_, err = Inspect(nil)
	expect.True(errors.Is(err, ErrUnsupportedFormat))
}

func TestPutDelete(t *testing.T) {
	expect := assert.New(t)

	blob := makeJPEG(t, 300, 240)
	ref, err := service.Put(ctx, blob, "issues/")
	expect.NoError(err)
	expect.True(strings.HasPrefix(ref.FileName, "issues/"))
	expect.True(strings.HasSuffix(ref.FileName, ".jpeg"))
	expect.Equal(int64(len(blob)), ref.Size)
	expect.Equal(300, ref.Width)
	expect.Equal(240, ref.Height)
	expect.Equal("jpeg", ref.Format())
	expect.NotEmpty(ref.URL)
	expect.NotEmpty(ref.MD5Hash)
	expect.True(service.Exists(ctx, ref))

	fetched, err := service.Fetch(ctx, ref)
	expect.NoError(err)
	expect.Equal(blob, fetched)

	u, err := service.DownloadURL(ctx, ref, 24*time.Hour)
	if expect.NoError(err) {
		expect.Equal(ref.FileName, u.FileName)
		expect.True(u.ExpiresAt.Before(time.Now().Add(6*time.Hour+time.Minute)), "expiry is capped")
	}

	files, err := service.ListFolder(ctx, "issues")
	expect.NoError(err)
	expect.Equal(1, len(files))

	// Delete is idempotent
	expect.True(service.Delete(ctx, ref))
	expect.False(service.Exists(ctx, ref))
	expect.True(service.Delete(ctx, ref))
	expect.True(service.Delete(ctx, Ref{}))

	// Undecodable bytes never reach the bucket
	_, err = service.Put(ctx, []byte("nope"), "issues")
	expect.True(errors.Is(err, ErrUnsupportedFormat))
	files, err = service.ListFolder(ctx, "issues")
	expect.NoError(err)
	expect.Equal(0, len(files))
}

func TestDeleteReportsStorageFailure(t *testing.T) {
	expect := assert.New(t)
	broken := Service{EntityType: "Photo", Bucket: b.MemBucket{EntityType: "Photo", BucketName: "broken"}}
	expect.False(broken.Delete(ctx, Ref{FileName: "issues/x.jpeg"}))
}

func TestObjectKey(t *testing.T) {
	expect := assert.New(t)
	expect.Equal("abc.png", objectKey("", "abc", PNG))
	expect.Equal("issues/abc.webp", objectKey("/issues/", "abc", WebP))
}

func TestFetchSources(t *testing.T) {
	expect := assert.New(t)
	blob := makePNG(t, 10, 10)

	path := filepath.Join(t.TempDir(), "p.png")
	expect.NoError(os.WriteFile(path, blob, 0o600))
	got, err := FetchSourceFile(path)
	expect.NoError(err)
	expect.Equal(blob, got)
	_, err = FetchSourceFile(filepath.Join(t.TempDir(), "missing.png"))
	expect.Error(err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(blob)
	}))
	defer srv.Close()
	got, err = FetchSourceURI(ctx, srv.URL+"/p.png")
	expect.NoError(err)
	expect.Equal(blob, got)
	_, err = FetchSourceURI(ctx, srv.URL+"/missing.png")
	expect.Error(err)
	_, err = FetchSourceURI(ctx, "")
	expect.Error(err)
}

// withExif inserts a big-endian EXIF APP1 segment with IFD0 Make, Model and
// Orientation tags right after the JPEG start-of-image marker.
func withExif(t *testing.T, blob []byte, maker, model string) []byte {
	if len(blob) < 2 || blob[0] != 0xFF || blob[1] != 0xD8 {
		t.Fatal("not a jpeg")
	}
	ascii := func(s string) []byte { return append([]byte(s), 0) }
	mk, md := ascii(maker), ascii(model)
	const ifdOffset = 8
	const dataOffset = ifdOffset + 2 + 3*12 + 4
	var tiff bytes.Buffer
	put := func(v any) { _ = binary.Write(&tiff, binary.BigEndian, v) }
	tiff.WriteString("MM")
	put(uint16(42))
	put(uint32(ifdOffset))
	put(uint16(3))
	// Make (ASCII)
	put(uint16(0x010F))
	put(uint16(2))
	put(uint32(len(mk)))
	put(uint32(dataOffset))
	// Model (ASCII)
	put(uint16(0x0110))
	put(uint16(2))
	put(uint32(len(md)))
	put(uint32(dataOffset + len(mk)))
	// Orientation (SHORT) = 6
	put(uint16(0x0112))
	put(uint16(3))
	put(uint32(1))
	put(uint16(6))
	put(uint16(0))
	// no next IFD
	put(uint32(0))
	tiff.Write(mk)
	tiff.Write(md)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(blob[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(blob[2:])
	return out.Bytes()
}

func TestReadExif(t *testing.T) {
	expect := assert.New(t)
	blob := withExif(t, makeJPEG(t, 120, 120), "Canon", "Canon EOS R5")

	x := ReadExif(blob, JPEG)
	if expect.NotNil(x) {
		expect.Equal("Canon", x.Make)
		expect.Equal("Canon EOS R5", x.Model)
		expect.NotEmpty(x.Orientation)
	}

	// The summary is stored on the photo reference
	s := NewMockService("exif")
	ref, err := s.Put(ctx, blob, "issues")
	if expect.NoError(err) && expect.NotNil(ref.Exif) {
		expect.Equal("Canon", ref.Exif.Make)
		expect.Equal(120, ref.Width)
	}
}

func TestReadExifWithoutMetadata(t *testing.T) {
	expect := assert.New(t)
	expect.Nil(ReadExif(nil, JPEG))
	expect.Nil(ReadExif(makeJPEG(t, 8, 8), JPEG))
	expect.Nil(ReadExif(makePNG(t, 8, 8), PNG))
	blob := withExif(t, makeJPEG(t, 8, 8), "Canon", "Canon EOS R5")
	expect.Nil(ReadExif(blob, GIF), "no metadata format for gif")
}
