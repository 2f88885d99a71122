package bucket

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// pngBlob renders a solid square PNG of the given size.
func pngBlob(t *testing.T, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal("error encoding png:", err)
	}
	return buf.Bytes()
}

func TestPrivateMemBucket(t *testing.T) {
	expect := assert.New(t)

	ctx := context.Background()
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	mb := MemBucket{
		EntityType: "Photo",
		BucketName: "civic-test-private-" + ts,
	}

	// Verify that the bucket does not exist, then initialize it
	expect.False(mb.BucketExists())
	_, err := mb.FileInfo(ctx, "missing.png")
	expect.ErrorIs(err, ErrBucketNotConfigured)
	mb.FileSet = &MemFileSet{}
	expect.True(mb.BucketExists())
	expect.True(mb.IsValid())

	// Check info on a file that does not exist
	_, err = mb.FileInfo(ctx, "does-not-exist")
	expect.True(errors.Is(err, ErrFileNotFound))

	// Upload a test file
	blob := pngBlob(t, 128)
	info, err := mb.UploadFile(ctx, FileInfo{FileName: "issues/a.png", ContentType: "image/png"}, bytes.NewReader(blob))
	expect.NoError(err)
	expect.Equal(int64(len(blob)), info.ContentLength)
	expect.Equal(mb.BucketName, info.BucketName)
	expect.NotEmpty(info.ETag)

	// Check the file info
	read, err := mb.FileInfo(ctx, info.FileName)
	expect.NoError(err)
	expect.Equal(info, read)

	// Download and decode the file
	read, rc, err := mb.DownloadFile(ctx, info.FileName)
	expect.NoError(err)
	expect.Equal(info, read)
	defer func(rc io.ReadCloser) { _ = rc.Close() }(rc)
	i, format, err := image.Decode(rc)
	expect.NoError(err)
	expect.Equal("png", format)
	expect.Equal(128, i.Bounds().Dx())

	// Download a non-existent file
	_, _, err = mb.DownloadFile(ctx, "does-not-exist")
	expect.True(errors.Is(err, ErrFileNotFound))

	// Download URLs are localhost placeholders
	psu, err := mb.GetDownloadURL(ctx, info.FileName, time.Hour)
	expect.NoError(err)
	expect.Equal("GET", psu.Method)
	expect.Equal(mb.FileURL(info.FileName), psu.URL)

	// List by prefix
	_, err = mb.UploadFile(ctx, FileInfo{FileName: "issues/b.png", ContentType: "image/png"}, bytes.NewReader(blob))
	expect.NoError(err)
	_, err = mb.UploadFile(ctx, FileInfo{FileName: "other/c.png", ContentType: "image/png"}, bytes.NewReader(blob))
	expect.NoError(err)
	files, err := mb.ListFiles(ctx, "issues/")
	expect.NoError(err)
	expect.Equal(2, len(files))
	expect.Greater(files[1].FileName, files[0].FileName)
	all, err := mb.ListFiles(ctx, "")
	expect.NoError(err)
	expect.Equal(3, len(all))

	// Delete the files
	expect.NoError(mb.DeleteFiles(ctx, []string{"issues/a.png", "issues/b.png"}))
	expect.NoError(mb.DeleteFile(ctx, "other/c.png"))
	expect.Equal(0, mb.FileSet.Len())

	// Delete a non-existent file (no error expected)
	expect.NoError(mb.DeleteFile(ctx, "does-not-exist"))

	// Too many files
	expect.ErrorIs(mb.DeleteFiles(ctx, make([]string, 1001)), ErrTooManyFiles)
}

func TestMemBucketCanceledUpload(t *testing.T) {
	expect := assert.New(t)
	mb := NewMemBucket(Bucket{EntityType: "Photo", BucketName: "civic-photos-test"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mb.UploadFile(ctx, FileInfo{FileName: "x.png"}, bytes.NewReader([]byte("x")))
	expect.ErrorIs(err, context.Canceled)
	expect.Equal(0, mb.FileSet.Len())
}

func TestMemFileSetConcurrency(t *testing.T) {
	expect := assert.New(t)
	mfs := &MemFileSet{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := "f" + strconv.Itoa(n)
			mfs.AddFile(MemFile{FileName: name})
			_, _ = mfs.GetFile(name)
			_ = mfs.ListFiles("f")
		}(i)
	}
	wg.Wait()
	expect.Equal(50, mfs.Len())
}

func TestBucketURLs(t *testing.T) {
	expect := assert.New(t)
	b := Bucket{EntityType: "Photo", BucketName: "civic-photos-dev"}
	expect.False(b.IsValid())
	expect.Equal("https://civic-photos-dev.s3.us-west-2.amazonaws.com/", b.BucketURL())
	expect.Equal("https://civic-photos-dev.s3.us-west-2.amazonaws.com/issues/x.jpeg", b.FileURL("issues/x.jpeg"))
	b.Region = "eu-west-1"
	expect.Equal("https://civic-photos-dev.s3.eu-west-1.amazonaws.com/x", b.FileURL("x"))
	expect.Equal("", b.FileURL(""))
	_, err := b.BucketExists(context.Background())
	expect.ErrorIs(err, ErrBucketNotConfigured)
}
