package photo

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	b "civic-api/pkg/bucket"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/voxtechnica/tuid-go"
)

// httpClient is the HTTP client used to fetch photos from URLs.
var httpClient = http.Client{Timeout: 30 * time.Second}

//==============================================================================
// Photo Bucket
//==============================================================================

// NewBucket instantiates a new S3 Photo bucket.
func NewBucket(s3Client *s3.Client, env string) b.Bucket {
	if env == "" {
		env = "dev"
	}
	return b.Bucket{
		Client:     s3Client,
		EntityType: "Photo",
		BucketName: "civic-photos-" + env,
		Public:     true,
	}
}

// NewMemBucket creates an in-memory Photo bucket for testing purposes.
func NewMemBucket(bucket b.Bucket) b.MemBucket {
	return b.NewMemBucket(bucket)
}

//==============================================================================
// Photo Service
//==============================================================================

// Service stores issue photos in an object store.
type Service struct {
	EntityType string
	Bucket     b.BucketReadWriter
}

// NewService instantiates a new Photo service, backed by S3.
func NewService(s3Client *s3.Client, env string) Service {
	return Service{
		EntityType: "Photo",
		Bucket:     NewBucket(s3Client, env),
	}
}

// NewMockService instantiates a new Photo service with in-memory storage for testing purposes.
func NewMockService(env string) Service {
	return Service{
		EntityType: "Photo",
		Bucket:     NewMemBucket(NewBucket(nil, env)),
	}
}

// Put stores the photo bytes under the logical folder and returns a durable reference.
func (s Service) Put(ctx context.Context, blob []byte, folder string) (Ref, error) {
	meta, err := Inspect(blob)
	if err != nil {
		return Ref{}, fmt.Errorf("put %s: %w", s.EntityType, err)
	}
	ref := Ref{
		FileName:  objectKey(folder, tuid.NewID().String(), meta.MediaType),
		Size:      meta.Size,
		Width:     meta.Width,
		Height:    meta.Height,
		MediaType: meta.MediaType,
		MD5Hash:   fmt.Sprintf("%x", md5.Sum(blob)),
		Exif:      ReadExif(blob, meta.MediaType),
	}
	info, err := s.Bucket.UploadFile(ctx, ref.FileInfo(), bytes.NewReader(blob))
	if err != nil {
		return Ref{}, fmt.Errorf("put %s %s: %w", s.EntityType, ref.FileName, err)
	}
	if info.FileName != "" {
		ref.FileName = info.FileName
	}
	ref.URL = s.Bucket.FileURL(ref.FileName)
	return ref, nil
}

// Delete removes the referenced photo. Deleting a missing object succeeds.
// It returns false only when the object store reported a failure.
func (s Service) Delete(ctx context.Context, ref Ref) bool {
	if ref.IsEmpty() {
		return true
	}
	return s.Bucket.DeleteFile(ctx, ref.FileName) == nil
}

// Exists checks whether the referenced photo is present in the object store.
func (s Service) Exists(ctx context.Context, ref Ref) bool {
	if ref.IsEmpty() {
		return false
	}
	ok, err := s.Bucket.FileExists(ctx, ref.FileName)
	return err == nil && ok
}

// Fetch downloads the referenced photo and returns its bytes.
func (s Service) Fetch(ctx context.Context, ref Ref) ([]byte, error) {
	if ref.IsEmpty() {
		return nil, fmt.Errorf("fetch %s: no file name provided", s.EntityType)
	}
	_, rc, err := s.Bucket.DownloadFile(ctx, ref.FileName)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", s.EntityType, ref.FileName, err)
	}
	defer func(rc io.ReadCloser) { _ = rc.Close() }(rc)
	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", s.EntityType, ref.FileName, err)
	}
	return blob, nil
}

// DownloadURL returns a time-limited download URL for the referenced photo.
func (s Service) DownloadURL(ctx context.Context, ref Ref, expires time.Duration) (b.PreSignedURL, error) {
	// Maximum expiration time is 6 hours (AWS S3 limit)
	if expires > 6*time.Hour {
		expires = 6 * time.Hour
	} else if expires <= 0 {
		expires = time.Hour
	}
	return s.Bucket.GetDownloadURL(ctx, ref.FileName, expires)
}

// ListFolder lists the stored objects in a logical folder.
func (s Service) ListFolder(ctx context.Context, folder string) ([]b.FileInfo, error) {
	prefix := folder
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return s.Bucket.ListFiles(ctx, prefix)
}

//------------------------------------------------------------------------------
// Photo Sources
//------------------------------------------------------------------------------

// FetchSourceFile reads a photo from the local file system.
func FetchSourceFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("error fetching photo source: no file path provided")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("error fetching photo source: file %s does not exist", path)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return blob, fmt.Errorf("error fetching photo source %s: %w", path, err)
	}
	return blob, nil
}

// FetchSourceURI fetches a photo from a remote URL.
func FetchSourceURI(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, errors.New("error fetching photo source: no URI provided")
	}
	if _, err := url.ParseRequestURI(uri); err != nil {
		return nil, fmt.Errorf("error fetching photo source: invalid URI %s: %w", uri, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching photo source %s: %w", uri, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching photo source %s: %w", uri, err)
	}
	defer func(r *http.Response) { _ = r.Body.Close() }(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching photo source %s: %s", uri, resp.Status)
	}
	buf := new(bytes.Buffer)
	if _, err = buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("error fetching photo source %s: %w", uri, err)
	}
	return buf.Bytes(), nil
}
