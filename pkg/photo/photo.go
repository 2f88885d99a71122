package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	b "civic-api/pkg/bucket"
)

// ErrUnsupportedFormat is returned when bytes cannot be identified as a supported raster format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Metadata describes an image without decoding its pixels.
type Metadata struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int64     `json:"size"`
	MediaType MediaType `json:"mediaType"`
}

// Ref is a durable reference to a photo stored in the object store.
type Ref struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	Size      int64     `json:"size"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	MediaType MediaType `json:"mediaType"`
	MD5Hash   string    `json:"md5Hash,omitempty"`
	Exif      *Exif     `json:"exif,omitempty"`
}

// IsEmpty returns true if the reference does not point at a stored object.
func (r Ref) IsEmpty() bool {
	return r.FileName == ""
}

// Format returns the short format name (e.g. "jpeg").
func (r Ref) Format() string {
	return r.MediaType.Format()
}

// FileInfo returns the bucket FileInfo used to upload the photo.
func (r Ref) FileInfo() b.FileInfo {
	return b.FileInfo{
		FileName:      r.FileName,
		ContentType:   r.MediaType.String(),
		ContentLength: r.Size,
	}
}

// String returns a string representation of the Ref.
func (r Ref) String() string {
	return fmt.Sprintf("Photo %s (%dx%d %s)", r.FileName, r.Width, r.Height, r.Format())
}

// Inspect reads the image header to determine format and dimensions.
func Inspect(blob []byte) (Metadata, error) {
	meta := Metadata{Size: int64(len(blob))}
	if len(blob) == 0 {
		return meta, fmt.Errorf("inspect image: %w: empty content", ErrUnsupportedFormat)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return meta, fmt.Errorf("inspect image: %w: %w", ErrUnsupportedFormat, err)
	}
	meta.MediaType = MediaTypeOf(format)
	if !meta.MediaType.IsValid() {
		return meta, fmt.Errorf("inspect image: %w: %s", ErrUnsupportedFormat, format)
	}
	meta.Width = cfg.Width
	meta.Height = cfg.Height
	return meta, nil
}

// objectKey builds the storage key for a photo within a logical folder.
func objectKey(folder, id string, m MediaType) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return id + m.FileExt()
	}
	return folder + "/" + id + m.FileExt()
}
