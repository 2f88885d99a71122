package photo

import (
	"bytes"
	"fmt"

	"github.com/bep/imagemeta"
)

// Exif is a short summary of the camera metadata embedded in a photo.
type Exif struct {
	CapturedAt  string `json:"capturedAt,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

var exifTags = map[string]bool{
	"DateTimeOriginal": true,
	"Make":             true,
	"Model":            true,
	"Orientation":      true,
}

// metaFormats maps media types to the formats the metadata decoder can read.
// GIF carries no EXIF.
var metaFormats = map[MediaType]imagemeta.ImageFormat{
	JPEG: imagemeta.JPEG,
	PNG:  imagemeta.PNG,
	WebP: imagemeta.WebP,
}

// ReadExif extracts an Exif summary from raw image bytes of the supplied media type.
// It returns nil when the image carries no recognizable camera metadata; it never fails.
func ReadExif(blob []byte, mediaType MediaType) *Exif {
	format, ok := metaFormats[mediaType]
	if len(blob) == 0 || !ok {
		return nil
	}
	x := &Exif{}
	found := false
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(blob),
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Source == imagemeta.EXIF && exifTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := tagString(ti.Value)
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "DateTimeOriginal":
				x.CapturedAt = s
			case "Make":
				x.Make = s
			case "Model":
				x.Model = s
			case "Orientation":
				x.Orientation = s
			default:
				return nil
			}
			found = true
			return nil
		},
	})
	if err != nil || !found {
		return nil
	}
	return x
}

func tagString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}
