package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// Upload is one submitted photo. Bytes are taken from Blob, or else read from
// Path, a temporary file owned by the pipeline and removed when ingestion ends.
type Upload struct {
	FileName string
	Path     string
	Blob     []byte
}

// load returns the photo bytes, reading the temporary file if needed.
func (u Upload) load(maxBytes int64) ([]byte, error) {
	if u.Blob != nil || u.Path == "" {
		return u.Blob, nil
	}
	info, err := os.Stat(u.Path)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", u.FileName, err)
	}
	// Oversized files are left to the quality gate without reading them.
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, &oversizeError{size: info.Size()}
	}
	blob, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", u.FileName, err)
	}
	return blob, nil
}

type oversizeError struct {
	size int64
}

func (e *oversizeError) Error() string {
	return fmt.Sprintf("upload of %d bytes is too large", e.size)
}

// discard removes every temporary file. Files already gone are ignored.
func discard(uploads []Upload, logger zerolog.Logger) {
	for _, u := range uploads {
		if u.Path == "" {
			continue
		}
		if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("path", u.Path).Msg("temporary upload not removed")
		}
	}
}
