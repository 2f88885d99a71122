package fingerprint

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/corona10/goimagehash/transforms"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// Bits is the length of a perceptual hash, in bits.
const Bits = 64

// ErrDecode is returned when the bytes cannot be decoded as a supported raster format.
var ErrDecode = errors.New("image could not be decoded")

// Hashes is the fingerprint triple derived from a photo's bytes.
// Perceptual hashes are 64-character strings of '0' and '1', row-major.
type Hashes struct {
	AverageHash    string `json:"averageHash"`
	DifferenceHash string `json:"differenceHash"`
	ExactDigest    string `json:"exactDigest,omitempty"`
}

// Generate decodes the bytes and derives the average hash, the difference hash,
// and the exact content digest. Identical bytes always yield identical Hashes.
func Generate(blob []byte) (Hashes, error) {
	var h Hashes
	if len(blob) == 0 {
		return h, fmt.Errorf("fingerprint: %w: empty content", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return h, fmt.Errorf("fingerprint: %w: %w", ErrDecode, err)
	}
	if h.AverageHash, err = AverageHash(img); err != nil {
		return h, fmt.Errorf("fingerprint: %w: %w", ErrDecode, err)
	}
	h.DifferenceHash = DifferenceHash(img)
	h.ExactDigest = ExactDigest(blob)
	return h, nil
}

// AverageHash downscales the image to an 8x8 grayscale grid and emits a 1 for
// each sample brighter than the grid mean.
func AverageHash(img image.Image) (string, error) {
	ah, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%064b", ah.GetHash()), nil
}

// DifferenceHash downscales the image to a 9x8 grayscale grid and emits, for each
// row, a 1 for every adjacent pair whose left sample is brighter than the right.
func DifferenceHash(img image.Image) string {
	pixels := transforms.Rgb2Gray(resize.Resize(9, 8, img, resize.Bilinear))
	var sb strings.Builder
	sb.Grow(Bits)
	for row := 0; row < len(pixels); row++ {
		for col := 0; col+1 < len(pixels[row]); col++ {
			if pixels[row][col] > pixels[row][col+1] {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// ExactDigest returns the hex MD5 digest of the raw bytes.
func ExactDigest(blob []byte) string {
	return fmt.Sprintf("%x", md5.Sum(blob))
}

// IsBitString returns true if s is exactly 64 characters of '0' and '1'.
func IsBitString(s string) bool {
	if len(s) != Bits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
