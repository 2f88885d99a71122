package photo

import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MediaType is a supported raster image media type.
type MediaType string

const (
	// GIF is the media type for GIF images
	GIF MediaType = "image/gif"

	// JPEG is the media type for JPEG images
	JPEG MediaType = "image/jpeg"

	// PNG is the media type for PNG images
	PNG MediaType = "image/png"

	// WebP is the media type for WebP images
	WebP MediaType = "image/webp"
)

// MediaTypes maps each supported MediaType to its file extension.
var MediaTypes = map[MediaType]string{
	JPEG: ".jpeg",
	WebP: ".webp",
	PNG:  ".png",
	GIF:  ".gif",
}

// MediaTypeOf returns the MediaType for a format name reported by image.Decode
// (e.g. "jpeg", "png").
func MediaTypeOf(format string) MediaType {
	return MediaType("image/" + format)
}

// IsValid returns true if the supplied MediaType is recognized.
func (m MediaType) IsValid() bool {
	_, ok := MediaTypes[m]
	return ok
}

// FileExt returns the file extension for the MediaType (including a leading period).
// Unsupported media types return an empty string.
func (m MediaType) FileExt() string {
	return MediaTypes[m]
}

// Format returns the short format name (e.g. "jpeg").
func (m MediaType) Format() string {
	if len(m) > len("image/") {
		return string(m[len("image/"):])
	}
	return ""
}

// String returns a string representation of the MediaType.
func (m MediaType) String() string {
	return string(m)
}

// SupportedMediaTypes lists the accepted media types.
func SupportedMediaTypes() []string {
	return []string{
		WebP.String(),
		JPEG.String(),
		PNG.String(),
		GIF.String(),
	}
}
