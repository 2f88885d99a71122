package fingerprint

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// gradientJPEG renders a scene that darkens left to right and slightly top to bottom.
func gradientJPEG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := uint8(240 - x*200/w - y*30/h)
			img.Set(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return encodeJPEG(t, img)
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		t.Fatal("error encoding jpeg:", err)
	}
	return buf.Bytes()
}

// halvesPNG renders a square with a black and a white half.
func halvesPNG(t *testing.T, size int, whiteLeft bool) []byte {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			left := x < size/2
			if left == whiteLeft {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal("error encoding png:", err)
	}
	return buf.Bytes()
}

// cropJPEG decodes the blob and re-encodes it with the given fraction removed from the right and bottom edges.
func cropJPEG(t *testing.T, blob []byte, fraction float64) []byte {
	src, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		t.Fatal("error decoding:", err)
	}
	b := src.Bounds()
	w := int(float64(b.Dx()) * (1 - fraction))
	h := int(float64(b.Dy()) * (1 - fraction))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return encodeJPEG(t, dst)
}

func TestGenerateDeterministic(t *testing.T) {
	expect := assert.New(t)
	blob := gradientJPEG(t, 400, 300)
	h1, err := Generate(blob)
	expect.NoError(err)
	h2, err := Generate(append([]byte(nil), blob...))
	expect.NoError(err)
	expect.Equal(h1, h2)
	expect.True(IsBitString(h1.AverageHash))
	expect.True(IsBitString(h1.DifferenceHash))
	expect.Equal(32, len(h1.ExactDigest))
	expect.Equal(ExactDigest(blob), h1.ExactDigest)
}

func TestGenerateDecodeError(t *testing.T) {
	expect := assert.New(t)
	_, err := Generate([]byte("GIF89a but not really"))
	expect.True(errors.Is(err, ErrDecode))
	_, err = Generate(nil)
	expect.True(errors.Is(err, ErrDecode))
}

func TestAverageHashRowMajor(t *testing.T) {
	expect := assert.New(t)
	h, err := Generate(halvesPNG(t, 64, false))
	expect.NoError(err)
	expect.Equal(strings.Repeat("00001111", 8), h.AverageHash)

	h, err = Generate(halvesPNG(t, 64, true))
	expect.NoError(err)
	expect.Equal(strings.Repeat("11110000", 8), h.AverageHash)
}

func TestDifferenceHashLeftBrighter(t *testing.T) {
	expect := assert.New(t)

	// Brightness only increases to the right: no pair has a brighter left sample.
	h, err := Generate(halvesPNG(t, 72, false))
	expect.NoError(err)
	expect.Equal(strings.Repeat("0", Bits), h.DifferenceHash)

	// Brightness drops across the middle of every row.
	h, err = Generate(halvesPNG(t, 72, true))
	expect.NoError(err)
	for row := 0; row < 8; row++ {
		expect.Contains(h.DifferenceHash[row*8:row*8+8], "1", "row %d", row)
	}

	// A scene darkening left to right sets every bit.
	h, err = Generate(gradientJPEG(t, 360, 240))
	expect.NoError(err)
	expect.Equal(strings.Repeat("1", Bits), h.DifferenceHash)
}

func TestIsBitString(t *testing.T) {
	expect := assert.New(t)
	expect.True(IsBitString(strings.Repeat("01", 32)))
	expect.False(IsBitString(strings.Repeat("01", 31)))
	expect.False(IsBitString(strings.Repeat("02", 32)))
	expect.False(IsBitString(""))
}
