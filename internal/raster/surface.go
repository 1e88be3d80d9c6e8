package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"strings"
)

// JPEGDataURIPrefix prefixes every encoded surface
const JPEGDataURIPrefix = "data:image/jpeg;base64,"

// Surface is the single drawable pixel buffer of a capture session.
// It is not safe for concurrent use; the owning session serialises access.
type Surface struct {
	img *image.RGBA
}

// NewSurface returns an empty 0x0 surface.
func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rectangle{})}
}

func (s *Surface) Width() int  { return s.img.Bounds().Dx() }
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// Empty reports whether nothing has been drawn yet.
func (s *Surface) Empty() bool {
	return s.Width() == 0 || s.Height() == 0
}

// Draw resizes the surface to src's dimensions and copies src into it.
// The surface is always rebased to the origin.
func (s *Surface) Draw(src image.Image) {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	s.img = dst
}

// Snapshot returns a copy that stays valid after the surface is redrawn.
func (s *Surface) Snapshot() *image.RGBA {
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

// EncodeJPEG encodes the surface at the given quality (1-100).
func (s *Surface) EncodeJPEG(quality int) ([]byte, error) {
	return EncodeJPEG(s.img, quality)
}

// DataURI encodes the surface as a base64 JPEG data URI.
func (s *Surface) DataURI(quality int) (string, error) {
	return EncodeDataURI(s.img, quality)
}

// EncodeDataURI encodes img as a base64 JPEG data URI.
func EncodeDataURI(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return JPEGDataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeJPEG encodes any image as JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot encode empty image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDataURI returns the raw bytes of a base64 data URI ("data:<mime>;base64,<payload>").
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI has no payload")
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mediaType, nil
}
