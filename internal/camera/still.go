package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// StillDevice serves a single image as a live stream, scaled to the
// requested constraints. Useful on machines without a webcam and in tests.
type StillDevice struct {
	path string
	img  image.Image
}

// NewStillDevice serves the image stored at path. The file is read on every Open.
func NewStillDevice(path string) *StillDevice {
	return &StillDevice{path: path}
}

// NewStillDeviceFromImage serves an in-memory image.
func NewStillDeviceFromImage(img image.Image) *StillDevice {
	return &StillDevice{img: img}
}

func (d *StillDevice) Name() string {
	if d.path != "" {
		return "still:" + d.path
	}
	return "still:memory"
}

func (d *StillDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := d.source()
	if err != nil {
		return nil, err
	}
	return &stillStream{frame: scaleTo(src, c.Width, c.Height), active: true}, nil
}

func (d *StillDevice) source() (image.Image, error) {
	if d.img != nil {
		return d.img, nil
	}
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDevice, d.path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, d.path)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrNoDevice, d.path, err)
	}
	return img, nil
}

func scaleTo(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() == width && b.Dy() == height) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

type stillStream struct {
	mu     sync.Mutex
	frame  image.Image
	active bool
}

func (s *stillStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrStreamStopped
	}
	return s.frame, nil
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *stillStream) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

func (s *stillStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
