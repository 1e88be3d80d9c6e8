package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-skin-inspector/internal/camera"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/storage"
	"go-skin-inspector/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Options configures an Adapter
type Options struct {
	Device      camera.Device
	Constraints camera.Constraints
	// PublicHost is the hostname the console is served under
	PublicHost string
	// ServerOnly matches hostnames of deployments that never get camera access; nil disables the check
	ServerOnly *regexp.Regexp
	// Fetcher resolves LoadFromURL references; nil disables URL loading
	Fetcher storage.ImageFetcher
}

// Adapter turns camera streams, uploaded bytes and remote references into raster content
type Adapter struct {
	device      camera.Device
	constraints camera.Constraints
	publicHost  string
	serverOnly  *regexp.Regexp
	fetcher     storage.ImageFetcher
	validator   *validation.URLValidator
}

func NewAdapter(opts Options) *Adapter {
	device := opts.Device
	if device == nil {
		device = camera.NoDevice{}
	}
	return &Adapter{
		device:      device,
		constraints: opts.Constraints,
		publicHost:  opts.PublicHost,
		serverOnly:  opts.ServerOnly,
		fetcher:     opts.Fetcher,
		validator:   validation.NewURLValidator(),
	}
}

// Camera panel texts
const (
	MessageServerOnly  = "Camera access is not available when accessing the application through a server. Please use the file upload option instead."
	MessageCameraError = "Error accessing camera. Please make sure you have granted camera permissions."
)

// MaxImagePixels bounds the decoded size of uploads and fetched images
const MaxImagePixels = 50_000_000

// DefaultConstraints asks for the back camera at 1280x720
func DefaultConstraints() camera.Constraints {
	return camera.Constraints{Facing: camera.FacingEnvironment, Width: 1280, Height: 720}
}

// StartCamera acquires a stream. Server-only deployments fail before the device is touched.
func (a *Adapter) StartCamera(ctx context.Context) (camera.Stream, error) {
	if a.serverOnly != nil && a.serverOnly.MatchString(hostOnly(a.publicHost)) {
		return nil, apperrors.NewEnvironmentUnsupportedError(MessageServerOnly, nil)
	}

	stream, err := a.device.Open(ctx, a.constraints)
	if err != nil {
		return nil, apperrors.NewDeviceUnavailableError(MessageCameraError, err)
	}

	logger.WithFields(logrus.Fields{
		"device": a.device.Name(),
		"facing": a.constraints.Facing,
		"width":  a.constraints.Width,
		"height": a.constraints.Height,
	}).Info("Camera stream started")
	return stream, nil
}

// Decode parses image bytes in any registered format
func (a *Adapter) Decode(data []byte) (image.Image, error) {
	return DecodeImage(data)
}

// DecodeImage parses JPEG, PNG, GIF, WebP, BMP or TIFF bytes
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("image file is empty", nil)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewValidationError("could not decode image file", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("image is %dx%d; at most %d pixels are accepted", cfg.Width, cfg.Height, MaxImagePixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewValidationError("could not decode image file", err)
	}
	logger.WithFields(logrus.Fields{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("Decoded image")
	return img, nil
}

// LoadFromFile decodes data and redraws surface at the image's own dimensions
func (a *Adapter) LoadFromFile(surface *raster.Surface, data []byte) error {
	img, err := a.Decode(data)
	if err != nil {
		return err
	}
	surface.Draw(img)
	return nil
}

// FetchURL validates ref and downloads its bytes
func (a *Adapter) FetchURL(ctx context.Context, ref string) ([]byte, error) {
	if err := a.validator.Validate(ref); err != nil {
		return nil, err
	}
	if a.fetcher == nil {
		return nil, apperrors.NewValidationError("loading images by URL is not configured", nil)
	}
	data, err := a.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, apperrors.NewValidationError("could not fetch image", err)
	}
	return data, nil
}

// LoadFromURL fetches ref and draws it like LoadFromFile
func (a *Adapter) LoadFromURL(ctx context.Context, surface *raster.Surface, ref string) error {
	data, err := a.FetchURL(ctx, ref)
	if err != nil {
		return err
	}
	return a.LoadFromFile(surface, data)
}

func hostOnly(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
