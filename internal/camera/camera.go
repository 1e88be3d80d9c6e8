package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Facing selects the physical camera on devices that have more than one.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

var (
	// ErrNoDevice means no camera is attached or configured
	ErrNoDevice = errors.New("no camera device")
	// ErrPermissionDenied means a camera exists but access was refused
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrStreamStopped is returned when reading from a stopped stream
	ErrStreamStopped = errors.New("camera stream stopped")
)

// Constraints describe the requested stream. Width and Height are ideal
// values; a device may deliver another size.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// Device acquires camera streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
	Name() string
}

// Stream is an acquired camera. Stop releases the hardware; Resume
// re-acquires it with the original constraints.
type Stream interface {
	Frame() (image.Image, error)
	Stop()
	Resume(ctx context.Context) error
	Active() bool
}

// Resolve maps a CAMERA_SOURCE value to a device:
//
//	""                no camera
//	"device:<n>"      OpenCV capture device n (needs the gocv build tag)
//	"file:<path>"     still image served as a stream
//	"<path>"          same as file:
func Resolve(source string) (Device, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return NoDevice{}, nil
	case strings.HasPrefix(source, "device:"):
		id, err := strconv.Atoi(strings.TrimPrefix(source, "device:"))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid camera device id in %q", source)
		}
		return openCVDevice(id)
	default:
		return NewStillDevice(strings.TrimPrefix(source, "file:")), nil
	}
}

// NoDevice is used when nothing is configured; every Open fails with ErrNoDevice.
type NoDevice struct{}

func (NoDevice) Open(context.Context, Constraints) (Stream, error) { return nil, ErrNoDevice }
func (NoDevice) Name() string                                      { return "none" }
