//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

func openCVDevice(id int) (Device, error) {
	return &OpenCVDevice{id: id}, nil
}

// OpenCVDevice captures from a local webcam through OpenCV.
type OpenCVDevice struct {
	id int
}

func (d *OpenCVDevice) Name() string {
	return fmt.Sprintf("opencv:%d", d.id)
}

func (d *OpenCVDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	s := &openCVStream{id: d.id, constraints: c}
	if err := s.Resume(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type openCVStream struct {
	mu          sync.Mutex
	id          int
	constraints Constraints
	capture     *gocv.VideoCapture
}

func (s *openCVStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil, ErrStreamStopped
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("read frame from device %d failed", s.id)
	}
	return mat.ToImage()
}

func (s *openCVStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture != nil {
		s.capture.Close()
		s.capture = nil
	}
}

func (s *openCVStream) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture != nil {
		return nil
	}

	capture, err := gocv.VideoCaptureDevice(s.id)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrNoDevice, s.id, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d could not be opened", ErrPermissionDenied, s.id)
	}
	// OpenCV has no facing mode; the device id picks the camera
	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.constraints.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.constraints.Height))
	s.capture = capture
	return nil
}

func (s *openCVStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture != nil
}
