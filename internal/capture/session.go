// Package capture holds the capture state machine. A Session exclusively
// owns the camera stream, the raster surface and the capture state; every
// operation runs to completion under the session lock.
package capture

import (
	"context"
	"errors"
	"image"
	"sync"

	"go-skin-inspector/internal/camera"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/observer"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/view"

	"github.com/sirupsen/logrus"
)

// State is the capture state
type State int

const (
	Live State = iota
	Frozen
)

func (s State) String() string {
	if s == Frozen {
		return "frozen"
	}
	return "live"
}

const (
	LabelTakePhoto = "Take Photo"
	LabelRetake    = "Retake"
)

// ErrCaptureDisabled is returned by Snap after camera initialisation failed
var ErrCaptureDisabled = errors.New("capture is disabled: camera unavailable")

// Source is the part of the image source adapter a session needs
type Source interface {
	StartCamera(ctx context.Context) (camera.Stream, error)
	LoadFromFile(surface *raster.Surface, data []byte) error
	FetchURL(ctx context.Context, ref string) ([]byte, error)
}

// Frame is an immutable copy of the frozen surface handed to the submission pipeline
type Frame struct {
	Image *image.RGBA
}

type Session struct {
	mu       sync.Mutex
	source   Source
	store    *view.Store
	events   observer.Subject
	surface  *raster.Surface
	state    State
	stream   camera.Stream
	disabled bool
}

// NewSession creates a session in the Live state with an empty surface.
// A nil events subject discards events.
func NewSession(source Source, store *view.Store, events observer.Subject) *Session {
	if events == nil {
		events = observer.Discard{}
	}
	s := &Session{
		source:  source,
		store:   store,
		events:  events,
		surface: raster.NewSurface(),
		state:   Live,
	}
	s.publishLocked()
	return s
}

// Derive fills the affordances of a view model from its capture state.
// It is the Deriver installed on the view store.
func Derive(m *view.Model) {
	if m.State == "" {
		m.State = Live.String()
	}
	frozen := m.State == Frozen.String()

	if frozen {
		m.ActionLabel = LabelRetake
	} else {
		m.ActionLabel = LabelTakePhoto
	}
	m.CaptureEnabled = !m.CameraDisabled
	m.SubmitEnabled = frozen && !m.Loading
}

// Start acquires the camera. On failure the preview is replaced by an
// explanation and capture stays disabled for the life of the session;
// uploads keep working. The returned error has already been rendered.
func (s *Session) Start(ctx context.Context) error {
	stream, err := s.source.StartCamera(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.disabled = true
		message := err.Error()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		s.store.Update(func(m *view.Model) {
			m.CameraDisabled = true
			m.CameraError = message
			m.PreviewActive = false
		})
		s.events.NotifyObservers(ctx, observer.SessionEvent{
			EventType:    observer.CameraFailed,
			ErrorMessage: err.Error(),
		})
		return err
	}

	if s.state == Frozen {
		// a file arrived while the camera was starting; keep the held frame
		stream.Stop()
	}
	s.stream = stream
	s.publishLocked()
	s.events.NotifyObservers(ctx, observer.SessionEvent{EventType: observer.CameraStarted, Success: true})
	return nil
}

// Snap freezes the current camera frame while Live, or retakes while Frozen.
func (s *Session) Snap(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return s.state, ErrCaptureDisabled
	}

	if s.state == Frozen {
		return s.retakeLocked(ctx), nil
	}

	if s.stream != nil {
		frame, err := s.stream.Frame()
		if err != nil {
			logger.WithError(err).Warn("Camera frame unavailable, freezing previous surface")
		} else {
			s.surface.Draw(frame)
		}
		s.stream.Stop()
	}
	s.state = Frozen
	s.publishLocked()
	s.events.NotifyObservers(ctx, observer.SessionEvent{
		EventType: observer.FrameCaptured,
		Success:   true,
		Metadata:  map[string]interface{}{"width": s.surface.Width(), "height": s.surface.Height()},
	})
	return s.state, nil
}

func (s *Session) retakeLocked(ctx context.Context) State {
	s.state = Live
	if s.stream == nil {
		s.publishLocked()
		return s.state
	}

	if err := s.stream.Resume(ctx); err != nil {
		logger.WithError(err).Warn("Could not resume camera stream")
		s.publishLocked()
		return s.state
	}
	s.publishLocked()
	s.events.NotifyObservers(ctx, observer.SessionEvent{EventType: observer.PreviewResumed, Success: true})
	return s.state
}

// LoadFile decodes an uploaded image into the surface and freezes it,
// whatever the current state.
func (s *Session) LoadFile(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.source.LoadFromFile(s.surface, data); err != nil {
		return err
	}
	s.fileLoadedLocked(ctx)
	return nil
}

// LoadURL fetches a remote image outside the lock, then loads it like an upload
func (s *Session) LoadURL(ctx context.Context, ref string) error {
	data, err := s.source.FetchURL(ctx, ref)
	if err != nil {
		return err
	}
	return s.LoadFile(ctx, data)
}

func (s *Session) fileLoadedLocked(ctx context.Context) {
	if s.stream != nil && s.stream.Active() {
		s.stream.Stop()
	}
	s.state = Frozen
	s.publishLocked()
	s.events.NotifyObservers(ctx, observer.SessionEvent{
		EventType: observer.ImageLoaded,
		Success:   true,
		Metadata:  map[string]interface{}{"width": s.surface.Width(), "height": s.surface.Height()},
	})
}

// State returns the current capture state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SurfaceSize returns the current surface dimensions
func (s *Session) SurfaceSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Width(), s.surface.Height()
}

// FrozenFrame returns a copy of the held frame, or false while Live.
// The copy may be empty when a snap happened without a camera frame.
func (s *Session) FrozenFrame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Frozen {
		return Frame{}, false
	}
	return Frame{Image: s.surface.Snapshot()}, true
}

// Preview returns what the page should show: the live frame while Live,
// the held surface while Frozen. It returns false when there is nothing to show.
func (s *Session) Preview() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Frozen {
		if s.surface.Empty() {
			return nil, false
		}
		return s.surface.Snapshot(), true
	}
	if s.stream == nil || !s.stream.Active() {
		return nil, false
	}
	frame, err := s.stream.Frame()
	if err != nil {
		return nil, false
	}
	return frame, true
}

// Close releases the camera
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.Stop()
	}
}

func (s *Session) publishLocked() {
	previewActive := s.state == Live && s.stream != nil && s.stream.Active()
	width, height := s.surface.Width(), s.surface.Height()
	state := s.state.String()

	s.store.Update(func(m *view.Model) {
		m.State = state
		m.PreviewActive = previewActive
		m.Surface = view.SurfaceInfo{Width: width, Height: height}
	})

	logger.WithFields(logrus.Fields{
		"state":          state,
		"preview_active": previewActive,
		"width":          width,
		"height":         height,
	}).Debug("Capture state published")
}
