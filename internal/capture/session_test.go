package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"testing"

	"go-skin-inspector/internal/camera"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/source"
	"go-skin-inspector/internal/view"
)

func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{210, 120, 110, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(width, height)); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestSession(t *testing.T, opts source.Options) (*Session, *view.Store) {
	t.Helper()
	store := view.NewStore(Derive)
	return NewSession(source.NewAdapter(opts), store, nil), store
}

func withCamera() source.Options {
	return source.Options{
		Device:      camera.NewStillDeviceFromImage(createTestImage(64, 36)),
		Constraints: source.DefaultConstraints(),
		PublicHost:  "localhost",
	}
}

func TestNewSession_StartsLive(t *testing.T) {
	session, store := newTestSession(t, withCamera())

	if session.State() != Live {
		t.Errorf("Expected Live, got %s", session.State())
	}
	m := store.Snapshot()
	if m.ActionLabel != LabelTakePhoto {
		t.Errorf("Expected %q, got %q", LabelTakePhoto, m.ActionLabel)
	}
	if m.SubmitEnabled {
		t.Error("Expected submit disabled while Live")
	}
	if _, ok := session.FrozenFrame(); ok {
		t.Error("Expected no frozen frame while Live")
	}
}

func TestSnap_LiveFreezesCameraFrame(t *testing.T) {
	session, store := newTestSession(t, withCamera())
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Expected camera to start, got: %v", err)
	}
	if !store.Snapshot().PreviewActive {
		t.Error("Expected preview active after start")
	}

	state, err := session.Snap(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != Frozen {
		t.Fatalf("Expected Frozen, got %s", state)
	}

	// still device scales to the ideal 1280x720 constraint
	w, h := session.SurfaceSize()
	if w != 1280 || h != 720 {
		t.Errorf("Expected 1280x720 surface, got %dx%d", w, h)
	}

	m := store.Snapshot()
	if m.ActionLabel != LabelRetake || !m.SubmitEnabled || m.PreviewActive {
		t.Errorf("Expected Retake/submit enabled/preview stopped, got %+v", m)
	}
	if _, ok := session.FrozenFrame(); !ok {
		t.Error("Expected a frozen frame")
	}
}

func TestSnap_RetakeResumesStream(t *testing.T) {
	session, store := newTestSession(t, withCamera())
	session.Start(context.Background())
	session.Snap(context.Background())

	state, err := session.Snap(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != Live {
		t.Fatalf("Expected Live after retake, got %s", state)
	}
	m := store.Snapshot()
	if !m.PreviewActive {
		t.Error("Expected preview to resume")
	}
	if m.ActionLabel != LabelTakePhoto || m.SubmitEnabled {
		t.Errorf("Expected Take Photo with submit disabled, got %+v", m)
	}
	if _, ok := session.Preview(); !ok {
		t.Error("Expected live preview frame")
	}
}

func TestSnap_RetakeWithoutStreamReportsLive(t *testing.T) {
	session, store := newTestSession(t, withCamera())

	// camera never started: upload then retake
	if err := session.LoadFile(context.Background(), encodePNG(t, 10, 10)); err != nil {
		t.Fatalf("Expected upload to succeed, got: %v", err)
	}
	state, err := session.Snap(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != Live {
		t.Errorf("Expected Live, got %s", state)
	}
	if store.Snapshot().PreviewActive {
		t.Error("Expected blank preview without a stream")
	}
	if _, ok := session.Preview(); ok {
		t.Error("Expected nothing to preview")
	}
}

func TestSnap_LiveAlwaysFreezes(t *testing.T) {
	session, _ := newTestSession(t, withCamera())
	session.Start(context.Background())

	for i := 0; i < 6; i++ {
		before := session.State()
		after, err := session.Snap(context.Background())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if before == Live && after != Frozen {
			t.Fatalf("Expected Live to become Frozen, got %s", after)
		}
		if before == Frozen && after != Live {
			t.Fatalf("Expected Frozen to become Live, got %s", after)
		}
	}
}

func TestLoadFile_FreezesFromAnyState(t *testing.T) {
	session, _ := newTestSession(t, withCamera())
	session.Start(context.Background())

	if err := session.LoadFile(context.Background(), encodePNG(t, 33, 17)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if session.State() != Frozen {
		t.Fatalf("Expected Frozen after upload, got %s", session.State())
	}
	if w, h := session.SurfaceSize(); w != 33 || h != 17 {
		t.Errorf("Expected 33x17, got %dx%d", w, h)
	}

	// uploading again while Frozen replaces the surface
	if err := session.LoadFile(context.Background(), encodePNG(t, 8, 5)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if w, h := session.SurfaceSize(); w != 8 || h != 5 || session.State() != Frozen {
		t.Errorf("Expected Frozen 8x5, got %s %dx%d", session.State(), w, h)
	}
}

func TestLoadFile_MalformedKeepsState(t *testing.T) {
	session, _ := newTestSession(t, withCamera())

	err := session.LoadFile(context.Background(), []byte("nope"))
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if session.State() != Live {
		t.Errorf("Expected Live after failed upload, got %s", session.State())
	}
}

func TestStart_DeviceUnavailableDisablesCapture(t *testing.T) {
	session, store := newTestSession(t, source.Options{Device: camera.NoDevice{}, PublicHost: "localhost"})

	err := session.Start(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeDeviceUnavailable) {
		t.Fatalf("Expected device_unavailable, got %v", err)
	}

	m := store.Snapshot()
	if !m.CameraDisabled || m.CameraError == "" {
		t.Errorf("Expected disabled camera with explanation, got %+v", m)
	}
	if m.CaptureEnabled || m.SubmitEnabled {
		t.Errorf("Expected capture and submit disabled, got %+v", m)
	}

	if _, err := session.Snap(context.Background()); !errors.Is(err, ErrCaptureDisabled) {
		t.Errorf("Expected ErrCaptureDisabled, got %v", err)
	}

	// uploads still work and enable submission
	if err := session.LoadFile(context.Background(), encodePNG(t, 4, 4)); err != nil {
		t.Fatalf("Expected upload to work after camera failure, got: %v", err)
	}
	m = store.Snapshot()
	if !m.SubmitEnabled || m.CaptureEnabled {
		t.Errorf("Expected submit enabled and capture still disabled, got %+v", m)
	}
}

func TestStart_EnvironmentUnsupported(t *testing.T) {
	session, store := newTestSession(t, source.Options{
		Device:     camera.NewStillDeviceFromImage(createTestImage(4, 4)),
		PublicHost: "skin-demo.onrender.com",
		ServerOnly: regexp.MustCompile(`\.onrender\.com$`),
	})

	err := session.Start(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeEnvironmentUnsupported) {
		t.Fatalf("Expected environment_unsupported, got %v", err)
	}
	if store.Snapshot().CameraError == "" {
		t.Error("Expected camera panel explanation")
	}
}

func TestSnap_LiveWithoutStreamFreezes(t *testing.T) {
	session, _ := newTestSession(t, withCamera())

	state, err := session.Snap(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != Frozen {
		t.Errorf("Expected Frozen, got %s", state)
	}
	frame, ok := session.FrozenFrame()
	if !ok {
		t.Fatal("Expected frozen frame")
	}
	if !frame.Image.Bounds().Empty() {
		t.Errorf("Expected empty surface, got %v", frame.Image.Bounds())
	}
}

func TestClose_StopsStream(t *testing.T) {
	session, _ := newTestSession(t, withCamera())
	session.Start(context.Background())
	session.Close()

	if _, ok := session.Preview(); ok {
		t.Error("Expected no preview after close")
	}
}
