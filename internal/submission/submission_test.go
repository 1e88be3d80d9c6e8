package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go-skin-inspector/internal/capture"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/notify"
	"go-skin-inspector/internal/presentation"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/source"
	"go-skin-inspector/internal/view"
	"go-skin-inspector/pkg/models"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{200, 110, 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

type harness struct {
	session  *capture.Session
	store    *view.Store
	pipeline *Pipeline
	notifier *notify.Notifier
}

func newHarness(t *testing.T, url string) *harness {
	t.Helper()
	store := view.NewStore(capture.Derive)
	session := capture.NewSession(source.NewAdapter(source.Options{PublicHost: "localhost"}), store, nil)
	notifier := notify.NewNotifier(store, time.Minute)
	t.Cleanup(notifier.Close)

	pipeline := NewPipeline(session, NewClient(url), presentation.NewMetricsPresenter(store),
		notifier, store, nil, Options{Quality: 80, Timeout: 5 * time.Second})
	return &harness{session: session, store: store, pipeline: pipeline, notifier: notifier}
}

func (h *harness) freeze(t *testing.T) {
	t.Helper()
	if err := h.session.LoadFile(context.Background(), encodePNG(t, 40, 30)); err != nil {
		t.Fatalf("Failed to load test image: %v", err)
	}
}

func TestSubmit_Success(t *testing.T) {
	var h *harness
	var sawLoading atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}
		var req models.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Expected JSON body, got: %v", err)
		}
		if !strings.HasPrefix(req.Image, raster.JPEGDataURIPrefix) {
			t.Errorf("Expected JPEG data URI, got %.30s", req.Image)
		}
		m := h.store.Snapshot()
		sawLoading.Store(m.Loading && !m.SubmitEnabled)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"redness_level":42,"scaling_level":10,"texture_score":5,"color_variation":7,"severity_score":20,"model":"v2"}`))
	}))
	defer server.Close()

	h = newHarness(t, server.URL)
	h.freeze(t)

	if err := h.pipeline.Submit(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !sawLoading.Load() {
		t.Error("Expected loading indicator with submit disabled during the call")
	}

	m := h.store.Snapshot()
	if m.Loading {
		t.Error("Expected loading cleared after the call")
	}
	want := map[string]string{
		"redness_level": "42", "scaling_level": "10", "texture_score": "5",
		"color_variation": "7", "severity_score": "20",
	}
	for name, text := range want {
		if m.Slots[name] != text {
			t.Errorf("Expected %s=%s, got %q", name, text, m.Slots[name])
		}
	}
	if m.Chart == nil || m.Chart.Revision != 1 {
		t.Fatalf("Expected a first chart, got %+v", m.Chart)
	}
	if len(m.Notifications) != 1 || m.Notifications[0].Kind != view.KindSuccess {
		t.Errorf("Expected one success notification, got %+v", m.Notifications)
	}
	if h.session.State() != capture.Frozen {
		t.Error("Expected frame to stay frozen")
	}
}

func TestSubmit_ServerErrorKeepsSlots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.store.Update(func(m *view.Model) { m.Slots["redness_level"] = "11" })
	h.freeze(t)

	err := h.pipeline.Submit(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailed) {
		t.Fatalf("Expected analysis_failed, got %v", err)
	}

	m := h.store.Snapshot()
	if m.Slots["redness_level"] != "11" || m.Chart != nil {
		t.Errorf("Expected slots and chart untouched, got %+v", m)
	}
	if len(m.Notifications) != 1 || m.Notifications[0].Kind != view.KindError {
		t.Errorf("Expected one error notification, got %+v", m.Notifications)
	}
	if m.Notifications[0].Message != MessageFailure {
		t.Errorf("Expected %q, got %q", MessageFailure, m.Notifications[0].Message)
	}
	if m.Loading || !m.SubmitEnabled {
		t.Errorf("Expected loading cleared and submit re-enabled, got %+v", m)
	}
	if _, ok := h.session.FrozenFrame(); !ok {
		t.Error("Expected frozen frame to be retained for resubmission")
	}
}

func TestSubmit_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.freeze(t)

	err := h.pipeline.Submit(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailed) {
		t.Errorf("Expected analysis_failed, got %v", err)
	}
}

func TestSubmit_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	h := newHarness(t, url)
	h.freeze(t)

	err := h.pipeline.Submit(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailed) {
		t.Errorf("Expected analysis_failed, got %v", err)
	}
	if h.store.Snapshot().Loading {
		t.Error("Expected loading cleared after transport failure")
	}
}

func TestSubmit_LiveIsNoop(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	if err := h.pipeline.Submit(context.Background()); err != nil {
		t.Errorf("Expected silent no-op, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no network call while Live, got %d", calls.Load())
	}
	if len(h.store.Snapshot().Notifications) != 0 {
		t.Error("Expected no notification while Live")
	}
}

func TestSubmit_EmptyFrame(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	// snap with no camera freezes an empty surface
	if _, err := h.session.Snap(context.Background()); err != nil {
		t.Fatalf("Expected snap to succeed, got: %v", err)
	}

	err := h.pipeline.Submit(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("Expected no network call for an empty frame")
	}
	notes := h.store.Snapshot().Notifications
	if len(notes) != 1 || notes[0].Message != MessageNoImage {
		t.Errorf("Expected no-image notification, got %+v", notes)
	}
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Write([]byte(`{"redness_level":1}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.freeze(t)

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Submit(context.Background()) }()
	<-entered

	if !h.pipeline.InFlight() {
		t.Error("Expected a submission in flight")
	}
	if err := h.pipeline.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("Expected ErrSubmissionInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Expected first submission to succeed, got: %v", err)
	}
	if h.pipeline.InFlight() {
		t.Error("Expected in-flight flag cleared")
	}
}

func TestSubmit_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	h := newHarness(t, server.URL)
	h.pipeline.opts.Timeout = 20 * time.Millisecond
	h.freeze(t)

	err := h.pipeline.Submit(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailed) {
		t.Errorf("Expected analysis_failed on timeout, got %v", err)
	}
}

func TestDecodeMetrics_KeepsNumbers(t *testing.T) {
	rec, err := decodeMetrics([]byte(`{"redness_level": 12.5, "label": "mild", "severity_score": 0}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(rec) != 2 || rec["redness_level"] != 12.5 {
		t.Errorf("Expected two numeric metrics, got %v", rec)
	}

	if _, err := decodeMetrics([]byte(`[1,2,3]`)); err == nil {
		t.Error("Expected error for a JSON array")
	}
	if _, err := decodeMetrics([]byte(`null`)); err == nil {
		t.Error("Expected error for null")
	}
}
