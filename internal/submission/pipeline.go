// Package submission turns the frozen frame into an analysis request and
// dispatches the answer to the metrics presenter and the notifier.
package submission

import (
	"context"
	"sync/atomic"
	"time"

	"go-skin-inspector/internal/capture"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/observer"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/view"
	"go-skin-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	MessageSuccess = "Analysis completed successfully!"
	MessageFailure = "Failed to analyze image. Please try again."
	MessageNoImage = "No image to analyze. Take or upload a photo first."
)

// DefaultJPEGQuality is used when Options.Quality is unset
const DefaultJPEGQuality = 92

// ErrSubmissionInFlight is returned when Submit is called during another submission
var ErrSubmissionInFlight = apperrors.NewConflictError("an analysis is already in progress", nil)

// FrameSource yields the frozen frame, or false while the session is Live
type FrameSource interface {
	FrozenFrame() (capture.Frame, bool)
}

type Analyzer interface {
	Analyze(ctx context.Context, dataURI string) (models.MetricsRecord, error)
}

type MetricsSink interface {
	ShowMetrics(rec models.MetricsRecord)
}

type Notices interface {
	Success(message string) string
	Error(message string) string
}

type Options struct {
	Quality int
	// Timeout bounds one analysis call; 0 waits as long as ctx allows
	Timeout time.Duration
}

type Pipeline struct {
	frames    FrameSource
	analyzer  Analyzer
	presenter MetricsSink
	notices   Notices
	store     *view.Store
	events    observer.Subject
	opts      Options

	inFlight atomic.Bool
}

func NewPipeline(frames FrameSource, analyzer Analyzer, presenter MetricsSink, notices Notices,
	store *view.Store, events observer.Subject, opts Options) *Pipeline {
	if events == nil {
		events = observer.Discard{}
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}
	return &Pipeline{
		frames:    frames,
		analyzer:  analyzer,
		presenter: presenter,
		notices:   notices,
		store:     store,
		events:    events,
		opts:      opts,
	}
}

// InFlight reports whether a submission is running
func (p *Pipeline) InFlight() bool { return p.inFlight.Load() }

// Submit analyses the frozen frame. It does nothing while the session is
// Live. Failures are shown as error notifications and also returned; the
// frozen frame and the metric slots are left as they were.
func (p *Pipeline) Submit(ctx context.Context) error {
	frame, ok := p.frames.FrozenFrame()
	if !ok {
		return nil
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}
	defer p.inFlight.Store(false)

	if frame.Image == nil || frame.Image.Bounds().Empty() {
		p.notices.Error(MessageNoImage)
		return apperrors.NewValidationError("no image to analyze", nil)
	}

	dataURI, err := raster.EncodeDataURI(frame.Image, p.opts.Quality)
	if err != nil {
		p.notices.Error(MessageFailure)
		return apperrors.NewInternalError("failed to encode frame", err)
	}

	p.store.Update(func(m *view.Model) { m.Loading = true })
	defer p.store.Update(func(m *view.Model) { m.Loading = false })

	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	p.events.NotifyObservers(ctx, observer.SessionEvent{
		EventType: observer.SubmissionStarted,
		Metadata:  map[string]interface{}{"bytes": len(dataURI)},
	})

	rec, err := p.analyzer.Analyze(callCtx, dataURI)
	if err != nil {
		p.notices.Error(MessageFailure)
		p.events.NotifyObservers(ctx, observer.SessionEvent{
			EventType:    observer.SubmissionFailed,
			Duration:     time.Since(start),
			ErrorMessage: err.Error(),
		})
		logger.WithError(err).Warn("Analysis failed")
		return err
	}

	p.presenter.ShowMetrics(rec)
	p.notices.Success(MessageSuccess)

	p.events.NotifyObservers(ctx, observer.SessionEvent{
		EventType: observer.SubmissionCompleted,
		Duration:  time.Since(start),
		Success:   true,
		Metadata:  map[string]interface{}{"metrics": len(rec)},
	})
	logger.WithFields(logrus.Fields{
		"duration": time.Since(start).String(),
		"metrics":  len(rec),
	}).Info("Analysis completed")
	return nil
}
