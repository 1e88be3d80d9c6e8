package observer

import (
	"context"
	"sync"
	"time"

	"go-skin-inspector/internal/logger"

	evbus "github.com/asaskevich/EventBus"
	"github.com/sirupsen/logrus"
)

const sessionTopic = "session:event"

// SessionEvent represents something that happened in a capture session
type SessionEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	Duration     time.Duration          `json:"duration"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of session event
type EventType string

const (
	CameraStarted       EventType = "camera_started"
	CameraFailed        EventType = "camera_failed"
	FrameCaptured       EventType = "frame_captured"
	PreviewResumed      EventType = "preview_resumed"
	ImageLoaded         EventType = "image_loaded"
	SubmissionStarted   EventType = "submission_started"
	SubmissionCompleted EventType = "submission_completed"
	SubmissionFailed    EventType = "submission_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SessionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer) error
	NotifyObservers(ctx context.Context, event SessionEvent)
}

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"duration":   event.Duration,
		"success":    event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case CameraFailed, SubmissionFailed:
		entry.Warn("Session action failed")
	case FrameCaptured, PreviewResumed, ImageLoaded:
		entry.Debug("Session state changed")
	default:
		entry.Info("Session event")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts session events
type MetricsObserver struct {
	mu                     sync.RWMutex
	captures               int64
	uploads                int64
	submissions            int64
	successfulSubmissions  int64
	failedSubmissions      int64
	totalSubmissionLatency time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles session events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case FrameCaptured:
		o.captures++
	case ImageLoaded:
		o.uploads++
	case SubmissionStarted:
		o.submissions++
	case SubmissionCompleted:
		o.successfulSubmissions++
		o.totalSubmissionLatency += event.Duration
	case SubmissionFailed:
		o.failedSubmissions++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgLatency := time.Duration(0)
	if o.successfulSubmissions > 0 {
		avgLatency = o.totalSubmissionLatency / time.Duration(o.successfulSubmissions)
	}

	return map[string]interface{}{
		"captures":               o.captures,
		"uploads":                o.uploads,
		"submissions":            o.submissions,
		"successful_submissions": o.successfulSubmissions,
		"failed_submissions":     o.failedSubmissions,
		"avg_submission_latency": avgLatency.String(),
	}
}

// EventPublisher fans events out to observers asynchronously over an event bus
type EventPublisher struct {
	bus evbus.Bus
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{bus: evbus.New()}
}

// Subscribe adds an observer. Events are delivered asynchronously, one at a time per observer.
func (p *EventPublisher) Subscribe(observer Observer) error {
	return p.bus.SubscribeAsync(sessionTopic, func(ctx context.Context, event SessionEvent) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"observer": observer.GetObserverName(),
					"panic":    r,
				}).Error("Observer panicked while handling event")
			}
		}()
		observer.OnEvent(ctx, event)
	}, true)
}

// NotifyObservers publishes an event; it never blocks on observers
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SessionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.bus.Publish(sessionTopic, ctx, event)
}

// Wait blocks until all published events have been handled
func (p *EventPublisher) Wait() {
	p.bus.WaitAsync()
}

// Discard is a Subject that drops every event
type Discard struct{}

func (Discard) Subscribe(Observer) error                      { return nil }
func (Discard) NotifyObservers(context.Context, SessionEvent) {}
