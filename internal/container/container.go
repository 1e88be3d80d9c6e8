package container

import (
	"context"
	"fmt"
	"net/http"

	"go-skin-inspector/internal/analyzer"
	"go-skin-inspector/internal/camera"
	"go-skin-inspector/internal/capture"
	"go-skin-inspector/internal/config"
	"go-skin-inspector/internal/factory"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/notify"
	"go-skin-inspector/internal/observer"
	"go-skin-inspector/internal/presentation"
	"go-skin-inspector/internal/service"
	"go-skin-inspector/internal/source"
	"go-skin-inspector/internal/submission"
	"go-skin-inspector/internal/transport"
	"go-skin-inspector/internal/view"
)

// Container holds the capture console dependencies
type Container struct {
	config   *config.Config
	device   camera.Device
	store    *view.Store
	session  *capture.Session
	notifier *notify.Notifier
	pipeline *submission.Pipeline
	events   *observer.EventPublisher
	stats    *observer.MetricsObserver
	hub      *transport.Hub
	handler  http.Handler
}

// NewContainer builds the console dependency graph. Extra renderers (for
// example a log renderer) receive every model change next to the websocket hub.
func NewContainer(cfg *config.Config, renderers ...view.Renderer) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	device, err := components.CameraFactory.CreateDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to create camera device: %w", err)
	}
	fetcher, err := components.StorageFactory.CreateRouter()
	if err != nil {
		return nil, fmt.Errorf("failed to create image storage: %w", err)
	}
	serverOnly, err := cfg.ServerOnlyHostRegexp()
	if err != nil {
		return nil, err
	}

	events := observer.NewEventPublisher()
	stats := observer.NewMetricsObserver()
	for _, o := range []observer.Observer{observer.NewLoggingObserver(logger.Logger), stats} {
		if err := events.Subscribe(o); err != nil {
			return nil, fmt.Errorf("failed to subscribe %s: %w", o.GetObserverName(), err)
		}
	}

	hub := transport.NewHub(cfg.AllowedOrigins)
	store := view.NewStore(capture.Derive, append([]view.Renderer{hub}, renderers...)...)

	adapter := source.NewAdapter(source.Options{
		Device: device,
		Constraints: camera.Constraints{
			Facing: camera.FacingEnvironment,
			Width:  cfg.CameraWidth,
			Height: cfg.CameraHeight,
		},
		PublicHost: cfg.PublicHost,
		ServerOnly: serverOnly,
		Fetcher:    fetcher,
	})
	session := capture.NewSession(adapter, store, events)
	notifier := notify.NewNotifier(store, cfg.NotificationLifetime)
	presenter := presentation.NewMetricsPresenter(store)
	pipeline := submission.NewPipeline(session, submission.NewClient(cfg.AnalyzeURL), presenter,
		notifier, store, events, submission.Options{Quality: cfg.JPEGQuality, Timeout: cfg.SubmitTimeout})

	handler := transport.NewConsoleHandler(transport.ConsoleDeps{
		Session:  session,
		Pipeline: pipeline,
		Store:    store,
		Notifier: notifier,
		Hub:      hub,
		Stats:    stats,
	}, cfg)

	return &Container{
		config:   cfg,
		device:   device,
		store:    store,
		session:  session,
		notifier: notifier,
		pipeline: pipeline,
		events:   events,
		stats:    stats,
		hub:      hub,
		handler:  handler,
	}, nil
}

// StartCamera acquires the camera. A failure is already shown on the
// console, so callers only log it.
func (c *Container) StartCamera(ctx context.Context) error {
	return c.session.Start(ctx)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Session() *capture.Session        { return c.session }
func (c *Container) Pipeline() *submission.Pipeline   { return c.pipeline }
func (c *Container) Store() *view.Store               { return c.store }
func (c *Container) Stats() *observer.MetricsObserver { return c.stats }

// Close releases the camera, stops banner timers, disconnects viewers and
// drains pending session events.
func (c *Container) Close() {
	c.session.Close()
	c.notifier.Close()
	c.hub.Close()
	c.events.Wait()
}

// AnalyzerContainer holds the reference analysis service dependencies
type AnalyzerContainer struct {
	config   *config.Config
	analyzer analyzer.SkinAnalyzer
	handler  http.Handler
}

// NewAnalyzerContainer builds the reference /analyze service
func NewAnalyzerContainer(cfg *config.Config) (*AnalyzerContainer, error) {
	skinAnalyzer, err := analyzer.NewSkinAnalyzer()
	if err != nil {
		return nil, err
	}
	svc := service.NewSkinAnalysisService(skinAnalyzer)

	return &AnalyzerContainer{
		config:   cfg,
		analyzer: skinAnalyzer,
		handler:  transport.NewAnalyzerHandler(svc, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *AnalyzerContainer) Handler() http.Handler {
	return c.handler
}

func (c *AnalyzerContainer) Close() error {
	return c.analyzer.Close()
}
