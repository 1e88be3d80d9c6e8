package transport

import (
	_ "embed"
	"errors"
	"io"
	"net/http"

	"go-skin-inspector/internal/capture"
	"go-skin-inspector/internal/config"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/notify"
	"go-skin-inspector/internal/observer"
	"go-skin-inspector/internal/presentation"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/submission"
	"go-skin-inspector/internal/view"
	"go-skin-inspector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"
)

//go:embed web/index.html
var indexHTML []byte

const (
	MessageUploadFailed = "Could not load that image. Please choose a JPEG or PNG photo."
	MessageURLFailed    = "Could not load the image from that address."
)

// ConsoleDeps are the session components the console routes drive
type ConsoleDeps struct {
	Session  *capture.Session
	Pipeline *submission.Pipeline
	Store    *view.Store
	Notifier *notify.Notifier
	Hub      *Hub
	Stats    *observer.MetricsObserver
}

type consoleHandler struct {
	deps ConsoleDeps
	cfg  *config.Config
}

// NewConsoleHandler serves the capture console page, its websocket and its actions
func NewConsoleHandler(deps ConsoleDeps, cfg *config.Config) http.Handler {
	h := &consoleHandler{deps: deps, cfg: cfg}
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", h.index)
	r.GET("/health", healthCheck)
	r.GET("/ws", deps.Hub.ServeWS)

	api := r.Group("/api")
	api.GET("/state", h.state)
	api.POST("/snap", h.snap)
	api.POST("/submit", h.submit)
	api.POST("/upload", h.upload)
	api.POST("/load-url", h.loadURL)
	api.GET("/preview.jpg", h.preview)
	api.GET("/chart.png", h.chart)
	api.GET("/stats", h.stats)

	return r
}

func (h *consoleHandler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *consoleHandler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Store.Snapshot())
}

func (h *consoleHandler) snap(c *gin.Context) {
	state, err := h.deps.Session.Snap(c.Request.Context())
	if err != nil {
		if errors.Is(err, capture.ErrCaptureDisabled) {
			err = apperrors.NewConflictError("capture is disabled", err)
		}
		respondAppError(c, "snap failed", err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{State: state.String()})
}

func (h *consoleHandler) submit(c *gin.Context) {
	if h.deps.Session.State() != capture.Frozen {
		c.JSON(http.StatusOK, models.ActionResponse{
			State:   capture.Live.String(),
			Message: "nothing to submit",
		})
		return
	}

	if err := h.deps.Pipeline.Submit(c.Request.Context()); err != nil {
		respondAppError(c, "submission failed", err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{
		State:   h.deps.Session.State().String(),
		Message: submission.MessageSuccess,
	})
}

func (h *consoleHandler) upload(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		h.deps.Notifier.Error(MessageUploadFailed)
		respondError(c, determineUploadStatus(err), "invalid upload", err)
		return
	}

	if err := h.deps.Session.LoadFile(c.Request.Context(), data); err != nil {
		h.deps.Notifier.Error(MessageUploadFailed)
		respondAppError(c, "invalid upload", err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{State: h.deps.Session.State().String()})
}

// readUpload accepts a multipart "file" field or a raw image body
func readUpload(c *gin.Context) ([]byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}

func determineUploadStatus(err error) int {
	code := determineStatusCode(err)
	if code == http.StatusInternalServerError {
		return http.StatusBadRequest
	}
	return code
}

func (h *consoleHandler) loadURL(c *gin.Context) {
	var req models.LoadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, determineUploadStatus(err), "invalid request format", err)
		return
	}

	if err := h.deps.Session.LoadURL(c.Request.Context(), req.URL); err != nil {
		h.deps.Notifier.Error(MessageURLFailed)
		respondAppError(c, "could not load image", err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{State: h.deps.Session.State().String()})
}

func (h *consoleHandler) preview(c *gin.Context) {
	img, ok := h.deps.Session.Preview()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	data, err := raster.EncodeJPEG(img, h.cfg.JPEGQuality)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "preview failed", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *consoleHandler) chart(c *gin.Context) {
	data, err := presentation.RenderChartPNG(h.deps.Store.Snapshot().Chart, 6*vg.Inch, 3*vg.Inch)
	if errors.Is(err, presentation.ErrNoChart) {
		respondError(c, http.StatusNotFound, "no metrics yet", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "chart failed", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

func (h *consoleHandler) stats(c *gin.Context) {
	stats := gin.H{
		"viewers":    h.deps.Hub.Clients(),
		"in_flight":  h.deps.Pipeline.InFlight(),
		"state":      h.deps.Session.State().String(),
		"analyze_at": h.cfg.AnalyzeURL,
	}
	if h.deps.Stats != nil {
		for k, v := range h.deps.Stats.GetMetrics() {
			stats[k] = v
		}
	}
	logger.WithFields(logrus.Fields(stats)).Debug("Stats requested")
	c.JSON(http.StatusOK, stats)
}
