package transport

import (
	"context"
	"net/http"
	"time"

	"go-skin-inspector/internal/config"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/service"
	"go-skin-inspector/pkg/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewAnalyzerHandler serves the reference POST /analyze endpoint
func NewAnalyzerHandler(svc service.SkinAnalysisService, cfg *config.Config) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors.New(corsConfig(cfg.AllowedOrigins)),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.POST("/analyze", analyzeImage(svc, cfg))

	return r
}

func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			conf.AllowAllOrigins = true
			return conf
		}
	}
	conf.AllowOrigins = origins
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
	}
	return conf
}

func analyzeImage(svc service.SkinAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			code := determineStatusCode(err)
			if code == http.StatusInternalServerError {
				code = http.StatusBadRequest
			}
			respondError(c, code, "invalid request format", err)
			return
		}

		rec, err := svc.AnalyzeDataURI(ctx, req.Image)
		if err != nil {
			respondAppError(c, "analysis failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"redness_level":      rec[models.RednessLevel],
			"severity_score":     rec[models.SeverityScore],
			"ip":                 c.ClientIP(),
		}).Info("Skin analysis completed successfully")

		c.JSON(http.StatusOK, rec)
	}
}
