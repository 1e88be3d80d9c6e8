package analyzer

import (
	"image"

	"go-skin-inspector/pkg/models"
)

// SkinAnalyzer turns a photo of skin into a metrics record
type SkinAnalyzer interface {
	Analyze(img image.Image) (models.MetricsRecord, error)

	// Lifecycle management
	Close() error
}

// MetricsCalculator handles the pixel-level statistics behind the metrics
type MetricsCalculator interface {
	CalculatePixelStats(img image.Image) pixelStats
	CalculateLaplacianVariance(gray *image.Gray) float64
}
