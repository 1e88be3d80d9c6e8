// Package analyzer is the reference skin analysis behind POST /analyze.
// Metrics are colour and texture heuristics on a 0-100 scale, not a diagnosis.
package analyzer

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"go-skin-inspector/internal/logger"
	"go-skin-inspector/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

var (
	ErrEmptyImage     = errors.New("image has no pixels")
	ErrAnalyzerClosed = errors.New("analyzer is closed")
)

// coreAnalyzer implements SkinAnalyzer and orchestrates all components
type coreAnalyzer struct {
	workerPool        *WorkerPool
	metricsCalculator MetricsCalculator
	opts              AnalysisOptions

	mu     sync.RWMutex
	closed bool
}

// NewSkinAnalyzer creates a new analyzer with default options
func NewSkinAnalyzer() (SkinAnalyzer, error) {
	return NewSkinAnalyzerWithOptions(DefaultOptions())
}

// NewSkinAnalyzerWithOptions creates a new analyzer with all components
func NewSkinAnalyzerWithOptions(opts AnalysisOptions) (SkinAnalyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}

	workerPool := NewWorkerPool(opts.MaxWorkers)
	workerPool.Start()

	return &coreAnalyzer{
		workerPool:        workerPool,
		metricsCalculator: NewMetricsCalculator(workerPool, opts),
		opts:              opts,
	}, nil
}

// Analyze computes the five skin metrics of img
func (ca *coreAnalyzer) Analyze(img image.Image) (models.MetricsRecord, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	ca.mu.RLock()
	defer ca.mu.RUnlock()
	if ca.closed {
		return nil, ErrAnalyzerClosed
	}

	start := time.Now()
	work := ca.downscale(img)

	// Convert to grayscale at the origin for the texture kernel
	b := work.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), work, b.Min, draw.Src)

	stats := ca.metricsCalculator.CalculatePixelStats(work)
	laplacian := ca.metricsCalculator.CalculateLaplacianVariance(gray)

	redness := 100 * stats.avgRedness
	scaling := 100 * stats.scalingRatio
	texture := 100 * laplacian / (laplacian + ca.opts.TextureScale)
	variation := math.Min(100, stats.rednessStdDev*ca.opts.ColorVariationScale)

	w := ca.opts.SeverityWeights
	severity := w[0]*redness + w[1]*scaling + w[2]*texture + w[3]*variation

	rec := models.MetricsRecord{
		models.RednessLevel:   score(redness),
		models.ScalingLevel:   score(scaling),
		models.TextureScore:   score(texture),
		models.ColorVariation: score(variation),
		models.SeverityScore:  score(severity),
	}

	logger.WithFields(logrus.Fields{
		"width":              b.Dx(),
		"height":             b.Dy(),
		"laplacian_variance": laplacian,
		"avg_luminance":      stats.avgLuminance,
		"avg_saturation":     stats.avgSaturation,
		"duration":           time.Since(start).String(),
	}).Debug("Skin analysis finished")

	return rec, nil
}

// downscale bounds the work per request; small images pass through untouched
func (ca *coreAnalyzer) downscale(img image.Image) image.Image {
	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest <= ca.opts.MaxDimension {
		return img
	}

	ratio := float64(ca.opts.MaxDimension) / float64(longest)
	w := int(math.Max(1, math.Round(float64(b.Dx())*ratio)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*ratio)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Close stops the worker pool. Analyze fails with ErrAnalyzerClosed afterwards.
func (ca *coreAnalyzer) Close() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	if !ca.closed {
		ca.closed = true
		ca.workerPool.Close()
	}
	return nil
}

// score clamps to 0-100 with two decimals
func score(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(100, v))
	return math.Round(v*100) / 100
}
