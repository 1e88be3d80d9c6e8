package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-skin-inspector/internal/analyzer"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/internal/source"
	"go-skin-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

// SkinAnalysisService serves the reference /analyze endpoint
type SkinAnalysisService interface {
	// AnalyzeDataURI decodes a base64 image data URI and returns its metrics
	AnalyzeDataURI(ctx context.Context, dataURI string) (models.MetricsRecord, error)

	// Common validation
	ValidateDataURI(dataURI string) error
}

// skinAnalysisService implements SkinAnalysisService with a single analyzer
type skinAnalysisService struct {
	analyzer analyzer.SkinAnalyzer
}

// NewSkinAnalysisService creates a new skin analysis service
func NewSkinAnalysisService(skinAnalyzer analyzer.SkinAnalyzer) SkinAnalysisService {
	return &skinAnalysisService{analyzer: skinAnalyzer}
}

func (s *skinAnalysisService) AnalyzeDataURI(ctx context.Context, dataURI string) (models.MetricsRecord, error) {
	if err := s.ValidateDataURI(dataURI); err != nil {
		return nil, err
	}

	data, mediaType, err := raster.DecodeDataURI(dataURI)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image data URI", err)
	}

	img, err := source.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	// Decoding can take a while on large uploads; honour cancellation before the heavy part
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInternalError("analysis cancelled", err)
	}

	start := time.Now()
	rec, err := s.analyzer.Analyze(img)
	if err != nil {
		if errors.Is(err, analyzer.ErrEmptyImage) {
			return nil, apperrors.NewValidationError("image has no pixels", err)
		}
		return nil, apperrors.NewInternalError("analysis failed", err)
	}

	logger.WithFields(logrus.Fields{
		"media_type":     mediaType,
		"width":          img.Bounds().Dx(),
		"height":         img.Bounds().Dy(),
		"analysis_ms":    time.Since(start).Milliseconds(),
		"severity_score": rec[models.SeverityScore],
	}).Debug("Data URI analysed")
	return rec, nil
}

// ValidateDataURI checks the shape of the payload before decoding
func (s *skinAnalysisService) ValidateDataURI(dataURI string) error {
	if strings.TrimSpace(dataURI) == "" {
		return apperrors.NewValidationError("image cannot be empty", nil)
	}
	if !strings.HasPrefix(dataURI, "data:image/") {
		return apperrors.NewValidationError("image must be an image data URI", nil)
	}
	return nil
}
