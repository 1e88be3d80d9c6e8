package service

import (
	"context"
	"image"
	"image/color"
	"testing"

	"go-skin-inspector/internal/analyzer"
	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/raster"
	"go-skin-inspector/pkg/models"
)

func newTestService(t *testing.T) SkinAnalysisService {
	t.Helper()
	a, err := analyzer.NewSkinAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return NewSkinAnalysisService(a)
}

func testDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{210, 110, 100, 255})
		}
	}
	uri, err := raster.EncodeDataURI(img, 90)
	if err != nil {
		t.Fatalf("Failed to encode data URI: %v", err)
	}
	return uri
}

func TestAnalyzeDataURI_Success(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.AnalyzeDataURI(context.Background(), testDataURI(t))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for _, name := range models.MetricNames {
		if v, ok := rec[name]; !ok || v < 0 || v > 100 {
			t.Errorf("Expected %s within 0-100, got %v (present=%v)", name, v, ok)
		}
	}
	if rec[models.RednessLevel] <= 0 {
		t.Errorf("Expected some redness for a skin-toned image, got %f", rec[models.RednessLevel])
	}
}

func TestAnalyzeDataURI_Invalid(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		uri  string
	}{
		{"empty", ""},
		{"not a data uri", "https://example.com/a.jpg"},
		{"not an image", "data:text/plain;base64,aGVsbG8="},
		{"bad base64", "data:image/jpeg;base64,@@@"},
		{"not decodable", "data:image/jpeg;base64,aGVsbG8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeDataURI(context.Background(), tt.uri)
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestAnalyzeDataURI_Cancelled(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.AnalyzeDataURI(ctx, testDataURI(t)); err == nil {
		t.Error("Expected error for a cancelled context")
	}
}
