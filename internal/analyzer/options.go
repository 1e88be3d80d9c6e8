package analyzer

import "fmt"

// AnalysisOptions tunes the heuristics of the reference analyzer
type AnalysisOptions struct {
	// Images are downscaled so the longer side is at most MaxDimension
	MaxDimension int
	// Upper bound on per-pixel samples kept for the colour variation spread
	MaxSamples int

	// A pixel counts as scaling when it is at least this bright and at most this saturated
	ScalingMinValue      float64
	ScalingMaxSaturation float64

	// Laplacian variance that maps to a texture score of 50
	TextureScale float64
	// Multiplier from redness standard deviation to colour variation
	ColorVariationScale float64

	// Severity weights for redness, scaling, texture and colour variation
	SeverityWeights [4]float64

	MaxWorkers int
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		MaxDimension:         1024,
		MaxSamples:           65536,
		ScalingMinValue:      0.8,
		ScalingMaxSaturation: 0.15,
		TextureScale:         500,
		ColorVariationScale:  200,
		SeverityWeights:      [4]float64{0.4, 0.25, 0.2, 0.15},
		MaxWorkers:           0, // Use default CPU count
	}
}

// WithWorkers sets the worker pool size
func (opts AnalysisOptions) WithWorkers(n int) AnalysisOptions {
	opts.MaxWorkers = n
	return opts
}

// WithScalingThresholds changes what counts as a scaling pixel
func (opts AnalysisOptions) WithScalingThresholds(minValue, maxSaturation float64) AnalysisOptions {
	opts.ScalingMinValue = minValue
	opts.ScalingMaxSaturation = maxSaturation
	return opts
}

// Validate rejects option sets that would produce metrics outside 0-100
func (opts AnalysisOptions) Validate() error {
	if opts.MaxDimension <= 0 {
		return fmt.Errorf("max dimension must be positive, got %d", opts.MaxDimension)
	}
	if opts.MaxSamples <= 0 {
		return fmt.Errorf("max samples must be positive, got %d", opts.MaxSamples)
	}
	if opts.ScalingMinValue < 0 || opts.ScalingMinValue > 1 {
		return fmt.Errorf("scaling min value must be within [0,1], got %f", opts.ScalingMinValue)
	}
	if opts.ScalingMaxSaturation < 0 || opts.ScalingMaxSaturation > 1 {
		return fmt.Errorf("scaling max saturation must be within [0,1], got %f", opts.ScalingMaxSaturation)
	}
	if opts.TextureScale <= 0 {
		return fmt.Errorf("texture scale must be positive, got %f", opts.TextureScale)
	}
	if opts.ColorVariationScale <= 0 {
		return fmt.Errorf("colour variation scale must be positive, got %f", opts.ColorVariationScale)
	}
	var sum float64
	for _, w := range opts.SeverityWeights {
		if w < 0 {
			return fmt.Errorf("severity weights must not be negative")
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("severity weights must sum to 1, got %f", sum)
	}
	return nil
}
