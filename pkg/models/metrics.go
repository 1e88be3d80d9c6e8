package models

// Metric names returned by the analysis service, in chart order.
const (
	RednessLevel   = "redness_level"
	ScalingLevel   = "scaling_level"
	TextureScore   = "texture_score"
	ColorVariation = "color_variation"
	SeverityScore  = "severity_score"
)

// MetricNames is the fixed set of display slots and chart series, in order.
var MetricNames = [5]string{RednessLevel, ScalingLevel, TextureScore, ColorVariation, SeverityScore}

// MetricLabels are the chart axis labels, aligned with MetricNames.
var MetricLabels = [5]string{"Redness", "Scaling", "Texture", "Color Variation", "Severity"}

// MetricsRecord maps a metric name to its 0-100 value.
// Keys outside MetricNames may be present and are ignored for display.
type MetricsRecord map[string]float64

// Value returns the metric and whether it was present.
func (m MetricsRecord) Value(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// IsKnownMetric reports whether name has a display slot.
func IsKnownMetric(name string) bool {
	for _, known := range MetricNames {
		if known == name {
			return true
		}
	}
	return false
}
