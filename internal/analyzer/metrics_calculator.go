package analyzer

import (
	"image"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// metricsCalculator implements MetricsCalculator, splitting images into
// horizontal strips that run on the shared worker pool
type metricsCalculator struct {
	pool      *WorkerPool
	opts      AnalysisOptions
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator(pool *WorkerPool, opts AnalysisOptions) MetricsCalculator {
	return &metricsCalculator{
		pool: pool,
		opts: opts,
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

type stripResult struct {
	redness, lum, sat float64
	scaling, pixels   int
	samples           []float64
}

// CalculatePixelStats computes colour statistics in parallel strips
func (mc *metricsCalculator) CalculatePixelStats(img image.Image) pixelStats {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Handle empty images
	if width == 0 || height == 0 {
		return pixelStats{}
	}

	step := (width*height + mc.opts.MaxSamples - 1) / mc.opts.MaxSamples
	if step < 1 {
		step = 1
	}

	numStrips := mc.pool.Workers()
	if height < numStrips {
		numStrips = height
	}
	rowsPerStrip := (height + numStrips - 1) / numStrips // ceil division

	results := make([]stripResult, numStrips)
	var wg sync.WaitGroup

	// Process image in horizontal strips for better cache locality
	for i := 0; i < numStrips; i++ {
		startY := bounds.Min.Y + i*rowsPerStrip
		endY := startY + rowsPerStrip
		if i == numStrips-1 || endY > bounds.Max.Y {
			endY = bounds.Max.Y
		}
		idx := i
		wg.Add(1)
		mc.pool.Submit(func() {
			defer wg.Done()
			results[idx] = mc.scanStrip(img, bounds, startY, endY, step)
		})
	}
	wg.Wait()

	var total stripResult
	samples := make([]float64, 0, mc.opts.MaxSamples)
	for _, r := range results {
		total.redness += r.redness
		total.lum += r.lum
		total.sat += r.sat
		total.scaling += r.scaling
		total.pixels += r.pixels
		samples = append(samples, r.samples...)
	}

	// Handle case where no pixels were processed
	if total.pixels == 0 {
		return pixelStats{}
	}

	n := float64(total.pixels)
	stats := pixelStats{
		pixels:        total.pixels,
		avgRedness:    total.redness / n,
		scalingRatio:  float64(total.scaling) / n,
		avgLuminance:  total.lum / n,
		avgSaturation: total.sat / n,
	}
	if len(samples) > 1 {
		stats.rednessStdDev = stat.PopStdDev(samples, nil)
	}
	return stats
}

func (mc *metricsCalculator) scanStrip(img image.Image, bounds image.Rectangle, startY, endY, step int) stripResult {
	var r stripResult
	width := bounds.Dx()

	for y := startY; y < endY; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rVal, gVal, bVal, _ := img.At(x, y).RGBA()
			// Convert from 16-bit to normalized float64
			rf := float64(rVal) / 65535.0
			gf := float64(gVal) / 65535.0
			bf := float64(bVal) / 65535.0

			redness := rednessIndex(rf, gf, bf)
			_, s, v := rgbToHSV(rf, gf, bf)

			r.redness += redness
			r.sat += s
			r.lum += v
			if v >= mc.opts.ScalingMinValue && s <= mc.opts.ScalingMaxSaturation {
				r.scaling++
			}
			r.pixels++

			if ((y-bounds.Min.Y)*width+(x-bounds.Min.X))%step == 0 {
				r.samples = append(r.samples, redness)
			}
		}
	}
	return r
}

// CalculateLaplacianVariance computes Laplacian variance using Gonum operations.
// gray must start at the origin.
func (mc *metricsCalculator) CalculateLaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	// Get reusable slice from pool
	data := mc.slicePool.Get().([]float64)
	defer func() { mc.slicePool.Put(data[:0]) }()

	// Ensure capacity for all Laplacian values
	if cap(data) < (width-2)*(height-2) {
		data = make([]float64, 0, (width-2)*(height-2))
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			laplacian := -4*center + top + bottom + left + right
			data = append(data, laplacian)
		}
	}

	// Use Gonum's variance calculation
	return stat.Variance(data, nil)
}

// rednessIndex is how far red dominates the other channels, in [0,1]
func rednessIndex(r, g, b float64) float64 {
	return clamp01(r - (g+b)/2)
}

// rgbToHSV provides RGB to HSV conversion
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
