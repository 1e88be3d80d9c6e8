package analyzer

// pixelStats holds internal calculation results, all normalised to [0,1]
type pixelStats struct {
	pixels        int
	avgRedness    float64
	rednessStdDev float64
	scalingRatio  float64
	avgLuminance  float64
	avgSaturation float64
}
