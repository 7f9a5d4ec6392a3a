package elevation

import "gonum.org/v1/gonum/stat"

// smooth returns the centered moving average of v over radius neighbours on
// each side. Windows are cut short at both ends of the track.
func smooth(v []float64, radius int) []float64 {
	out := make([]float64, len(v))
	if radius <= 0 {
		copy(out, v)
		return out
	}
	for i := range v {
		lo := max(0, i-radius)
		hi := min(len(v), i+radius+1)
		out[i] = stat.Mean(v[lo:hi], nil)
	}
	return out
}
