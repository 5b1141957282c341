package indicator

// Tail returns the last n values, or all of them when fewer exist.
func Tail(values []float64, n int) []float64 {
	if n <= 0 {
		return values[:0]
	}
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// Mean returns the arithmetic mean, or 0 for an empty window.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Highest returns the largest value and false for an empty window.
func Highest(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	hi := values[0]
	for _, v := range values[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi, true
}

// Lowest returns the smallest value and false for an empty window.
func Lowest(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	lo := values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo, true
}
