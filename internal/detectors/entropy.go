package detectors

import "math"

// Entropy returns the Shannon entropy of s in bits per byte.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	var count [256]int
	for i := 0; i < len(s); i++ {
		count[s[i]]++
	}
	H := 0.0
	n := float64(len(s))
	for _, c := range count {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		H += -p * math.Log2(p)
	}
	return H
}

// normEntropy scales H into [0,1] by the highest entropy a string of n bytes
// can reach.
func normEntropy(H float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	if n > 256 {
		n = 256
	}
	return clamp01(H / math.Log2(float64(n)))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
