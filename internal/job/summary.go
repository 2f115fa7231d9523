package job

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the value distribution of one event array.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    uint32
	Max    uint32
}

// Summarize computes Summary for values. An empty array yields the zero Summary.
func Summarize(values []uint32) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	xs := make([]float64, len(values))
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	for i, v := range values {
		xs[i] = float64(v)
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	if len(xs) == 1 {
		s.Mean = xs[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	return s
}

// Histogram bins values into bins equal-width buckets spanning [lo, hi).
// It returns the bins+1 bucket edges and the per-bucket counts. Values
// outside the span are ignored.
func Histogram(values []uint32, lo, hi float64, bins int) (edges, counts []float64) {
	if bins <= 0 || hi <= lo {
		return nil, nil
	}
	edges = floats.Span(make([]float64, bins+1), lo, hi)

	xs := make([]float64, 0, len(values))
	for _, v := range values {
		x := float64(v)
		if x >= lo && x < hi {
			xs = append(xs, x)
		}
	}
	slices.Sort(xs)

	counts = stat.Histogram(nil, edges, xs, nil)
	return edges, counts
}
