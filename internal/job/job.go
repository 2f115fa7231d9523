// Package job synthesizes the per-pulse detector event arrays.
package job

// Realistic-mode generation parameters.
const (
	// TOFNorm draws are averaged per time-of-flight value, giving an
	// approximately normal distribution centred on TOFMax/2.
	TOFNorm = 10
	// TOFMax is the exclusive upper bound of a single time-of-flight draw.
	TOFMax = 160000

	// Pixel ids of the two detector banks, [min, max).
	IDMin1 = 0
	IDMax1 = 1023
	IDMin2 = 2048
	IDMax2 = 3072
)

// Request asks a generator for the events of one pulse.
type Request struct {
	Count     int    // number of events, negative counts are treated as zero
	PulseID   uint64 // drives the values written in uniform mode
	Realistic bool   // draw distribution-shaped values instead of constants
}

func (r Request) size() int {
	if r.Count < 0 {
		return 0
	}
	return r.Count
}
