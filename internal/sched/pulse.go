package sched

import "math/rand/v2"

// ProtonCharge is the synthetic beam charge that accompanies pulse id.
func ProtonCharge(id uint64) float64 {
	return float64(1+id%10) * 1e8
}

// skipped reports whether pulse id is dropped to simulate a lost packet.
func skipped(id, every uint64) bool {
	return every > 0 && id%every == 0
}

// eventCount picks the number of events for the next pulse: the nominal
// count, or a uniform draw from [0, nominal) when random is set.
func eventCount(rng *rand.Rand, nominal int, random bool) int {
	if nominal <= 0 {
		return 0
	}
	if !random {
		return nominal
	}
	return rng.IntN(nominal)
}
