package job

import (
	"math/rand/v2"
	"time"
)

// TimeOfFlight fills time-of-flight arrays. A TimeOfFlight is owned by one
// goroutine; only Timer may be read concurrently.
type TimeOfFlight struct {
	Timer FillTimer
	rng   *rand.Rand
}

// NewTimeOfFlight returns a generator whose realistic draws derive from seed.
func NewTimeOfFlight(seed uint64) *TimeOfFlight {
	return &TimeOfFlight{rng: rand.New(rand.NewPCG(seed, seed^0x746f66))}
}

// Generate returns a fresh array of req.Count time-of-flight values.
func (g *TimeOfFlight) Generate(req Request) []uint32 {
	tof := make([]uint32, req.size())

	start := time.Now()
	if !req.Realistic {
		value := uint32(req.PulseID)
		for i := range tof {
			tof[i] = value
		}
	} else {
		for i := range tof {
			var sum uint32
			for j := 0; j < TOFNorm; j++ {
				sum += g.rng.Uint32N(TOFMax)
			}
			tof[i] = sum / TOFNorm
		}
	}
	g.Timer.Observe(time.Since(start))

	return tof
}
