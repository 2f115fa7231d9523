package job

import (
	"math/rand/v2"
	"time"
)

// Pixel fills pixel-id arrays. In realistic mode events alternate between
// the two detector banks: even indices hit bank 1, odd indices bank 2.
type Pixel struct {
	Timer FillTimer
	rng   *rand.Rand
}

// NewPixel returns a generator whose realistic draws derive from seed.
func NewPixel(seed uint64) *Pixel {
	return &Pixel{rng: rand.New(rand.NewPCG(seed, seed^0x706978))}
}

// Generate returns a fresh array of req.Count pixel ids.
func (g *Pixel) Generate(req Request) []uint32 {
	pixel := make([]uint32, req.size())

	start := time.Now()
	if !req.Realistic {
		// every element is still written on its own so the cost scales
		// like real per-event data would
		value := uint32(req.PulseID * 10)
		for i := range pixel {
			pixel[i] = value
		}
	} else {
		for i := range pixel {
			if i%2 == 0 {
				pixel[i] = g.rng.Uint32N(IDMax1-IDMin1) + IDMin1
			} else {
				pixel[i] = g.rng.Uint32N(IDMax2-IDMin2) + IDMin2
			}
		}
	}
	g.Timer.Observe(time.Since(start))

	return pixel
}
