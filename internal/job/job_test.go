package job

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestUniformFill(t *testing.T) {
	tof := NewTimeOfFlight(1).Generate(Request{Count: 4, PulseID: 5})
	pixel := NewPixel(1).Generate(Request{Count: 4, PulseID: 5})

	if diff := cmp.Diff([]uint32{5, 5, 5, 5}, tof); diff != "" {
		t.Errorf("tof mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{50, 50, 50, 50}, pixel); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformFill_LargePulseIDTruncates(t *testing.T) {
	id := uint64(math.MaxUint32) + 3
	tof := NewTimeOfFlight(1).Generate(Request{Count: 2, PulseID: id})
	pixel := NewPixel(1).Generate(Request{Count: 2, PulseID: id})

	assert.Equal(t, []uint32{2, 2}, tof)
	assert.Equal(t, []uint32{uint32(id * 10), uint32(id * 10)}, pixel)
}

func TestEmptyAndNegativeCounts(t *testing.T) {
	for _, realistic := range []bool{false, true} {
		for _, count := range []int{0, -3} {
			req := Request{Count: count, PulseID: 9, Realistic: realistic}
			tof := NewTimeOfFlight(1).Generate(req)
			pixel := NewPixel(1).Generate(req)
			assert.NotNil(t, tof)
			assert.NotNil(t, pixel)
			assert.Empty(t, tof)
			assert.Empty(t, pixel)
		}
	}
}

func TestRealisticTimeOfFlight(t *testing.T) {
	const n = 50000
	tof := NewTimeOfFlight(42).Generate(Request{Count: n, PulseID: 1, Realistic: true})
	require.Len(t, tof, n)

	xs := make([]float64, n)
	for i, v := range tof {
		require.Less(t, v, uint32(TOFMax))
		xs[i] = float64(v)
	}

	mean, std := stat.MeanStdDev(xs, nil)
	assert.InDelta(t, TOFMax/2, mean, 0.1*TOFMax/2)

	// a uniform draw over [0, TOFMax) has stddev TOFMax/sqrt(12); averaging
	// TOFNorm draws shrinks it by sqrt(TOFNorm)
	uniformStd := TOFMax / math.Sqrt(12)
	assert.InDelta(t, uniformStd/math.Sqrt(TOFNorm), std, 0.1*uniformStd/math.Sqrt(TOFNorm))
	assert.Less(t, std, uniformStd/2)

	// the bell shape puts far more mass in the middle fifth than at the edge
	_, counts := Histogram(tof, 0, TOFMax, 5)
	assert.Greater(t, counts[2], 10*counts[0])
}

func TestRealisticDiffersFromUniform(t *testing.T) {
	gen := NewTimeOfFlight(7)
	uniform := Summarize(gen.Generate(Request{Count: 1000, PulseID: 3}))
	realistic := Summarize(gen.Generate(Request{Count: 1000, PulseID: 3, Realistic: true}))

	assert.Zero(t, uniform.StdDev)
	assert.Equal(t, 3.0, uniform.Mean)
	assert.Greater(t, realistic.StdDev, 1000.0)
}

func TestRealisticPixelBanks(t *testing.T) {
	gen := NewPixel(99)
	for pulse := uint64(1); pulse <= 20; pulse++ {
		pixel := gen.Generate(Request{Count: 2001, PulseID: pulse, Realistic: true})
		require.Len(t, pixel, 2001)
		for i, v := range pixel {
			if i%2 == 0 {
				require.GreaterOrEqual(t, v, uint32(IDMin1), "index %d", i)
				require.Less(t, v, uint32(IDMax1), "index %d", i)
			} else {
				require.GreaterOrEqual(t, v, uint32(IDMin2), "index %d", i)
				require.Less(t, v, uint32(IDMax2), "index %d", i)
			}
		}
	}
}

func TestSeedsAreReproducible(t *testing.T) {
	req := Request{Count: 64, PulseID: 1, Realistic: true}
	assert.Equal(t, NewTimeOfFlight(5).Generate(req), NewTimeOfFlight(5).Generate(req))
	assert.Equal(t, NewPixel(5).Generate(req), NewPixel(5).Generate(req))
	assert.NotEqual(t, NewPixel(5).Generate(req), NewPixel(6).Generate(req))
}

func TestFillTimer(t *testing.T) {
	var timer FillTimer
	assert.Zero(t, timer.Average())
	assert.Equal(t, "0s", timer.String())

	timer.Observe(2 * time.Millisecond)
	timer.Observe(4 * time.Millisecond)
	assert.Equal(t, int64(2), timer.Runs())
	assert.Equal(t, 3*time.Millisecond, timer.Average())
	assert.Equal(t, 4*time.Millisecond, timer.Last())
	assert.Equal(t, "3ms", timer.String())
}

func TestGenerateObservesTimer(t *testing.T) {
	gen := NewPixel(1)
	gen.Generate(Request{Count: 10, PulseID: 1})
	gen.Generate(Request{Count: 10, PulseID: 2, Realistic: true})
	assert.Equal(t, int64(2), gen.Timer.Runs())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, Summary{Count: 1, Mean: 7, Min: 7, Max: 7}, Summarize([]uint32{7}))

	s := Summarize([]uint32{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.Equal(t, uint32(2), s.Min)
	assert.Equal(t, uint32(9), s.Max)
	assert.Greater(t, s.StdDev, 0.0)
}

func TestHistogram(t *testing.T) {
	edges, counts := Histogram([]uint32{0, 1, 5, 9, 10, 42}, 0, 10, 2)
	assert.Equal(t, []float64{0, 5, 10}, edges)
	// 10 and 42 fall outside [0, 10)
	assert.Equal(t, []float64{2, 2}, counts)

	edges, counts = Histogram([]uint32{1}, 5, 5, 3)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}
