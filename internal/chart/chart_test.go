package chart

import (
	"bytes"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neutrons/internal/job"
)

func TestRenderPulse(t *testing.T) {
	req := job.Request{Count: 500, PulseID: 4, Realistic: true}
	tof := job.NewTimeOfFlight(1).Generate(req)
	pixel := job.NewPixel(1).Generate(req)

	var buf bytes.Buffer
	require.NoError(t, RenderPulse(&buf, 4, tof, pixel, Bins))

	html := buf.String()
	assert.Contains(t, html, "Time of flight, pulse 4")
	assert.Contains(t, html, "Pixel id, pulse 4")
	assert.Contains(t, html, "events=500")
}

func TestRenderPulse_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPulse(&buf, 1, nil, nil, Bins))
	assert.Contains(t, buf.String(), "events=0")
}

func TestBinCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		bins     int
		want     int
	}{
		{"single value", 40, 40, Bins, 1},
		{"narrow span", 10, 14, Bins, 5},
		{"wide span", 0, 160000, Bins, Bins},
		{"span equals bins", 1, 40, Bins, Bins},
		{"zero bins", 3, 9, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binCount(job.Summary{Min: tt.min, Max: tt.max}, tt.bins))
		})
	}
}

func TestHistogram_UniformPulse(t *testing.T) {
	tof := job.NewTimeOfFlight(1).Generate(job.Request{Count: 25, PulseID: 4})

	bar := Histogram("uniform", tof, Bins)
	require.Len(t, bar.MultiSeries, 1)
	data, ok := bar.MultiSeries[0].Data.([]opts.BarData)
	require.True(t, ok)
	require.Len(t, data, 1, "one distinct value fills one bucket")
	assert.Equal(t, 25.0, data[0].Value)
}
