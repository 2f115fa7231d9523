// Command tofhist generates realistic pulses offline and writes their
// time-of-flight and pixel histograms to an HTML page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"

	"neutrons/internal/chart"
	"neutrons/internal/job"
	"neutrons/internal/worker"
)

var (
	events  = flag.Int("n", 1000, "Events per pulse")
	pulses  = flag.Int("pulses", 10, "Number of pulses to accumulate")
	seed    = flag.Uint64("seed", 0, "Random seed, 0 picks one from the clock")
	bins    = flag.Int("bins", chart.Bins, "Histogram buckets")
	uniform = flag.Bool("uniform", false, "Use uniform instead of realistic data")
	out     = flag.String("o", "tofhist.html", "Output HTML file")
)

func main() {
	flag.Parse()
	if *events < 0 || *pulses <= 0 || *bins <= 0 {
		log.Fatalf("-n must be >= 0, -pulses and -bins > 0")
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	tof, pixel, err := generate(context.Background(), *events, *pulses, *seed, !*uniform)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	title := fmt.Sprintf("%d pulses x %d events", *pulses, *events)
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		chart.Histogram("Time of flight, "+title, tof, *bins),
		chart.Histogram("Pixel id, "+title, pixel, *bins),
	)
	if err := page.Render(f); err != nil {
		log.Fatalf("render: %v", err)
	}

	s := job.Summarize(tof)
	log.Printf("tof: n=%d mean=%.1f sd=%.1f min=%d max=%d", s.Count, s.Mean, s.StdDev, s.Min, s.Max)
	log.Printf("wrote %s", *out)
}

// generate runs both generators on their own workers, one pulse at a time,
// and concatenates the arrays.
func generate(ctx context.Context, events, pulses int, seed uint64, realistic bool) (tof, pixel []uint32, err error) {
	tofGen := job.NewTimeOfFlight(seed)
	pixelGen := job.NewPixel(seed + 1)
	tw := worker.New("tof_processor", tofGen.Generate)
	pw := worker.New("pixel_processor", pixelGen.Generate)
	tw.Start()
	pw.Start()
	defer tw.Shutdown()
	defer pw.Shutdown()

	tof = make([]uint32, 0, events*pulses)
	pixel = make([]uint32, 0, events*pulses)
	for id := uint64(1); id <= uint64(pulses); id++ {
		req := job.Request{Count: events, PulseID: id, Realistic: realistic}
		tw.Submit(req)
		pw.Submit(req)
		t, err := tw.Await(ctx)
		if err != nil {
			return nil, nil, err
		}
		p, err := pw.Await(ctx)
		if err != nil {
			return nil, nil, err
		}
		tof = append(tof, t...)
		pixel = append(pixel, p...)
	}
	log.Printf("fill time tof %v, pixel %v", tofGen.Timer.Average(), pixelGen.Timer.Average())
	return tof, pixel, nil
}
