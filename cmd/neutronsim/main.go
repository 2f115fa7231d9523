package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"neutrons/internal/admin"
	"neutrons/internal/journal"
	"neutrons/internal/monitoring"
	"neutrons/internal/record"
	"neutrons/internal/sched"
)

var (
	configPath  = flag.String("config", "config.yml", "YAML config file, defaults are used when it is missing")
	delay       = flag.Float64("d", 0.01, "Delay between packets in seconds")
	events      = flag.Int("e", 10, "Max event count per packet")
	randomCount = flag.Bool("m", false, "Random event count, using -e as maximum")
	realistic   = flag.Bool("r", false, "Generate normally distributed data which looks semi realistic")
	skip        = flag.Uint64("s", 0, "Don't send every N'th packet, 0 sends all")
	csvLog      = flag.String("csv", "", "Append status events to this CSV file")
	journalPath = flag.String("journal", "", "Record published pulses in this SQLite file")
	debugListen = flag.String("debug", "", "Serve /debug pages on this address, e.g. localhost:8080")
	quiet       = flag.Bool("q", false, "Disable the stdin console")
)

// loadConfig reads the config file and applies the flags given on the
// command line on top of it.
func loadConfig() (sched.Config, error) {
	cfg, err := sched.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			cfg.Delay = *delay
		case "e":
			cfg.EventCount = *events
		case "m":
			cfg.RandomCount = *randomCount
		case "r":
			cfg.Realistic = *realistic
		case "s":
			cfg.SkipPackets = *skip
		case "csv":
			cfg.CSVLog = *csvLog
		case "journal":
			cfg.JournalPath = *journalPath
		case "debug":
			cfg.DebugListen = *debugListen
		}
	})
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	monitoring.Logf("Delay : %g seconds", cfg.Delay)
	monitoring.Logf("Events: %d", cfg.EventCount)
	monitoring.Logf("Random: %t", cfg.RandomCount)
	monitoring.Logf("Data  : %s", dataMode(cfg.Realistic))
	if cfg.SkipPackets > 0 {
		monitoring.Logf("Skip  : every %d. packet", cfg.SkipPackets)
	}
	monitoring.Logf("Run   : %s", cfg.RunID)

	rec := record.New(cfg.RecordName, cfg.History)
	sinks := record.Fanout{rec}

	var jr *journal.Journal
	if cfg.JournalPath != "" {
		jr, err = journal.Open(cfg.JournalPath, cfg.RunID)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		sinks = append(sinks, jr)
	}

	s := sched.New(cfg, sinks)
	if cfg.CSVLog != "" {
		if err := s.EnableCSVLogging(cfg.CSVLog); err != nil {
			log.Fatalf("csv log: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.DebugListen != "" {
		mux := http.NewServeMux()
		if err := admin.Attach(mux, s, rec, jr); err != nil {
			log.Fatalf("debug pages: %v", err)
		}
		srv = &http.Server{Addr: cfg.DebugListen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			monitoring.Logf("debug pages on http://%s/debug/", cfg.DebugListen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				monitoring.Logf("debug server: %v", err)
			}
		}()
	}

	if err := s.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	if !*quiet {
		c := &console{ctl: s, src: rec, out: os.Stdout}
		go c.run(ctx, os.Stdin, stop)
	}

	<-ctx.Done()
	monitoring.Logf("shutting down")

	s.Shutdown()
	rec.Close()
	if jr != nil {
		if err := jr.Close(); err != nil {
			monitoring.Logf("journal close: %v", err)
		}
	}
	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}
}

func dataMode(realistic bool) string {
	if realistic {
		return "realistic"
	}
	return "uniform"
}
