// Package admin mounts the operator debug pages: live pipeline status,
// runtime controls, histograms of the latest pulse and, when a journal is
// configured, live SQL over it.
package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"neutrons/internal/chart"
	"neutrons/internal/journal"
	"neutrons/internal/record"
	"neutrons/internal/sched"
)

// Controller is the runtime surface of the pacing loop.
type Controller interface {
	Stats() sched.Stats
	SetDelay(time.Duration) error
	SetEventCount(int) error
	SetRandomCount(bool)
	SetRealistic(bool)
	SetSkipPackets(uint64)
}

// Source gives read access to the published record.
type Source interface {
	Name() string
	Snapshot() (record.Pulse, bool)
	Gaps() []uint64
}

// Status is the JSON body of /debug/pipeline.
type Status struct {
	Record string      `json:"record"`
	Stats  sched.Stats `json:"stats"`
	Last   *LastPulse  `json:"last,omitempty"`
	Gaps   []uint64    `json:"gaps"`
}

// LastPulse summarizes the latest published pulse.
type LastPulse struct {
	PulseID      uint64    `json:"pulse_id"`
	Timestamp    time.Time `json:"timestamp"`
	ProtonCharge float64   `json:"proton_charge"`
	Events       int       `json:"events"`
}

// Attach registers the debug pages on mux under /debug/. jr may be nil.
func Attach(mux *http.ServeMux, ctl Controller, src Source, jr *journal.Journal) error {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Pulse", func() any { return ctl.Stats().PulseID })
	debug.KVFunc("Published", func() any { return ctl.Stats().Packets })
	debug.KVFunc("Skipped", func() any { return ctl.Stats().Skipped })
	debug.KVFunc("Iterations", func() any { return ctl.Stats().Iterations })
	debug.KVFunc("Slow iterations", func() any { return ctl.Stats().Slow })
	debug.KVFunc("Fill time (tof/pixel)", func() any {
		st := ctl.Stats()
		return fmt.Sprintf("%s / %s", st.TOFFill, st.PixelFill)
	})

	debug.HandleFunc("pipeline", "Pipeline status (JSON)", func(w http.ResponseWriter, r *http.Request) {
		st := Status{Record: src.Name(), Stats: ctl.Stats(), Gaps: src.Gaps()}
		if p, ok := src.Snapshot(); ok {
			st.Last = &LastPulse{
				PulseID:      p.PulseID,
				Timestamp:    p.Timestamp,
				ProtonCharge: p.ProtonCharge,
				Events:       len(p.TimeOfFlight),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	debug.HandleFunc("controls", "Change delay, event count and generation mode", func(w http.ResponseWriter, r *http.Request) {
		st := ctl.Stats()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, controlsForm, st.Delay.Seconds(), st.EventCount, st.RandomCount, st.Realistic, st.SkipPackets)
	})

	debug.HandleSilentFunc("controls-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var applied []string
		for _, key := range Keys {
			value := strings.TrimSpace(r.PostForm.Get(key))
			if value == "" {
				continue
			}
			if err := Apply(ctl, key, value); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			applied = append(applied, key+"="+value)
		}
		if len(applied) == 0 {
			http.Error(w, "Missing setting", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "Updated "+strings.Join(applied, ", "))
	})

	debug.HandleFunc("histogram", "Event histograms of the latest pulse", func(w http.ResponseWriter, r *http.Request) {
		p, ok := src.Snapshot()
		if !ok {
			http.Error(w, "no pulse published yet", http.StatusNotFound)
			return
		}
		bins := chart.Bins
		if b, err := strconv.Atoi(r.URL.Query().Get("bins")); err == nil && b > 0 && b <= 1000 {
			bins = b
		}
		var buf bytes.Buffer
		if err := chart.RenderPulse(&buf, p.PulseID, p.TimeOfFlight, p.Pixel, bins); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	})

	if jr == nil {
		return nil
	}

	// create a tailSQL instance and point it to the journal
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://journal.db", jr.DB(), &tailsql.DBOptions{
		Label: "Pulse journal",
	})
	debug.Handle("tailsql/", "SQL live debugging of the pulse journal", tsql.NewMux())
	return nil
}

const controlsForm = `<!DOCTYPE html>
<html><body>
<h1>Pipeline controls</h1>
<form method="POST" action="/debug/controls-api">
<p>Delay (s) <input name="delay" value="%g"></p>
<p>Event count <input name="count" value="%d"></p>
<p>Random count <input name="random" value="%t"></p>
<p>Realistic <input name="realistic" value="%t"></p>
<p>Skip every Nth <input name="skip" value="%d"></p>
<p><input type="submit" value="Apply"></p>
</form>
</body></html>
`
