package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"neutrons/internal/admin"
)

const consoleHelp = `commands:
  delay <seconds>      pause between pulses
  count <n>            events per pulse
  random on|off        random event count in [0, count)
  realistic on|off     distribution-shaped events
  skip <n>             drop every nth pulse, 0 disables
  status               print counters and settings
  exit                 stop the simulator
`

// console applies operator commands typed on stdin.
type console struct {
	ctl admin.Controller
	src admin.Source
	out io.Writer
}

// exec runs one command line and reports whether the operator asked to exit.
func (c *console) exec(line string) (exit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch cmd := strings.ToLower(fields[0]); cmd {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		io.WriteString(c.out, consoleHelp)
	case "status":
		c.status()
	default:
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: %s <value> (try help)", cmd)
		}
		if err := admin.Apply(c.ctl, cmd, fields[1]); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%s set to %s\n", cmd, fields[1])
	}
	return false, nil
}

func (c *console) status() {
	st := c.ctl.Stats()
	fmt.Fprintf(c.out, "%s run %s: pulse %d, published %d, skipped %d, failed %d, slow %d of %d\n",
		st.State, st.RunID, st.PulseID, st.Packets, st.Skipped, st.Failed, st.Slow, st.Iterations)
	fmt.Fprintf(c.out, "delay %v, count %d, random %t, realistic %t, skip %d\n",
		st.Delay, st.EventCount, st.RandomCount, st.Realistic, st.SkipPackets)
	fmt.Fprintf(c.out, "fill tof %v, pixel %v\n", st.TOFFill, st.PixelFill)
	if p, ok := c.src.Snapshot(); ok {
		fmt.Fprintf(c.out, "%s: pulse %d at %s, %d events, charge %g\n",
			c.src.Name(), p.PulseID, p.Timestamp.Format("15:04:05.000"), len(p.TimeOfFlight), p.ProtonCharge)
	}
	if gaps := c.src.Gaps(); len(gaps) > 0 {
		fmt.Fprintf(c.out, "gaps: %v\n", gaps)
	}
}

// run reads commands until exit, EOF or ctx is done. It calls stop when the
// operator types exit.
func (c *console) run(ctx context.Context, in io.Reader, stop func()) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			exit, err := c.exec(line)
			if err != nil {
				fmt.Fprintln(c.out, err)
			}
			if exit {
				stop()
				return
			}
		}
	}
}
