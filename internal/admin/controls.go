package admin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Keys lists the settings Apply understands.
var Keys = []string{"delay", "count", "random", "realistic", "skip"}

// Apply parses value and changes the named setting on ctl. Out of range
// values are rejected and leave the setting unchanged.
func Apply(ctl Controller, key, value string) error {
	switch key {
	case "delay":
		s, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("delay: %q is not a number of seconds", value)
		}
		return ctl.SetDelay(time.Duration(s * float64(time.Second)))
	case "count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("count: %q is not an integer", value)
		}
		return ctl.SetEventCount(n)
	case "random":
		on, err := parseSwitch(value)
		if err != nil {
			return fmt.Errorf("random: %w", err)
		}
		ctl.SetRandomCount(on)
	case "realistic":
		on, err := parseSwitch(value)
		if err != nil {
			return fmt.Errorf("realistic: %w", err)
		}
		ctl.SetRealistic(on)
	case "skip":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("skip: %q is not a non-negative integer", value)
		}
		ctl.SetSkipPackets(n)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	on, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%q is not on/off", value)
	}
	return on, nil
}
