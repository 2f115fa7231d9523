package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...any) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("pulse %d", 7)
	assert.Equal(t, []string{"pulse 7"}, got)

	// nil mutes, it must not panic nor reach the previous logger
	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, got, 1)
}

func TestPrefixed(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...any) {
		got = fmt.Sprintf(format, v...)
	})

	logf := Prefixed("[tof]")
	logf("filled %d events", 10)
	assert.Equal(t, "[tof] filled 10 events", got)
}
