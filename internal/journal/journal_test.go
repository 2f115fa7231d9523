package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neutrons/internal/monitoring"
)

func openTestJournal(t *testing.T, runID string) (*Journal, string) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	path := filepath.Join(t.TempDir(), "pulses.db")
	j, err := Open(path, runID)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestJournal_UpdateAndRecent(t *testing.T) {
	j, _ := openTestJournal(t, "run-a")
	fixed := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	require.NoError(t, j.Update(1, 2e8, []uint32{10, 20, 30}, []uint32{1, 2, 3}))
	require.NoError(t, j.Update(2, 3e8, []uint32{}, []uint32{}))

	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{RunID: "run-a", PulseID: 2, Published: entries[0].Published, ProtonCharge: 3e8}, entries[0])
	assert.True(t, fixed.Equal(entries[0].Published))
	assert.Equal(t, uint64(1), entries[1].PulseID)
	assert.Equal(t, 3, entries[1].Events)
	assert.InDelta(t, 20.0, entries[1].TOFMean, 1e-9)
}

func TestJournal_RejectsDuplicatePulse(t *testing.T) {
	j, _ := openTestJournal(t, "run-a")
	require.NoError(t, j.Update(7, 8e8, nil, nil))
	assert.Error(t, j.Update(7, 8e8, nil, nil))
}

func TestJournal_ReopenKeepsRowsPerRun(t *testing.T) {
	j, path := openTestJournal(t, "run-a")
	require.NoError(t, j.Update(1, 2e8, nil, nil))
	require.NoError(t, j.Close())

	// migrations are already applied on the second open
	again, err := Open(path, "run-b")
	require.NoError(t, err)
	defer again.Close()

	n, err := again.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// the same pulse id is fine under another run
	require.NoError(t, again.Update(1, 2e8, nil, nil))
	var total int
	require.NoError(t, again.DB().QueryRow(`SELECT COUNT(*) FROM pulses`).Scan(&total))
	assert.Equal(t, 2, total)
	assert.Equal(t, "run-b", again.RunID())
}

func TestJournal_Closed(t *testing.T) {
	j, _ := openTestJournal(t, "run-a")
	require.NoError(t, j.Close())
	assert.ErrorIs(t, j.Update(1, 2e8, nil, nil), ErrClosed)
	assert.NoError(t, j.Close())
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "pulses.db"), "run-a")
	assert.Error(t, err)
}

func TestJournal_PragmasOnEveryConnection(t *testing.T) {
	j, _ := openTestJournal(t, "run-a")
	ctx := context.Background()

	// hold two connections at once to see both get the settings
	c1, err := j.DB().Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := j.DB().Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []*sql.Conn{c1, c2} {
		var mode string
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
		var timeout int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout)
	}
}

func TestJournal_OpenReaderDoesNotBlockUpdate(t *testing.T) {
	j, _ := openTestJournal(t, "run-a")
	require.NoError(t, j.Update(1, 2e8, []uint32{1}, []uint32{10}))

	// a debug query that keeps its rows open holds one connection
	rows, err := j.DB().QueryContext(context.Background(), "SELECT pulse_id FROM pulses")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())

	done := make(chan error, 1)
	go func() { done <- j.Update(2, 3e8, []uint32{2}, []uint32{20}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Update blocked behind an open reader")
	}
}
