package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/event"
)

// journal runs the marriage scenario twice into a fresh event log with
// tokens "t1" then "t2".
func journal(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "wed", marriageScenario)
	db := filepath.Join(dir, "relsync.db")

	for _, token := range []string{"t1", "t2"} {
		opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}, Tokens: ecs.NewFixedGenerator(token)}
		cmd := newRunCommandWith(opts)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{scenario, "--db", db})
		require.NoError(t, cmd.Execute())
	}
	return db
}

func TestTraceAll(t *testing.T) {
	db := journal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "=== Timeline ===")
	assert.Contains(t, output, "  flush t1\n")
	assert.Contains(t, output, "  flush t2\n")
	assert.Contains(t, output, "Marriage Added(0v0, 1v0)")
	assert.Contains(t, output, "Total Events: 2")
	assert.Contains(t, output, "Flushes:      2")
}

func TestTraceByFlushJSON(t *testing.T) {
	db := journal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db, "--flush", "t2"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "t2", resp.Data.FlushToken)
	require.Len(t, resp.Data.Timeline, 1)
	assert.Equal(t, "t2", resp.Data.Timeline[0].FlushToken)
	assert.Equal(t, "Added", resp.Data.Timeline[0].Kind)
	assert.Equal(t, TraceStats{TotalEvents: 1, Added: 1, Flushes: 1}, resp.Data.Stats)
}

func TestTraceByRelation(t *testing.T) {
	db := journal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db, "--relation", "Family"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "Trace for relation: Family")
	assert.Contains(t, buf.String(), "(no events)")
}

func TestTraceListFlushes(t *testing.T) {
	db := journal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db, "--flushes"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "t1\nt2\n", buf.String())
}

func TestTraceWithoutDatabase(t *testing.T) {
	t.Setenv("RELSYNC_EVENT_LOG_PATH", "")

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuildTrace(t *testing.T) {
	a := ecs.Entity{Index: 0}
	b := ecs.Entity{Index: 1, Generation: 2}
	records := []event.Record{
		{Seq: 1, FlushToken: "f1", Relation: "Family", Kind: "Added", From: a, To: b},
		{Seq: 2, FlushToken: "f1", Relation: "Marriage", Kind: "Added", From: a, To: b},
		{Seq: 5, FlushToken: "f2", Relation: "Family", Kind: "Removed", From: a, To: b},
	}

	result := buildTrace(records, &TraceOptions{Relation: "Family"})
	require.Len(t, result.Timeline, 2)
	assert.Equal(t, TraceEntry{Seq: 1, FlushToken: "f1", Relation: "Family", Kind: "Added", From: "0v0", To: "1v2"}, result.Timeline[0])
	assert.Equal(t, TraceStats{TotalEvents: 2, Added: 1, Removed: 1, Flushes: 2}, result.Stats)

	all := buildTrace(records, &TraceOptions{})
	assert.Len(t, all.Timeline, 3)
}
