package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/eventlog"
	"github.com/roach88/relsync/internal/testutil"
)

func TestRunJournalsEvents(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "wed", marriageScenario)
	db := filepath.Join(dir, "relsync.db")

	buf := &bytes.Buffer{}
	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}, Tokens: testutil.NewSequentialTokens("journal")}
	cmd := newRunCommandWith(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenario, "--db", db})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ wed: 1 event(s) journaled to "+db)
	assert.Contains(t, buf.String(), "Marriage Added(a, b)")
	assert.Contains(t, buf.String(), "flush journal-1")

	st, err := eventlog.Open(db)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "journal-1", records[0].FlushToken)
	assert.Equal(t, "Marriage", records[0].Relation)
	assert.Equal(t, "Added", records[0].Kind)
}

func TestRunResumesSequence(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "wed", marriageScenario)
	db := filepath.Join(dir, "relsync.db")

	for range 2 {
		cmd := NewRunCommand(&RootOptions{Format: "text"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{scenario, "--db", db})
		require.NoError(t, cmd.Execute())
	}

	st, err := eventlog.Open(db)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Less(t, records[0].Seq, records[1].Seq)
	assert.NotEqual(t, records[0].FlushToken, records[1].FlushToken)

	tokens, err := st.ListFlushTokens(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestRunDatabaseFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "wed", marriageScenario)
	db := filepath.Join(dir, "env.db")
	t.Setenv("RELSYNC_EVENT_LOG_PATH", db)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenario})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, db, resp.Data.Database)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, int64(1), resp.Data.FirstSeq)
	require.Len(t, resp.Data.FlushTokens, 1)
}

func TestRunWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "wed", marriageScenario)
	t.Setenv("RELSYNC_EVENT_LOG_PATH", "")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{scenario})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no event log")
}

func TestRunFailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "broken", brokenScenario)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenario, "--db", filepath.Join(dir, "relsync.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_RUN_FAILED", resp.Error.Code)
}

func TestRunMissingScenario(t *testing.T) {
	dir := t.TempDir()

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(dir, "none.yaml"), "--db", filepath.Join(dir, "relsync.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
