package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSyncCommand executes the sync command against a local store and
// returns the combined stdout plus any execution error.
func runSyncCommand(t *testing.T, dir, db string, extra ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSyncCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{dir, "--local", db}, extra...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestSyncCreatesPage(t *testing.T) {
	dir := writeChecklist(t, t.TempDir(), "onboarding.cue", validChecklist)
	db := filepath.Join(t.TempDir(), "pages.db")

	out, err := runSyncCommand(t, dir, db)
	require.NoError(t, err)

	assert.Contains(t, out, "ok    onboarding (created page ")
	assert.Contains(t, out, "1 synced, 0 failed")
}

func TestSyncSecondRunIsNoOp(t *testing.T) {
	dir := writeChecklist(t, t.TempDir(), "onboarding.cue", validChecklist)
	db := filepath.Join(t.TempDir(), "pages.db")

	_, err := runSyncCommand(t, dir, db)
	require.NoError(t, err)

	out, err := runSyncCommand(t, dir, db)
	require.NoError(t, err)
	assert.Contains(t, out, "ok    onboarding (no changes)")
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	dir := writeChecklist(t, t.TempDir(), "onboarding.cue", validChecklist)
	db := filepath.Join(t.TempDir(), "pages.db")

	out, err := runSyncCommand(t, dir, db, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")

	// A real sync afterwards still creates the page: the dry run left
	// the store untouched.
	out, err = runSyncCommand(t, dir, db)
	require.NoError(t, err)
	assert.Contains(t, out, "created page")
}

func TestSyncMissingPageIDFailsPlan(t *testing.T) {
	dir := writeChecklist(t, t.TempDir(), "byid.cue", `
package checklists

checklist: "byid": {
	title: "By ID"
	target: {page: "does-not-exist"}
	section: [{item: [{id: "a", text: "A"}]}]
}
`)
	db := filepath.Join(t.TempDir(), "pages.db")

	out, err := runSyncCommand(t, dir, db)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  byid")
	assert.Contains(t, out, "0 synced, 1 failed")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSyncPartialFailureContinuesBatch(t *testing.T) {
	dir := t.TempDir()
	writeChecklist(t, dir, "good.cue", validChecklist)
	writeChecklist(t, dir, "bad.cue", `
package checklists

checklist: "zbroken": {
	title: "Broken"
	target: {page: "missing-page"}
	section: [{item: [{id: "a", text: "A"}]}]
}
`)
	db := filepath.Join(t.TempDir(), "pages.db")

	out, err := runSyncCommand(t, dir, db)
	require.Error(t, err)
	assert.Contains(t, out, "ok    onboarding")
	assert.Contains(t, out, "FAIL  zbroken")
	assert.Contains(t, out, "1 synced, 1 failed")
}

func TestSyncJSONOutput(t *testing.T) {
	dir := writeChecklist(t, t.TempDir(), "onboarding.cue", validChecklist)
	db := filepath.Join(t.TempDir(), "pages.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewSyncCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--local", db})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var report syncReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Created)
	assert.NotEmpty(t, report.Results[0].PageID)
}

func TestSyncMissingChecklistsDir(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pages.db")

	_, err := runSyncCommand(t, "/nonexistent/checklists", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
