package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecord(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runValidateCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"validate"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ValidRecords(t *testing.T) {
	dir := t.TempDir()
	tasksFile := writeRecord(t, dir, "task-store.json",
		`{"tasks":{"T-1":{"id":"T-1","title":"Write spec","status":"open"}}}`)
	personFile := writeRecord(t, dir, "me.json", `{"firstName":"Ada","lastName":"Lovelace"}`)

	out, err := runValidateCommand(t, tasksFile)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓")

	out, err = runValidateCommand(t, "--record", "person-storage", personFile)
	require.NoError(t, err, out)
}

func TestValidate_InvalidRecordJSON(t *testing.T) {
	dir := t.TempDir()
	good := writeRecord(t, dir, "person-storage.json", `{"firstName":"Ada","lastName":""}`)
	bad := writeRecord(t, dir, "wedding-store.json", `{"firstName":"A","lastName":"B","guestCount":-1,"eventDate":0,"isConfirmed":false}`)

	out, err := runValidateCommand(t, "--format", "json", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Records, 2)
	assert.True(t, resp.Data.Records[0].Valid)
	assert.False(t, resp.Data.Records[1].Valid)
	assert.Equal(t, "wedding-store", resp.Data.Records[1].Record)
	assert.NotEmpty(t, resp.Data.Records[1].Error)
}

func TestValidate_UnknownRecordAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	unknown := writeRecord(t, dir, "notes.json", `{}`)

	out, err := runValidateCommand(t, unknown, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, out, "no schema for record")
	assert.Contains(t, err.Error(), "2 record(s)")
}
