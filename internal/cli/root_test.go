package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kanstore/internal/tasks"
	"github.com/roach88/kanstore/internal/testutil"
)

var fixedNow = testutil.NewClock(testutil.Epoch).Now

// session runs commands against one SQLite file, so state carries over
// between invocations the way it does for a user.
type session struct {
	t    *testing.T
	db   string
	opts *RootOptions
}

func newSession(t *testing.T) *session {
	t.Helper()
	return &session{
		t:    t,
		db:   filepath.Join(t.TempDir(), "kanstore.db"),
		opts: &RootOptions{IDs: tasks.NewSequenceGenerator("T"), Now: fixedNow},
	}
}

func (s *session) run(args ...string) (string, error) {
	s.t.Helper()
	cmd := newRootCommand(s.opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--backend", "sqlite", "--db", s.db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// runJSON runs a command with --format json and decodes the data payload.
func (s *session) runJSON(v any, args ...string) {
	s.t.Helper()
	out, err := s.run(append([]string{"--format", "json"}, args...)...)
	require.NoError(s.t, err, out)

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(s.t, json.Unmarshal([]byte(out), &resp))
	require.Equal(s.t, "ok", resp.Status)
	require.NoError(s.t, json.Unmarshal(resp.Data, v))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kanstore", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"board", "list"}, {"board", "add"}, {"board", "move"}, {"board", "drag"},
		{"person", "show"}, {"person", "set"},
		{"wedding", "show"}, {"wedding", "guests"}, {"wedding", "date"}, {"wedding", "confirm"},
		{"serve"}, {"validate"}, {"config", "show"}, {"test"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "backend", "db", "url", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	s := newSession(t)
	_, err := s.run("--format", "xml", "board", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidBackend(t *testing.T) {
	cmd := newRootCommand(&RootOptions{})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "etcd", "board", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, out.String(), ErrCodeConfig)
}

func TestConfigShow(t *testing.T) {
	t.Setenv("KANSTORE_AUTH_SECRET", "s3cret")
	s := newSession(t)

	out, err := s.run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "auth_secret: REDACTED")
	assert.NotContains(t, out, "s3cret")
}
