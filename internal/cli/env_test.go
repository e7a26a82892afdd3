package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv runs commands against private config and data directories.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

// runResult is the outcome of one command.
type runResult struct {
	Stdout string
	Err    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
}

// Run executes one invocation with stdin taken from input.
func (e *testEnv) RunWithInput(input string, args ...string) runResult {
	e.t.Helper()
	a := &app{errOut: io.Discard}
	root := newRootCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...))

	err := root.Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return runResult{Stdout: out.String(), Err: err}
}

func (e *testEnv) Run(args ...string) runResult {
	e.t.Helper()
	return e.RunWithInput("", args...)
}

// MustRun executes one invocation and fails the test on error.
func (e *testEnv) MustRun(args ...string) runResult {
	e.t.Helper()
	r := e.Run(args...)
	require.NoError(e.t, r.Err, "shopkeeper %s\n%s", strings.Join(args, " "), r.Stdout)
	return r
}
