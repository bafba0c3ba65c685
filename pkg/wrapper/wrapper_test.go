package wrapper

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adacs-australia/finorch/pkg/finconfig"
)

// writeWrapperIni starts a listener standing in for the client's own RPC
// endpoint and records its port in dir/wrapper.ini, the way clientd.Client
// does before a backend launches the wrapper for real.
func writeWrapperIni(t *testing.T, dir string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	wcfg := finconfig.NewWrapperConfig(filepath.Join(dir, "wrapper.ini"))
	require.NoError(t, wcfg.SetPort(port))
}

type fakeInterpreter struct {
	solution []byte
	err      error
	ran      chan struct{}
}

func (f *fakeInterpreter) Run(ctx context.Context, scriptPath string) ([]byte, error) {
	if f.ran != nil {
		close(f.ran)
	}
	return f.solution, f.err
}

// restoreStdStreams undoes Bootstrap's process-wide stdout/stderr/cwd
// reassignment so later tests in this binary aren't silently redirected
// or left in the wrong working directory.
func restoreStdStreams(t *testing.T) {
	t.Helper()
	origOut, origErr := os.Stdout, os.Stderr
	origDir, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Stdout, os.Stderr = origOut, origErr
		_ = os.Chdir(origDir)
	})
}

func TestBootstrapWritesSolutionAndSentinels(t *testing.T) {
	restoreStdStreams(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, scriptFileName), []byte("finesse script"), 0644))
	writeWrapperIni(t, dir)

	interp := &fakeInterpreter{solution: []byte("solved")}
	err := Bootstrap(context.Background(), Options{WorkDir: dir, Callsign: "local", Interpreter: interp})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, solutionFileName))
	require.NoError(t, err)
	assert.Equal(t, "solved", string(data))

	_, err = os.Stat(filepath.Join(dir, "started"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "finished"))
	assert.NoError(t, err)
}

func TestBootstrapStillWritesFinishedOnInterpreterError(t *testing.T) {
	restoreStdStreams(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, scriptFileName), []byte("finesse script"), 0644))
	writeWrapperIni(t, dir)

	interp := &fakeInterpreter{err: assertError("boom")}
	err := Bootstrap(context.Background(), Options{WorkDir: dir, Callsign: "local", Interpreter: interp})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, solutionFileName))
	assert.Error(t, err, "data.pickle must not be written when the interpreter fails")

	_, err = os.Stat(filepath.Join(dir, "finished"))
	assert.NoError(t, err, "finished must still be written so the driver is not blocked forever")
}

func TestBootstrapRejectsMissingWorkDir(t *testing.T) {
	err := Bootstrap(context.Background(), Options{WorkDir: "/does/not/exist", Interpreter: &fakeInterpreter{}})
	assert.Error(t, err)
}

func TestBootstrapRejectsMissingWrapperIni(t *testing.T) {
	restoreStdStreams(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, scriptFileName), []byte("finesse script"), 0644))

	err := Bootstrap(context.Background(), Options{WorkDir: dir, Callsign: "local", Interpreter: &fakeInterpreter{}})
	assert.Error(t, err, "Bootstrap must refuse to run without the client's RPC port in wrapper.ini")

	_, statErr := os.Stat(filepath.Join(dir, "started"))
	assert.Error(t, statErr, "started must not be touched before the client's RPC endpoint is confirmed reachable")
}

type assertError string

func (e assertError) Error() string { return string(e) }
