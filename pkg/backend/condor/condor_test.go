package condor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBin(t *testing.T, name, output string, exitCode int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI shims require a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, name)
	contents := "#!/bin/sh\necho '" + output + "'\nexit " + exitCodeStr(exitCode) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(contents), 0755))

	oldPath := os.Getenv("PATH")
	require.NoError(t, os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath))
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })
}

func exitCodeStr(n int) string {
	if n == 0 {
		return "0"
	}
	return "1"
}

func TestSubmitParsesClusterID(t *testing.T) {
	fakeBin(t, "condor_submit", "1 job(s) submitted to cluster 42.", 0)

	dir := t.TempDir()
	b := New("/usr/bin/finorch-wrapper", "condor-site")
	batchID, err := b.Submit(context.Background(), dir, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "42", batchID)

	_, err = os.Stat(filepath.Join(dir, "submit.sh"))
	assert.NoError(t, err)
}

func TestSubmitMissingClusterIDReturnsError(t *testing.T) {
	fakeBin(t, "condor_submit", "nothing useful here", 0)

	dir := t.TempDir()
	b := New("/usr/bin/finorch-wrapper", "condor-site")
	_, err := b.Submit(context.Background(), dir, "job-1")
	assert.Error(t, err)
}

func TestStopFallsBackToHoldWhenRmFails(t *testing.T) {
	fakeBin(t, "condor_rm", "", 1)
	fakeBin(t, "condor_hold", "", 0)

	b := New("/usr/bin/finorch-wrapper", "condor-site")
	err := b.Stop(context.Background(), "job-1", "42")
	assert.NoError(t, err)
}
