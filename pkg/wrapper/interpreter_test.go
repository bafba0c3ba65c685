package wrapper

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalInterpreterReturnsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter shim requires a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "finesse.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho -n solved\n"), 0755))

	interp := ExternalInterpreter{BinaryPath: bin}
	out, err := interp.Run(context.Background(), "script.k")
	require.NoError(t, err)
	assert.Equal(t, "solved", string(out))
}

func TestExternalInterpreterWrapsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter shim requires a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "finesse.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0755))

	interp := ExternalInterpreter{BinaryPath: bin}
	_, err := interp.Run(context.Background(), "script.k")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
