package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	b := New("/bin/true", "local", 1)
	assert.Equal(t, "local", b.Name())
}

func TestSubmitRunsWrapperInJobDir(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	// A tiny shell script stands in for the compiled wrapper binary: it
	// writes a marker file into its own working directory.
	script := filepath.Join(dir, "fake-wrapper.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntouch ran\n"), 0755))

	b := New(script, "local", 1)
	_, err := b.Submit(context.Background(), dir, "job-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(marker)
		return statErr == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopUntrackedJobIsNoop(t *testing.T) {
	b := New("/bin/true", "local", 1)
	err := b.Stop(context.Background(), "never-submitted", "")
	assert.NoError(t, err)
}

func TestSubmitQueueFullReturnsError(t *testing.T) {
	b := &Backend{jobs: make(chan job)} // unbuffered, no workers draining it
	_, err := b.Submit(context.Background(), t.TempDir(), "job-1")
	assert.Error(t, err)
}
