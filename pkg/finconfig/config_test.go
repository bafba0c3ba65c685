package finconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigGetPortMissing(t *testing.T) {
	cfg := NewClientConfig(filepath.Join(t.TempDir(), "client.ini"))
	_, ok, err := cfg.GetPort()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientConfigSetThenGetPort(t *testing.T) {
	cfg := NewClientConfig(filepath.Join(t.TempDir(), "client.ini"))
	require.NoError(t, cfg.SetPort(1234))

	port, ok, err := cfg.GetPort()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1234, port)
}

func TestWrapperConfigSetThenGetPort(t *testing.T) {
	cfg := NewWrapperConfig(filepath.Join(t.TempDir(), "wrapper.ini"))
	_, ok, err := cfg.GetPort()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cfg.SetPort(5678))
	port, ok, err := cfg.GetPort()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5678, port)
}

func TestAPIConfigNamedSession(t *testing.T) {
	cfg := NewAPIConfig(filepath.Join(t.TempDir(), "api.ini"))

	_, ok, err := cfg.Get("ozstar", "key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cfg.Set("ozstar", "key", "-----BEGIN PEM-----"))
	value, ok, err := cfg.Get("ozstar", "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "-----BEGIN PEM-----", value)
}

func TestAPIConfigGenericSshSession(t *testing.T) {
	cfg := NewAPIConfig(filepath.Join(t.TempDir(), "api.ini"))

	require.NoError(t, cfg.Set("ssh", "myvm.hpc.swin.edu.au", "-----BEGIN PEM-----"))
	value, ok, err := cfg.Get("ssh", "myvm.hpc.swin.edu.au")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "-----BEGIN PEM-----", value)
}

func TestSetSshKeyThenRemoveIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.ini")
	cfg := NewAPIConfig(path)

	require.NoError(t, cfg.Set("ozstar", "key", "-----BEGIN PEM-----"))
	require.NoError(t, cfg.Set("ozstar", "key", "")) // remove_ssh_key

	_, ok, err := cfg.Get("ozstar", "key")
	require.NoError(t, err)
	assert.False(t, ok, "an emptied key should read back as absent")
}
