package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adacs-australia/finorch/pkg/finconfig"
)

func TestParseKeyArgsNamedSession(t *testing.T) {
	callsign, host, keyPath, err := parseKeyArgs([]string{"ozstar", "/keys/oz.pem"}, setSSHKeyUsage)
	require.NoError(t, err)
	assert.Equal(t, "ozstar", callsign)
	assert.Empty(t, host)
	assert.Equal(t, "/keys/oz.pem", keyPath)
}

func TestParseKeyArgsGenericSshSession(t *testing.T) {
	callsign, host, keyPath, err := parseKeyArgs([]string{"ssh", "myvm.example.org", "/keys/vm.pem"}, setSSHKeyUsage)
	require.NoError(t, err)
	assert.Equal(t, "ssh", callsign)
	assert.Equal(t, "myvm.example.org", host)
	assert.Equal(t, "/keys/vm.pem", keyPath)
}

func TestParseKeyArgsRejectsNonSshSession(t *testing.T) {
	_, _, _, err := parseKeyArgs([]string{"local", "/keys/x.pem"}, setSSHKeyUsage)
	assert.Error(t, err)
}

func TestParseKeyArgsRejectsUnknownSession(t *testing.T) {
	_, _, _, err := parseKeyArgs([]string{"nope", "/keys/x.pem"}, setSSHKeyUsage)
	assert.Error(t, err)
}

func TestParseKeyArgsRejectsWrongArgCountForNamedSession(t *testing.T) {
	_, _, _, err := parseKeyArgs([]string{"ozstar", "extra", "/keys/x.pem"}, setSSHKeyUsage)
	assert.Error(t, err)
}

func TestParseKeyArgsRejectsWrongArgCountForGenericSession(t *testing.T) {
	_, _, _, err := parseKeyArgs([]string{"ssh", "/keys/x.pem"}, setSSHKeyUsage)
	assert.Error(t, err)
}

func TestParseKeyArgsRejectsEmptyArgs(t *testing.T) {
	_, _, _, err := parseKeyArgs(nil, setSSHKeyUsage)
	assert.Error(t, err)
}

// removeSSHKeyCmd's RunE appends a placeholder key path so parseKeyArgs'
// length arithmetic, tuned for set-ssh-key's one-extra-argument form,
// validates remove's argument count unmodified.
func TestParseKeyArgsAcceptsRemovePlaceholderForm(t *testing.T) {
	callsign, host, _, err := parseKeyArgs(append([]string{"ozstar"}, "-"), removeSSHKeyUsage)
	require.NoError(t, err)
	assert.Equal(t, "ozstar", callsign)
	assert.Empty(t, host)

	callsign, host, _, err = parseKeyArgs(append([]string{"ssh", "myvm.example.org"}, "-"), removeSSHKeyUsage)
	require.NoError(t, err)
	assert.Equal(t, "ssh", callsign)
	assert.Equal(t, "myvm.example.org", host)
}

func TestApiConfigPathHonoursEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-api.ini")
	t.Setenv("FINORCH_API_CONFIG", path)
	assert.Equal(t, path, apiConfigPath())
}

func TestApiConfigPathFallsBackToHomeFinorch(t *testing.T) {
	t.Setenv("FINORCH_API_CONFIG", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".finorch", "api.ini"), apiConfigPath())
}

func TestSetAndRemoveSSHKeyRoundTripThroughAPIConfig(t *testing.T) {
	apiPath := filepath.Join(t.TempDir(), "api.ini")
	api := finconfig.NewAPIConfig(apiPath)

	require.NoError(t, api.Set("ozstar", "key", "-----BEGIN KEY-----\nfake\n-----END KEY-----"))
	key, ok, err := api.Get("ozstar", "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, key, "BEGIN KEY")

	require.NoError(t, api.Set("ozstar", "key", ""))
	key, ok, err = api.Get("ozstar", "key")
	require.NoError(t, err)
	require.False(t, ok)
	assert.Empty(t, key)
}

func TestRootCmdSetSshKeyRejectsMissingKeyFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINORCH_API_CONFIG", filepath.Join(dir, "api.ini"))

	cmd := rootCmd()
	cmd.SetArgs([]string{"set-ssh-key", "ozstar", filepath.Join(dir, "does-not-exist.pem")})
	cmd.SetOut(os.Stdout)
	err := cmd.Execute()
	assert.Error(t, err)
}
