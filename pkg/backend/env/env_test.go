package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSkipsFunctionExports(t *testing.T) {
	t.Setenv("FINORCH_TEST_A", "B")
	t.Setenv("FINORCH_TEST_C", "D E")
	os.Setenv("FINORCH_TEST_F()", "G H")
	t.Cleanup(func() { os.Unsetenv("FINORCH_TEST_F()") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, `FINORCH_TEST_A="B"`)
	assert.Contains(t, contents, `FINORCH_TEST_C="D E"`)
	assert.NotContains(t, contents, "FINORCH_TEST_F")
}

// TestWriteSkipsNonIdentifierKeysWithoutParens covers a non-identifier key
// that contains no parentheses at all, e.g. the "%%"-suffixed shadow names
// bash uses for exported functions under CVE-2014-6271 mitigations — the
// paren check alone would have let this one through.
func TestWriteSkipsNonIdentifierKeysWithoutParens(t *testing.T) {
	t.Setenv("FINORCH_TEST_A", "B")
	os.Setenv("BASH_FUNC_foo%%", "() { :; }")
	t.Cleanup(func() { os.Unsetenv("BASH_FUNC_foo%%") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, `FINORCH_TEST_A="B"`)
	assert.NotContains(t, contents, "BASH_FUNC_foo")
}
