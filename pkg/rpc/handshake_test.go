package rpc

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeRoundTripSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHandshake(&buf, 54321))

	port, err := ReadHandshake(bufio.NewScanner(&buf))
	require.NoError(t, err)
	assert.Equal(t, 54321, port)
}

func TestHandshakeRoundTripError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHandshakeError(&buf, "Session type bogus does not exist."))

	_, err := ReadHandshake(bufio.NewScanner(&buf))
	require.Error(t, err)
	assert.Equal(t, "Session type bogus does not exist.", err.Error())
}

func TestHandshakeErrorMultilineDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHandshakeError(&buf, "first line\nsecond line"))

	_, err := ReadHandshake(bufio.NewScanner(&buf))
	require.Error(t, err)
	assert.Equal(t, "first line\nsecond line", err.Error())
}

func TestHandshakeMalformedPort(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("not-a-port\n=EOF=\n")

	_, err := ReadHandshake(bufio.NewScanner(&buf))
	assert.Error(t, err)
}
