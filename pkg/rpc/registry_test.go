package rpc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct{ Value string }
type echoReply struct{ Value string }

type echoService struct{}

func (e *echoService) Echo(args echoArgs, reply *echoReply) error {
	reply.Value = args.Value
	return nil
}

func TestRegistryListMethodsIncludesSystem(t *testing.T) {
	reg := NewRegistry()
	methods := reg.ListMethods()
	assert.Contains(t, methods, "System.ListMethods")
}

func TestRegistryListMethodsIncludesRegistered(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("Echo", &echoService{}))

	assert.Contains(t, reg.ListMethods(), "Echo.Echo")
}

func TestRegistryServeAndDial(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("Echo", &echoService{}))

	port, shutdown, err := reg.ListenAndServe()
	require.NoError(t, err)
	defer shutdown()

	client, err := Dial(fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer client.Close()

	var reply echoReply
	require.NoError(t, client.Call("Echo.Echo", echoArgs{Value: "hello"}, &reply))
	assert.Equal(t, "hello", reply.Value)

	methods, err := Probe(client)
	require.NoError(t, err)
	assert.Contains(t, methods, "Echo.Echo")
}
