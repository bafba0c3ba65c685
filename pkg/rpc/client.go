package rpc

import (
	"fmt"
	"net/rpc"
)

// Dial opens an RPC client to addr's /rpc endpoint, matching
// xmlrpc.client.ServerProxy(f'http://localhost:{port}/rpc').
func Dial(addr string) (*rpc.Client, error) {
	client, err := rpc.DialHTTPPath("tcp", addr, DefaultRPCPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s%s: %w", addr, DefaultRPCPath, err)
	}
	return client, nil
}

// Probe calls System.ListMethods and returns the registered method names.
// It is used both as a bare liveness check (the caller only cares whether
// the call succeeds) and to consolidate what the original implemented ad
// hoc per-transport: socket.connect_ex for LocalTransport, an RPC call for
// SshTransport reattach.
func Probe(client *rpc.Client) ([]string, error) {
	var methods []string
	if err := client.Call("System.ListMethods", struct{}{}, &methods); err != nil {
		return nil, fmt.Errorf("probe System.ListMethods: %w", err)
	}
	return methods, nil
}
