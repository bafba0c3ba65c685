/*
Package rpc implements finorch's structured-RPC dialect: method name,
positional arguments, typed result, served over HTTP at a custom path so the
client and wrapper can each host their own endpoint in the same process
without colliding on http.DefaultServeMux.

It is built on the standard library's net/rpc rather than a schema-compiled
RPC framework, since the dialect calls for free-form name+argument dispatch
against an explicit method registry (no .proto-generated types). Registry
wraps an *rpc.Server, tracks every method registered through it so it can
answer System.ListMethods the way the original's xmlrpc.client.system.
listMethods did, and exposes that same call as a generic liveness probe used
by both LocalTransport's connectivity check and SshTransport's reattach path.

ListenAndServe also mounts pkg/metrics's promhttp handler at /metrics
alongside the RPC path, so a client or wrapper process exposes its job
counters on the same loopback port it hands back in the handshake.
*/
package rpc
