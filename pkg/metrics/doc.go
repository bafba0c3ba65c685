/*
Package metrics provides Prometheus metrics for finorch's client daemons and
wrappers: job lifecycle counts and durations, RPC call counts and latency, and
SSH transport reconnect outcomes. Handler returns the standard promhttp
handler for mounting alongside the RPC endpoint; Timer is a small helper for
recording histogram observations around a block of code.
*/
package metrics
