// Package transport defines the driver-facing Transport contract and the
// typed errors its implementations (pkg/transport/local,
// pkg/transport/ssh) raise. A Transport turns Session calls into RPCs
// against a client; callers never see the client's raw (value, message)
// pairs, only these typed errors.
package transport
