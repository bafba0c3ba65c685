package clientd

import "context"

// Backend is what a Client delegates actual job execution to. The three
// implementations (pkg/backend/local, pkg/backend/slurm, pkg/backend/
// condor) differ only in how Submit gets the wrapper bootstrap running and
// what, if anything, they hand back as a batch id.
type Backend interface {
	// Name identifies the backend for metrics labels ("local", "slurm",
	// "condor").
	Name() string

	// Submit starts the wrapper bootstrap for identifier inside jobDir
	// and returns the scheduler's handle for the submission, or an empty
	// string if the backend has none (e.g. the local pool). An error
	// here surfaces to the driver as TransportStartJobError.
	Submit(ctx context.Context, jobDir, identifier string) (batchID string, err error)

	// Stop requests cancellation of a previously submitted job. Called
	// only when the job is known not to already be terminal.
	Stop(ctx context.Context, identifier, batchID string) error
}
