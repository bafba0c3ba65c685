package transport

import (
	"context"

	"github.com/adacs-australia/finorch/pkg/jobtypes"
)

// Transport is the driver-side abstraction translating Session operations
// into RPC calls against a client, regardless of how that client was
// reached (a local child process, or one bootstrapped/reattached over
// SSH).
type Transport interface {
	// Connect establishes or reattaches an RPC channel and returns the
	// port the client is bound on. remotePort of 0 means "no reattach
	// candidate, proceed to a fresh connect/spawn." Idempotent-safe to
	// retry.
	Connect(ctx context.Context, remotePort int) (int, error)

	// StartJob forwards script to the client and returns the identifier
	// it assigned.
	StartJob(ctx context.Context, script []byte) (string, error)

	// GetJobs returns every known job, ordered by strictly increasing
	// registry id.
	GetJobs(ctx context.Context) ([]jobtypes.JobRecord, error)

	// GetJobStatus returns the current status for identifier.
	GetJobStatus(ctx context.Context, identifier string) (jobtypes.Status, error)

	// GetJobSolution returns data.pickle's bytes for a COMPLETED job.
	GetJobSolution(ctx context.Context, identifier string) ([]byte, error)

	// GetJobFile returns relPath's bytes from identifier's working
	// directory.
	GetJobFile(ctx context.Context, identifier, relPath string) ([]byte, error)

	// GetJobFileList lists identifier's working directory contents.
	GetJobFileList(ctx context.Context, identifier string) ([]jobtypes.JobFile, error)

	// StopJob requests cancellation of identifier. Idempotent; a no-op if
	// the job is already terminal.
	StopJob(ctx context.Context, identifier string) error

	// Terminate signals the client to stop its RPC loop and releases
	// local transport resources.
	Terminate(ctx context.Context) error
}
