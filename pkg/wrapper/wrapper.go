// Package wrapper implements the per-job bootstrap that spec.md §4.7
// describes: chdir into the job's working directory, redirect standard
// streams, discover and poll-probe the client's RPC endpoint from
// wrapper.ini, start its own loopback RPC endpoint the client can call to
// cancel the job early, run the script interpreter, and leave the
// started/finished sentinel files the client polls for status.
package wrapper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/flog"
	"github.com/adacs-australia/finorch/pkg/netprobe"
	finrpc "github.com/adacs-australia/finorch/pkg/rpc"
)

// scriptFileName is the job's opaque script payload, written by the client
// before the backend submits the job.
const scriptFileName = "script.k"

// solutionFileName holds the interpreter's marshalled result.
const solutionFileName = "data.pickle"

// Interpreter runs an opaque script and returns its marshalled solution.
// Production wiring shells out to the external script-interpreting engine
// (treated as opaque per spec.md §1); the wrapper never parses scriptPath's
// contents itself.
type Interpreter interface {
	Run(ctx context.Context, scriptPath string) (solution []byte, err error)
}

// Options groups Bootstrap's inputs.
type Options struct {
	// WorkDir is exec_path/<identifier>, already created by the backend
	// that launched this process.
	WorkDir     string
	Callsign    string
	Interpreter Interpreter
}

type terminateArgs struct{}
type terminateReply struct{ OK bool }

// rpcHandler exposes Terminate over the wrapper's own loopback RPC
// endpoint, cancelling the context the interpreter run was given.
type rpcHandler struct {
	cancel context.CancelFunc
}

func (h *rpcHandler) Terminate(_ terminateArgs, reply *terminateReply) error {
	h.cancel()
	reply.OK = true
	return nil
}

// Bootstrap runs the full per-job lifecycle in the current process and
// returns only once the job has finished (successfully or not) — it never
// returns an error for an interpreter failure, matching spec.md §4.7's
// "any exception in step 6 is logged; finished is still written."
// Bootstrap itself only errors on failures in the surrounding machinery
// (chdir, stream redirection, RPC bind) that leave the job unable to run
// at all.
func Bootstrap(parentCtx context.Context, opts Options) error {
	if err := os.Chdir(opts.WorkDir); err != nil {
		return fmt.Errorf("chdir to %s: %w", opts.WorkDir, err)
	}

	log := flog.InitWrapper(opts.WorkDir).With().Str("callsign", opts.Callsign).Logger()

	if err := redirectStreams("out.log", "out.err"); err != nil {
		return fmt.Errorf("redirect standard streams: %w", err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	wcfg := finconfig.NewWrapperConfig(filepath.Join(opts.WorkDir, "wrapper.ini"))
	clientPort, ok, err := wcfg.GetPort()
	if err != nil {
		return fmt.Errorf("read wrapper.ini: %w", err)
	}
	if !ok {
		return fmt.Errorf("wrapper.ini has no client port; the client must write it before launching the wrapper")
	}
	if err := netprobe.WaitReachable(ctx, fmt.Sprintf("127.0.0.1:%d", clientPort)); err != nil {
		return fmt.Errorf("wait for client rpc endpoint: %w", err)
	}

	reg := finrpc.NewRegistry()
	if err := reg.Register("Wrapper", &rpcHandler{cancel: cancel}); err != nil {
		return fmt.Errorf("register wrapper rpc: %w", err)
	}
	_, shutdown, err := reg.ListenAndServe()
	if err != nil {
		return fmt.Errorf("start wrapper rpc endpoint: %w", err)
	}
	defer shutdown()

	if err := touch("started"); err != nil {
		return fmt.Errorf("touch started: %w", err)
	}

	runJob(ctx, log, opts.Interpreter)

	if err := touch("finished"); err != nil {
		log.Error().Err(err).Msg("touch finished")
	}
	return nil
}

func runJob(ctx context.Context, log zerolog.Logger, interpreter Interpreter) {
	log.Info().Msg("starting script interpreter")

	solution, err := interpreter.Run(ctx, scriptFileName)
	if err != nil {
		log.Error().Err(err).Msg("script interpreter failed")
		return
	}

	if err := os.WriteFile(solutionFileName, solution, 0644); err != nil {
		log.Error().Err(err).Msg("write data.pickle")
	}
	log.Info().Msg("script interpreter completed")
}

func touch(name string) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// redirectStreams reassigns the process-wide stdout/stderr so both direct
// writes and any child process this wrapper later spawns inherit the
// job's own log files, standing in for the original's sys.stdout
// reassignment.
func redirectStreams(stdoutPath, stderrPath string) error {
	outFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", stdoutPath, err)
	}
	errFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		outFile.Close()
		return fmt.Errorf("open %s: %w", stderrPath, err)
	}
	os.Stdout = outFile
	os.Stderr = errFile
	return nil
}
