// Package local implements the in-process backend: jobs run through a
// bounded worker pool that execs the wrapper binary directly in the job's
// working directory, mirroring the original session's
// multiprocessing.Pool-backed submission.
package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/flog"
)

// Backend runs every submitted job as a child process of the wrapper
// binary, queued onto a fixed-size worker pool sized like
// multiprocessing.Pool()'s default of one worker per CPU.
type Backend struct {
	wrapperPath string
	callsign    string
	log         zerolog.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu    sync.Mutex
	procs map[string]*os.Process
}

type job struct {
	dir        string
	identifier string
}

// New starts a pool of workers (sized workers, or runtime.NumCPU() when
// callers pass 0) draining submitted jobs and running wrapperPath callsign
// inside each job's working directory.
func New(wrapperPath, callsign string, workers int) *Backend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	b := &Backend{
		wrapperPath: wrapperPath,
		callsign:    callsign,
		log:         flog.WithComponent("backend.local"),
		jobs:        make(chan job, 256),
		procs:       make(map[string]*os.Process),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Name identifies this backend for metrics labels.
func (b *Backend) Name() string { return "local" }

// Submit enqueues the job for a pool worker and returns immediately; the
// local backend has no scheduler-assigned batch id.
func (b *Backend) Submit(ctx context.Context, jobDir, identifier string) (string, error) {
	select {
	case b.jobs <- job{dir: jobDir, identifier: identifier}:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("local backend job queue is full")
	}
}

// Stop signals the process group running identifier, if it is still
// tracked, with SIGTERM.
func (b *Backend) Stop(ctx context.Context, identifier, batchID string) error {
	b.mu.Lock()
	proc, ok := b.procs[identifier]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return syscall.Kill(-proc.Pid, syscall.SIGTERM)
}

func (b *Backend) worker() {
	defer b.wg.Done()
	for j := range b.jobs {
		b.run(j)
	}
}

func (b *Backend) run(j job) {
	cmd := exec.Command(b.wrapperPath, b.callsign)
	cmd.Dir = j.dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	outFile, err := os.Create(j.dir + "/out.log")
	if err != nil {
		b.log.Error().Err(err).Str("job_id", j.identifier).Msg("create out.log")
		return
	}
	defer outFile.Close()
	cmd.Stdout = outFile
	cmd.Stderr = outFile

	if err := cmd.Start(); err != nil {
		b.log.Error().Err(err).Str("job_id", j.identifier).Msg("start wrapper process")
		return
	}

	b.mu.Lock()
	b.procs[j.identifier] = cmd.Process
	b.mu.Unlock()

	if err := cmd.Wait(); err != nil {
		b.log.Warn().Err(err).Str("job_id", j.identifier).Msg("wrapper process exited non-zero")
	}

	b.mu.Lock()
	delete(b.procs, j.identifier)
	b.mu.Unlock()
}
