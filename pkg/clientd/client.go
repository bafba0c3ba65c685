package clientd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/flog"
	"github.com/adacs-australia/finorch/pkg/jobtypes"
	"github.com/adacs-australia/finorch/pkg/metrics"
	"github.com/adacs-australia/finorch/pkg/registry"
	"github.com/adacs-australia/finorch/pkg/transport"
)

// scriptFileName is the opaque script payload every job's working
// directory carries, written verbatim from StartJob's argument.
const scriptFileName = "script.k"

// Client owns one execution root: its registry, its backend, and the RPC
// server handle used to stop accepting requests on terminate().
type Client struct {
	mu       sync.Mutex
	execPath string
	ownsTemp bool
	db       *registry.DB
	backend  Backend
	shutdown func() error
	log      zerolog.Logger
	token    string
	rpcPort  int
}

// New builds a Client that will submit jobs through backend. SetExecPath
// must be called before any other method. A random reattach token is
// generated immediately so a later SshTransport reattach can sanity-check
// it is talking to the same client instance (spec.md §9's same-user open
// question, resolved as a warn-only check).
func New(backend Backend) *Client {
	return &Client{backend: backend, log: flog.WithComponent("clientd"), token: uuid.NewString()}
}

// ReattachToken returns the token generated at construction time.
func (c *Client) ReattachToken() string {
	return c.token
}

// SetShutdown registers the func Terminate calls to stop the RPC listener.
func (c *Client) SetShutdown(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = fn
}

// SetRPCPort records the port this client's own RPC endpoint is bound to,
// so StartJob can write it into each job's wrapper.ini (spec.md §4.7 step
// 3: the wrapper discovers the client's RPC port from that file before
// doing anything else).
func (c *Client) SetRPCPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rpcPort = port
}

// ExecPath returns the execution root, valid only after SetExecPath.
func (c *Client) ExecPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.execPath
}

// SetExecPath sets the execution root and opens its registry. An empty
// path creates a scoped temporary directory instead, released on an
// orderly Terminate and left in place for post-mortem on a crash —
// reproducing AbstractClient's atexit-registered TemporaryDirectory.
func (c *Client) SetExecPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path != "" {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create exec path: %w", err)
		}
		c.execPath = path
	} else {
		dir, err := os.MkdirTemp("", "finorch-")
		if err != nil {
			return fmt.Errorf("create scoped exec path: %w", err)
		}
		c.execPath = dir
		c.ownsTemp = true
	}

	db, err := registry.Open(c.execPath)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	c.db = db
	return nil
}

func (c *Client) requireDB() (*registry.DB, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, "", transport.ErrDatabaseNotConfigured
	}
	return c.db, c.execPath, nil
}

// jobDir returns the path for identifier under execPath; it is the
// caller's responsibility to have already validated execPath is set.
func jobDir(execPath, identifier string) string {
	return filepath.Join(execPath, identifier)
}

// deriveStatus promotes stored to RUNNING/COMPLETED based on the
// started/finished sentinel files, per spec.md §4.4. It never demotes and
// never consults the filesystem for an already-terminal job.
func deriveStatus(dir string, stored jobtypes.Status) jobtypes.Status {
	if stored.Terminal() {
		return stored
	}
	if _, err := os.Stat(filepath.Join(dir, "finished")); err == nil {
		return jobtypes.StatusCompleted
	}
	if _, err := os.Stat(filepath.Join(dir, "started")); err == nil {
		return jobtypes.StatusRunning
	}
	return stored
}

// StartJob creates the job's working directory, writes script.k, registers
// a PENDING row, and hands the job to the backend. It returns (identifier,
// "") on success or ("", message) on failure — the wire's pair convention.
func (c *Client) StartJob(script []byte) (string, string) {
	db, execPath, err := c.requireDB()
	if err != nil {
		return "", err.Error()
	}

	timer := metrics.NewTimer()
	identifier := uuid.NewString()
	dir := jobDir(execPath, identifier)

	if err := os.MkdirAll(dir, 0755); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("create job directory")
		return "", err.Error()
	}
	if err := os.WriteFile(filepath.Join(dir, scriptFileName), script, 0644); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("write script.k")
		return "", err.Error()
	}

	c.mu.Lock()
	rpcPort := c.rpcPort
	c.mu.Unlock()
	wcfg := finconfig.NewWrapperConfig(filepath.Join(dir, "wrapper.ini"))
	if err := wcfg.SetPort(rpcPort); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("write wrapper.ini")
		return "", err.Error()
	}

	if _, err := db.AddJob(identifier, ""); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("insert registry row")
		return "", err.Error()
	}

	batchID, err := c.backend.Submit(context.Background(), dir, identifier)
	if err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("submit job")
		_ = db.RemoveJob(identifier)
		_ = os.RemoveAll(dir)
		return "", err.Error()
	}

	if batchID != "" {
		if err := db.UpdateJobBatchID(identifier, batchID); err != nil {
			c.log.Error().Err(err).Str("job_id", identifier).Msg("record batch id")
		}
	}
	if err := db.UpdateJobStatus(identifier, jobtypes.StatusQueued); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("mark job queued")
	}

	metrics.JobsSubmittedTotal.WithLabelValues(c.backend.Name()).Inc()
	timer.ObserveDurationVec(metrics.JobSubmitDuration, c.backend.Name())
	return identifier, ""
}

// GetJobStatus returns the current status, promoting and persisting it
// from the filesystem sentinels first if needed.
func (c *Client) GetJobStatus(identifier string) (jobtypes.Status, string) {
	db, execPath, err := c.requireDB()
	if err != nil {
		return 0, err.Error()
	}

	stored, err := db.GetJobStatus(identifier)
	if err != nil {
		return 0, fmt.Sprintf("unknown job %s", identifier)
	}

	derived := deriveStatus(jobDir(execPath, identifier), stored)
	if derived != stored {
		if err := db.UpdateJobStatus(identifier, derived); err != nil {
			c.log.Error().Err(err).Str("job_id", identifier).Msg("persist derived status")
		}
		if derived.Terminal() {
			metrics.JobsCompletedTotal.WithLabelValues(c.backend.Name(), derived.String()).Inc()
		}
	}
	return derived, ""
}

// GetJobSolution returns data.pickle's bytes, failing if the job is not
// COMPLETED or the file is missing.
func (c *Client) GetJobSolution(identifier string) ([]byte, string) {
	db, execPath, err := c.requireDB()
	if err != nil {
		return nil, err.Error()
	}

	stored, err := db.GetJobStatus(identifier)
	if err != nil {
		return nil, fmt.Sprintf("unknown job %s", identifier)
	}
	dir := jobDir(execPath, identifier)
	status := deriveStatus(dir, stored)
	if status != jobtypes.StatusCompleted {
		return nil, fmt.Sprintf("job %s is not completed", identifier)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data.pickle"))
	if err != nil {
		return nil, err.Error()
	}
	return data, ""
}

// GetJobFile returns relPath's bytes from identifier's working directory,
// rejecting any path that resolves outside it.
func (c *Client) GetJobFile(identifier, relPath string) ([]byte, string) {
	_, execPath, err := c.requireDB()
	if err != nil {
		return nil, err.Error()
	}

	dir := filepath.Clean(jobDir(execPath, identifier))
	full := filepath.Clean(filepath.Join(dir, relPath))
	if full != dir && !strings.HasPrefix(full, dir+string(os.PathSeparator)) {
		return nil, "path escapes job working directory"
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err.Error()
	}
	return data, ""
}

// GetJobFileList walks identifier's working directory and returns every
// file found.
func (c *Client) GetJobFileList(identifier string) ([]jobtypes.JobFile, string) {
	_, execPath, err := c.requireDB()
	if err != nil {
		return nil, err.Error()
	}

	dir := jobDir(execPath, identifier)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Sprintf("unknown job %s", identifier)
	}

	var files []jobtypes.JobFile
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, jobtypes.JobFile{Name: rel, Size: info.Size(), MTime: info.ModTime()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr.Error()
	}
	return files, ""
}

// GetJobs returns every row in insertion order.
func (c *Client) GetJobs() ([]jobtypes.JobRecord, string) {
	db, _, err := c.requireDB()
	if err != nil {
		return nil, err.Error()
	}
	records, err := db.GetJobs()
	if err != nil {
		return nil, err.Error()
	}
	return records, ""
}

// StopJob cancels identifier through the backend. It is idempotent: a job
// already in a terminal state is left untouched.
func (c *Client) StopJob(identifier string) string {
	db, _, err := c.requireDB()
	if err != nil {
		return err.Error()
	}

	status, err := db.GetJobStatus(identifier)
	if err != nil {
		return fmt.Sprintf("unknown job %s", identifier)
	}
	if status.Terminal() {
		return ""
	}

	batchID, _ := db.GetJobBatchID(identifier)
	if err := c.backend.Stop(context.Background(), identifier, batchID); err != nil {
		return err.Error()
	}
	if err := db.UpdateJobStatus(identifier, jobtypes.StatusCancelled); err != nil {
		c.log.Error().Err(err).Str("job_id", identifier).Msg("persist cancelled status")
	}
	metrics.JobsCompletedTotal.WithLabelValues(c.backend.Name(), jobtypes.StatusCancelled.String()).Inc()
	return ""
}

// Terminate stops the RPC listener (asynchronously, so this call's own
// reply still makes it back) and releases the scoped temp directory if
// this Client owns one. It always succeeds.
func (c *Client) Terminate() bool {
	c.mu.Lock()
	shutdown := c.shutdown
	ownsTemp := c.ownsTemp
	execPath := c.execPath
	db := c.db
	c.mu.Unlock()

	if shutdown != nil {
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = shutdown()
		}()
	}
	if db != nil {
		_ = db.Close()
	}
	if ownsTemp {
		_ = os.RemoveAll(execPath)
	}
	return true
}
