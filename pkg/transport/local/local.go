// Package local implements the LocalTransport driver-side transport: it
// talks to a finorch-client process running on the same host, reattaching
// to one already listening on a stored port or spawning a fresh one.
package local

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/rpc"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/clientd"
	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/flog"
	"github.com/adacs-australia/finorch/pkg/jobtypes"
	fin_rpc "github.com/adacs-australia/finorch/pkg/rpc"
	"github.com/adacs-australia/finorch/pkg/transport"
)

// dialTimeout bounds the liveness probe used to decide whether a stored
// port is still serving before falling back to spawning a fresh client.
const dialTimeout = 500 * time.Millisecond

// Transport drives a finorch-client process on the local host.
type Transport struct {
	// ClientBinary is the finorch-client executable's path.
	ClientBinary string
	Config       *finconfig.ClientConfig

	log zerolog.Logger

	mu        sync.Mutex
	client    *rpc.Client
	connected bool
	port      int
}

// New builds a LocalTransport that reads/writes its port through config.
func New(clientBinary string, config *finconfig.ClientConfig) *Transport {
	return &Transport{ClientBinary: clientBinary, Config: config, log: flog.WithComponent("transport.local")}
}

// Connect reattaches to a previously recorded port if it is still alive,
// otherwise spawns a new finorch-client process and reads its handshake.
// remotePort is accepted for interface-uniformity but unused: locality
// means there is never a separate reattach hint to honor.
func (t *Transport) Connect(ctx context.Context, _ int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if port, ok, err := t.Config.GetPort(); err == nil && ok {
		if client, dialErr := t.dialAndProbe(port); dialErr == nil {
			t.client = client
			t.port = port
			t.connected = true
			return port, nil
		}
	}

	port, err := t.spawn(ctx)
	if err != nil {
		return 0, transport.NewConnectionError("spawn local client: %s", err)
	}

	client, err := t.dialAndProbe(port)
	if err != nil {
		return 0, transport.NewConnectionError("dial spawned client: %s", err)
	}
	if err := t.Config.SetPort(port); err != nil {
		t.log.Warn().Err(err).Msg("persist client port")
	}

	t.client = client
	t.port = port
	t.connected = true
	return port, nil
}

func (t *Transport) dialAndProbe(port int) (*rpc.Client, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	conn.Close()

	client, err := fin_rpc.Dial(addr)
	if err != nil {
		return nil, err
	}
	if _, err := fin_rpc.Probe(client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// spawn launches the client binary with the "local" session argument and
// reads its stdout handshake, leaving the process running in the
// background once the port line has been consumed.
func (t *Transport) spawn(ctx context.Context) (int, error) {
	cmd := exec.Command(t.ClientBinary, "local")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	go func() { _ = cmd.Wait() }()

	scanner := bufio.NewScanner(stdout)
	port, err := fin_rpc.ReadHandshake(scanner)
	if err != nil {
		return 0, err
	}
	return port, nil
}

func (t *Transport) call(serviceMethod string, args, reply interface{}) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return transport.NewConnectionError("not connected")
	}
	return client.Call(serviceMethod, args, reply)
}

// StartJob forwards the script to the client and returns its assigned
// identifier.
func (t *Transport) StartJob(ctx context.Context, script []byte) (string, error) {
	var reply clientd.StartJobReply
	if err := t.call("Client.StartJob", clientd.StartJobArgs{Script: script}, &reply); err != nil {
		return "", transport.NewStartJobError("%s", err)
	}
	if reply.Failed() {
		return "", transport.NewStartJobError("%s", reply.ErrMsg)
	}
	return reply.Identifier, nil
}

// GetJobs returns every job row in insertion order.
func (t *Transport) GetJobs(ctx context.Context) ([]jobtypes.JobRecord, error) {
	var reply clientd.GetJobsReply
	if err := t.call("Client.GetJobs", clientd.GetJobsArgs{}, &reply); err != nil {
		return nil, transport.NewGetJobsError("%s", err)
	}
	if reply.Failed() {
		return nil, transport.NewGetJobsError("%s", reply.ErrMsg)
	}
	return reply.Jobs, nil
}

// GetJobStatus returns identifier's current status.
func (t *Transport) GetJobStatus(ctx context.Context, identifier string) (jobtypes.Status, error) {
	var reply clientd.GetJobStatusReply
	if err := t.call("Client.GetJobStatus", clientd.GetJobStatusArgs{Identifier: identifier}, &reply); err != nil {
		return 0, transport.NewGetJobStatusError("%s", err)
	}
	if reply.Failed() {
		return 0, transport.NewGetJobStatusError("%s", reply.ErrMsg)
	}
	return reply.Status, nil
}

// GetJobSolution returns identifier's marshalled solution bytes.
func (t *Transport) GetJobSolution(ctx context.Context, identifier string) ([]byte, error) {
	var reply clientd.GetJobSolutionReply
	if err := t.call("Client.GetJobSolution", clientd.GetJobSolutionArgs{Identifier: identifier}, &reply); err != nil {
		return nil, transport.NewGetJobSolutionError("%s", err)
	}
	if reply.Failed() {
		return nil, transport.NewGetJobSolutionError("%s", reply.ErrMsg)
	}
	return reply.Data, nil
}

// GetJobFile returns relPath's bytes from identifier's working directory.
func (t *Transport) GetJobFile(ctx context.Context, identifier, relPath string) ([]byte, error) {
	var reply clientd.GetJobFileReply
	if err := t.call("Client.GetJobFile", clientd.GetJobFileArgs{Identifier: identifier, RelPath: relPath}, &reply); err != nil {
		return nil, transport.NewGetJobFileError("%s", err)
	}
	if reply.Failed() {
		return nil, transport.NewGetJobFileError("%s", reply.ErrMsg)
	}
	return reply.Data, nil
}

// GetJobFileList lists identifier's working directory.
func (t *Transport) GetJobFileList(ctx context.Context, identifier string) ([]jobtypes.JobFile, error) {
	var reply clientd.GetJobFileListReply
	if err := t.call("Client.GetJobFileList", clientd.GetJobFileListArgs{Identifier: identifier}, &reply); err != nil {
		return nil, transport.NewGetJobFileListError("%s", err)
	}
	if reply.Failed() {
		return nil, transport.NewGetJobFileListError("%s", reply.ErrMsg)
	}
	return reply.Files, nil
}

// StopJob cancels identifier; idempotent on an already-terminal job.
func (t *Transport) StopJob(ctx context.Context, identifier string) error {
	var reply clientd.StopJobReply
	if err := t.call("Client.StopJob", clientd.StopJobArgs{Identifier: identifier}, &reply); err != nil {
		return transport.NewStopJobError("%s", err)
	}
	if reply.Failed() {
		return transport.NewStopJobError("%s", reply.ErrMsg)
	}
	return nil
}

// Terminate tells the client to stop its RPC loop and release resources.
func (t *Transport) Terminate(ctx context.Context) error {
	t.mu.Lock()
	connected := t.connected
	client := t.client
	t.mu.Unlock()
	if !connected {
		return transport.NewTerminateError("not connected")
	}

	var reply clientd.TerminateReply
	// The server tears itself down mid-reply; a transport fault here is
	// expected and tolerated, matching spec.md §4.3's terminate note.
	_ = client.Call("Client.Terminate", clientd.TerminateArgs{}, &reply)

	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	return nil
}
