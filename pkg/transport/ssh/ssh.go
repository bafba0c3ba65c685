// Package ssh implements the SshTransport driver-side transport: it
// bootstraps or reattaches to a finorch-client process running on a
// remote host, over an SSH connection it also uses to forward the RPC
// port back to a loopback listener on this host.
package ssh

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/rpc"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/adacs-australia/finorch/pkg/clientd"
	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/flog"
	"github.com/adacs-australia/finorch/pkg/jobtypes"
	fin_rpc "github.com/adacs-australia/finorch/pkg/rpc"
	"github.com/adacs-australia/finorch/pkg/transport"
)

// sshDialTimeout bounds the initial TCP+handshake phase of ssh.Dial.
const sshDialTimeout = 10 * time.Second

// Config describes one remote site reachable over SSH.
type Config struct {
	Host     string
	SSHPort  int // defaults to 22
	Username string
	Password string // offered as password auth after any key on file; never used as a key passphrase

	// ClientBinary is the finorch-client executable's path on the remote
	// host; EnvFile, if set, is sourced before it runs.
	ClientBinary string
	EnvFile      string
	Callsign     string
	ExecPath     string

	// IsGeneric selects the key-lookup form: true for a free-form "ssh
	// <host>" session (key stored in the shared "ssh" section keyed by
	// hostname), false for a named site session (key stored under its own
	// section as "key").
	IsGeneric bool

	// HostKeyCallback overrides the default of ssh.InsecureIgnoreHostKey().
	// Use KnownHostsCallback to build one backed by a known_hosts file.
	HostKeyCallback ssh.HostKeyCallback
}

func (c Config) port() int {
	if c.SSHPort == 0 {
		return 22
	}
	return c.SSHPort
}

// KnownHostsCallback builds a HostKeyCallback backed by path, the
// known_hosts option this config's original exposed alongside "ignore".
func KnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	return knownhosts.New(path)
}

// Transport drives a finorch-client process on a remote host reached over
// SSH, keeping the connection and its port-forward alive between calls.
type Transport struct {
	cfg Config
	api *finconfig.APIConfig
	log zerolog.Logger

	mu            sync.Mutex
	sshClient     *ssh.Client
	rpcClient     *rpc.Client
	listener      net.Listener
	connected     bool
	remotePort    int
	localPort     int
	expectedToken string
}

// New builds an SshTransport for cfg, resolving its key material from api
// at Connect time.
func New(cfg Config, api *finconfig.APIConfig) *Transport {
	return &Transport{cfg: cfg, api: api, log: flog.WithComponent("transport.ssh")}
}

// Connect reattaches to a remote client already listening on remotePort if
// one is given and still answers, otherwise spawns a fresh one. Per
// spec.md §4.3, a reattach failure falls through to a fresh spawn rather
// than failing outright.
func (t *Transport) Connect(ctx context.Context, remotePort int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sshClient, err := t.dialSSH()
	if err != nil {
		return 0, transport.NewConnectionError("ssh dial %s: %s", t.cfg.Host, err)
	}

	if remotePort != 0 {
		if port, rerr := t.reattachLocked(sshClient, remotePort); rerr == nil {
			return port, nil
		}
		t.log.Warn().Str("host", t.cfg.Host).Int("remote_port", remotePort).Msg("reattach failed, spawning a fresh client")
		sshClient.Close()

		sshClient, err = t.dialSSH()
		if err != nil {
			return 0, transport.NewConnectionError("ssh dial %s: %s", t.cfg.Host, err)
		}
	}

	port, err := t.freshSpawnLocked(ctx, sshClient)
	if err != nil {
		sshClient.Close()
		return 0, transport.NewConnectionError("spawn remote client on %s: %s", t.cfg.Host, err)
	}
	return port, nil
}

func (t *Transport) resolveKey() (string, bool, error) {
	if t.cfg.IsGeneric {
		return t.api.Get("ssh", t.cfg.Host)
	}
	return t.api.Get(t.cfg.Callsign, "key")
}

func (t *Transport) dialSSH() (*ssh.Client, error) {
	var auths []ssh.AuthMethod

	key, ok, err := t.resolveKey()
	if err != nil {
		return nil, fmt.Errorf("resolve ssh key: %w", err)
	}
	if ok {
		signer, perr := ssh.ParsePrivateKey([]byte(key))
		if perr != nil {
			return nil, fmt.Errorf("parse private key for %s: %w", t.cfg.Host, perr)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if t.cfg.Password != "" {
		auths = append(auths, ssh.Password(t.cfg.Password))
	}
	if len(auths) == 0 {
		return nil, fmt.Errorf("no ssh credential configured for %s", t.cfg.Host)
	}

	hostKeyCallback := t.cfg.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	clientConfig := &ssh.ClientConfig{
		User:            t.cfg.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         sshDialTimeout,
	}
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.port())
	return ssh.Dial("tcp", addr, clientConfig)
}

// reattachLocked opens the forward tunnel to a remote port a previous
// Connect recorded and probes it with System.ListMethods. Callers must
// hold t.mu.
func (t *Transport) reattachLocked(sshClient *ssh.Client, remotePort int) (int, error) {
	listener, localPort, err := t.openTunnel(sshClient, remotePort)
	if err != nil {
		return 0, err
	}

	client, err := fin_rpc.Dial(fmt.Sprintf("127.0.0.1:%d", localPort))
	if err != nil {
		listener.Close()
		return 0, err
	}
	if _, err := fin_rpc.Probe(client); err != nil {
		client.Close()
		listener.Close()
		return 0, err
	}

	t.checkReattachToken(client)

	t.sshClient = sshClient
	t.rpcClient = client
	t.listener = listener
	t.remotePort = remotePort
	t.localPort = localPort
	t.connected = true
	return remotePort, nil
}

// checkReattachToken warns, but never fails, when the client now answering
// carries a different token than the one recorded at the last fresh spawn
// (spec.md §9's same-user reattach sanity check).
func (t *Transport) checkReattachToken(client *rpc.Client) {
	if t.expectedToken == "" {
		return
	}
	var reply clientd.GetReattachTokenReply
	if err := client.Call("Client.GetReattachToken", clientd.GetReattachTokenArgs{}, &reply); err != nil {
		t.log.Warn().Err(err).Str("host", t.cfg.Host).Msg("could not verify reattached client identity")
		return
	}
	if reply.Token != t.expectedToken {
		t.log.Warn().Str("host", t.cfg.Host).Msg("reattached to a client instance different from the one this session last spawned")
	}
	t.expectedToken = reply.Token
}

// freshSpawnLocked opens an SSH session running the client binary, reads
// its handshake off stdout, forwards the reported port back to a loopback
// listener, and pushes the exec path. Callers must hold t.mu.
//
// The remote client's RPC loop never returns once it starts serving, so
// unlike a synchronous command this session's exit status never becomes
// ready in the success case; freshSpawnLocked treats consuming the
// handshake sentinel as the signal instead and reaps the session in the
// background rather than waiting on it.
func (t *Transport) freshSpawnLocked(ctx context.Context, sshClient *ssh.Client) (int, error) {
	session, err := sshClient.NewSession()
	if err != nil {
		return 0, err
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return 0, err
	}
	var stderrBuf bytes.Buffer
	session.Stderr = &stderrBuf

	if err := session.Start(t.buildSpawnCommand()); err != nil {
		session.Close()
		return 0, err
	}

	scanner := bufio.NewScanner(stdout)
	port, err := fin_rpc.ReadHandshake(scanner)
	if err != nil {
		session.Close()
		if diag := strings.TrimSpace(stderrBuf.String()); diag != "" {
			return 0, fmt.Errorf("%s (stderr: %s)", err, diag)
		}
		return 0, err
	}

	go func() {
		if waitErr := session.Wait(); waitErr != nil {
			t.log.Debug().Err(waitErr).Str("host", t.cfg.Host).Msg("remote client ssh session ended")
		}
	}()

	listener, localPort, err := t.openTunnel(sshClient, port)
	if err != nil {
		return 0, err
	}

	client, err := fin_rpc.Dial(fmt.Sprintf("127.0.0.1:%d", localPort))
	if err != nil {
		listener.Close()
		return 0, err
	}

	var setExecReply clientd.SetExecPathReply
	if err := client.Call("Client.SetExecPath", clientd.SetExecPathArgs{Path: t.cfg.ExecPath}, &setExecReply); err != nil {
		client.Close()
		listener.Close()
		return 0, fmt.Errorf("set_exec_path: %w", err)
	}
	if setExecReply.Failed() {
		client.Close()
		listener.Close()
		return 0, fmt.Errorf("set_exec_path: %s", setExecReply.ErrMsg)
	}

	var tokenReply clientd.GetReattachTokenReply
	if err := client.Call("Client.GetReattachToken", clientd.GetReattachTokenArgs{}, &tokenReply); err == nil {
		t.expectedToken = tokenReply.Token
	}

	t.sshClient = sshClient
	t.rpcClient = client
	t.listener = listener
	t.remotePort = port
	t.localPort = localPort
	t.connected = true
	return port, nil
}

// buildSpawnCommand renders the remote shell invocation: create and enter
// the exec path, optionally source an environment file, then exec the
// client binary with its callsign argument.
func (t *Transport) buildSpawnCommand() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mkdir -p %s && cd %s", shQuote(t.cfg.ExecPath), shQuote(t.cfg.ExecPath))
	if t.cfg.EnvFile != "" {
		fmt.Fprintf(&b, " && . %s", shQuote(t.cfg.EnvFile))
	}
	fmt.Fprintf(&b, " && exec %s %s", shQuote(t.cfg.ClientBinary), shQuote(t.cfg.Callsign))
	return fmt.Sprintf("bash --login -c %s", shQuote(b.String()))
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// openTunnel binds a loopback listener on this host and, for every
// connection accepted on it, opens a direct-tcpip channel to remotePort
// on the far side and duplexes the two.
func (t *Transport) openTunnel(sshClient *ssh.Client, remotePort int) (net.Listener, int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, err
	}
	localPort := listener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go t.forward(sshClient, conn, remotePort)
		}
	}()

	return listener, localPort, nil
}

func (t *Transport) forward(sshClient *ssh.Client, local net.Conn, remotePort int) {
	defer local.Close()

	remote, err := sshClient.Dial("tcp", fmt.Sprintf("localhost:%d", remotePort))
	if err != nil {
		t.log.Error().Err(err).Str("host", t.cfg.Host).Msg("open forwarded tcp channel")
		return
	}
	defer remote.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(remote, local) }()
	go func() { defer wg.Done(); io.Copy(local, remote) }()
	wg.Wait()
}

// Disconnect tears down the local forward tunnel and SSH connection
// without terminating the remote client, which keeps running and remains
// reattachable. This sits alongside the common Transport interface, which
// has no non-destructive disconnect of its own.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return transport.NewConnectionError("not connected")
	}

	if t.listener != nil {
		t.listener.Close()
	}
	if t.rpcClient != nil {
		t.rpcClient.Close()
	}
	if t.sshClient != nil {
		t.sshClient.Close()
	}
	t.connected = false
	return nil
}

// RemotePort returns the port last recorded by Connect, for a caller that
// wants to persist it as a future reattach hint.
func (t *Transport) RemotePort() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remotePort
}

func (t *Transport) call(serviceMethod string, args, reply interface{}) error {
	t.mu.Lock()
	client := t.rpcClient
	t.mu.Unlock()
	if client == nil {
		return transport.NewConnectionError("not connected")
	}
	return client.Call(serviceMethod, args, reply)
}

// StartJob forwards the script to the remote client and returns its
// assigned identifier.
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

// Terminate tells the remote client to stop its RPC loop, then tears down
// the local tunnel and SSH connection. Unlike Disconnect, the remote
// client does not survive this call.
func (t *Transport) Terminate(ctx context.Context) error {
	t.mu.Lock()
	connected := t.connected
	client := t.rpcClient
	t.mu.Unlock()
	if !connected {
		return transport.NewTerminateError("not connected")
	}

	var reply clientd.TerminateReply
	// The remote server tears itself down mid-reply; a transport fault
	// here is expected and tolerated, matching spec.md §4.3's terminate
	// note.
	_ = client.Call("Client.Terminate", clientd.TerminateArgs{}, &reply)

	t.mu.Lock()
	if t.listener != nil {
		t.listener.Close()
	}
	if t.sshClient != nil {
		t.sshClient.Close()
	}
	t.connected = false
	t.mu.Unlock()
	return nil
}
