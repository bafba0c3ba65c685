package session

import (
	"context"
	"fmt"

	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/jobtypes"
	"github.com/adacs-australia/finorch/pkg/transport"
	"github.com/adacs-australia/finorch/pkg/transport/local"
	"github.com/adacs-australia/finorch/pkg/transport/ssh"
)

// Session is the driver's handle on one site: AbstractSession's start_job/
// terminate collapsed onto the shared Transport interface, plus the
// read-through job queries the original split across AbstractClient.
type Session struct {
	site Site
	t    transport.Transport

	lastPort int
}

// New builds the Transport a Site calls for (LocalTransport for a
// non-remote site, SshTransport otherwise) and wraps it in a Session.
// clientConfigPath/apiConfigPath are the client.ini/api.ini paths a local
// or SSH transport respectively reads its persisted state from.
func New(site Site, clientConfigPath, apiConfigPath string) (*Session, error) {
	if site.ClientBinary == "" {
		return nil, fmt.Errorf("site %s: client binary path is required", site.Callsign)
	}

	if !site.Remote {
		t := local.New(site.ClientBinary, finconfig.NewClientConfig(clientConfigPath))
		return &Session{site: site, t: t}, nil
	}

	cfg := ssh.Config{
		Host:         site.Host,
		SSHPort:      site.SSHPort,
		Username:     site.Username,
		Password:     site.Password,
		ClientBinary: site.ClientBinary,
		EnvFile:      site.EnvFile,
		Callsign:     site.Callsign,
		ExecPath:     site.ExecPath,
		IsGeneric:    site.IsGeneric,
	}
	t := ssh.New(cfg, finconfig.NewAPIConfig(apiConfigPath))
	return &Session{site: site, t: t}, nil
}

// Callsign returns the underlying site's callsign.
func (s *Session) Callsign() string {
	return s.site.Callsign
}

// Connect establishes or reattaches the session's transport, remembering
// the returned port so a later Connect call on the same Session reattaches
// rather than spawning a redundant client.
func (s *Session) Connect(ctx context.Context) error {
	port, err := s.t.Connect(ctx, s.lastPort)
	if err != nil {
		return err
	}
	s.lastPort = port
	return nil
}

// StartJob submits script and returns its assigned identifier.
func (s *Session) StartJob(ctx context.Context, script []byte) (string, error) {
	return s.t.StartJob(ctx, script)
}

// GetJobs returns every known job.
func (s *Session) GetJobs(ctx context.Context) ([]jobtypes.JobRecord, error) {
	return s.t.GetJobs(ctx)
}

// GetJobStatus returns identifier's current status.
func (s *Session) GetJobStatus(ctx context.Context, identifier string) (jobtypes.Status, error) {
	return s.t.GetJobStatus(ctx, identifier)
}

// GetJobSolution returns identifier's marshalled solution.
func (s *Session) GetJobSolution(ctx context.Context, identifier string) ([]byte, error) {
	return s.t.GetJobSolution(ctx, identifier)
}

// GetJobFile returns relPath's bytes from identifier's working directory.
func (s *Session) GetJobFile(ctx context.Context, identifier, relPath string) ([]byte, error) {
	return s.t.GetJobFile(ctx, identifier, relPath)
}

// GetJobFileList lists identifier's working directory.
func (s *Session) GetJobFileList(ctx context.Context, identifier string) ([]jobtypes.JobFile, error) {
	return s.t.GetJobFileList(ctx, identifier)
}

// StopJob requests cancellation of identifier.
func (s *Session) StopJob(ctx context.Context, identifier string) error {
	return s.t.StopJob(ctx, identifier)
}

// Terminate stops the client's RPC loop and releases transport resources.
func (s *Session) Terminate(ctx context.Context) error {
	return s.t.Terminate(ctx)
}

// Disconnect tears down a remote session's local forward tunnel without
// terminating the far-side client, leaving it reattachable. It is a no-op
// returning nil for non-remote sites, which have no non-destructive
// disconnect of their own.
func (s *Session) Disconnect() error {
	if d, ok := s.t.(interface{ Disconnect() error }); ok {
		return d.Disconnect()
	}
	return nil
}
