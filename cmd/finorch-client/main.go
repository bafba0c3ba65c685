// Command finorch-client is the per-site client process: it binds an RPC
// endpoint on a random loopback port, prints the handshake line the
// spawning transport reads off stdout, then serves job requests until a
// driver sends Terminate. Its argv contract is a single positional
// callsign and must stay flag-parsing-free so the handshake stream on
// stdout is never contaminated.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/adacs-australia/finorch/pkg/backend/condor"
	"github.com/adacs-australia/finorch/pkg/backend/local"
	"github.com/adacs-australia/finorch/pkg/backend/slurm"
	"github.com/adacs-australia/finorch/pkg/clientd"
	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/flog"
	finrpc "github.com/adacs-australia/finorch/pkg/rpc"
	"github.com/adacs-australia/finorch/pkg/session"
)

func main() {
	if len(os.Args) != 2 {
		fail("Incorrect number of parameters")
	}
	callsign := os.Args[1]

	backendKind, err := session.LookupBackend(callsign)
	if err != nil {
		fail(err.Error())
	}

	configDir := configDirectory()
	log := flog.InitClient(configDir)

	client, shutdownReady, err := start(callsign, backendKind, configDir)
	if err != nil {
		log.Error().Err(err).Msg("error starting client")
		fail(err.Error())
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-shutdownReady:
	case <-sig:
		client.Terminate()
		<-shutdownReady
	}
}

// start wires up the backend, registry, and RPC endpoint, writes the
// handshake, persists the bound port, and redirects stdout/stderr away
// from the handshake stream before returning. The returned channel closes
// once Terminate has torn the RPC listener down.
func start(callsign string, backendKind session.Backend, configDir string) (*clientd.Client, <-chan struct{}, error) {
	wrapperBinary := os.Getenv("FINORCH_WRAPPER_BINARY")
	if wrapperBinary == "" {
		wrapperBinary = "finorch-wrapper"
	}

	backend, err := buildBackend(backendKind, wrapperBinary, callsign)
	if err != nil {
		return nil, nil, err
	}

	client := clientd.New(backend)
	if err := client.SetExecPath(os.Getenv("FINORCH_EXEC_PATH")); err != nil {
		return nil, nil, fmt.Errorf("set exec path: %w", err)
	}

	reg := finrpc.NewRegistry()
	if err := reg.Register("Client", clientd.NewRPC(client)); err != nil {
		return nil, nil, fmt.Errorf("register client rpc: %w", err)
	}

	port, httpShutdown, err := reg.ListenAndServe()
	if err != nil {
		return nil, nil, fmt.Errorf("bind rpc endpoint: %w", err)
	}
	client.SetRPCPort(port)

	done := make(chan struct{})
	client.SetShutdown(func() error {
		err := httpShutdown()
		close(done)
		return err
	})

	clientConfig := finconfig.NewClientConfig(filepath.Join(configDir, "client.ini"))
	if err := clientConfig.SetPort(port); err != nil {
		flog.WithComponent("finorch-client").Warn().Err(err).Msg("persist client port")
	}

	if err := finrpc.WriteHandshake(os.Stdout, port); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	if err := redirectStreams(filepath.Join(configDir, "client.out")); err != nil {
		flog.WithComponent("finorch-client").Warn().Err(err).Msg("redirect standard streams")
	}

	return client, done, nil
}

func buildBackend(kind session.Backend, wrapperBinary, callsign string) (clientd.Backend, error) {
	switch kind {
	case session.BackendLocal:
		workers := runtime.NumCPU()
		if v := os.Getenv("FINORCH_LOCAL_WORKERS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				workers = n
			}
		}
		return local.New(wrapperBinary, callsign, workers), nil
	case session.BackendSlurm:
		return slurm.New(wrapperBinary, callsign), nil
	case session.BackendCondor:
		return condor.New(wrapperBinary, callsign), nil
	default:
		return nil, fmt.Errorf("unhandled backend kind %v", kind)
	}
}

// configDirectory returns where client.ini/api.ini/client.log live,
// overridable for tests and multi-site hosts that run several clients
// under distinct identities.
func configDirectory() string {
	if dir := os.Getenv("FINORCH_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".finorch")
}

// redirectStreams reassigns stdout/stderr to a side file once the
// handshake line has been written, so nothing written by the server (or a
// library it calls) can desync a driver still scanning stdout for
// =EOF=.
func redirectStreams(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	os.Stdout = f
	os.Stderr = f
	return nil
}

// fail writes the handshake error form (so a caller scanning stdout for a
// port still gets a well-formed response) and exits 1, matching spec.md
// §6's "non-zero only for argument errors detected before the RPC loop
// starts".
func fail(msg string) {
	_ = finrpc.WriteHandshakeError(os.Stdout, msg)
	os.Exit(1)
}
