package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backendlocal "github.com/adacs-australia/finorch/pkg/backend/local"
	"github.com/adacs-australia/finorch/pkg/clientd"
	"github.com/adacs-australia/finorch/pkg/finconfig"
	finrpc "github.com/adacs-australia/finorch/pkg/rpc"
)

// startInProcessClient brings up a real clientd.Client behind a
// pkg/rpc.Registry, standing in for a spawned finorch-client binary so a
// local Session's Connect/StartJob path can be exercised without one.
func startInProcessClient(t *testing.T) (port int, clientConfigPath string) {
	t.Helper()
	backend := backendlocal.New("/bin/true", "local", 1)
	client := clientd.New(backend)
	require.NoError(t, client.SetExecPath(t.TempDir()))

	reg := finrpc.NewRegistry()
	require.NoError(t, reg.Register("Client", clientd.NewRPC(client)))

	p, shutdown, err := reg.ListenAndServe()
	require.NoError(t, err)
	client.SetShutdown(shutdown)
	client.SetRPCPort(p)
	t.Cleanup(func() { _ = shutdown() })

	clientConfigPath = filepath.Join(t.TempDir(), "client.ini")
	cfg := finconfig.NewClientConfig(clientConfigPath)
	require.NoError(t, cfg.SetPort(p))

	return p, clientConfigPath
}

func TestSessionConnectAndStartJobOverLocalTransport(t *testing.T) {
	_, clientConfigPath := startInProcessClient(t)

	site := Site{Callsign: "local", Backend: BackendLocal, ClientBinary: "/does/not/matter"}
	sess, err := New(site, clientConfigPath, "")
	require.NoError(t, err)

	require.NoError(t, sess.Connect(context.Background()))

	identifier, err := sess.StartJob(context.Background(), []byte("script"))
	require.NoError(t, err)
	assert.NotEmpty(t, identifier)

	jobs, err := sess.GetJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestSessionDisconnectIsNoopForLocalTransport(t *testing.T) {
	site := Site{Callsign: "local", Backend: BackendLocal, ClientBinary: "/does/not/matter"}
	sess, err := New(site, filepath.Join(t.TempDir(), "client.ini"), "")
	require.NoError(t, err)
	assert.NoError(t, sess.Disconnect())
}

func TestNewRejectsMissingClientBinary(t *testing.T) {
	_, err := New(Site{Callsign: "local"}, "", "")
	assert.Error(t, err)
}

func TestNewBuildsSshTransportForRemoteSite(t *testing.T) {
	site := Site{
		Callsign:     "ozstar",
		Backend:      BackendSlurm,
		Remote:       true,
		Host:         "ozstar.example.org",
		Username:     "student",
		ClientBinary: "/usr/local/bin/finorch-client",
		ExecPath:     "/fred/oz000/student/finorch",
	}
	sess, err := New(site, "", filepath.Join(t.TempDir(), "api.ini"))
	require.NoError(t, err)
	assert.Equal(t, "ozstar", sess.Callsign())
}

func TestLookupBackendKnownAndUnknownCallsigns(t *testing.T) {
	b, err := LookupBackend("local")
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, b)

	b, err = LookupBackend("ozstar")
	require.NoError(t, err)
	assert.Equal(t, BackendSlurm, b)

	b, err = LookupBackend("cit")
	require.NoError(t, err)
	assert.Equal(t, BackendCondor, b)

	_, err = LookupBackend("nope")
	require.Error(t, err)
	assert.Equal(t, "Session type nope does not exist.", err.Error())
}

func TestBackendString(t *testing.T) {
	assert.Equal(t, "local", BackendLocal.String())
	assert.Equal(t, "slurm", BackendSlurm.String())
	assert.Equal(t, "condor", BackendCondor.String())
}
