package clientd

import (
	finrpc "github.com/adacs-australia/finorch/pkg/rpc"

	"github.com/adacs-australia/finorch/pkg/jobtypes"
)

type SetExecPathArgs struct{ Path string }
type SetExecPathReply struct{ finrpc.ErrorReply }

type StartJobArgs struct{ Script []byte }
type StartJobReply struct {
	Identifier string
	finrpc.ErrorReply
}

type GetJobsArgs struct{}
type GetJobsReply struct {
	Jobs []jobtypes.JobRecord
	finrpc.ErrorReply
}

type GetJobStatusArgs struct{ Identifier string }
type GetJobStatusReply struct {
	Status jobtypes.Status
	finrpc.ErrorReply
}

type GetJobSolutionArgs struct{ Identifier string }
type GetJobSolutionReply struct {
	Data []byte
	finrpc.ErrorReply
}

type GetJobFileArgs struct{ Identifier, RelPath string }
type GetJobFileReply struct {
	Data []byte
	finrpc.ErrorReply
}

type GetJobFileListArgs struct{ Identifier string }
type GetJobFileListReply struct {
	Files []jobtypes.JobFile
	finrpc.ErrorReply
}

type StopJobArgs struct{ Identifier string }
type StopJobReply struct{ finrpc.ErrorReply }

type TerminateArgs struct{}
type TerminateReply struct{ OK bool }

type GetReattachTokenArgs struct{}
type GetReattachTokenReply struct{ Token string }

// RPC adapts Client's plain Go methods to net/rpc's required
// func(Args, *Reply) error shape. Every business failure is carried in the
// reply's ErrMsg field; the method itself only ever returns a non-nil error
// for a genuine server-side bug, which would surface as an RPC fault.
type RPC struct {
	client *Client
}

// NewRPC wraps client for registration with a pkg/rpc.Registry under the
// name "Client".
func NewRPC(client *Client) *RPC {
	return &RPC{client: client}
}

func (r *RPC) SetExecPath(args SetExecPathArgs, reply *SetExecPathReply) error {
	if err := r.client.SetExecPath(args.Path); err != nil {
		reply.ErrMsg = err.Error()
	}
	return nil
}

func (r *RPC) StartJob(args StartJobArgs, reply *StartJobReply) error {
	identifier, errMsg := r.client.StartJob(args.Script)
	reply.Identifier = identifier
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) GetJobs(_ GetJobsArgs, reply *GetJobsReply) error {
	jobs, errMsg := r.client.GetJobs()
	reply.Jobs = jobs
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) GetJobStatus(args GetJobStatusArgs, reply *GetJobStatusReply) error {
	status, errMsg := r.client.GetJobStatus(args.Identifier)
	reply.Status = status
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) GetJobSolution(args GetJobSolutionArgs, reply *GetJobSolutionReply) error {
	data, errMsg := r.client.GetJobSolution(args.Identifier)
	reply.Data = data
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) GetJobFile(args GetJobFileArgs, reply *GetJobFileReply) error {
	data, errMsg := r.client.GetJobFile(args.Identifier, args.RelPath)
	reply.Data = data
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) GetJobFileList(args GetJobFileListArgs, reply *GetJobFileListReply) error {
	files, errMsg := r.client.GetJobFileList(args.Identifier)
	reply.Files = files
	reply.ErrMsg = errMsg
	return nil
}

func (r *RPC) StopJob(args StopJobArgs, reply *StopJobReply) error {
	reply.ErrMsg = r.client.StopJob(args.Identifier)
	return nil
}

func (r *RPC) Terminate(_ TerminateArgs, reply *TerminateReply) error {
	reply.OK = r.client.Terminate()
	return nil
}

// GetReattachToken exposes the per-process token an SshTransport uses to
// warn when a reattach lands on a different client instance than the one
// it originally spawned.
func (r *RPC) GetReattachToken(_ GetReattachTokenArgs, reply *GetReattachTokenReply) error {
	reply.Token = r.client.ReattachToken()
	return nil
}
