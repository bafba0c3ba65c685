/*
Package clientd implements the per-site client daemon: the RPC-exposed
operations (start_job, get_job_status, get_job_file, get_job_file_list,
get_jobs, stop_job, terminate), the exec_path/registry lifecycle, and
status derivation from the job's filesystem sentinels. Client itself is a
plain Go type with plain Go method signatures; RPC adapts it to
net/rpc's required func(Args, *Reply) error shape and is what actually gets
registered with pkg/rpc.
*/
package clientd
