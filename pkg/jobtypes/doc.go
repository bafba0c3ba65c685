// Package jobtypes defines the entities shared by every finorch tier: the
// job lifecycle status enum, the registry row shape, and the file listing
// shape returned by get_job_file_list. Beyond Status's String and Terminal
// helpers these types carry no behavior — they are the wire/registry
// vocabulary that pkg/transport, pkg/clientd and pkg/registry all speak.
package jobtypes
