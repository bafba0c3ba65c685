package rpc

// ErrorReply is embedded in every client/wrapper RPC reply struct to carry
// the wire's (value, message) pair convention: ErrMsg is empty on success,
// and holds the failure message otherwise. Business failures never cross
// the wire as a Go error from the handler itself — only a genuine transport
// fault (e.g. a dropped connection) does, and that is handled separately by
// the caller of Client.Call.
type ErrorReply struct {
	ErrMsg string
}

// Failed reports whether the reply represents a business-level failure.
func (e ErrorReply) Failed() bool {
	return e.ErrMsg != ""
}
