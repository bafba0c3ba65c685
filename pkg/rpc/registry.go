package rpc

import (
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"reflect"
	"strconv"

	"github.com/adacs-australia/finorch/pkg/metrics"
)

// DefaultRPCPath is where every finorch RPC endpoint (client and wrapper
// alike) mounts its handler, mirroring the original's fixed "/rpc" path.
const DefaultRPCPath = "/rpc"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Registry is a net/rpc server plus the bookkeeping needed to answer
// System.ListMethods and to serve over a private ServeMux rather than
// http.DefaultServeMux.
type Registry struct {
	server  *rpc.Server
	mux     *http.ServeMux
	methods []string
}

type introspector struct {
	reg *Registry
}

// ListMethods is exposed over RPC as System.ListMethods, the equivalent of
// xmlrpc's system.listMethods introspection call.
func (i *introspector) ListMethods(_ struct{}, reply *[]string) error {
	*reply = i.reg.ListMethods()
	return nil
}

// NewRegistry builds an empty registry with System.ListMethods already
// registered.
func NewRegistry() *Registry {
	r := &Registry{server: rpc.NewServer(), mux: http.NewServeMux()}
	r.server.RegisterName("System", &introspector{reg: r})
	return r
}

// Register exposes receiver's suitable methods under name, e.g. Register
// ("Client", clientImpl) makes Client.StartJob callable.
func (r *Registry) Register(name string, receiver interface{}) error {
	if err := r.server.RegisterName(name, receiver); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	r.methods = append(r.methods, suitableMethodNames(name, receiver)...)
	return nil
}

// ListMethods returns every method name registered so far, including the
// built-in System.ListMethods.
func (r *Registry) ListMethods() []string {
	out := make([]string, 0, len(r.methods)+1)
	out = append(out, "System.ListMethods")
	out = append(out, r.methods...)
	return out
}

// ListenAndServe binds a loopback-only listener (spec.md §3: the RPC
// endpoint binds only to loopback), mounts the registry at DefaultRPCPath,
// and serves in the background. The returned shutdown func closes the
// listener and stops accepting new connections; in-flight requests may
// still complete, matching terminate()'s "stops accepting new RPCs...
// in-flight RPCs may complete" contract.
func (r *Registry) ListenAndServe() (port int, shutdown func() error, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, nil, fmt.Errorf("bind loopback listener: %w", err)
	}

	r.mux.Handle(DefaultRPCPath, r.server)
	r.mux.Handle("/metrics", metrics.Handler())
	httpServer := &http.Server{Handler: r.mux}

	go httpServer.Serve(ln) //nolint:errcheck // Serve always returns non-nil on Close

	_, portStr, splitErr := net.SplitHostPort(ln.Addr().String())
	if splitErr != nil {
		ln.Close()
		return 0, nil, splitErr
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		ln.Close()
		return 0, nil, err
	}

	return port, httpServer.Close, nil
}

// suitableMethodNames reimplements net/rpc's own (unexported) eligibility
// filter for methods of the form func(Args, *Reply) error, just enough to
// report which ones a Register call actually exposed.
func suitableMethodNames(name string, receiver interface{}) []string {
	typ := reflect.TypeOf(receiver)
	var names []string
	for m := 0; m < typ.NumMethod(); m++ {
		method := typ.Method(m)
		if method.PkgPath != "" {
			continue
		}
		mtype := method.Type
		if mtype.NumIn() != 3 || mtype.NumOut() != 1 {
			continue
		}
		if mtype.Out(0) != errorType {
			continue
		}
		names = append(names, name+"."+method.Name)
	}
	return names
}
