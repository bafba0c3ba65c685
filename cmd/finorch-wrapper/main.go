// Command finorch-wrapper runs one job: it is launched by a backend with
// the job's own directory as its current working directory and a single
// positional callsign argument, exactly like finorch-client's argv
// contract, and for the same reason never grows flag parsing.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/adacs-australia/finorch/pkg/wrapper"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters")
		os.Exit(0)
	}
	callsign := os.Args[1]

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "determine working directory: %v\n", err)
		os.Exit(0)
	}

	opts := wrapper.Options{
		WorkDir:     workDir,
		Callsign:    callsign,
		Interpreter: wrapper.ExternalInterpreter{BinaryPath: interpreterBinary()},
	}

	// A failure here means the job never ran at all (bad working
	// directory, RPC bind failure); there is nowhere left to log it once
	// Bootstrap's own log file failed to open, so it goes to stderr.
	// The interpreter's own failures are handled inside Bootstrap and
	// never reach this path. Exit code is always 0 per the wrapper's
	// contract: "finished" is the only signal a caller consults.
	if err := wrapper.Bootstrap(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "wrapper bootstrap failed: %v\n", err)
	}
	os.Exit(0)
}

// interpreterBinary resolves the interpreter entrypoint Bootstrap invokes,
// defaulting to the name finesse installs itself under on $PATH.
func interpreterBinary() string {
	if bin := os.Getenv("FINORCH_INTERPRETER_BINARY"); bin != "" {
		return bin
	}
	return "finesse"
}
