package wrapper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ExternalInterpreter shells out to the configured script-interpreting
// engine binary, passing scriptPath as its sole argument and taking its
// standard output as the marshalled solution. This is production wiring
// for the Interpreter seam spec.md §6 describes as an external
// collaborator whose contents the wrapper never parses.
type ExternalInterpreter struct {
	BinaryPath string
}

// Run invokes BinaryPath against scriptPath and returns its stdout.
func (e ExternalInterpreter) Run(ctx context.Context, scriptPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.BinaryPath, scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", e.BinaryPath, scriptPath, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
