// Package slurm implements the Slurm backend: it renders a submit.sh batch
// script, hands it to sbatch, and parses the scheduler's assigned job id
// from sbatch's stdout.
package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/backend/env"
	"github.com/adacs-australia/finorch/pkg/flog"
)

const submitScriptTemplate = `#!/bin/bash
#SBATCH --time=01:00:00
#SBATCH --mem=16G
#SBATCH --nodes=1
#SBATCH --ntasks-per-node=1

. .env
%s %s
`

// Backend submits and cancels jobs through the sbatch/scancel CLI tools.
type Backend struct {
	// WrapperPath is the wrapper binary's path, invoked with Callsign as
	// its sole argument once submit.sh is sourced into the job's
	// allocation.
	WrapperPath string
	Callsign    string

	log zerolog.Logger
}

// New builds a slurm Backend.
func New(wrapperPath, callsign string) *Backend {
	return &Backend{WrapperPath: wrapperPath, Callsign: callsign, log: flog.WithComponent("backend.slurm")}
}

// Name identifies this backend for metrics labels.
func (b *Backend) Name() string { return "slurm" }

// Submit writes .env and submit.sh into jobDir, then runs
// `sbatch jobDir/submit.sh`, returning the parsed job id as the batch id.
func (b *Backend) Submit(ctx context.Context, jobDir, identifier string) (string, error) {
	envPath := filepath.Join(jobDir, ".env")
	if err := env.Write(envPath); err != nil {
		return "", fmt.Errorf("write environment file: %w", err)
	}

	submitPath := filepath.Join(jobDir, "submit.sh")
	contents := fmt.Sprintf(submitScriptTemplate, b.WrapperPath, b.Callsign)
	if err := os.WriteFile(submitPath, []byte(contents), 0644); err != nil {
		return "", fmt.Errorf("write submit.sh: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sbatch", submitPath)
	cmd.Dir = jobDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		b.log.Error().Err(err).Str("job_id", identifier).Str("stderr", stderr.String()).Msg("sbatch failed")
		return "", fmt.Errorf("sbatch failed: %w: %s", err, stderr.String())
	}

	jobID, err := parseSbatchOutput(stdout.String())
	if err != nil {
		return "", fmt.Errorf("parse sbatch output: %w", err)
	}
	return strconv.Itoa(jobID), nil
}

// Stop runs `scancel batchID`.
func (b *Backend) Stop(ctx context.Context, identifier, batchID string) error {
	cmd := exec.CommandContext(ctx, "scancel", batchID)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("scancel failed: %w: %s", err, stderr.String())
	}
	return nil
}

// parseSbatchOutput reads the last whitespace-delimited token of sbatch's
// stdout as the numeric job id, matching sbatch's "Submitted batch job N"
// (and the bare-number form the test fixtures use).
func parseSbatchOutput(stdout string) (int, error) {
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty sbatch output")
	}
	last := fields[len(fields)-1]
	id, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("non-numeric sbatch job id %q", last)
	}
	return id, nil
}

