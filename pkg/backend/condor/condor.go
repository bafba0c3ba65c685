// Package condor implements the HTCondor backend: it renders the same
// submit.sh wrapper-invocation script the Slurm backend uses and drives it
// through the condor_submit / condor_rm CLI tools rather than HTCondor's
// qmgmt wire protocol.
package condor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/adacs-australia/finorch/pkg/backend/env"
	"github.com/adacs-australia/finorch/pkg/flog"
)

// submitScriptTemplate has no scheduler directives of its own: HTCondor's
// resource requests live in the submit description condor_submit is given
// directly, not in comments inside the executed script. It keeps the same
// ". .env" + wrapper-invocation body as the Slurm backend's submit.sh.
const submitScriptTemplate = `#!/bin/bash

. .env
%s %s
`

// clusterIDPattern matches condor_submit's "N job(s) submitted to cluster M."
var clusterIDPattern = regexp.MustCompile(`submitted to cluster (\d+)`)

// Backend submits and cancels jobs through the condor_submit/condor_rm CLI
// tools, keeping the same submit.sh shape the Slurm backend produces.
type Backend struct {
	WrapperPath string
	Callsign    string

	log zerolog.Logger
}

// New builds a condor Backend.
func New(wrapperPath, callsign string) *Backend {
	return &Backend{WrapperPath: wrapperPath, Callsign: callsign, log: flog.WithComponent("backend.condor")}
}

// Name identifies this backend for metrics labels.
func (b *Backend) Name() string { return "condor" }

// Submit writes .env and submit.sh into jobDir, then runs
// `condor_submit jobDir/submit.sh`, returning the parsed cluster id.
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

	cmd := exec.CommandContext(ctx, "condor_submit", submitPath)
	cmd.Dir = jobDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		b.log.Error().Err(err).Str("job_id", identifier).Str("stderr", stderr.String()).Msg("condor_submit failed")
		return "", fmt.Errorf("condor_submit failed: %w: %s", err, stderr.String())
	}

	match := clusterIDPattern.FindStringSubmatch(stdout.String())
	if match == nil {
		return "", fmt.Errorf("condor_submit output did not report a cluster id: %q", stdout.String())
	}
	clusterID, err := strconv.Atoi(match[1])
	if err != nil {
		return "", fmt.Errorf("parse cluster id: %w", err)
	}
	return strconv.Itoa(clusterID), nil
}

// Stop runs `condor_rm batchID`, falling back to `condor_hold
// batchID.0` (the cluster's head process only) if the removal fails —
// mirroring condor_rm's own fallback when a job has already left the
// queue but its shadow process lingers.
func (b *Backend) Stop(ctx context.Context, identifier, batchID string) error {
	rm := exec.CommandContext(ctx, "condor_rm", batchID)
	var rmStderr bytes.Buffer
	rm.Stderr = &rmStderr
	if err := rm.Run(); err == nil {
		return nil
	}

	hold := exec.CommandContext(ctx, "condor_hold", batchID+".0")
	var holdStderr bytes.Buffer
	hold.Stderr = &holdStderr
	if err := hold.Run(); err != nil {
		return fmt.Errorf("condor_rm and condor_hold both failed: %s / %s", rmStderr.String(), holdStderr.String())
	}
	return nil
}
