// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxOutputBytes caps captured probe output per stream.
const maxOutputBytes = 64 * 1024

// ErrNoRuntime is returned when neither docker nor podman is on PATH.
var ErrNoRuntime = errors.New("no container runtime found (docker or podman)")

// probeImages are the per-framework sandbox images, built on demand
// from the pinned definitions below when absent on the host.
var probeImages = map[Framework]string{
	FrameworkPytest:   "pinata/probe-python:1",
	FrameworkGoTest:   "pinata/probe-go:1",
	FrameworkNodeTest: "pinata/probe-node:1",
}

// probeDockerfiles pin each probe image to an exact upstream base and
// add nothing beyond the test framework and a non-root user.
var probeDockerfiles = map[Framework]string{
	FrameworkPytest: `FROM python:3.12.6-slim
RUN pip install --no-cache-dir pytest==8.3.3
USER 65534:65534
`,
	FrameworkGoTest: `FROM golang:1.25.3-alpine
ENV GOCACHE=/tmp/gocache GOFLAGS=-mod=mod
USER 65534:65534
`,
	FrameworkNodeTest: `FROM node:22.9.0-slim
USER 65534:65534
`,
}

// runCommands map each framework to its one fixed, non-interactive
// invocation inside the container.
var runCommands = map[Framework][]string{
	FrameworkPytest:   {"python", "-m", "pytest", "-q", "probe_test.py"},
	FrameworkGoTest:   {"go", "test", "."},
	FrameworkNodeTest: {"node", "--test", "probe.test.js"},
}

// runOutcome is the raw record of one container execution.
type runOutcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Limit    time.Duration
}

// runner resolves the container runtime once and executes probes under
// hardened flags.
//
// Thread Safety: safe for concurrent use; resolution and image builds
// are guarded, executions are independent processes.
type runner struct {
	logger *slog.Logger

	// lookPath resolves runtime candidates; swapped in tests.
	lookPath func(string) (string, error)

	resolveOnce sync.Once
	binary      string
	resolveErr  error

	imageMu sync.Mutex
	ensured map[string]bool
}

func newRunner(logger *slog.Logger) *runner {
	return &runner{logger: logger, lookPath: exec.LookPath, ensured: make(map[string]bool)}
}

// resolve finds the container runtime binary, preferring docker.
func (r *runner) resolve() (string, error) {
	r.resolveOnce.Do(func() {
		for _, candidate := range []string{"docker", "podman"} {
			if path, err := r.lookPath(candidate); err == nil {
				r.binary = path
				r.logger.Debug("container runtime resolved", "binary", path)
				return
			}
		}
		r.resolveErr = ErrNoRuntime
	})
	return r.binary, r.resolveErr
}

// ensureImage builds the probe image from its pinned definition if the
// host does not have it yet. Pull is never attempted: the images are
// local-only by design.
func (r *runner) ensureImage(ctx context.Context, binary string, fw Framework, image string) error {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if r.ensured[image] {
		return nil
	}

	inspect := exec.CommandContext(ctx, binary, "image", "inspect", image)
	inspect.Stdout = nil
	inspect.Stderr = nil
	if inspect.Run() == nil {
		r.ensured[image] = true
		return nil
	}

	dockerfile, ok := probeDockerfiles[fw]
	if !ok {
		return fmt.Errorf("no image definition for framework %q", fw)
	}
	buildDir, err := os.MkdirTemp("", "pinata-image-")
	if err != nil {
		return fmt.Errorf("create image build dir: %w", err)
	}
	defer os.RemoveAll(buildDir)
	if err := os.WriteFile(filepath.Join(buildDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return fmt.Errorf("write Dockerfile: %w", err)
	}

	r.logger.Info("building probe image", "image", image, "framework", fw)
	var out bytes.Buffer
	build := exec.CommandContext(ctx, binary, "build", "-t", image, buildDir)
	build.Stdout = &out
	build.Stderr = &out
	if err := build.Run(); err != nil {
		return fmt.Errorf("build image %s: %w: %s", image, err, truncate(out.String(), 512))
	}
	r.ensured[image] = true
	return nil
}

// run executes one probe inside a hardened container.
//
// Hardening baseline regardless of config: auto-removed container,
// read-only root filesystem with a small tmpfs scratch, all
// capabilities dropped, privilege escalation disabled, non-root
// numeric user, bounded pids, and no network unless enabled. The
// workspace is the only writable bind mount.
//
// Returns a non-nil outcome alongside the error when the process ran
// but was killed at the timeout, so callers can flag TimedOut.
func (r *runner) run(ctx context.Context, workspace string, probe probeSpec, cfg Config) (*runOutcome, error) {
	binary, err := r.resolve()
	if err != nil {
		return nil, err
	}

	image := cfg.Image
	if image == "" {
		image = probeImages[probe.Framework]
	}
	if image == "" {
		return nil, fmt.Errorf("no image for framework %q", probe.Framework)
	}
	if cfg.Image == "" {
		if err := r.ensureImage(ctx, binary, probe.Framework, image); err != nil {
			return nil, err
		}
	}

	command, ok := runCommands[probe.Framework]
	if !ok {
		return nil, fmt.Errorf("no run command for framework %q", probe.Framework)
	}

	limit := time.Duration(cfg.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	// Named so the container stays addressable after the client dies:
	// killing the client at the deadline leaves the container running
	// under the daemon, and --rm only fires when the container exits.
	containerName := "pinata-probe-" + uuid.NewString()

	args := []string{
		"run",
		"--rm",
		"--name", containerName,
		"--read-only",
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges:true",
		"--pids-limit=128",
		"--user=65534:65534",
		fmt.Sprintf("--memory=%dm", cfg.MemoryLimitMB),
		fmt.Sprintf("--cpus=%.2f", cfg.CPULimit),
		"--tmpfs=/tmp:rw,size=64m",
		"-v", fmt.Sprintf("%s:%s:rw", workspace, cfg.WorkDir),
		"-w", cfg.WorkDir,
	}
	if !cfg.NetworkEnabled {
		args = append(args, "--network=none")
	}
	args = append(args, image)
	args = append(args, command...)

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, limit: maxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderr, limit: maxOutputBytes}

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited
	// Kill the whole container process tree promptly on deadline.
	cmd.WaitDelay = 2 * time.Second

	r.logger.Debug("running probe",
		"framework", probe.Framework, "image", image, "timeout", limit)

	runErr := cmd.Run()

	outcome := &runOutcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Limit:  limit,
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		r.removeContainer(binary, containerName)
		outcome.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			outcome.TimedOut = true
			r.logger.Warn("probe timed out", "framework", probe.Framework, "limit", limit)
			return outcome, fmt.Errorf("probe exceeded %s timeout", limit)
		}
		return outcome, ctxErr
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		}
		outcome.ExitCode = -1
		return outcome, fmt.Errorf("container execution failed: %w", runErr)
	}
	return outcome, nil
}

// removeContainer force-removes a container by name. Runs under its
// own deadline: the caller's context is already dead when this is
// needed, and the container must still be torn down.
func (r *runner) removeContainer(binary, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rm := exec.CommandContext(ctx, binary, "rm", "-f", name)
	if err := rm.Run(); err != nil {
		r.logger.Warn("container force-remove failed", "container", name, "error", err)
		return
	}
	r.logger.Debug("container force-removed", "container", name)
}

// limitedWriter caps captured output, dropping the tail.
type limitedWriter struct {
	w         *bytes.Buffer
	limit     int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.limit - lw.w.Len()
	if remaining <= 0 {
		lw.truncated = true
		return n, nil
	}
	if len(p) > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	if _, err := lw.w.Write(p); err != nil {
		return 0, err
	}
	return n, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
