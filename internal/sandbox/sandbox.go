// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sandbox confirms detected gaps by synthesizing a probe test
// per gap and executing it inside a hardened, ephemeral container.
//
// Confirmation is a corroboration signal, not a proof of live
// exploitability: probes combine a simulated exploit against a mock
// sink with static assertions on the target snippet, because running
// arbitrary third-party application code inside the sandbox is unsafe
// without a full harness.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/pinata/internal/engine"
)

// ============================================================================
// Types
// ============================================================================

// Status classifies one probe run.
type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusUnconfirmed Status = "unconfirmed"
	StatusError       Status = "error"
	StatusSkipped     Status = "skipped"
)

// Config controls the execution environment. Defaults favor maximum
// isolation: no network, tight CPU/memory, short timeout.
type Config struct {
	// Image overrides the per-framework probe image when non-empty.
	Image string
	// CPULimit in cores (docker --cpus).
	CPULimit float64
	// MemoryLimitMB caps container memory.
	MemoryLimitMB int
	// TimeoutSeconds is the hard wall-clock limit per probe run.
	TimeoutSeconds int
	// NetworkEnabled grants the container network access. Off by default.
	NetworkEnabled bool
	// WorkDir is the in-container mount point for the probe workspace.
	WorkDir string
	// ProjectDir is the scanned tree's root, consulted for framework
	// marker files during probe synthesis. Optional.
	ProjectDir string
	// Concurrency bounds parallel probe runs. Zero means 2.
	Concurrency int
	// RunsPerSecond throttles container launches. Zero means 1.
	RunsPerSecond float64
}

// DefaultConfig returns the maximum-isolation defaults.
func DefaultConfig() Config {
	return Config{
		CPULimit:       0.5,
		MemoryLimitMB:  256,
		TimeoutSeconds: 30,
		NetworkEnabled: false,
		WorkDir:        "/work",
		Concurrency:    2,
		RunsPerSecond:  1,
	}
}

// Evidence captures what a probe run actually did.
type Evidence struct {
	Payload  string `json:"payload,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exitCode"`
}

// ExecutionResult is the per-gap outcome.
type ExecutionResult struct {
	Status   Status        `json:"status"`
	Gap      engine.Gap    `json:"gap"`
	Summary  string        `json:"summary"`
	Evidence *Evidence     `json:"evidence,omitempty"`
	Duration time.Duration `json:"duration"`
	// TimedOut marks runs killed at the wall-clock limit. Timeouts are
	// a distinct outcome, never conflated with assertion failure.
	TimedOut bool   `json:"timedOut,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ExecutionSummary aggregates a confirmation batch.
type ExecutionSummary struct {
	Confirmed     int               `json:"confirmed"`
	Unconfirmed   int               `json:"unconfirmed"`
	Errors        int               `json:"errors"`
	Skipped       int               `json:"skipped"`
	Results       []ExecutionResult `json:"results"`
	TotalDuration time.Duration     `json:"totalDuration"`
}

// Recorder receives per-pattern outcomes for precision tracking.
// Implemented by the feedback store; a nil Recorder disables it.
// Outcome is the result status string: confirmed, unconfirmed, or
// error. Skips never reach the recorder.
type Recorder interface {
	Record(patternID string, outcome string) error
}

// testableCategories is the fixed whitelist of category ids a
// self-contained probe can plausibly demonstrate. Everything else is
// reported skipped and never reaches the sandbox.
var testableCategories = map[string]bool{
	"sql-injection":            true,
	"command-injection":        true,
	"path-traversal":           true,
	"xss":                      true,
	"template-injection":       true,
	"insecure-deserialization": true,
	"xxe":                      true,
	"ssrf":                     true,
}

// Testable reports whether a category id is in the dynamic whitelist.
func Testable(categoryID string) bool {
	return testableCategories[categoryID]
}

// ============================================================================
// Sandbox
// ============================================================================

// Sandbox orchestrates probe synthesis and isolated execution.
type Sandbox struct {
	runner   *runner
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Sandbox. The container runtime is resolved lazily on
// first execution so dry runs work on hosts without docker or podman.
func New(recorder Recorder, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sandbox{runner: newRunner(logger), recorder: recorder, logger: logger}
}

// Confirm executes one probe per testable gap and aggregates outcomes.
//
// Description:
//
//	Filters gaps against the testable whitelist, synthesizes a probe
//	per survivor, and runs each probe in its own container under the
//	limits in cfg. Runs are independent: one gap's infrastructure
//	failure never blocks the rest. With dryRun set, probes are
//	synthesized but nothing is provisioned or executed; every result
//	reports skipped.
//
// Inputs:
//
//	ctx    - Batch deadline; cancellation cascades into per-run kills.
//	gaps   - Findings from a scan, any categories.
//	cfg    - Execution limits; zero fields take DefaultConfig values.
//	dryRun - Synthesize only.
//
// Outputs:
//
//	*ExecutionSummary - One result per input gap, counts by status.
//	error             - Only a fully-cancelled context; per-run failures
//	                    surface as error-status results instead.
func (s *Sandbox) Confirm(ctx context.Context, gaps []engine.Gap, cfg Config, dryRun bool) (*ExecutionSummary, error) {
	cfg = withDefaults(cfg)
	started := time.Now()

	results := make([]ExecutionResult, len(gaps))
	var runnable []int
	for i, gap := range gaps {
		if !Testable(gap.CategoryID) {
			results[i] = ExecutionResult{
				Status:  StatusSkipped,
				Gap:     gap,
				Summary: fmt.Sprintf("category %s is not dynamically testable", gap.CategoryID),
			}
			continue
		}
		runnable = append(runnable, i)
	}

	if dryRun {
		for _, i := range runnable {
			probe, err := synthesize(gaps[i], cfg.ProjectDir)
			summary := fmt.Sprintf("dry run: synthesized %s probe (%s)", probe.Framework, probe.FileName)
			if err != nil {
				summary = fmt.Sprintf("dry run: synthesis failed: %v", err)
			}
			results[i] = ExecutionResult{Status: StatusSkipped, Gap: gaps[i], Summary: summary}
		}
		return summarize(results, time.Since(started)), nil
	}

	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	limiter := rate.NewLimiter(rate.Limit(cfg.RunsPerSecond), 1)
	g, gctx := errgroup.WithContext(ctx)
	for _, i := range runnable {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = cancelledResult(gaps[i], err)
				return nil
			}
			defer sem.Release(1)
			if err := limiter.Wait(gctx); err != nil {
				results[i] = cancelledResult(gaps[i], err)
				return nil
			}
			results[i] = s.confirmOne(gctx, gaps[i], cfg)
			return nil
		})
	}
	_ = g.Wait()

	if s.recorder != nil {
		for _, r := range results {
			if !recordable(r) {
				continue
			}
			if err := s.recorder.Record(r.Gap.PatternID, string(r.Status)); err != nil {
				s.logger.Warn("feedback record failed", "pattern", r.Gap.PatternID, "error", err)
			}
		}
	}
	return summarize(results, time.Since(started)), nil
}

// confirmOne synthesizes, provisions, executes, and classifies a
// single gap. Workspace cleanup is deferred before execution starts so
// it runs on every exit path, including cancellation.
func (s *Sandbox) confirmOne(ctx context.Context, gap engine.Gap, cfg Config) ExecutionResult {
	started := time.Now()

	probe, err := synthesize(gap, cfg.ProjectDir)
	if err != nil {
		return ExecutionResult{
			Status:   StatusError,
			Gap:      gap,
			Summary:  "probe synthesis failed",
			Error:    err.Error(),
			Duration: time.Since(started),
		}
	}

	workspace, cleanup, err := provision(probe)
	if err != nil {
		return ExecutionResult{
			Status:   StatusError,
			Gap:      gap,
			Summary:  "workspace provisioning failed",
			Error:    err.Error(),
			Duration: time.Since(started),
		}
	}
	defer cleanup()

	run, err := s.runner.run(ctx, workspace, probe, cfg)
	duration := time.Since(started)
	if err != nil {
		return ExecutionResult{
			Status:   StatusError,
			Gap:      gap,
			Summary:  "sandbox execution failed",
			Error:    err.Error(),
			Duration: duration,
			TimedOut: run != nil && run.TimedOut,
			Evidence: runEvidence(run, probe),
		}
	}
	return classify(gap, probe, run, duration)
}

// classify maps a completed run to a result. Exit 0 means every probe
// assertion held; exit 1 is the test framework reporting assertion
// failure; anything else is infrastructure.
func classify(gap engine.Gap, probe probeSpec, run *runOutcome, duration time.Duration) ExecutionResult {
	ev := runEvidence(run, probe)
	switch {
	case run.TimedOut:
		return ExecutionResult{
			Status:   StatusError,
			Gap:      gap,
			Summary:  fmt.Sprintf("probe exceeded the %s timeout", run.Limit),
			Error:    "timed out",
			TimedOut: true,
			Evidence: ev,
			Duration: duration,
		}
	case run.ExitCode == 0:
		return ExecutionResult{
			Status:   StatusConfirmed,
			Gap:      gap,
			Summary:  fmt.Sprintf("simulated %s exploit succeeded and snippet corroborates", gap.CategoryID),
			Evidence: ev,
			Duration: duration,
		}
	case run.ExitCode == 1:
		return ExecutionResult{
			Status:   StatusUnconfirmed,
			Gap:      gap,
			Summary:  "probe ran but its assertions failed",
			Evidence: ev,
			Duration: duration,
		}
	default:
		return ExecutionResult{
			Status:   StatusError,
			Gap:      gap,
			Summary:  fmt.Sprintf("container exited with infrastructure code %d", run.ExitCode),
			Error:    fmt.Sprintf("exit code %d", run.ExitCode),
			Evidence: ev,
			Duration: duration,
		}
	}
}

func runEvidence(run *runOutcome, probe probeSpec) *Evidence {
	if run == nil {
		return nil
	}
	return &Evidence{
		Payload:  probe.Payload,
		Expected: probe.Expected,
		Actual:   fmt.Sprintf("exit code %d", run.ExitCode),
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
		ExitCode: run.ExitCode,
	}
}

// recordable reports whether a result should feed the precision store:
// confirmed and unconfirmed always, error only when a probe actually
// executed. Skips and pre-launch failures (synthesis, provisioning,
// batch cancellation) say nothing about the pattern itself.
func recordable(r ExecutionResult) bool {
	switch r.Status {
	case StatusConfirmed, StatusUnconfirmed:
		return true
	case StatusError:
		return r.Evidence != nil
	}
	return false
}

func cancelledResult(gap engine.Gap, err error) ExecutionResult {
	return ExecutionResult{
		Status:  StatusError,
		Gap:     gap,
		Summary: "confirmation batch cancelled before this run",
		Error:   err.Error(),
	}
}

func summarize(results []ExecutionResult, total time.Duration) *ExecutionSummary {
	sum := &ExecutionSummary{Results: results, TotalDuration: total}
	for _, r := range results {
		switch r.Status {
		case StatusConfirmed:
			sum.Confirmed++
		case StatusUnconfirmed:
			sum.Unconfirmed++
		case StatusError:
			sum.Errors++
		case StatusSkipped:
			sum.Skipped++
		}
	}
	return sum
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.CPULimit <= 0 {
		cfg.CPULimit = def.CPULimit
	}
	if cfg.MemoryLimitMB <= 0 {
		cfg.MemoryLimitMB = def.MemoryLimitMB
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = def.WorkDir
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RunsPerSecond <= 0 {
		cfg.RunsPerSecond = def.RunsPerSecond
	}
	return cfg
}
