// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pinata/internal/catalog"
	"github.com/AleutianAI/pinata/internal/engine"
	"github.com/AleutianAI/pinata/internal/feedback"
	"github.com/AleutianAI/pinata/internal/matcher"
	"github.com/AleutianAI/pinata/internal/project"
	"github.com/AleutianAI/pinata/internal/sandbox"
	"github.com/AleutianAI/pinata/pkg/logging"
	"github.com/AleutianAI/pinata/pkg/validation"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// --- Global Command Variables ---
var (
	verbose     bool
	quiet       bool
	jsonOutput  bool
	logDir      string
	catalogDir  string
	weightsPath string

	// scan flags
	minSeverity   string
	minConfidence string
	categoryIDs   []string
	domainFilter  []string
	excludeDirs   []string
	includeTests  bool
	topN          int

	// confirm flags
	sandboxImage   string
	sandboxCPUs    float64
	sandboxMemory  int
	sandboxTimeout int
	sandboxNetwork bool
	sandboxWorkers int
	dryRun         bool
	feedbackDir    string

	// watch flags
	debounceMillis int

	rootCmd = &cobra.Command{
		Use:   "pinata",
		Short: "Find and confirm security gaps in a source tree",
		Long: `Pinata scans a codebase for patterns associated with security gaps,
scores the exposure, and can attempt to confirm findings by running
synthesized probes inside a hardened, ephemeral sandbox.`,
		SilenceUsage: true,
	}

	scanCmd = &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory and report gaps, coverage, and the score",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}

	confirmCmd = &cobra.Command{
		Use:   "confirm [directory]",
		Short: "Scan, then confirm testable gaps inside the sandbox",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfirm,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [directory]",
		Short: "Rescan automatically when files under the directory change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the pinata version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pinata %s (catalog %s)\n", version, catalog.CatalogVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output on stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "Directory of extension category YAML files")
	rootCmd.PersistentFlags().StringVar(&weightsPath, "weights", "", "YAML file of project-type weighting overrides")

	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&minSeverity, "min-severity", "", "Minimum severity (critical, high, medium, low)")
	scanCmd.Flags().StringVar(&minConfidence, "min-confidence", "", "Minimum confidence (high, medium, low)")
	scanCmd.Flags().StringSliceVar(&categoryIDs, "category", nil, "Restrict to category ids (repeatable)")
	scanCmd.Flags().StringSliceVar(&domainFilter, "domain", nil, "Restrict to domains (repeatable)")
	scanCmd.Flags().StringSliceVar(&excludeDirs, "exclude", nil, "Directory names to exclude (repeatable)")
	scanCmd.Flags().BoolVar(&includeTests, "include-tests", false, "Also match patterns inside test files")
	scanCmd.Flags().IntVar(&topN, "top", 3, "How many top gaps to summarize")

	rootCmd.AddCommand(confirmCmd)
	confirmCmd.Flags().StringVar(&sandboxImage, "image", "", "Override the per-framework probe image")
	confirmCmd.Flags().Float64Var(&sandboxCPUs, "cpus", 0.5, "CPU limit per probe container")
	confirmCmd.Flags().IntVar(&sandboxMemory, "memory", 256, "Memory limit per probe container (MB)")
	confirmCmd.Flags().IntVar(&sandboxTimeout, "timeout", 30, "Hard wall-clock limit per probe (seconds)")
	confirmCmd.Flags().BoolVar(&sandboxNetwork, "network", false, "Allow network access inside probes")
	confirmCmd.Flags().IntVar(&sandboxWorkers, "workers", 2, "Concurrent probe runs")
	confirmCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Synthesize probes without executing them")
	confirmCmd.Flags().StringVar(&feedbackDir, "feedback-dir", "", "Directory of the pattern precision store")
	confirmCmd.Flags().StringSliceVar(&excludeDirs, "exclude", nil, "Directory names to exclude (repeatable)")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&debounceMillis, "debounce", 500, "Quiet period before a rescan (milliseconds)")
	watchCmd.Flags().StringSliceVar(&excludeDirs, "exclude", nil, "Directory names to exclude (repeatable)")

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from the global flags.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "pinata",
		Quiet:   quiet || jsonOutput,
	})
}

// newEngine assembles the detection pipeline from the global flags.
func newEngine(logger *logging.Logger) (*engine.Engine, []string, error) {
	var (
		cat      *catalog.InMemory
		warnings []string
		err      error
	)
	if catalogDir != "" {
		cat, warnings, err = catalog.Load(catalogDir, logger.Slog())
		if err != nil {
			return nil, nil, err
		}
	} else {
		cat = catalog.Builtin()
	}

	weights := project.DefaultWeights()
	if weightsPath != "" {
		weights, err = project.LoadWeights(weightsPath)
		if err != nil {
			return nil, nil, err
		}
	}

	eng := engine.New(cat, matcher.NewRegex(), matcher.NewAST(), weights, logger.Slog())
	return eng, warnings, nil
}

// validateFilters rejects malformed filter flags before they reach the
// engine, so error messages name the flag value rather than a lookup.
func validateFilters() error {
	for _, id := range categoryIDs {
		if err := validation.ValidateCategoryID(id); err != nil {
			return err
		}
	}
	for _, name := range excludeDirs {
		if err := validation.ValidateExcludeDir(name); err != nil {
			return err
		}
	}
	if err := validation.ValidateSeverity(minSeverity); err != nil {
		return err
	}
	return validation.ValidateConfidence(minConfidence)
}

func scanOptions() engine.Options {
	domains := make([]catalog.Domain, 0, len(domainFilter))
	for _, d := range domainFilter {
		domains = append(domains, catalog.Domain(d))
	}
	return engine.Options{
		MinSeverity:   catalog.Severity(minSeverity),
		MinConfidence: catalog.Confidence(minConfidence),
		Categories:    categoryIDs,
		Domains:       domains,
		ExcludeDirs:   excludeDirs,
		IncludeTests:  includeTests,
		TopN:          topN,
	}
}

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// signalContext cancels on SIGINT/SIGTERM so sandbox runs and watches
// shut down cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validateFilters(); err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Close()

	eng, loadWarnings, err := newEngine(logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := eng.Scan(ctx, targetDir(args), scanOptions())
	if err != nil {
		return err
	}
	result.Warnings = append(loadWarnings, result.Warnings...)

	if jsonOutput {
		return renderScanJSON(os.Stdout, result)
	}
	renderScanText(os.Stdout, result)
	return nil
}

func runConfirm(cmd *cobra.Command, args []string) error {
	if err := validateFilters(); err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Close()

	eng, _, err := newEngine(logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	dir := targetDir(args)
	result, err := eng.Scan(ctx, dir, scanOptions())
	if err != nil {
		return err
	}

	var recorder sandbox.Recorder
	if feedbackDir != "" && !dryRun {
		store, err := feedback.Open(feedbackDir, logger.Slog())
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	cfg := sandbox.Config{
		Image:          sandboxImage,
		CPULimit:       sandboxCPUs,
		MemoryLimitMB:  sandboxMemory,
		TimeoutSeconds: sandboxTimeout,
		NetworkEnabled: sandboxNetwork,
		Concurrency:    sandboxWorkers,
		ProjectDir:     dir,
	}
	box := sandbox.New(recorder, logger.Slog())
	summary, err := box.Confirm(ctx, result.Gaps, cfg, dryRun)
	if err != nil {
		return err
	}

	if jsonOutput {
		return renderConfirmJSON(os.Stdout, result, summary)
	}
	renderScanText(os.Stdout, result)
	renderConfirmText(os.Stdout, summary)
	return nil
}
