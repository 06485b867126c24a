// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/AleutianAI/pinata/internal/engine"
	"github.com/AleutianAI/pinata/internal/sandbox"
)

func renderScanJSON(w io.Writer, result *engine.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// confirmOutput bundles scan and confirmation for one JSON document.
type confirmOutput struct {
	Scan    *engine.ScanResult        `json:"scan"`
	Confirm *sandbox.ExecutionSummary `json:"confirmation"`
}

func renderConfirmJSON(w io.Writer, result *engine.ScanResult, summary *sandbox.ExecutionSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(confirmOutput{Scan: result, Confirm: summary})
}

func renderScanText(w io.Writer, result *engine.ScanResult) {
	fmt.Fprintf(w, "pinata scan of %s\n", result.TargetDirectory)
	fmt.Fprintf(w, "  project: %s (%s confidence)\n", result.Project.Type, result.Project.Confidence)
	for _, ev := range result.Project.Evidence {
		fmt.Fprintf(w, "    - %s\n", ev)
	}
	fmt.Fprintf(w, "  files: %d scanned, %d with gaps, %d test files, %d lines\n",
		result.Stats.TotalFiles, result.Stats.FilesWithGaps, result.Stats.TestFiles, result.Stats.LinesScanned)
	fmt.Fprintf(w, "  categories: %d scanned, coverage %.1f%%\n",
		result.CategoriesScanned, result.Coverage.Overall.CoveragePercent)
	fmt.Fprintf(w, "  score: %d (%s)\n\n", result.Score.Overall, result.Score.Grade)

	if len(result.Gaps) == 0 {
		fmt.Fprintln(w, "No gaps found.")
	} else {
		fmt.Fprintf(w, "%d gap(s), top %d:\n", len(result.Gaps), len(result.TopGaps))
		for _, gap := range result.TopGaps {
			fmt.Fprintf(w, "  [%.1f] %s %s %s:%d\n        %s\n",
				gap.PriorityScore, gap.Severity, gap.CategoryID, gap.File, gap.Line, gap.Snippet)
		}
		fmt.Fprintln(w)
		renderCategoryCounts(w, result)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d warning(s):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warn)
		}
	}
}

func renderCategoryCounts(w io.Writer, result *engine.ScanResult) {
	ids := make([]string, 0, len(result.GapsByCategory))
	for id := range result.GapsByCategory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintln(w, "By category:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-28s %d\n", id, len(result.GapsByCategory[id]))
	}
}

func renderConfirmText(w io.Writer, summary *sandbox.ExecutionSummary) {
	fmt.Fprintf(w, "\nConfirmation: %d confirmed, %d unconfirmed, %d error, %d skipped (%.1fs)\n",
		summary.Confirmed, summary.Unconfirmed, summary.Errors, summary.Skipped,
		summary.TotalDuration.Seconds())
	for _, r := range summary.Results {
		if r.Status == sandbox.StatusSkipped {
			continue
		}
		fmt.Fprintf(w, "  %-11s %s %s:%d - %s\n",
			r.Status, r.Gap.CategoryID, r.Gap.File, r.Gap.Line, r.Summary)
		if r.TimedOut {
			fmt.Fprintf(w, "              (timed out)\n")
		}
	}
}
