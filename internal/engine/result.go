// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"time"

	"github.com/AleutianAI/pinata/internal/catalog"
	"github.com/AleutianAI/pinata/internal/project"
)

// Gap is the engine's canonical finding: one pattern match in one file,
// carrying the owning category's classification frozen at match time.
//
// Gaps are created fresh on every scan and never mutated afterwards.
type Gap struct {
	CategoryID   string             `json:"categoryId"`
	CategoryName string             `json:"categoryName"`
	Domain       catalog.Domain     `json:"domain"`
	Level        catalog.Level      `json:"level"`
	Priority     catalog.Priority   `json:"priority"`
	Severity     catalog.Severity   `json:"severity"`
	Confidence   catalog.Confidence `json:"confidence"`

	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Snippet string `json:"snippet"`

	PatternID   string            `json:"patternId"`
	PatternKind catalog.MatchKind `json:"patternKind"`

	// PriorityScore = severityWeight * confidenceWeight * priorityWeight.
	// The weight tables are a hard output contract; see weights in score.go.
	PriorityScore float64 `json:"priorityScore"`
}

// DomainCoverage aggregates category outcomes for one domain or level.
//
// Invariant: Covered + WithGaps == Scanned.
type DomainCoverage struct {
	Scanned         int     `json:"categoriesScanned"`
	Covered         int     `json:"categoriesCovered"`
	WithGaps        int     `json:"categoriesWithGaps"`
	CoveragePercent float64 `json:"coveragePercent"`
}

// CoverageMetrics holds per-domain, per-level, and overall aggregates.
type CoverageMetrics struct {
	ByDomain map[catalog.Domain]DomainCoverage `json:"byDomain"`
	ByLevel  map[catalog.Level]DomainCoverage  `json:"byLevel"`
	Overall  DomainCoverage                    `json:"overall"`
}

// PinataScore is the composite 0-100 health figure with its grade and
// the terms that produced it.
type PinataScore struct {
	Overall       int                      `json:"overall"`
	Grade         string                   `json:"grade"`
	DomainScores  map[catalog.Domain]int   `json:"domainScores"`
	SeverityCount map[catalog.Severity]int `json:"severityCount"`
	GapPenalty    float64                  `json:"gapPenalty"`
	CoverageBonus float64                  `json:"coverageBonus"`
}

// FileStats summarizes what the walker saw.
type FileStats struct {
	TotalFiles    int            `json:"totalFiles"`
	FilesWithGaps int            `json:"filesWithGaps"`
	TestFiles     int            `json:"testFiles"`
	LinesScanned  int            `json:"linesScanned"`
	ByLanguage    map[string]int `json:"byLanguage"`
}

// ScanResult is the engine's complete output for one scan.
type ScanResult struct {
	TargetDirectory string        `json:"targetDirectory"`
	Project         project.Info  `json:"project"`
	StartedAt       time.Time     `json:"startedAt"`
	Duration        time.Duration `json:"duration"`

	Gaps           []Gap            `json:"gaps"`
	GapsByCategory map[string][]Gap `json:"gapsByCategory"`
	GapsByFile     map[string][]Gap `json:"gapsByFile"`

	Coverage CoverageMetrics `json:"coverage"`
	Score    PinataScore     `json:"score"`
	Stats    FileStats       `json:"fileStats"`

	// TopGaps is the first N entries of Gaps, kept separately so
	// renderers need no slicing logic.
	TopGaps []Gap `json:"topGaps"`

	// Warnings lists non-fatal matcher failures. A populated warnings
	// list still accompanies a complete, best-effort result.
	Warnings []string `json:"warnings,omitempty"`

	CategoriesScanned int `json:"categoriesScanned"`
}
