// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the detection and scoring pipeline: it
// walks a target tree, dispatches catalog patterns against each file
// through the regex and AST matchers, converts matches into ranked
// gaps, and derives coverage metrics and the composite score.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/pinata/internal/catalog"
	"github.com/AleutianAI/pinata/internal/matcher"
	"github.com/AleutianAI/pinata/internal/project"
)

// ============================================================================
// Errors
// ============================================================================

// ErrDirectoryNotFound is returned when the scan target does not exist
// or is not a directory. Fatal: no partial result accompanies it.
var ErrDirectoryNotFound = errors.New("target directory not found")

// ErrNoCategories is returned when the catalog yields no categories
// after weighting and option filters. Fatal.
var ErrNoCategories = errors.New("no categories to scan")

// ============================================================================
// Options
// ============================================================================

// Options adjusts one scan. The zero value scans everything with test
// detection enabled and a top-3 summary.
type Options struct {
	// MinSeverity drops gaps below the given severity. Empty means low.
	MinSeverity catalog.Severity
	// MinConfidence drops gaps below the given confidence. Empty means low.
	MinConfidence catalog.Confidence
	// Categories restricts the scan to the listed category ids.
	Categories []string
	// Domains restricts the scan to the listed domains.
	Domains []catalog.Domain
	// ExcludeDirs adds directory names to the default denylist.
	ExcludeDirs []string
	// IncludeTests scans files classified as tests. Off by default;
	// test files are still counted in file statistics either way.
	IncludeTests bool
	// TopN bounds the result summary. Zero means 3.
	TopN int
	// Workers bounds matching parallelism. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return 3
	}
	return o.TopN
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// ============================================================================
// Engine
// ============================================================================

// Engine binds a catalog, the two matchers, and a weighting table into
// a reusable scanner.
//
// Thread Safety: safe for concurrent Scan calls; all per-scan state is
// local to the call.
type Engine struct {
	catalog catalog.Catalog
	regex   matcher.RegexMatcher
	ast     matcher.ASTMatcher
	weights *project.WeightTable
	logger  *slog.Logger
}

// New creates an Engine. A nil weights table falls back to the built-in
// defaults; a nil logger discards.
func New(cat catalog.Catalog, re matcher.RegexMatcher, ast matcher.ASTMatcher, weights *project.WeightTable, logger *slog.Logger) *Engine {
	if weights == nil {
		weights = project.DefaultWeights()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{catalog: cat, regex: re, ast: ast, weights: weights, logger: logger}
}

// filePartial is one worker's output for one file, merged by the
// caller in file order so results stay deterministic.
type filePartial struct {
	gaps     []Gap
	warnings []string
	lines    int
}

// Scan runs the full detection pipeline over targetDir.
//
// Description:
//
//	Validates the target, resolves the project type, applies category
//	weighting, matches every surviving pattern against every applicable
//	file in parallel, and reduces the per-file partials into the final
//	ordered gap list, coverage metrics, and score. Matcher failures are
//	demoted to warnings; only a missing directory or an empty effective
//	catalog aborts the scan.
//
// Inputs:
//
//	ctx       - Cancels the matching phase.
//	targetDir - Root of the tree to scan.
//	opts      - Scan options; zero value is valid.
//
// Outputs:
//
//	*ScanResult - Complete result, never partial.
//	error       - ErrDirectoryNotFound, ErrNoCategories, or a walk/ctx error.
func (e *Engine) Scan(ctx context.Context, targetDir string, opts Options) (*ScanResult, error) {
	started := time.Now()

	info, err := os.Stat(targetDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, targetDir)
	}

	proj := project.Detect(targetDir)
	e.logger.Info("project detected",
		"type", proj.Type, "confidence", proj.Confidence, "evidence", proj.Evidence)

	cats, err := e.effectiveCategories(proj.Type, opts)
	if err != nil {
		return nil, err
	}

	files, err := walkTree(targetDir, opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", targetDir, err)
	}

	partials := make([]filePartial, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = e.scanFile(files[i], cats, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Single-threaded reduce in walk order keeps the ordering contract.
	result := &ScanResult{
		TargetDirectory: targetDir,
		Project:         proj,
		StartedAt:       started,
		GapsByCategory:  make(map[string][]Gap),
		GapsByFile:      make(map[string][]Gap),
		Stats: FileStats{
			TotalFiles: len(files),
			ByLanguage: make(map[string]int),
		},
		CategoriesScanned: len(cats),
	}
	for i, f := range files {
		result.Stats.ByLanguage[f.Language]++
		if f.IsTest {
			result.Stats.TestFiles++
		}
		p := partials[i]
		result.Stats.LinesScanned += p.lines
		result.Warnings = append(result.Warnings, p.warnings...)
		if len(p.gaps) > 0 {
			result.Stats.FilesWithGaps++
		}
		result.Gaps = append(result.Gaps, p.gaps...)
	}

	// Stable sort preserves discovery order among ties, which is an
	// observable contract for downstream consumers.
	sort.SliceStable(result.Gaps, func(i, j int) bool {
		return result.Gaps[i].PriorityScore > result.Gaps[j].PriorityScore
	})
	for _, gap := range result.Gaps {
		result.GapsByCategory[gap.CategoryID] = append(result.GapsByCategory[gap.CategoryID], gap)
		result.GapsByFile[gap.File] = append(result.GapsByFile[gap.File], gap)
	}

	result.Coverage = computeCoverage(cats, result.GapsByCategory)
	result.Score = computeScore(result.Gaps, result.Coverage)
	if n := opts.topN(); len(result.Gaps) > n {
		result.TopGaps = result.Gaps[:n]
	} else {
		result.TopGaps = result.Gaps
	}
	result.Duration = time.Since(started)

	e.logger.Info("scan complete",
		"gaps", len(result.Gaps),
		"score", result.Score.Overall,
		"grade", result.Score.Grade,
		"files", result.Stats.TotalFiles,
		"duration", result.Duration)
	return result, nil
}

// effectiveCategories resolves the category set for this scan: the
// catalog filtered by option allowlists, then by project-type
// weighting. Skipped categories contribute nothing to matching and are
// excluded from categoriesScanned; boosted ones are re-ranked one
// priority tier up before scoring.
func (e *Engine) effectiveCategories(projType project.Type, opts Options) ([]*catalog.Category, error) {
	all := e.catalog.List()
	if len(all) == 0 {
		return nil, ErrNoCategories
	}

	allowIDs := toSet(opts.Categories)
	allowDomains := make(map[catalog.Domain]bool, len(opts.Domains))
	for _, d := range opts.Domains {
		allowDomains[d] = true
	}

	var cats []*catalog.Category
	for _, cat := range all {
		if len(allowIDs) > 0 && !allowIDs[cat.ID] {
			continue
		}
		if len(allowDomains) > 0 && !allowDomains[cat.Domain] {
			continue
		}
		switch e.weights.EffectFor(cat.ID, projType) {
		case project.EffectSkip:
			e.logger.Debug("category skipped for project type",
				"category", cat.ID, "projectType", projType)
			continue
		case project.EffectBoost:
			boosted := *cat
			boosted.Priority = boostPriority(cat.Priority)
			cats = append(cats, &boosted)
		default:
			cats = append(cats, cat)
		}
	}
	if len(cats) == 0 {
		return nil, ErrNoCategories
	}
	return cats, nil
}

// scanFile matches every applicable pattern against one file. Matcher
// failures become warnings on the partial, never errors.
func (e *Engine) scanFile(f sourceFile, cats []*catalog.Category, opts Options) filePartial {
	var p filePartial

	if f.IsTest && !opts.IncludeTests {
		return p
	}

	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		p.warnings = append(p.warnings, fmt.Sprintf("read %s: %v", f.Path, err))
		return p
	}
	lines := strings.Split(string(source), "\n")
	p.lines = len(lines)

	for _, cat := range cats {
		if !cat.AppliesTo(f.Language) {
			continue
		}
		for _, pat := range cat.Patterns {
			if pat.Language != f.Language {
				continue
			}
			if belowFloor(cat.Severity, pat.Confidence, opts) {
				continue
			}
			spans, err := e.dispatch(source, f.Language, pat)
			if err != nil {
				p.warnings = append(p.warnings,
					fmt.Sprintf("pattern %s on %s: %v", pat.ID, f.Path, err))
				e.logger.Warn("matcher failure",
					"pattern", pat.ID, "file", f.Path, "error", err)
				continue
			}
			for _, span := range spans {
				snippet := snippetAt(lines, span.Line)
				if suppressed(snippet, cat.ID) {
					continue
				}
				p.gaps = append(p.gaps, Gap{
					CategoryID:    cat.ID,
					CategoryName:  cat.Name,
					Domain:        cat.Domain,
					Level:         cat.Level,
					Priority:      cat.Priority,
					Severity:      cat.Severity,
					Confidence:    pat.Confidence,
					File:          f.Path,
					Line:          span.Line,
					Column:        span.Column,
					Snippet:       snippet,
					PatternID:     pat.ID,
					PatternKind:   pat.Kind,
					PriorityScore: priorityScore(cat.Severity, pat.Confidence, cat.Priority),
				})
			}
		}
	}
	return p
}

// dispatch routes a pattern to its matcher by kind. Semantic hooks have
// no in-process matcher and report zero matches.
func (e *Engine) dispatch(source []byte, language string, pat *catalog.DetectionPattern) ([]matcher.Span, error) {
	switch pat.Kind {
	case catalog.MatchRegex:
		return e.regex.MatchRegex(source, pat)
	case catalog.MatchASTQuery:
		return e.ast.QueryAST(source, language, pat.Payload)
	case catalog.MatchSemanticHook:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pattern kind %q", pat.Kind)
	}
}

// suppressionMarker silences a finding on its own line. A bare marker
// suppresses every category; "pinata:ignore=<id>" scopes it to one.
const suppressionMarker = "pinata:ignore"

func suppressed(line, categoryID string) bool {
	idx := strings.Index(line, suppressionMarker)
	if idx < 0 {
		return false
	}
	rest := line[idx+len(suppressionMarker):]
	if !strings.HasPrefix(rest, "=") {
		return true
	}
	rest = strings.TrimPrefix(rest, "=")
	if fields := strings.Fields(rest); len(fields) > 0 {
		rest = fields[0]
	}
	for _, id := range strings.Split(rest, ",") {
		if strings.TrimSpace(id) == categoryID {
			return true
		}
	}
	return false
}

const maxSnippetLen = 200

func snippetAt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(lines[line-1])
	if len(s) > maxSnippetLen {
		cut := maxSnippetLen
		// Back up to a rune boundary so the snippet stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

var severityRank = map[catalog.Severity]int{
	catalog.SeverityLow:      1,
	catalog.SeverityMedium:   2,
	catalog.SeverityHigh:     3,
	catalog.SeverityCritical: 4,
}

var confidenceRank = map[catalog.Confidence]int{
	catalog.ConfidenceLow:    1,
	catalog.ConfidenceMedium: 2,
	catalog.ConfidenceHigh:   3,
}

func belowFloor(sev catalog.Severity, conf catalog.Confidence, opts Options) bool {
	if opts.MinSeverity != "" && severityRank[sev] < severityRank[opts.MinSeverity] {
		return true
	}
	if opts.MinConfidence != "" && confidenceRank[conf] < confidenceRank[opts.MinConfidence] {
		return true
	}
	return false
}

func boostPriority(p catalog.Priority) catalog.Priority {
	switch p {
	case catalog.PriorityP2:
		return catalog.PriorityP1
	case catalog.PriorityP1:
		return catalog.PriorityP0
	default:
		return catalog.PriorityP0
	}
}

func toSet(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, v := range list {
		out[v] = true
	}
	return out
}
