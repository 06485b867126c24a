// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pinata/internal/catalog"
	"github.com/AleutianAI/pinata/internal/matcher"
	"github.com/AleutianAI/pinata/internal/project"
)

// ============================================================================
// Fixtures
// ============================================================================

// stubCatalog lets tests exercise the empty-catalog path, which
// catalog.NewInMemory refuses to construct.
type stubCatalog struct {
	cats []*catalog.Category
}

func (s *stubCatalog) List() []*catalog.Category { return s.cats }
func (s *stubCatalog) Get(id string) (*catalog.Category, error) {
	for _, c := range s.cats {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func testCategory(id string, sev catalog.Severity, pri catalog.Priority, conf catalog.Confidence, payload string) *catalog.Category {
	return &catalog.Category{
		ID:        id,
		Name:      id,
		Domain:    catalog.DomainSecurity,
		Level:     catalog.LevelUnit,
		Priority:  pri,
		Severity:  sev,
		Languages: []string{"python"},
		Patterns: []*catalog.DetectionPattern{{
			ID:         id + "/py",
			Kind:       catalog.MatchRegex,
			Language:   "python",
			Payload:    payload,
			Confidence: conf,
		}},
	}
}

func newTestEngine(t *testing.T, cats ...*catalog.Category) *Engine {
	t.Helper()
	return New(&stubCatalog{cats: cats}, matcher.NewRegex(), matcher.NewAST(), project.DefaultWeights(), nil)
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// ============================================================================
// Scoring contracts
// ============================================================================

func TestPriorityScoreTables(t *testing.T) {
	cases := []struct {
		sev  catalog.Severity
		conf catalog.Confidence
		pri  catalog.Priority
		want float64
	}{
		{catalog.SeverityCritical, catalog.ConfidenceHigh, catalog.PriorityP0, 12.0},
		{catalog.SeverityCritical, catalog.ConfidenceMedium, catalog.PriorityP0, 8.4},
		{catalog.SeverityHigh, catalog.ConfidenceHigh, catalog.PriorityP1, 6.0},
		{catalog.SeverityMedium, catalog.ConfidenceLow, catalog.PriorityP2, 0.8},
		{catalog.SeverityLow, catalog.ConfidenceLow, catalog.PriorityP2, 0.4},
	}
	for _, tc := range cases {
		got := priorityScore(tc.sev, tc.conf, tc.pri)
		assert.InDelta(t, tc.want, got, 1e-9,
			"priorityScore(%s,%s,%s)", tc.sev, tc.conf, tc.pri)
	}
}

func TestGradeBands(t *testing.T) {
	assert.Equal(t, "A", gradeFor(100))
	assert.Equal(t, "A", gradeFor(90))
	assert.Equal(t, "B", gradeFor(89))
	assert.Equal(t, "B", gradeFor(80))
	assert.Equal(t, "C", gradeFor(79))
	assert.Equal(t, "C", gradeFor(70))
	assert.Equal(t, "D", gradeFor(69))
	assert.Equal(t, "D", gradeFor(60))
	assert.Equal(t, "F", gradeFor(59))
	assert.Equal(t, "F", gradeFor(0))
}

func TestZeroGapsScoresAtLeast95(t *testing.T) {
	cov := CoverageMetrics{Overall: DomainCoverage{Scanned: 4, Covered: 4, CoveragePercent: 100}}
	score := computeScore(nil, cov)
	assert.GreaterOrEqual(t, score.Overall, 95)
	assert.Equal(t, "A", score.Grade)

	// Even with zero coverage bonus.
	score = computeScore(nil, CoverageMetrics{})
	assert.GreaterOrEqual(t, score.Overall, 95)
	assert.Equal(t, "A", score.Grade)
}

func TestScoreMonotonicInGaps(t *testing.T) {
	cov := CoverageMetrics{Overall: DomainCoverage{Scanned: 2, Covered: 1, WithGaps: 1, CoveragePercent: 50}}
	gap := func(sev catalog.Severity, conf catalog.Confidence) Gap {
		return Gap{Severity: sev, Confidence: conf, Domain: catalog.DomainSecurity}
	}

	var gaps []Gap
	prev := computeScore(gaps, cov).Overall
	for i := 0; i < 10; i++ {
		gaps = append(gaps, gap(catalog.SeverityMedium, catalog.ConfidenceMedium))
		cur := computeScore(gaps, cov).Overall
		assert.LessOrEqual(t, cur, prev, "score must not rise as gaps accumulate")
		prev = cur
	}

	// Higher severity/confidence penalizes at least as much.
	low := computeScore([]Gap{gap(catalog.SeverityLow, catalog.ConfidenceLow)}, cov).Overall
	high := computeScore([]Gap{gap(catalog.SeverityCritical, catalog.ConfidenceHigh)}, cov).Overall
	assert.LessOrEqual(t, high, low)
}

func TestScoreClampedToRange(t *testing.T) {
	cov := CoverageMetrics{Overall: DomainCoverage{Scanned: 1, Covered: 1, CoveragePercent: 100}}
	var gaps []Gap
	for i := 0; i < 100; i++ {
		gaps = append(gaps, Gap{Severity: catalog.SeverityCritical, Confidence: catalog.ConfidenceHigh})
	}
	score := computeScore(gaps, cov)
	assert.Equal(t, 0, score.Overall)
	assert.Equal(t, "F", score.Grade)

	score = computeScore(nil, cov)
	assert.LessOrEqual(t, score.Overall, 100)
}

func TestCoverageInvariant(t *testing.T) {
	cats := []*catalog.Category{
		testCategory("a", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, "x"),
		testCategory("b", catalog.SeverityLow, catalog.PriorityP2, catalog.ConfidenceLow, "y"),
		testCategory("c", catalog.SeverityMedium, catalog.PriorityP1, catalog.ConfidenceMedium, "z"),
	}
	cats[2].Domain = catalog.DomainInput

	gapsByCategory := map[string][]Gap{"a": {{CategoryID: "a"}}}
	cov := computeCoverage(cats, gapsByCategory)

	assert.Equal(t, cov.Overall.Scanned, cov.Overall.Covered+cov.Overall.WithGaps)
	for domain, d := range cov.ByDomain {
		assert.Equal(t, d.Scanned, d.Covered+d.WithGaps, "domain %s", domain)
	}
	for level, l := range cov.ByLevel {
		assert.Equal(t, l.Scanned, l.Covered+l.WithGaps, "level %s", level)
	}
	assert.Equal(t, 3, cov.Overall.Scanned)
	assert.Equal(t, 1, cov.Overall.WithGaps)
}

// ============================================================================
// Scan behavior
// ============================================================================

func TestScanDirectoryNotFound(t *testing.T) {
	eng := newTestEngine(t, testCategory("a", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, "x"))
	result, err := eng.Scan(context.Background(), filepath.Join(t.TempDir(), "absent"), Options{})
	assert.ErrorIs(t, err, ErrDirectoryNotFound)
	assert.Nil(t, result)
}

func TestScanEmptyCatalog(t *testing.T) {
	eng := New(&stubCatalog{}, matcher.NewRegex(), matcher.NewAST(), nil, nil)
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "x = 1\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	assert.ErrorIs(t, err, ErrNoCategories)
	assert.Nil(t, result)
}

func TestScanGapOrdering(t *testing.T) {
	// Three categories at distinct score tiers, all matching the file.
	eng := newTestEngine(t,
		testCategory("low-cat", catalog.SeverityLow, catalog.PriorityP2, catalog.ConfidenceLow, `marker`),
		testCategory("crit-cat", catalog.SeverityCritical, catalog.PriorityP0, catalog.ConfidenceHigh, `marker`),
		testCategory("mid-cat", catalog.SeverityMedium, catalog.PriorityP1, catalog.ConfidenceMedium, `marker`),
	)
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, result.Gaps, 3)

	for i := 0; i+1 < len(result.Gaps); i++ {
		assert.GreaterOrEqual(t, result.Gaps[i].PriorityScore, result.Gaps[i+1].PriorityScore)
	}
	assert.Equal(t, "crit-cat", result.Gaps[0].CategoryID)
	assert.Equal(t, "low-cat", result.Gaps[2].CategoryID)
}

func TestScanTieBreakIsDiscoveryOrder(t *testing.T) {
	// Two identical-score categories across two files: ties must follow
	// walk order (a.py before b.py) and category order within a file.
	eng := newTestEngine(t,
		testCategory("cat-one", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`),
		testCategory("cat-two", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`),
	)
	dir := t.TempDir()
	writeSource(t, dir, "b.py", "marker\n")
	writeSource(t, dir, "a.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, result.Gaps, 4)

	assert.Equal(t, "a.py", result.Gaps[0].File)
	assert.Equal(t, "cat-one", result.Gaps[0].CategoryID)
	assert.Equal(t, "a.py", result.Gaps[1].File)
	assert.Equal(t, "cat-two", result.Gaps[1].CategoryID)
	assert.Equal(t, "b.py", result.Gaps[2].File)
	assert.Equal(t, "b.py", result.Gaps[3].File)
}

func TestScanWeightingSkipsCategory(t *testing.T) {
	// xss is skipped for CLI projects: even a matching pattern must
	// produce no gaps and not count toward categoriesScanned.
	xss := testCategory("xss", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`)
	other := testCategory("other", catalog.SeverityLow, catalog.PriorityP2, catalog.ConfidenceLow, `marker`)
	eng := newTestEngine(t, xss, other)

	dir := t.TempDir()
	writeSource(t, dir, "package.json", `{"bin": {"tool": "./x.js"}}`)
	writeSource(t, dir, "app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, project.TypeCLI, result.Project.Type)
	assert.Equal(t, 1, result.CategoriesScanned)
	assert.Empty(t, result.GapsByCategory["xss"])
	assert.Len(t, result.GapsByCategory["other"], 1)
}

func TestScanBoostRaisesPriorityTier(t *testing.T) {
	ssrf := testCategory("ssrf", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`)
	eng := newTestEngine(t, ssrf)

	dir := t.TempDir()
	writeSource(t, dir, "package.json", `{"dependencies": {"express": "4.0.0"}}`)
	writeSource(t, dir, "app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)
	assert.Equal(t, catalog.PriorityP0, result.Gaps[0].Priority)
	// 3.0 * 1.0 * 3.0 with the boosted P0 weight.
	assert.InDelta(t, 9.0, result.Gaps[0].PriorityScore, 1e-9)
}

func TestScanExcludesTestFilesButCountsThem(t *testing.T) {
	eng := newTestEngine(t, testCategory("a", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`))
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "marker\n")
	writeSource(t, dir, "test_app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Gaps, 1)
	assert.Equal(t, "app.py", result.Gaps[0].File)
	assert.Equal(t, 2, result.Stats.TotalFiles)
	assert.Equal(t, 1, result.Stats.TestFiles)

	// IncludeTests brings the test file into match candidacy.
	result, err = eng.Scan(context.Background(), dir, Options{IncludeTests: true})
	require.NoError(t, err)
	assert.Len(t, result.Gaps, 2)
}

func TestScanSuppressionComment(t *testing.T) {
	eng := newTestEngine(t,
		testCategory("cat-a", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`),
		testCategory("cat-b", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `marker`),
	)
	dir := t.TempDir()
	writeSource(t, dir, "app.py",
		"marker  # pinata:ignore\n"+
			"marker  # pinata:ignore=cat-a\n"+
			"marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)

	// Line 1 suppresses both, line 2 suppresses only cat-a, line 3 none.
	assert.Len(t, result.GapsByCategory["cat-a"], 1)
	assert.Len(t, result.GapsByCategory["cat-b"], 2)
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	// 100 three-byte runes: the cap falls mid-rune and must back up.
	long := strings.Repeat("日", 100)
	got := snippetAt([]string{long}, 1)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 66), got)

	// A short line passes through untouched.
	assert.Equal(t, "short", snippetAt([]string{"  short  "}, 1))
}

func TestScanMinSeverityFilter(t *testing.T) {
	eng := newTestEngine(t,
		testCategory("low-cat", catalog.SeverityLow, catalog.PriorityP2, catalog.ConfidenceHigh, `marker`),
		testCategory("crit-cat", catalog.SeverityCritical, catalog.PriorityP0, catalog.ConfidenceHigh, `marker`),
	)
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{MinSeverity: catalog.SeverityHigh})
	require.NoError(t, err)
	assert.Len(t, result.Gaps, 1)
	assert.Equal(t, "crit-cat", result.Gaps[0].CategoryID)
}

func TestScanMatcherFailureIsWarning(t *testing.T) {
	bad := testCategory("bad", catalog.SeverityHigh, catalog.PriorityP1, catalog.ConfidenceHigh, `(unclosed`)
	good := testCategory("good", catalog.SeverityLow, catalog.PriorityP2, catalog.ConfidenceLow, `marker`)
	eng := newTestEngine(t, bad, good)

	dir := t.TempDir()
	writeSource(t, dir, "app.py", "marker\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
	assert.Len(t, result.GapsByCategory["good"], 1)
}

// ============================================================================
// End to end
// ============================================================================

func TestEndToEndSQLInjection(t *testing.T) {
	eng := New(catalog.Builtin(), matcher.NewRegex(), matcher.NewAST(), project.DefaultWeights(), nil)

	dir := t.TempDir()
	writeSource(t, dir, "db.py",
		"import sqlite3\n\n"+
			"def lookup(cursor, user_id):\n"+
			"    cursor.execute(f\"SELECT * FROM users WHERE id = '{user_id}'\")\n")

	result, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)

	var found *Gap
	for i := range result.Gaps {
		g := &result.Gaps[i]
		if g.CategoryID == "sql-injection" && g.Confidence == catalog.ConfidenceHigh {
			found = g
			break
		}
	}
	require.NotNil(t, found, "expected a high-confidence sql-injection gap")
	assert.Equal(t, catalog.SeverityCritical, found.Severity)
	assert.Equal(t, 4, found.Line)
	assert.InDelta(t, 12.0, found.PriorityScore, 1e-9)
	assert.Contains(t, found.Snippet, "cursor.execute")
}

func TestScanDeterminism(t *testing.T) {
	eng := New(catalog.Builtin(), matcher.NewRegex(), matcher.NewAST(), project.DefaultWeights(), nil)

	dir := t.TempDir()
	writeSource(t, dir, "a.py", "cursor.execute(f\"SELECT * FROM t WHERE id = '{x}'\")\n")
	writeSource(t, dir, "b.py", "os.system(\"ls \" + user_input)\n")
	writeSource(t, dir, "sub/c.py", "open(base + request.args['f'])\n")

	first, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)
	second, err := eng.Scan(context.Background(), dir, Options{})
	require.NoError(t, err)

	gapsA, err := json.Marshal(first.Gaps)
	require.NoError(t, err)
	gapsB, err := json.Marshal(second.Gaps)
	require.NoError(t, err)
	assert.Equal(t, string(gapsA), string(gapsB))
	assert.Equal(t, first.Score.Overall, second.Score.Overall)
	assert.Equal(t, first.Score.Grade, second.Score.Grade)
}
