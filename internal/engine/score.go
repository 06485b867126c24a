// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"github.com/AleutianAI/pinata/internal/catalog"
)

// The weight tables below are an output contract: priorityScore values
// are consumed verbatim by downstream tooling and must not drift.

var severityWeights = map[catalog.Severity]float64{
	catalog.SeverityCritical: 4.0,
	catalog.SeverityHigh:     3.0,
	catalog.SeverityMedium:   2.0,
	catalog.SeverityLow:      1.0,
}

var confidenceWeights = map[catalog.Confidence]float64{
	catalog.ConfidenceHigh:   1.0,
	catalog.ConfidenceMedium: 0.7,
	catalog.ConfidenceLow:    0.4,
}

var priorityWeights = map[catalog.Priority]float64{
	catalog.PriorityP0: 3.0,
	catalog.PriorityP1: 2.0,
	catalog.PriorityP2: 1.0,
}

// gapPenaltyScale tunes how hard each gap pulls the overall score down.
// At 1.5 a single critical/high-confidence gap costs 6 points.
const gapPenaltyScale = 1.5

// coverageBonusScale converts overall coverage percent into score
// points: full coverage is worth 5 points.
const coverageBonusScale = 0.05

// priorityScore computes the canonical gap ranking value.
func priorityScore(sev catalog.Severity, conf catalog.Confidence, pri catalog.Priority) float64 {
	return severityWeights[sev] * confidenceWeights[conf] * priorityWeights[pri]
}

// gradeFor maps a clamped score to its letter band.
func gradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// computeScore derives the PinataScore from the full gap list and
// coverage. Starts at 100, subtracts a severity-and-confidence-weighted
// penalty per gap, adds a small coverage bonus, clamps to [0, 100].
// Zero gaps therefore always lands at 100 and grade A.
func computeScore(gaps []Gap, cov CoverageMetrics) PinataScore {
	score := PinataScore{
		DomainScores:  make(map[catalog.Domain]int),
		SeverityCount: make(map[catalog.Severity]int),
	}

	var penalty float64
	domainPenalty := make(map[catalog.Domain]float64)
	for _, g := range gaps {
		p := severityWeights[g.Severity] * confidenceWeights[g.Confidence] * gapPenaltyScale
		penalty += p
		domainPenalty[g.Domain] += p
		score.SeverityCount[g.Severity]++
	}

	bonus := cov.Overall.CoveragePercent * coverageBonusScale
	score.GapPenalty = penalty
	score.CoverageBonus = bonus
	score.Overall = clampScore(100.0 - penalty + bonus)
	score.Grade = gradeFor(score.Overall)

	for domain := range cov.ByDomain {
		score.DomainScores[domain] = clampScore(100.0 - domainPenalty[domain])
	}
	return score
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
