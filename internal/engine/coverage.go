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

// computeCoverage aggregates outcome counts over the categories that
// actually took part in matching. A category with zero gaps is covered
// ("no risky pattern fired"); one or more gaps puts it in WithGaps.
//
// Invariant maintained for every bucket: Covered + WithGaps == Scanned.
func computeCoverage(scanned []*catalog.Category, gapsByCategory map[string][]Gap) CoverageMetrics {
	cov := CoverageMetrics{
		ByDomain: make(map[catalog.Domain]DomainCoverage),
		ByLevel:  make(map[catalog.Level]DomainCoverage),
	}

	for _, cat := range scanned {
		hasGaps := len(gapsByCategory[cat.ID]) > 0

		d := cov.ByDomain[cat.Domain]
		l := cov.ByLevel[cat.Level]
		d.Scanned++
		l.Scanned++
		cov.Overall.Scanned++
		if hasGaps {
			d.WithGaps++
			l.WithGaps++
			cov.Overall.WithGaps++
		} else {
			d.Covered++
			l.Covered++
			cov.Overall.Covered++
		}
		cov.ByDomain[cat.Domain] = d
		cov.ByLevel[cat.Level] = l
	}

	for domain, d := range cov.ByDomain {
		d.CoveragePercent = percent(d.Covered, d.Scanned)
		cov.ByDomain[domain] = d
	}
	for level, l := range cov.ByLevel {
		l.CoveragePercent = percent(l.Covered, l.Scanned)
		cov.ByLevel[level] = l
	}
	cov.Overall.CoveragePercent = percent(cov.Overall.Covered, cov.Overall.Scanned)
	return cov
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100.0
}
