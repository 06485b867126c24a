// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package matcher

import (
	"fmt"

	"github.com/AleutianAI/pinata/internal/catalog"
)

// negativeContextBytes is how much surrounding text a negative pattern
// is checked against on each side of a match.
const negativeContextBytes = 100

// Regex is the standard RegexMatcher implementation.
//
// Thread Safety:
//
//	Stateless; safe for concurrent use. Pattern compilation is cached
//	on the DetectionPattern itself.
type Regex struct{}

// NewRegex creates a new regex matcher.
func NewRegex() *Regex {
	return &Regex{}
}

// MatchRegex implements RegexMatcher.
func (m *Regex) MatchRegex(source []byte, pattern *catalog.DetectionPattern) ([]Span, error) {
	re, err := pattern.Regex()
	if err != nil {
		return nil, fmt.Errorf("compile pattern %s: %w", pattern.ID, err)
	}

	locs := re.FindAllIndex(source, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	neg, err := pattern.NegativeRegex()
	if err != nil {
		return nil, fmt.Errorf("compile negative pattern %s: %w", pattern.ID, err)
	}

	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		if neg != nil {
			start := max(0, loc[0]-negativeContextBytes)
			end := min(len(source), loc[1]+negativeContextBytes)
			if neg.Match(source[start:end]) {
				continue
			}
		}
		line, col := locate(source, loc[0])
		spans = append(spans, Span{
			StartByte: loc[0],
			EndByte:   loc[1],
			Line:      line,
			Column:    col,
		})
	}
	return spans, nil
}
