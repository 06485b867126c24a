// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package matcher

import (
	"errors"
	"testing"

	"github.com/AleutianAI/pinata/internal/catalog"
)

func regexPattern(payload, negative string) *catalog.DetectionPattern {
	return &catalog.DetectionPattern{
		ID:              "test/pattern",
		Kind:            catalog.MatchRegex,
		Language:        "python",
		Payload:         payload,
		NegativePayload: negative,
		Confidence:      catalog.ConfidenceHigh,
	}
}

func TestMatchRegexFindsSpans(t *testing.T) {
	src := []byte("line one\ncursor.execute(f\"SELECT * FROM t WHERE id = '{uid}'\")\n")
	spans, err := NewRegex().MatchRegex(src, regexPattern(`execute\s*\(\s*f["']`, ""))
	if err != nil {
		t.Fatalf("MatchRegex: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Line != 2 {
		t.Errorf("Line = %d, want 2", spans[0].Line)
	}
	if spans[0].Column != 8 {
		t.Errorf("Column = %d, want 8", spans[0].Column)
	}
}

func TestMatchRegexNegativeSuppression(t *testing.T) {
	m := NewRegex()
	pat := regexPattern(`execute\(`, `parameterized`)

	flagged := []byte("db.execute(build_query(uid))\n")
	spans, err := m.MatchRegex(flagged, pat)
	if err != nil {
		t.Fatalf("MatchRegex: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans on flagged source, want 1", len(spans))
	}

	// Negative marker within the 100-byte context window suppresses.
	safe := []byte("db.execute(query)  # parameterized upstream\n")
	spans, err = m.MatchRegex(safe, pat)
	if err != nil {
		t.Fatalf("MatchRegex: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("got %d spans on suppressed source, want 0", len(spans))
	}
}

func TestMatchRegexBadPayloadIsError(t *testing.T) {
	_, err := NewRegex().MatchRegex([]byte("x"), regexPattern(`(unclosed`, ""))
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestLocate(t *testing.T) {
	src := []byte("ab\ncd\nef")
	cases := []struct {
		offset, line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{7, 3, 2},
		{100, 3, 3}, // clamped past EOF
	}
	for _, tc := range cases {
		line, col := locate(src, tc.offset)
		if line != tc.line || col != tc.col {
			t.Errorf("locate(%d) = (%d,%d), want (%d,%d)", tc.offset, line, col, tc.line, tc.col)
		}
	}
}

func TestQueryASTParserUnavailable(t *testing.T) {
	_, err := NewAST().QueryAST([]byte("x"), "cobol", "(call) @c")
	if !errors.Is(err, ErrParserUnavailable) {
		t.Fatalf("err = %v, want ErrParserUnavailable", err)
	}
}

func TestQueryASTPythonCall(t *testing.T) {
	src := []byte("import os\n\nos.system(cmd)\n")
	spans, err := NewAST().QueryAST(src, "python", "(call) @call")
	if err != nil {
		t.Fatalf("QueryAST: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Line != 3 {
		t.Errorf("Line = %d, want 3", spans[0].Line)
	}
}

func TestQueryASTBadQuery(t *testing.T) {
	if _, err := NewAST().QueryAST([]byte("x = 1\n"), "python", "((("); err == nil {
		t.Fatal("expected query compile error")
	}
}

func TestSupportsLanguage(t *testing.T) {
	m := NewAST()
	for _, lang := range []string{"go", "python", "javascript", "typescript"} {
		if !m.SupportsLanguage(lang) {
			t.Errorf("expected support for %s", lang)
		}
	}
	if m.SupportsLanguage("ruby") {
		t.Error("did not expect ruby support")
	}
}
