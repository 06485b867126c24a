// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package matcher provides the pattern matching primitives the
// detection engine dispatches to: a regex matcher and a tree-sitter
// AST query matcher.
//
// Both matchers are pure functions over (source text, pattern): they
// hold no per-scan state and are safe for concurrent use. The AST
// matcher may legitimately report that no parser is available for a
// language; callers treat that as a recoverable, logged condition.
package matcher

import (
	"errors"

	"github.com/AleutianAI/pinata/internal/catalog"
)

// ErrParserUnavailable is returned by the AST matcher when no
// tree-sitter grammar is registered for the requested language.
var ErrParserUnavailable = errors.New("parser unavailable for language")

// Span is one raw match location inside a source file.
//
// Byte offsets index into the scanned content; Line and Column are
// 1-based and derived from StartByte.
type Span struct {
	StartByte int
	EndByte   int
	Line      int
	Column    int
}

// RegexMatcher evaluates regex detection patterns.
type RegexMatcher interface {
	// MatchRegex returns every span of source matched by the pattern's
	// payload, with negative-payload suppression applied. A payload
	// that fails to compile is an error; the caller degrades it to a
	// warning.
	MatchRegex(source []byte, pattern *catalog.DetectionPattern) ([]Span, error)
}

// ASTMatcher evaluates tree-sitter query patterns.
type ASTMatcher interface {
	// QueryAST parses source as the given language and returns a span
	// per query match. Returns ErrParserUnavailable for languages
	// without a registered grammar.
	QueryAST(source []byte, language, query string) ([]Span, error)
}

// locate converts a byte offset into a 1-based line and column.
func locate(source []byte, offset int) (line, col int) {
	line, col = 1, 1
	if offset > len(source) {
		offset = len(source)
	}
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
