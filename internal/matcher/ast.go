// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package matcher

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// astMaxFileSize is the largest input the AST matcher will parse (10MB).
const astMaxFileSize = 10 * 1024 * 1024

// astLanguages maps language names to tree-sitter grammars.
//
// The map is built once at init and read-only afterwards; grammar
// instances are safe to share across parsers.
var astLanguages = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"python":     python.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"typescript": typescript.GetLanguage(),
}

// AST is the tree-sitter backed ASTMatcher implementation.
//
// Description:
//
//	AST parses the source with the language's grammar and evaluates the
//	pattern payload as a tree-sitter query, returning one span per
//	match (the first capture's range). Querying the AST rather than raw
//	text keeps patterns inside comments and string literals from firing.
//
// Thread Safety:
//
//	Safe for concurrent use. A fresh parser and query cursor are created
//	per call; shared grammar pointers are immutable.
type AST struct{}

// NewAST creates a new tree-sitter matcher.
func NewAST() *AST {
	return &AST{}
}

// SupportsLanguage reports whether a grammar is registered for language.
func (m *AST) SupportsLanguage(language string) bool {
	_, ok := astLanguages[language]
	return ok
}

// QueryAST implements ASTMatcher.
func (m *AST) QueryAST(source []byte, language, query string) ([]Span, error) {
	lang, ok := astLanguages[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParserUnavailable, language)
	}
	if len(source) > astMaxFileSize {
		return nil, fmt.Errorf("source exceeds %d bytes", astMaxFileSize)
	}
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("source is not valid UTF-8")
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(query), lang)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var spans []Span
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)
		if len(match.Captures) == 0 {
			continue
		}
		node := match.Captures[0].Node
		spans = append(spans, Span{
			StartByte: int(node.StartByte()),
			EndByte:   int(node.EndByte()),
			Line:      int(node.StartPoint().Row) + 1,
			Column:    int(node.StartPoint().Column) + 1,
		})
	}
	return spans, nil
}
