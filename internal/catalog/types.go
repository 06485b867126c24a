// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog defines the risk category model and the catalog that
// owns it.
//
// A Category is a named class of risk (e.g. SQL Injection) carrying one
// or more DetectionPatterns plus a severity/priority/domain
// classification. Categories are loaded once before a scan and are
// immutable for its duration; the engine only ever reads them.
package catalog

import (
	"regexp"
	"sync"
)

// Domain classifies the risk area a category belongs to.
type Domain string

const (
	DomainSecurity    Domain = "security"
	DomainData        Domain = "data"
	DomainConcurrency Domain = "concurrency"
	DomainInput       Domain = "input"
	DomainResource    Domain = "resource"
	DomainReliability Domain = "reliability"
	DomainPerformance Domain = "performance"
	DomainPlatform    Domain = "platform"
	DomainBusiness    Domain = "business"
	DomainCompliance  Domain = "compliance"
)

// Level is the test level at which a category's risk is best exercised.
type Level string

const (
	LevelUnit        Level = "unit"
	LevelIntegration Level = "integration"
	LevelSystem      Level = "system"
	LevelChaos       Level = "chaos"
)

// Priority ranks how urgently a category's gaps should be addressed.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// Severity is the impact classification of a category.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Confidence is a pattern's baseline precision classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchKind selects which matcher a DetectionPattern is dispatched to.
type MatchKind string

const (
	// MatchRegex patterns are evaluated by the regex matcher.
	MatchRegex MatchKind = "regex"

	// MatchASTQuery patterns are tree-sitter queries evaluated against
	// the parsed source.
	MatchASTQuery MatchKind = "ast-query"

	// MatchSemanticHook patterns are reserved for external semantic
	// analyzers. The engine treats them as inert.
	MatchSemanticHook MatchKind = "semantic-hook"
)

// DetectionPattern is one matching rule within a Category.
//
// Description:
//
//	A DetectionPattern is pure input to a matcher: it carries the
//	payload (a regex or a tree-sitter query), the language it applies
//	to, and a baseline confidence. Regex patterns may carry a negative
//	pattern that suppresses matches whose surrounding context also
//	matches it, which cuts the obvious false positives (parameterized
//	query markers next to a string-built query, for example).
//
// Thread Safety:
//
//	Safe for concurrent use. Regex compilation is lazy and guarded by
//	sync.Once.
type DetectionPattern struct {
	// ID is the stable pattern identifier (e.g. "sql-injection/py-fstring").
	ID string `yaml:"id" validate:"required"`

	// Kind selects the matcher for this pattern.
	Kind MatchKind `yaml:"kind" validate:"required,oneof=regex ast-query semantic-hook"`

	// Language the pattern applies to ("python", "go", "javascript", ...).
	Language string `yaml:"language" validate:"required"`

	// Payload is the regex source or the tree-sitter query, depending
	// on Kind.
	Payload string `yaml:"payload" validate:"required"`

	// NegativePayload, when non-empty on a regex pattern, suppresses
	// matches whose surrounding context matches it.
	NegativePayload string `yaml:"negative_payload,omitempty"`

	// Confidence is the baseline confidence attached to gaps this
	// pattern produces.
	Confidence Confidence `yaml:"confidence" validate:"required,oneof=high medium low"`

	compiled    *regexp.Regexp
	compileErr  error
	compileOnce sync.Once
	negCompiled *regexp.Regexp
	negErr      error
	negOnce     sync.Once
}

// Regex returns the compiled regex payload.
//
// Compilation is lazy and cached; a malformed payload is reported as an
// error on first use rather than panicking, so a single bad pattern can
// degrade to a warning instead of aborting a scan.
func (p *DetectionPattern) Regex() (*regexp.Regexp, error) {
	p.compileOnce.Do(func() {
		p.compiled, p.compileErr = regexp.Compile(p.Payload)
	})
	return p.compiled, p.compileErr
}

// NegativeRegex returns the compiled negative payload, or (nil, nil)
// when the pattern has none.
func (p *DetectionPattern) NegativeRegex() (*regexp.Regexp, error) {
	if p.NegativePayload == "" {
		return nil, nil
	}
	p.negOnce.Do(func() {
		p.negCompiled, p.negErr = regexp.Compile(p.NegativePayload)
	})
	return p.negCompiled, p.negErr
}

// Category is a named risk class with its detection rules.
//
// Thread Safety:
//
//	Category is treated as immutable after catalog construction and is
//	safe for concurrent reads.
type Category struct {
	// ID is the stable category key (e.g. "sql-injection").
	ID string `yaml:"id" validate:"required"`

	// Name is the human-readable category name.
	Name string `yaml:"name" validate:"required"`

	// Domain places the category in a risk area.
	Domain Domain `yaml:"domain" validate:"required"`

	// Level is the test level the category maps to.
	Level Level `yaml:"level" validate:"required"`

	// Priority ranks remediation urgency.
	Priority Priority `yaml:"priority" validate:"required,oneof=P0 P1 P2"`

	// Severity classifies impact.
	Severity Severity `yaml:"severity" validate:"required,oneof=critical high medium low"`

	// Languages the category applies to.
	Languages []string `yaml:"languages" validate:"required,min=1"`

	// Description explains the risk.
	Description string `yaml:"description,omitempty"`

	// Remediation gives fix guidance.
	Remediation string `yaml:"remediation,omitempty"`

	// Patterns are the category's detection rules, in evaluation order.
	Patterns []*DetectionPattern `yaml:"patterns" validate:"required,min=1,dive"`
}

// AppliesTo reports whether the category covers the given language.
func (c *Category) AppliesTo(language string) bool {
	for _, l := range c.Languages {
		if l == language {
			return true
		}
	}
	return false
}
