// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Effect is what a weighting rule does to a (category, project type) pair.
type Effect string

const (
	// EffectSkip drops the category entirely for the project type.
	EffectSkip Effect = "skip"
	// EffectBoost raises the category one priority tier (P2->P1->P0).
	EffectBoost Effect = "boost"
	// EffectNeutral leaves the category untouched. Useful in extension
	// files to override a built-in skip or boost.
	EffectNeutral Effect = "neutral"
)

// WeightRule adjusts one category for one project type.
type WeightRule struct {
	CategoryID  string `yaml:"category"    validate:"required"`
	ProjectType Type   `yaml:"projectType" validate:"required"`
	Effect      Effect `yaml:"effect"      validate:"required,oneof=skip boost neutral"`
}

// WeightTable is an immutable lookup of weighting rules.
//
// Thread Safety: read-only after construction; safe for concurrent use.
type WeightTable struct {
	rules map[weightKey]Effect
}

type weightKey struct {
	category    string
	projectType Type
}

// NewWeightTable builds a table from rules. Later rules override
// earlier ones for the same (category, projectType) pair, which is
// how extension files replace built-in entries.
func NewWeightTable(rules []WeightRule) *WeightTable {
	t := &WeightTable{rules: make(map[weightKey]Effect, len(rules))}
	for _, r := range rules {
		t.rules[weightKey{r.CategoryID, r.ProjectType}] = r.Effect
	}
	return t
}

// EffectFor returns the rule in force for the pair, or EffectNeutral
// when no rule exists.
func (t *WeightTable) EffectFor(categoryID string, projectType Type) Effect {
	if t == nil {
		return EffectNeutral
	}
	if e, ok := t.rules[weightKey{categoryID, projectType}]; ok {
		return e
	}
	return EffectNeutral
}

// defaultWeightRules encodes how category relevance shifts by project
// shape: browser-only concerns do not apply to CLIs, injection
// categories matter more on anything network-facing.
var defaultWeightRules = []WeightRule{
	// Pure CLIs have no browser session or rendered HTML.
	{CategoryID: "xss", ProjectType: TypeCLI, Effect: EffectSkip},
	{CategoryID: "csrf-protection-disabled", ProjectType: TypeCLI, Effect: EffectSkip},
	{CategoryID: "ssrf", ProjectType: TypeCLI, Effect: EffectNeutral},

	// Frontend-only bundles never hold server-side sinks.
	{CategoryID: "sql-injection", ProjectType: TypeFrontendSPA, Effect: EffectSkip},
	{CategoryID: "command-injection", ProjectType: TypeFrontendSPA, Effect: EffectSkip},
	{CategoryID: "path-traversal", ProjectType: TypeFrontendSPA, Effect: EffectSkip},

	// Network-facing shapes: raise the request-driven injection tiers.
	{CategoryID: "missing-input-validation", ProjectType: TypeWebServer, Effect: EffectBoost},
	{CategoryID: "missing-input-validation", ProjectType: TypeAPI, Effect: EffectBoost},
	{CategoryID: "ssrf", ProjectType: TypeWebServer, Effect: EffectBoost},
	{CategoryID: "ssrf", ProjectType: TypeAPI, Effect: EffectBoost},
	{CategoryID: "csrf-protection-disabled", ProjectType: TypeWebServer, Effect: EffectBoost},

	// Serverless: cold paths, per-invocation billing.
	{CategoryID: "unbounded-resource", ProjectType: TypeServerless, Effect: EffectBoost},
	{CategoryID: "csrf-protection-disabled", ProjectType: TypeServerless, Effect: EffectSkip},

	// Desktop and mobile run no server event loop.
	{CategoryID: "blocking-io-event-loop", ProjectType: TypeCLI, Effect: EffectSkip},
	{CategoryID: "csrf-protection-disabled", ProjectType: TypeDesktop, Effect: EffectSkip},
	{CategoryID: "csrf-protection-disabled", ProjectType: TypeMobile, Effect: EffectSkip},

	// Libraries inherit their embedder's surface; nothing skipped, but
	// hardcoded credentials in a published library leak to every user.
	{CategoryID: "hardcoded-credentials", ProjectType: TypeLibrary, Effect: EffectBoost},
}

// DefaultWeights returns the built-in weighting table.
func DefaultWeights() *WeightTable {
	return NewWeightTable(defaultWeightRules)
}

// weightFile is the YAML shape of an extension weight file.
type weightFile struct {
	Rules []WeightRule `yaml:"rules"`
}

// LoadWeights merges extension rules from path over the defaults.
// A missing file is not an error; a malformed one is.
func LoadWeights(path string) (*WeightTable, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultWeights(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read weight file %s: %w", path, err)
	}
	var wf weightFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse weight file %s: %w", path, err)
	}
	for i, r := range wf.Rules {
		switch r.Effect {
		case EffectSkip, EffectBoost, EffectNeutral:
		default:
			return nil, fmt.Errorf("weight file %s: rule %d has unknown effect %q", path, i, r.Effect)
		}
		if r.CategoryID == "" || r.ProjectType == "" {
			return nil, fmt.Errorf("weight file %s: rule %d is missing category or projectType", path, i)
		}
	}
	merged := make([]WeightRule, 0, len(defaultWeightRules)+len(wf.Rules))
	merged = append(merged, defaultWeightRules...)
	merged = append(merged, wf.Rules...)
	return NewWeightTable(merged), nil
}
