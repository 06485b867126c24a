// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied
// identifiers that flow into catalog lookups and filesystem walks.
// Validating at the CLI boundary keeps malformed ids out of error
// paths deeper in the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// categoryIDPattern matches catalog category and pattern id segments:
// lowercase alphanumerics and hyphens, starting alphanumeric.
// Max length 64 covers every shipped id with room for extensions.
var categoryIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// ValidateCategoryID validates a category id supplied on the command
// line before it is used to filter the catalog.
//
// Returns an error naming the offending id so multi-id flags produce
// actionable messages.
func ValidateCategoryID(id string) error {
	if id == "" {
		return fmt.Errorf("category id is empty")
	}
	if !categoryIDPattern.MatchString(id) {
		return fmt.Errorf("invalid category id %q: want lowercase letters, digits, and hyphens", id)
	}
	return nil
}

// ValidateSeverity validates a minimum-severity filter value. Empty
// means no floor. Unknown values are rejected here because the engine
// ranks severities through a lookup table, where an unknown value
// would silently rank below every gap and filter nothing.
func ValidateSeverity(s string) error {
	switch s {
	case "", "critical", "high", "medium", "low":
		return nil
	}
	return fmt.Errorf("invalid severity %q: want critical, high, medium, or low", s)
}

// ValidateConfidence validates a minimum-confidence filter value.
// Empty means no floor.
func ValidateConfidence(s string) error {
	switch s {
	case "", "high", "medium", "low":
		return nil
	}
	return fmt.Errorf("invalid confidence %q: want high, medium, or low", s)
}

// ValidateExcludeDir validates a directory name supplied for the scan
// denylist. Path separators and traversal segments are rejected: the
// denylist matches single path segments, never paths.
func ValidateExcludeDir(name string) error {
	if name == "" {
		return fmt.Errorf("exclude directory name is empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid exclude %q: directory names cannot contain path separators", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid exclude %q", name)
	}
	return nil
}
