// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestValidateCategoryID(t *testing.T) {
	valid := []string{"sql-injection", "xss", "a", "custom-check-2"}
	for _, id := range valid {
		if err := ValidateCategoryID(id); err != nil {
			t.Errorf("ValidateCategoryID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "SQL-Injection", "-leading", "has space", "a;b", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if err := ValidateCategoryID(id); err == nil {
			t.Errorf("ValidateCategoryID(%q) = nil, want error", id)
		}
	}
}

func TestValidateSeverity(t *testing.T) {
	for _, s := range []string{"", "critical", "high", "medium", "low"} {
		if err := ValidateSeverity(s); err != nil {
			t.Errorf("ValidateSeverity(%q) = %v, want nil", s, err)
		}
	}
	// Unknown values must fail here, not silently filter nothing.
	for _, s := range []string{"bogus", "CRITICAL", "hi"} {
		if err := ValidateSeverity(s); err == nil {
			t.Errorf("ValidateSeverity(%q) = nil, want error", s)
		}
	}
}

func TestValidateConfidence(t *testing.T) {
	for _, s := range []string{"", "high", "medium", "low"} {
		if err := ValidateConfidence(s); err != nil {
			t.Errorf("ValidateConfidence(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range []string{"bogus", "critical", "High"} {
		if err := ValidateConfidence(s); err == nil {
			t.Errorf("ValidateConfidence(%q) = nil, want error", s)
		}
	}
}

func TestValidateExcludeDir(t *testing.T) {
	valid := []string{"node_modules", ".cache", "generated"}
	for _, name := range valid {
		if err := ValidateExcludeDir(name); err != nil {
			t.Errorf("ValidateExcludeDir(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "a/b", `a\b`, ".", ".."}
	for _, name := range invalid {
		if err := ValidateExcludeDir(name); err == nil {
			t.Errorf("ValidateExcludeDir(%q) = nil, want error", name)
		}
	}
}
