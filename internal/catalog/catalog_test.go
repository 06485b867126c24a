// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"errors"
	"testing"
)

func TestBuiltinCompiles(t *testing.T) {
	cat := Builtin()
	cats := cat.List()
	if len(cats) == 0 {
		t.Fatal("builtin catalog is empty")
	}
	for _, c := range cats {
		for _, p := range c.Patterns {
			if p.Kind != MatchRegex {
				continue
			}
			if _, err := p.Regex(); err != nil {
				t.Errorf("pattern %s does not compile: %v", p.ID, err)
			}
			if _, err := p.NegativeRegex(); err != nil {
				t.Errorf("negative pattern %s does not compile: %v", p.ID, err)
			}
		}
	}
}

func TestBuiltinListIsOrderedAndStable(t *testing.T) {
	a := Builtin().List()
	b := Builtin().List()
	if len(a) != len(b) {
		t.Fatalf("list lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("ordering unstable at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestGet(t *testing.T) {
	cat := Builtin()

	c, err := cat.Get("sql-injection")
	if err != nil {
		t.Fatalf("Get(sql-injection): %v", err)
	}
	if c.Severity != SeverityCritical || c.Priority != PriorityP0 {
		t.Errorf("sql-injection classification = %s/%s, want critical/P0", c.Severity, c.Priority)
	}

	if _, err := cat.Get("no-such-category"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(no-such-category) = %v, want ErrNotFound", err)
	}
}

func TestNewInMemoryRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := NewInMemory(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("NewInMemory(nil) = %v, want ErrEmptyCatalog", err)
	}

	dup := Builtin().List()[0]
	if _, err := NewInMemory([]*Category{dup, dup}); err == nil {
		t.Error("NewInMemory with duplicate ids should fail")
	}
}

func TestAppliesTo(t *testing.T) {
	c := &Category{Languages: []string{"python", "go"}}
	if !c.AppliesTo("python") {
		t.Error("expected python to apply")
	}
	if c.AppliesTo("ruby") {
		t.Error("did not expect ruby to apply")
	}
}
