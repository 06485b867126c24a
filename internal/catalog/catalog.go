// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned by Get for an unknown category id.
var ErrNotFound = errors.New("category not found")

// ErrEmptyCatalog is returned when a catalog would contain no categories.
var ErrEmptyCatalog = errors.New("catalog contains no categories")

// Catalog is the read-only category collection consumed by the engine.
//
// Implementations must be safe for concurrent reads; the engine never
// mutates a catalog during a scan.
type Catalog interface {
	// List returns all categories in a stable order (sorted by id).
	List() []*Category

	// Get returns the category with the given id, or ErrNotFound.
	Get(id string) (*Category, error)
}

// InMemory is the standard Catalog implementation.
//
// Thread Safety:
//
//	Immutable after construction; safe for concurrent use.
type InMemory struct {
	byID  map[string]*Category
	order []string
}

// NewInMemory builds a catalog from the given categories.
//
// Inputs:
//
//	categories - The categories to index. Must be non-empty; duplicate
//	             ids are rejected.
//
// Outputs:
//
//	*InMemory - The catalog.
//	error - ErrEmptyCatalog for an empty input, or a duplicate-id error.
func NewInMemory(categories []*Category) (*InMemory, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &InMemory{byID: make(map[string]*Category, len(categories))}
	for _, cat := range categories {
		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		c.byID[cat.ID] = cat
		c.order = append(c.order, cat.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// List returns all categories sorted by id.
func (c *InMemory) List() []*Category {
	out := make([]*Category, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Get returns the category with the given id.
func (c *InMemory) Get(id string) (*Category, error) {
	cat, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cat, nil
}

// Builtin returns the catalog of compiled-in categories.
func Builtin() *InMemory {
	c, err := NewInMemory(builtinCategories)
	if err != nil {
		// builtinCategories is a compile-time table; a failure here is
		// a programming error.
		panic(err)
	}
	return c
}
