// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// categoryFile is the on-disk shape of a catalog extension file.
type categoryFile struct {
	Categories []*Category `yaml:"categories" validate:"required,min=1,dive"`
}

// Load builds a catalog from the builtin categories plus any YAML
// extension files found in dir.
//
// Description:
//
//	Each *.yaml / *.yml file in dir may contribute categories. A file
//	that fails to parse or validate is skipped with a warning; it never
//	aborts loading. Extension categories with an id that collides with
//	a builtin replace the builtin, so users can tune shipped patterns.
//
// Inputs:
//
//	dir - Extension directory. Empty string loads builtins only;
//	      a missing directory is not an error.
//	logger - Destination for per-file warnings. May be nil.
//
// Outputs:
//
//	*InMemory - The merged catalog.
//	[]string - Warnings for files that were skipped.
//	error - Non-nil only when the merged catalog would be empty.
func Load(dir string, logger *slog.Logger) (*InMemory, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	merged := make(map[string]*Category, len(builtinCategories))
	for _, c := range builtinCategories {
		merged[c.ID] = c
	}

	var warnings []string
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("read catalog dir: %w", err)
		}
		validate := validator.New()
		for _, entry := range entries {
			name := entry.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			path := filepath.Join(dir, name)
			cats, err := loadFile(path, validate)
			if err != nil {
				msg := fmt.Sprintf("catalog file %s skipped: %v", name, err)
				warnings = append(warnings, msg)
				logger.Warn("skipping catalog file",
					slog.String("file", path),
					slog.String("error", err.Error()),
				)
				continue
			}
			for _, c := range cats {
				merged[c.ID] = c
			}
		}
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]*Category, 0, len(ids))
	for _, id := range ids {
		list = append(list, merged[id])
	}

	cat, err := NewInMemory(list)
	if err != nil {
		return nil, warnings, err
	}
	return cat, warnings, nil
}

// loadFile parses and validates one catalog extension file.
func loadFile(path string, validate *validator.Validate) ([]*Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return file.Categories, nil
}
