// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// sourceFile is one match candidate produced by the walker.
type sourceFile struct {
	// Path relative to the scan root, slash-separated.
	Path string
	// AbsPath for reading content.
	AbsPath string
	// Language detected from the extension, empty when unrecognized.
	Language string
	// IsTest reports whether the path matches common test layouts.
	IsTest bool
}

// defaultExcludes are directory names never descended into.
var defaultExcludes = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".next":        true,
	".nuxt":        true,
	".idea":        true,
	".vscode":      true,
}

// extLanguages maps file extensions to the language names the catalog
// uses in applicable-language sets.
var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rb":   "ruby",
	".php":  "php",
	".java": "java",
	".rs":   "rust",
}

// walkTree enumerates scannable files under root in lexicographic
// order. Deterministic ordering is an output contract: gap tie-breaks
// follow discovery order, so the walk itself must be stable.
func walkTree(root string, extraExcludes []string) ([]sourceFile, error) {
	excluded := make(map[string]bool, len(defaultExcludes)+len(extraExcludes))
	for name := range defaultExcludes {
		excluded[name] = true
	}
	for _, name := range extraExcludes {
		excluded[strings.TrimSpace(name)] = true
	}

	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees degrade to "not scanned".
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		lang, ok := extLanguages[strings.ToLower(filepath.Ext(d.Name()))]
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		files = append(files, sourceFile{
			Path:     rel,
			AbsPath:  path,
			Language: lang,
			IsTest:   isTestPath(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	// WalkDir visits in lexical order already; sort defensively so the
	// ordering contract never depends on filesystem behavior.
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// isTestPath reports whether a relative path matches common test
// layouts: a test/tests/__tests__/spec directory segment, a _test.go
// suffix, test_*.py / *_test.py, or *.test.js / *.spec.ts naming.
func isTestPath(rel string) bool {
	dir, name := filepath.Split(rel)
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		switch seg {
		case "test", "tests", "__tests__", "spec", "testdata":
			return true
		}
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "_test.go"):
		return true
	case strings.HasPrefix(lower, "test_") && strings.HasSuffix(lower, ".py"):
		return true
	case strings.HasSuffix(lower, "_test.py"):
		return true
	case strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec."):
		return true
	}
	return false
}
