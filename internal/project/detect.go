// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package project classifies a scanned repository (CLI, web server,
// library, ...) from its manifest files and supplies the category
// weighting table the engine applies per project type.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Type is the inferred runtime shape of a repository.
type Type string

const (
	TypeCLI          Type = "cli"
	TypeWebServer    Type = "web-server"
	TypeSSRFramework Type = "ssr-framework"
	TypeMonorepo     Type = "monorepo"
	TypeDesktop      Type = "desktop"
	TypeMobile       Type = "mobile"
	TypeServerless   Type = "serverless"
	TypeFrontendSPA  Type = "frontend-spa"
	TypeAPI          Type = "api"
	TypeLibrary      Type = "library"
	TypeScript       Type = "script"
	TypeUnknown      Type = "unknown"
)

// DetectionConfidence grades how sure the detector is about the type.
type DetectionConfidence string

const (
	DetectionHigh   DetectionConfidence = "high"
	DetectionMedium DetectionConfidence = "medium"
	DetectionLow    DetectionConfidence = "low"
)

// Info is the resolved project classification.
//
// Computed once per scan from marker files and manifest contents;
// read-only input to scoring.
type Info struct {
	Type       Type                `json:"type"`
	Confidence DetectionConfidence `json:"confidence"`

	// Evidence lists human-readable reasons for the classification,
	// retained for user-facing explanation.
	Evidence []string `json:"evidence,omitempty"`

	// Frameworks found in manifests (e.g. "express", "flask").
	Frameworks []string `json:"frameworks,omitempty"`

	// Languages inferred from manifest presence.
	Languages []string `json:"languages,omitempty"`
}

// packageJSON holds the fields the detector inspects.
type packageJSON struct {
	Bin             any               `json:"bin"`
	Workspaces      any               `json:"workspaces"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// nodeFrameworks maps package.json dependency names to classifications.
var nodeFrameworks = []struct {
	dep   string
	typ   Type
	label string
}{
	{"next", TypeSSRFramework, "next"},
	{"nuxt", TypeSSRFramework, "nuxt"},
	{"electron", TypeDesktop, "electron"},
	{"react-native", TypeMobile, "react-native"},
	{"express", TypeWebServer, "express"},
	{"fastify", TypeWebServer, "fastify"},
	{"koa", TypeWebServer, "koa"},
	{"@nestjs/core", TypeWebServer, "nestjs"},
	{"react", TypeFrontendSPA, "react"},
	{"vue", TypeFrontendSPA, "vue"},
	{"svelte", TypeFrontendSPA, "svelte"},
}

// pythonFrameworks maps python dependency names to classifications.
var pythonFrameworks = []struct {
	dep   string
	typ   Type
	label string
}{
	{"django", TypeWebServer, "django"},
	{"flask", TypeWebServer, "flask"},
	{"fastapi", TypeAPI, "fastapi"},
	{"starlette", TypeAPI, "starlette"},
}

// Detect classifies the repository rooted at dir.
//
// Description:
//
//	Inspects well-known manifest and config files in priority order:
//	serverless descriptors, workspace/monorepo fields, framework
//	dependencies, and executable entry points. Absence of any marker
//	file is not an error; the result degrades to unknown with low
//	confidence.
//
// Inputs:
//
//	dir - Repository root. Must exist; callers validate beforehand.
//
// Outputs:
//
//	Info - The classification with evidence strings. Never an error:
//	       detection is best-effort by design.
func Detect(dir string) Info {
	info := Info{Type: TypeUnknown, Confidence: DetectionLow}

	// Serverless descriptors outrank everything else.
	for _, marker := range []string{"serverless.yml", "serverless.yaml", "template.yaml", "sam.yaml"} {
		if fileExists(filepath.Join(dir, marker)) {
			info.Type = TypeServerless
			info.Confidence = DetectionHigh
			info.Evidence = append(info.Evidence, "found serverless descriptor "+marker)
			break
		}
	}

	if pkg, ok := readPackageJSON(filepath.Join(dir, "package.json")); ok {
		info.Languages = appendUnique(info.Languages, "javascript")
		deps := mergeDeps(pkg)
		classifyNode(&info, pkg, deps, dir)
	}

	if fileExists(filepath.Join(dir, "go.mod")) {
		info.Languages = appendUnique(info.Languages, "go")
		classifyGo(&info, dir)
	}

	if py := pythonManifest(dir); py != "" {
		info.Languages = appendUnique(info.Languages, "python")
		classifyPython(&info, dir, py)
	}

	// A lone script tree: source files with no manifest at all.
	if info.Type == TypeUnknown && len(info.Languages) == 0 {
		if hasLooseScriptFiles(dir) {
			info.Type = TypeScript
			info.Confidence = DetectionLow
			info.Evidence = append(info.Evidence, "no manifest; loose source files only")
		}
	}

	if len(info.Evidence) == 0 {
		info.Evidence = append(info.Evidence, "no recognized project markers")
	}
	return info
}

func classifyNode(info *Info, pkg packageJSON, deps map[string]string, dir string) {
	if info.Type == TypeUnknown && pkg.Workspaces != nil {
		info.Type = TypeMonorepo
		info.Confidence = DetectionHigh
		info.Evidence = append(info.Evidence, "package.json declares workspaces")
	}

	for _, fw := range nodeFrameworks {
		if _, ok := deps[fw.dep]; !ok {
			continue
		}
		info.Frameworks = appendUnique(info.Frameworks, fw.label)
		if info.Type == TypeUnknown || (info.Type == TypeFrontendSPA && fw.typ != TypeFrontendSPA) {
			info.Type = fw.typ
			info.Confidence = DetectionHigh
			info.Evidence = append(info.Evidence, "package.json depends on "+fw.dep)
		}
	}

	// Meta-framework config files count even without the dependency.
	for _, cfg := range []string{"next.config.js", "next.config.mjs", "nuxt.config.ts"} {
		if fileExists(filepath.Join(dir, cfg)) && info.Type != TypeSSRFramework {
			info.Type = TypeSSRFramework
			info.Confidence = DetectionHigh
			info.Evidence = append(info.Evidence, "found framework config "+cfg)
		}
	}

	if info.Type == TypeUnknown && pkg.Bin != nil {
		info.Type = TypeCLI
		info.Confidence = DetectionHigh
		info.Evidence = append(info.Evidence, "package.json declares a bin entry point")
	}
	if info.Type == TypeUnknown {
		info.Type = TypeLibrary
		info.Confidence = DetectionMedium
		info.Evidence = append(info.Evidence, "package.json without server or bin markers")
	}
}

func classifyGo(info *Info, dir string) {
	if info.Type != TypeUnknown {
		return
	}
	if dirExists(filepath.Join(dir, "cmd")) || fileExists(filepath.Join(dir, "main.go")) {
		info.Type = TypeCLI
		info.Confidence = DetectionMedium
		info.Evidence = append(info.Evidence, "go module with a main entry point")
		return
	}
	info.Type = TypeLibrary
	info.Confidence = DetectionMedium
	info.Evidence = append(info.Evidence, "go module without a main entry point")
}

func classifyPython(info *Info, dir, manifest string) {
	content := ""
	if data, err := os.ReadFile(filepath.Join(dir, manifest)); err == nil {
		content = strings.ToLower(string(data))
	}
	for _, fw := range pythonFrameworks {
		if strings.Contains(content, fw.dep) {
			info.Frameworks = appendUnique(info.Frameworks, fw.label)
			if info.Type == TypeUnknown {
				info.Type = fw.typ
				info.Confidence = DetectionHigh
				info.Evidence = append(info.Evidence, manifest+" depends on "+fw.dep)
			}
		}
	}
	if info.Type == TypeUnknown && strings.Contains(content, "console_scripts") {
		info.Type = TypeCLI
		info.Confidence = DetectionHigh
		info.Evidence = append(info.Evidence, manifest+" declares console_scripts")
	}
	if info.Type == TypeUnknown {
		info.Type = TypeLibrary
		info.Confidence = DetectionLow
		info.Evidence = append(info.Evidence, "python manifest without framework markers")
	}
}

func readPackageJSON(path string) (packageJSON, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return packageJSON{}, false
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return packageJSON{}, false
	}
	return pkg, true
}

func pythonManifest(dir string) string {
	for _, name := range []string{"pyproject.toml", "setup.py", "requirements.txt", "Pipfile"} {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

func mergeDeps(pkg packageJSON) map[string]string {
	out := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.Dependencies {
		out[k] = v
	}
	for k, v := range pkg.DevDependencies {
		out[k] = v
	}
	return out
}

func hasLooseScriptFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".py", ".sh", ".js", ".rb":
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
