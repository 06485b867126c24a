// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDetectCLIFromBin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"bin": {"mytool": "./cli.js"}}`)

	info := Detect(dir)
	assert.Equal(t, TypeCLI, info.Type)
	assert.Equal(t, DetectionHigh, info.Confidence)
	assert.Contains(t, info.Languages, "javascript")
	assert.NotEmpty(t, info.Evidence)
}

func TestDetectWebServerFromExpress(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {"express": "^4.19.0"}}`)

	info := Detect(dir)
	assert.Equal(t, TypeWebServer, info.Type)
	assert.Contains(t, info.Frameworks, "express")
}

func TestDetectSSRFrameworkBeatsSPA(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {"react": "18.0.0", "next": "14.0.0"}}`)

	info := Detect(dir)
	assert.Equal(t, TypeSSRFramework, info.Type)
}

func TestDetectMonorepo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"workspaces": ["packages/*"]}`)

	info := Detect(dir)
	assert.Equal(t, TypeMonorepo, info.Type)
}

func TestDetectServerlessOutranksEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "serverless.yml", "service: api\n")
	writeFile(t, dir, "package.json", `{"dependencies": {"express": "^4.19.0"}}`)

	info := Detect(dir)
	assert.Equal(t, TypeServerless, info.Type)
}

func TestDetectGoCLI(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/tool\n\ngo 1.25\n")
	writeFile(t, dir, "main.go", "package main\n")

	info := Detect(dir)
	assert.Equal(t, TypeCLI, info.Type)
	assert.Contains(t, info.Languages, "go")
}

func TestDetectPythonWebServer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[project]\ndependencies = [\"flask>=3.0\"]\n")

	info := Detect(dir)
	assert.Equal(t, TypeWebServer, info.Type)
	assert.Contains(t, info.Frameworks, "flask")
}

func TestDetectScriptTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tool.py", "print('hi')\n")

	info := Detect(dir)
	assert.Equal(t, TypeScript, info.Type)
	assert.Equal(t, DetectionLow, info.Confidence)
}

func TestDetectUnknown(t *testing.T) {
	info := Detect(t.TempDir())
	assert.Equal(t, TypeUnknown, info.Type)
	assert.Equal(t, DetectionLow, info.Confidence)
}

func TestWeightTableLookup(t *testing.T) {
	table := DefaultWeights()

	assert.Equal(t, EffectSkip, table.EffectFor("xss", TypeCLI))
	assert.Equal(t, EffectBoost, table.EffectFor("ssrf", TypeWebServer))
	assert.Equal(t, EffectNeutral, table.EffectFor("sql-injection", TypeWebServer))
	assert.Equal(t, EffectNeutral, table.EffectFor("nonexistent", TypeCLI))
}

func TestWeightTableNilIsNeutral(t *testing.T) {
	var table *WeightTable
	assert.Equal(t, EffectNeutral, table.EffectFor("xss", TypeCLI))
}

func TestLoadWeightsMissingFileIsDefaults(t *testing.T) {
	table, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, EffectSkip, table.EffectFor("xss", TypeCLI))
}

func TestLoadWeightsOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - category: xss
    projectType: cli
    effect: neutral
  - category: weak-crypto
    projectType: library
    effect: boost
`), 0o644))

	table, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, EffectNeutral, table.EffectFor("xss", TypeCLI))
	assert.Equal(t, EffectBoost, table.EffectFor("weak-crypto", TypeLibrary))
}

func TestLoadWeightsRejectsUnknownEffect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - category: xss
    projectType: cli
    effect: amplify
`), 0o644))

	_, err := LoadWeights(path)
	assert.Error(t, err)
}
