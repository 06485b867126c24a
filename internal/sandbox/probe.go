// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/pinata/internal/engine"
)

// Framework identifies the test runner a probe targets.
type Framework string

const (
	FrameworkPytest   Framework = "pytest"
	FrameworkGoTest   Framework = "gotest"
	FrameworkNodeTest Framework = "nodetest"
)

// probeSpec is a fully synthesized probe, ready to provision.
type probeSpec struct {
	Framework Framework
	FileName  string
	Content   string
	// Extra files the framework needs to run non-interactively
	// (module manifest, minimal config).
	Extra map[string]string

	// Payload and Expected feed the result evidence.
	Payload  string
	Expected string
}

// probeParams is the category-specific half of probe synthesis: the
// exploit payload, the substring proving the mock sink honored it, and
// the snippet markers used for static corroboration.
type probeParams struct {
	// Payload is injected into the mock sink.
	Payload string
	// Indicator must survive in the sink's rendered output for the
	// simulated exploit to count as successful.
	Indicator string
	// SinkMarkers: at least one must appear in the target snippet.
	SinkMarkers []string
	// SafeMarkers: none may appear (their presence means the code
	// already mitigates, so the probe refuses to corroborate).
	SafeMarkers []string
}

// probeGenerators dispatches by category id. Extending the testable
// set means adding a row here and to the whitelist, nothing else.
var probeGenerators = map[string]probeParams{
	"sql-injection": {
		Payload:     `' OR '1'='1' --`,
		Indicator:   `1'='1`,
		SinkMarkers: []string{"execute", "query", "Query", "raw"},
		SafeMarkers: []string{"bind_param", "setParameter"},
	},
	"command-injection": {
		Payload:     `; echo pinata-pwned`,
		Indicator:   `; echo pinata-pwned`,
		SinkMarkers: []string{"system", "popen", "exec", "spawn", "Command", "call"},
		SafeMarkers: []string{"shlex.quote", "shellescape"},
	},
	"path-traversal": {
		Payload:     `../../../etc/passwd`,
		Indicator:   `../`,
		SinkMarkers: []string{"open", "read", "Join", "join", "sendFile"},
		SafeMarkers: []string{"realpath", "filepath.Clean", "secure_filename"},
	},
	"xss": {
		Payload:     `<script>alert('pinata')</script>`,
		Indicator:   `<script>`,
		SinkMarkers: []string{"innerHTML", "write", "html", "render", "safe"},
		SafeMarkers: []string{"escape", "sanitize", "textContent"},
	},
	"template-injection": {
		Payload:     `{{7*191}}`,
		Indicator:   `{{7*191}}`,
		SinkMarkers: []string{"render", "Template", "template", "format"},
		SafeMarkers: []string{"autoescape", "sandboxed"},
	},
	"insecure-deserialization": {
		Payload:     `__reduce__:os.system`,
		Indicator:   `__reduce__`,
		SinkMarkers: []string{"pickle", "loads", "load", "unserialize", "Unmarshal", "yaml"},
		SafeMarkers: []string{"safe_load", "SafeLoader"},
	},
	"xxe": {
		Payload:     `<!DOCTYPE r [<!ENTITY x SYSTEM "file:///etc/passwd">]>`,
		Indicator:   `<!ENTITY`,
		SinkMarkers: []string{"parse", "etree", "DocumentBuilder", "DOMParser", "Unmarshal"},
		SafeMarkers: []string{"resolve_entities=False", "FEATURE_SECURE_PROCESSING"},
	},
	"ssrf": {
		Payload:     `http://169.254.169.254/latest/meta-data/`,
		Indicator:   `169.254.169.254`,
		SinkMarkers: []string{"get", "Get", "fetch", "request", "urlopen", "http"},
		SafeMarkers: []string{"allowlist", "is_private"},
	},
}

// genericParams is the fallback for categories without a dedicated
// generator: the probe only asserts the snippet is non-empty, which
// always confirms structurally and flags low-value coverage.
var genericParams = probeParams{
	Payload:   "structural-check",
	Indicator: "structural-check",
}

// frameworkForLanguage is the per-language default when no project
// marker file selects one.
var frameworkForLanguage = map[string]Framework{
	"python":     FrameworkPytest,
	"go":         FrameworkGoTest,
	"javascript": FrameworkNodeTest,
	"typescript": FrameworkNodeTest,
}

var extLanguage = map[string]string{
	".py":  "python",
	".go":  "go",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// detectFramework picks the test framework for a probe: project marker
// files win, then the per-language default.
func detectFramework(projectDir, language string) (Framework, error) {
	if projectDir != "" {
		for _, marker := range []string{"pytest.ini", "pyproject.toml", "setup.cfg"} {
			if language == "python" && fileExists(filepath.Join(projectDir, marker)) {
				return FrameworkPytest, nil
			}
		}
		if language == "go" && fileExists(filepath.Join(projectDir, "go.mod")) {
			return FrameworkGoTest, nil
		}
		if (language == "javascript" || language == "typescript") &&
			fileExists(filepath.Join(projectDir, "package.json")) {
			return FrameworkNodeTest, nil
		}
	}
	fw, ok := frameworkForLanguage[language]
	if !ok {
		return "", fmt.Errorf("no probe framework for language %q", language)
	}
	return fw, nil
}

// synthesize builds the probe program for one gap.
//
// The probe pairs a simulated exploit (a mock interpolation sink that
// reports whether the payload's indicator survived rendering) with
// static assertions over the literal snippet text. Passing both is the
// "confirmed" signal; it corroborates, it does not prove.
func synthesize(gap engine.Gap, projectDir string) (probeSpec, error) {
	language, ok := extLanguage[strings.ToLower(filepath.Ext(gap.File))]
	if !ok {
		return probeSpec{}, fmt.Errorf("no probe language for file %s", gap.File)
	}
	fw, err := detectFramework(projectDir, language)
	if err != nil {
		return probeSpec{}, err
	}
	params, ok := probeGenerators[gap.CategoryID]
	if !ok {
		params = genericParams
	}

	spec := probeSpec{
		Framework: fw,
		Payload:   params.Payload,
		Expected:  "sink output contains " + params.Indicator,
	}
	switch fw {
	case FrameworkPytest:
		spec.FileName = "probe_test.py"
		spec.Content = renderPython(gap, params)
	case FrameworkGoTest:
		spec.FileName = "probe_test.go"
		spec.Content = renderGo(gap, params)
		spec.Extra = map[string]string{"go.mod": "module probe\n\ngo 1.25\n"}
	case FrameworkNodeTest:
		spec.FileName = "probe.test.js"
		spec.Content = renderNode(gap, params)
	default:
		return probeSpec{}, fmt.Errorf("unsupported framework %q", fw)
	}
	return spec, nil
}

// provision writes the probe into a fresh uniquely-named workspace and
// returns a cleanup closure. Cleanup is unconditional for callers: it
// must run on every exit path.
func provision(probe probeSpec) (string, func(), error) {
	workspace, err := os.MkdirTemp("", "pinata-probe-"+uuid.NewString())
	if err != nil {
		return "", nil, fmt.Errorf("create probe workspace: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workspace) }

	if err := os.WriteFile(filepath.Join(workspace, probe.FileName), []byte(probe.Content), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write probe file: %w", err)
	}
	for name, content := range probe.Extra {
		if err := os.WriteFile(filepath.Join(workspace, name), []byte(content), 0o644); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("write probe extra %s: %w", name, err)
		}
	}
	return workspace, cleanup, nil
}

// ============================================================================
// Per-language renderers
// ============================================================================

// jstr produces a quoted string literal valid in both Python and
// JavaScript source.
func jstr(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jstrList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = jstr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func renderPython(gap engine.Gap, params probeParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Probe for %s at %s:%d. Generated; do not edit.\n\n", gap.CategoryID, gap.File, gap.Line)
	fmt.Fprintf(&b, "SNIPPET = %s\n", jstr(gap.Snippet))
	fmt.Fprintf(&b, "PAYLOAD = %s\n", jstr(params.Payload))
	fmt.Fprintf(&b, "INDICATOR = %s\n", jstr(params.Indicator))
	fmt.Fprintf(&b, "SINK_MARKERS = %s\n", jstrList(params.SinkMarkers))
	fmt.Fprintf(&b, "SAFE_MARKERS = %s\n", jstrList(params.SafeMarkers))
	b.WriteString(`

def mock_sink(user_input):
    # Minimal reproduction of the flagged pattern: raw interpolation
    # with no sanitization step.
    rendered = "SINK(" + user_input + ")"
    return INDICATOR in rendered


def test_simulated_exploit():
    assert mock_sink(PAYLOAD), "sink did not honor the payload"


def test_snippet_corroboration():
    assert SNIPPET, "empty snippet"
    if SINK_MARKERS:
        assert any(m in SNIPPET for m in SINK_MARKERS), "no sink call in snippet"
    assert not any(m in SNIPPET for m in SAFE_MARKERS), "snippet already mitigates"
`)
	return b.String()
}

func renderGo(gap engine.Gap, params probeParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Probe for %s at %s:%d. Generated; do not edit.\npackage probe\n\n", gap.CategoryID, gap.File, gap.Line)
	b.WriteString("import (\n\t\"strings\"\n\t\"testing\"\n)\n\n")
	fmt.Fprintf(&b, "const snippet = %s\n", strconv.Quote(gap.Snippet))
	fmt.Fprintf(&b, "const payload = %s\n", strconv.Quote(params.Payload))
	fmt.Fprintf(&b, "const indicator = %s\n\n", strconv.Quote(params.Indicator))
	fmt.Fprintf(&b, "var sinkMarkers = %s\n", goStringSlice(params.SinkMarkers))
	fmt.Fprintf(&b, "var safeMarkers = %s\n", goStringSlice(params.SafeMarkers))
	b.WriteString(`
func mockSink(input string) bool {
	rendered := "SINK(" + input + ")"
	return strings.Contains(rendered, indicator)
}

func TestSimulatedExploit(t *testing.T) {
	if !mockSink(payload) {
		t.Fatal("sink did not honor the payload")
	}
}

func TestSnippetCorroboration(t *testing.T) {
	if snippet == "" {
		t.Fatal("empty snippet")
	}
	if len(sinkMarkers) > 0 {
		found := false
		for _, m := range sinkMarkers {
			if strings.Contains(snippet, m) {
				found = true
			}
		}
		if !found {
			t.Fatal("no sink call in snippet")
		}
	}
	for _, m := range safeMarkers {
		if strings.Contains(snippet, m) {
			t.Fatal("snippet already mitigates")
		}
	}
}
`)
	return b.String()
}

func renderNode(gap engine.Gap, params probeParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Probe for %s at %s:%d. Generated; do not edit.\n", gap.CategoryID, gap.File, gap.Line)
	b.WriteString("const test = require('node:test');\nconst assert = require('node:assert');\n\n")
	fmt.Fprintf(&b, "const SNIPPET = %s;\n", jstr(gap.Snippet))
	fmt.Fprintf(&b, "const PAYLOAD = %s;\n", jstr(params.Payload))
	fmt.Fprintf(&b, "const INDICATOR = %s;\n", jstr(params.Indicator))
	fmt.Fprintf(&b, "const SINK_MARKERS = %s;\n", jstrList(params.SinkMarkers))
	fmt.Fprintf(&b, "const SAFE_MARKERS = %s;\n", jstrList(params.SafeMarkers))
	b.WriteString(`
function mockSink(userInput) {
  const rendered = 'SINK(' + userInput + ')';
  return rendered.includes(INDICATOR);
}

test('simulated exploit', () => {
  assert.ok(mockSink(PAYLOAD), 'sink did not honor the payload');
});

test('snippet corroboration', () => {
  assert.ok(SNIPPET.length > 0, 'empty snippet');
  if (SINK_MARKERS.length > 0) {
    assert.ok(SINK_MARKERS.some((m) => SNIPPET.includes(m)), 'no sink call in snippet');
  }
  assert.ok(!SAFE_MARKERS.some((m) => SNIPPET.includes(m)), 'snippet already mitigates');
});
`)
	return b.String()
}

func goStringSlice(items []string) string {
	if len(items) == 0 {
		return "[]string{}"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
