// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

// CatalogVersion tracks the builtin category database version.
const CatalogVersion = "2026.08"

// builtinCategories contains the compiled-in risk categories.
//
// Regex payloads are matched per file; negative payloads suppress
// matches whose surrounding context also matches (parameterized query
// markers, sanitizer calls, explicit safe-mode flags). AST payloads are
// tree-sitter queries evaluated on the parsed source, which keeps
// patterns inside comments and string literals from firing.
var builtinCategories = []*Category{
	// =========================================================================
	// Injection
	// =========================================================================
	{
		ID:          "sql-injection",
		Name:        "SQL Injection",
		Domain:      DomainSecurity,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityCritical,
		Languages:   []string{"python", "go", "javascript", "typescript", "java"},
		Description: "SQL query built with string concatenation or interpolation",
		Remediation: "Use parameterized queries or prepared statements",
		Patterns: []*DetectionPattern{
			{
				ID:              "sql-injection/interpolated-query",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:execute|executemany|raw)\s*\(\s*(?:f["']|["'].*["']\s*(?:\+|%)\s*|.*\.format\()`,
				NegativePayload: `(?:\?\s*,|%s["']\s*,\s*\(|:\w+|\$\d+)`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:              "sql-injection/string-built-query",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         "(?:Query|QueryRow|Exec)\\s*\\(\\s*(?:fmt\\.Sprintf|[\"'`].*(?:SELECT|INSERT|UPDATE|DELETE).*[\"'`]\\s*\\+)",
				NegativePayload: `\$\d+|\?\s*,`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:         "sql-injection/py-fstring-call",
				Kind:       MatchASTQuery,
				Language:   "python",
				Payload:    `(call function: (attribute attribute: (identifier)) arguments: (argument_list (string (interpolation)))) @call`,
				Confidence: ConfidenceMedium,
			},
			{
				ID:              "sql-injection/js-template-query",
				Kind:            MatchRegex,
				Language:        "javascript",
				Payload:         "(?:query|execute)\\s*\\(\\s*`[^`]*\\$\\{",
				NegativePayload: `\?\s*,|\$\d+`,
				Confidence:      ConfidenceHigh,
			},
		},
	},
	{
		ID:          "command-injection",
		Name:        "Command Injection",
		Domain:      DomainSecurity,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityCritical,
		Languages:   []string{"python", "go", "javascript", "typescript"},
		Description: "OS command built from untrusted input",
		Remediation: "Pass arguments as a list with shell disabled; validate inputs",
		Patterns: []*DetectionPattern{
			{
				ID:              "command-injection/shell-true",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:subprocess\.(?:run|call|Popen|check_output)\s*\(.*shell\s*=\s*True|os\.system\s*\(|os\.popen\s*\()`,
				NegativePayload: `shlex\.quote`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:         "command-injection/exec-sprintf",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `exec\.Command(?:Context)?\s*\(\s*["'](?:sh|bash)["'].*(?:fmt\.Sprintf|\+)`,
				Confidence: ConfidenceHigh,
			},
			{
				ID:         "command-injection/child-process",
				Kind:       MatchRegex,
				Language:   "javascript",
				Payload:    "(?:child_process|execSync|exec)\\s*\\([^,)]*(?:\\$\\{|\\+)",
				Confidence: ConfidenceMedium,
			},
		},
	},
	{
		ID:          "xss",
		Name:        "Cross-Site Scripting",
		Domain:      DomainSecurity,
		Level:       LevelIntegration,
		Priority:    PriorityP0,
		Severity:    SeverityHigh,
		Languages:   []string{"python", "javascript", "typescript", "go"},
		Description: "User input rendered into HTML without escaping",
		Remediation: "Use template auto-escaping; encode output per context",
		Patterns: []*DetectionPattern{
			{
				ID:              "xss/unsafe-render",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:render_template_string\s*\(|Markup\s*\(|\|\s*safe\b)`,
				NegativePayload: `escape\(`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:         "xss/dom-sink",
				Kind:       MatchRegex,
				Language:   "javascript",
				Payload:    `(?:innerHTML|outerHTML|document\.write|dangerouslySetInnerHTML)`,
				Confidence: ConfidenceMedium,
			},
			{
				ID:         "xss/template-html",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `template\.(?:HTML|JS|URL)\s*\(`,
				Confidence: ConfidenceMedium,
			},
		},
	},
	{
		ID:          "template-injection",
		Name:        "Template Injection",
		Domain:      DomainSecurity,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityCritical,
		Languages:   []string{"python", "javascript", "typescript"},
		Description: "User input used as a template source",
		Remediation: "Pass user data as template variables, never as template text",
		Patterns: []*DetectionPattern{
			{
				ID:         "template-injection/dynamic-template",
				Kind:       MatchRegex,
				Language:   "python",
				Payload:    `(?:Template|render_template_string|from_string)\s*\(\s*(?:f["']|.*(?:\+|\.format\())`,
				Confidence: ConfidenceHigh,
			},
			{
				ID:         "template-injection/js-template-call",
				Kind:       MatchASTQuery,
				Language:   "javascript",
				Payload:    `(call_expression function: (member_expression property: (property_identifier)) arguments: (arguments (template_string))) @call`,
				Confidence: ConfidenceLow,
			},
		},
	},
	{
		ID:          "xxe",
		Name:        "XML External Entities",
		Domain:      DomainSecurity,
		Level:       LevelUnit,
		Priority:    PriorityP1,
		Severity:    SeverityHigh,
		Languages:   []string{"python", "go", "java"},
		Description: "XML parsed without disabling external entity resolution",
		Remediation: "Disable entity resolution in the parser configuration",
		Patterns: []*DetectionPattern{
			{
				ID:              "xxe/unsafe-parse",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:etree\.(?:parse|fromstring|XMLParser)|xml\.dom\.minidom|xml\.sax)`,
				NegativePayload: `(?:resolve_entities\s*=\s*False|defusedxml)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:         "xxe/decoder-entity",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `xml\.NewDecoder\s*\(.*\n?.*\.Entity\s*=`,
				Confidence: ConfidenceMedium,
			},
		},
	},
	{
		ID:          "path-traversal",
		Name:        "Path Traversal",
		Domain:      DomainInput,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityHigh,
		Languages:   []string{"python", "go", "javascript", "typescript"},
		Description: "File path built from user input without normalization",
		Remediation: "Normalize with a base-directory check; reject traversal sequences",
		Patterns: []*DetectionPattern{
			{
				ID:              "path-traversal/open-concat",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `open\s*\(\s*(?:f["']|["'][^"']*["']\s*\+|.*%\s)`,
				NegativePayload: `(?:os\.path\.basename|secure_filename|realpath)`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:              "path-traversal/file-join",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         `os\.(?:Open|ReadFile|Create)\s*\(\s*(?:filepath\.Join\s*\(.*r\.|fmt\.Sprintf|.*\+)`,
				NegativePayload: `(?:filepath\.Base|filepath\.Clean|SecureJoin)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:              "path-traversal/fs-concat",
				Kind:            MatchRegex,
				Language:        "javascript",
				Payload:         "(?:readFile|createReadStream|readFileSync)\\s*\\([^,)]*(?:\\$\\{|\\+)",
				NegativePayload: `path\.basename`,
				Confidence:      ConfidenceMedium,
			},
		},
	},
	{
		ID:          "ssrf",
		Name:        "Server-Side Request Forgery",
		Domain:      DomainSecurity,
		Level:       LevelIntegration,
		Priority:    PriorityP1,
		Severity:    SeverityHigh,
		Languages:   []string{"python", "go", "javascript", "typescript"},
		Description: "Outbound request to a user-controlled URL",
		Remediation: "Validate URLs against an allowlist; reject internal addresses",
		Patterns: []*DetectionPattern{
			{
				ID:              "ssrf/requests-var-url",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `requests\.(?:get|post|put|delete|head)\s*\(\s*(?:f["']|[a-z_][a-z0-9_]*\s*[,)])`,
				NegativePayload: `(?:allowlist|ALLOWED_HOSTS|urlparse)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:         "ssrf/http-get-var",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `http\.(?:Get|Post)\s*\(\s*(?:fmt\.Sprintf|[a-z][A-Za-z0-9]*\s*\))`,
				Confidence: ConfidenceMedium,
			},
		},
	},
	{
		ID:          "insecure-deserialization",
		Name:        "Insecure Deserialization",
		Domain:      DomainData,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityCritical,
		Languages:   []string{"python", "go", "java"},
		Description: "Deserialization of untrusted data with an unsafe codec",
		Remediation: "Use a data-only format (JSON) or a safe loader",
		Patterns: []*DetectionPattern{
			{
				ID:              "insecure-deserialization/pickle-load",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:pickle\.loads?\s*\(|yaml\.load\s*\(|marshal\.loads?\s*\()`,
				NegativePayload: `(?:Loader\s*=\s*yaml\.SafeLoader|safe_load)`,
				Confidence:      ConfidenceHigh,
			},
			{
				ID:         "insecure-deserialization/gob-network",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `gob\.NewDecoder\s*\(\s*(?:conn|r\.Body|req\.Body)`,
				Confidence: ConfidenceHigh,
			},
		},
	},

	// =========================================================================
	// Input validation and hardening
	// =========================================================================
	{
		ID:          "missing-input-validation",
		Name:        "Missing Input Validation",
		Domain:      DomainInput,
		Level:       LevelUnit,
		Priority:    PriorityP1,
		Severity:    SeverityMedium,
		Languages:   []string{"python", "go", "javascript", "typescript"},
		Description: "Request parameters used without validation",
		Remediation: "Validate type, range, and format at the trust boundary",
		Patterns: []*DetectionPattern{
			{
				ID:              "missing-input-validation/raw-request-param",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?:request\.(?:args|form|json|values)\s*(?:\[|\.get\()|request\.GET\[)`,
				NegativePayload: `(?:validate|schema|clean|sanitize)`,
				Confidence:      ConfidenceLow,
			},
			{
				ID:              "missing-input-validation/query-param",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         `r\.(?:URL\.Query\(\)\.Get|FormValue|PostFormValue)\s*\(`,
				NegativePayload: `(?:validate|strconv\.)`,
				Confidence:      ConfidenceLow,
			},
		},
	},
	{
		ID:          "csrf-protection-disabled",
		Name:        "CSRF Protection Disabled",
		Domain:      DomainSecurity,
		Level:       LevelIntegration,
		Priority:    PriorityP1,
		Severity:    SeverityHigh,
		Languages:   []string{"python"},
		Description: "CSRF middleware explicitly bypassed on a handler",
		Remediation: "Remove the exemption or replace it with token validation",
		Patterns: []*DetectionPattern{
			{
				ID:         "csrf-protection-disabled/exempt-decorator",
				Kind:       MatchRegex,
				Language:   "python",
				Payload:    `@csrf_exempt|csrf\s*=\s*False|WTF_CSRF_ENABLED\s*=\s*False`,
				Confidence: ConfidenceHigh,
			},
		},
	},
	{
		ID:          "hardcoded-credentials",
		Name:        "Hardcoded Credentials",
		Domain:      DomainCompliance,
		Level:       LevelUnit,
		Priority:    PriorityP0,
		Severity:    SeverityCritical,
		Languages:   []string{"python", "go", "javascript", "typescript", "java"},
		Description: "Password or API key embedded in source",
		Remediation: "Load secrets from the environment or a secrets manager",
		Patterns: []*DetectionPattern{
			{
				ID:              "hardcoded-credentials/assignment",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `(?i)(?:password|passwd|secret|api_?key|token)\s*[=:]\s*["'][^"']{8,}["']`,
				NegativePayload: `(?i)(?:example|placeholder|test|mock|fake|dummy|getenv|environ)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:              "hardcoded-credentials/assignment-go",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         `(?i)(?:password|secret|apiKey|token)\s*(?::?=)\s*"[^"]{8,}"`,
				NegativePayload: `(?i)(?:example|placeholder|test|os\.Getenv)`,
				Confidence:      ConfidenceMedium,
			},
		},
	},
	{
		ID:          "weak-crypto",
		Name:        "Weak Cryptography",
		Domain:      DomainSecurity,
		Level:       LevelUnit,
		Priority:    PriorityP1,
		Severity:    SeverityMedium,
		Languages:   []string{"python", "go", "javascript", "typescript", "java"},
		Description: "Use of a broken or weak cryptographic primitive",
		Remediation: "Use SHA-256 or better; AES-GCM for encryption; bcrypt/argon2 for passwords",
		Patterns: []*DetectionPattern{
			{
				ID:              "weak-crypto/weak-hash",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `hashlib\.(?:md5|sha1)\s*\(`,
				NegativePayload: `(?:usedforsecurity\s*=\s*False|checksum|etag|cache)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:              "weak-crypto/weak-hash-go",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         `(?:md5|sha1)\.(?:New|Sum)\s*\(`,
				NegativePayload: `(?:checksum|fingerprint|etag|cache)`,
				Confidence:      ConfidenceMedium,
			},
		},
	},

	// =========================================================================
	// Reliability and resources
	// =========================================================================
	{
		ID:          "sensitive-data-in-logs",
		Name:        "Sensitive Data in Logs",
		Domain:      DomainCompliance,
		Level:       LevelUnit,
		Priority:    PriorityP2,
		Severity:    SeverityMedium,
		Languages:   []string{"python", "go", "javascript", "typescript"},
		Description: "Secrets or PII written to logs without redaction",
		Remediation: "Log metadata, not values; redact sensitive fields",
		Patterns: []*DetectionPattern{
			{
				ID:         "sensitive-data-in-logs/secret-field",
				Kind:       MatchRegex,
				Language:   "python",
				Payload:    `(?:log|logger|logging|print)\S*\(.*(?:password|token|secret|api_key|ssn)`,
				Confidence: ConfidenceLow,
			},
			{
				ID:         "sensitive-data-in-logs/secret-field-go",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `(?:log\.|logger\.|slog\.)\w+\(.*(?:password|token|secret|apiKey)`,
				Confidence: ConfidenceLow,
			},
		},
	},
	{
		ID:          "unbounded-resource",
		Name:        "Unbounded Resource Use",
		Domain:      DomainResource,
		Level:       LevelSystem,
		Priority:    PriorityP2,
		Severity:    SeverityMedium,
		Languages:   []string{"python", "go"},
		Description: "Reads or allocations without a size bound",
		Remediation: "Cap reads with limits; bound queues and caches",
		Patterns: []*DetectionPattern{
			{
				ID:              "unbounded-resource/read-all",
				Kind:            MatchRegex,
				Language:        "go",
				Payload:         `io\.ReadAll\s*\(\s*(?:r\.Body|resp\.Body|conn)`,
				NegativePayload: `(?:LimitReader|MaxBytesReader)`,
				Confidence:      ConfidenceMedium,
			},
			{
				ID:              "unbounded-resource/read-no-limit",
				Kind:            MatchRegex,
				Language:        "python",
				Payload:         `\.read\(\)\s*$`,
				NegativePayload: `(?:read\(\d)`,
				Confidence:      ConfidenceLow,
			},
		},
	},
	{
		ID:          "toctou-race",
		Name:        "Check-Then-Use Race",
		Domain:      DomainConcurrency,
		Level:       LevelIntegration,
		Priority:    PriorityP2,
		Severity:    SeverityMedium,
		Languages:   []string{"python", "go"},
		Description: "File existence checked before a separate open or remove",
		Remediation: "Open with exclusive flags; handle the error instead of pre-checking",
		Patterns: []*DetectionPattern{
			{
				ID:         "toctou-race/exists-then-open",
				Kind:       MatchRegex,
				Language:   "python",
				Payload:    `os\.path\.exists\s*\([^)]*\)\s*:?\s*\n.*open\s*\(`,
				Confidence: ConfidenceLow,
			},
			{
				ID:         "toctou-race/stat-then-open",
				Kind:       MatchRegex,
				Language:   "go",
				Payload:    `os\.Stat\s*\([^)]*\)[\s\S]{0,120}os\.(?:Open|Remove|Create)\s*\(`,
				Confidence: ConfidenceLow,
			},
		},
	},
	{
		ID:          "blocking-io-event-loop",
		Name:        "Blocking I/O on Event Loop",
		Domain:      DomainPerformance,
		Level:       LevelIntegration,
		Priority:    PriorityP2,
		Severity:    SeverityLow,
		Languages:   []string{"javascript", "typescript", "python"},
		Description: "Synchronous I/O on a code path serving an event loop",
		Remediation: "Use the async variants or move work off the loop",
		Patterns: []*DetectionPattern{
			{
				ID:         "blocking-io-event-loop/sync-fs",
				Kind:       MatchRegex,
				Language:   "javascript",
				Payload:    `fs\.(?:readFileSync|writeFileSync|existsSync)\s*\(`,
				Confidence: ConfidenceLow,
			},
			{
				ID:         "blocking-io-event-loop/sync-in-async",
				Kind:       MatchRegex,
				Language:   "python",
				Payload:    `async\s+def[\s\S]{0,200}(?:time\.sleep|requests\.(?:get|post))\s*\(`,
				Confidence: ConfidenceMedium,
			},
		},
	},
}
