package tool

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/gate-labs/qualgate/core"
)

// diagnosticLine matches the common "file:line[:col]: message" shape
// emitted by compilers, linters, and scanners.
var diagnosticLine = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?:\s*(.*)$`)

// severityPrefix strips a leading "error:"/"warning:"/"info:" marker.
var severityPrefix = regexp.MustCompile(`^(error|warning|info)[:\s]+`)

// trailingRule captures a "(rule-name)" or "[rule-name]" suffix.
var trailingRule = regexp.MustCompile(`[([]([A-Za-z0-9_./-]+)[)\]]\s*$`)

// ParseFindings normalizes diagnostic output lines into findings.
// Lines that do not look like diagnostics are ignored; wrappers keep the
// raw output in errors when the tool failed without parseable findings.
func ParseFindings(output string, defaultSeverity core.Severity) []core.Finding {
	var findings []core.Finding
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if f, ok := parseDiagnosticLine(scanner.Text(), defaultSeverity); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func parseDiagnosticLine(line string, defaultSeverity core.Severity) (core.Finding, bool) {
	m := diagnosticLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return core.Finding{}, false
	}

	lineNo, err := strconv.Atoi(m[2])
	if err != nil || lineNo <= 0 {
		return core.Finding{}, false
	}
	column := 0
	if m[3] != "" {
		column, _ = strconv.Atoi(m[3])
	}

	message := strings.TrimSpace(m[4])
	severity := defaultSeverity
	if sm := severityPrefix.FindStringSubmatch(strings.ToLower(message)); sm != nil {
		severity = core.Severity(sm[1])
		message = strings.TrimSpace(message[len(sm[0]):])
	}

	rule := ""
	if rm := trailingRule.FindStringSubmatch(message); rm != nil {
		rule = rm[1]
		message = strings.TrimSpace(strings.TrimSuffix(message, rm[0]))
	}
	if message == "" {
		return core.Finding{}, false
	}

	return core.Finding{
		File:     m[1],
		Line:     lineNo,
		Column:   column,
		Rule:     rule,
		Severity: severity,
		Message:  message,
	}, true
}

// OnlyWarnings reports whether every finding is warning-or-lower.
func OnlyWarnings(findings []core.Finding) bool {
	if len(findings) == 0 {
		return false
	}
	for _, f := range findings {
		if f.Severity == core.SeverityError {
			return false
		}
	}
	return true
}

// tailLines returns the last n non-empty lines of output, used to keep
// result errors small while preserving the useful part of a failure.
func tailLines(output string, n int) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
