// Package validation checks rendered plan documents with cfn-lint-go.
//
// Configuration-level checks live in internal/config and internal/lint; this
// package covers the rendered output, catching malformed resource
// definitions before they reach a provisioning engine.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	"github.com/oraplan/oraplan"
	"github.com/oraplan/oraplan/internal/render"
)

// CfnLintResult contains the categorized output of a cfn-lint run.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// LintPlan renders the plan to a temporary file and lints it. Warnings do
// not fail the result; errors do.
func LintPlan(plan *oraplan.Plan) (*CfnLintResult, error) {
	data, err := render.ToYAML(plan)
	if err != nil {
		return nil, fmt.Errorf("rendering plan: %w", err)
	}

	dir, err := os.MkdirTemp("", "oraplan-lint")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing plan: %w", err)
	}

	return LintFile(path)
}

// LintFile runs cfn-lint-go on a rendered plan file.
func LintFile(path string) (*CfnLintResult, error) {
	if _, err := os.Stat(path); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("plan file not found: %s", path)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(path)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	if len(matches) == 0 {
		result.Passed = true
		return result, nil
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	result.Passed = len(result.Errors) == 0
	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
