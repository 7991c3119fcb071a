// Package lint provides advisory rules for deployment configurations.
//
// Lint issues never block a plan; they flag configurations that are valid
// but likely unintended. Rules:
//
//	ORP001: Ingress rule open to the world
//	ORP002: Final snapshot skipped
//	ORP003: Short backup retention
//	ORP004: Storage autoscaling disabled
//	ORP005: Ingress rule without a description
//	ORP006: Production deployment without Multi-AZ
//	ORP007: Identifier leaves no room for the index suffix
package lint

import (
	"github.com/oraplan/oraplan/internal/config"
)

// Severity classifies a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single lint finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule"`
}

// Rule checks one aspect of a deployment configuration.
type Rule interface {
	ID() string
	Description() string
	Check(d *config.Deployment) []Issue
}

// Result contains the outcome of linting.
type Result struct {
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Options configures the linter.
type Options struct {
	// EnabledRules restricts the rule set. If empty, all rules run.
	EnabledRules []string
}

// Check runs the configured rules against a deployment.
func Check(d *config.Deployment, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(d)...)
	}
	return Result{
		Success: len(issues) == 0,
		Issues:  issues,
	}
}

func getRules(opts Options) []Rule {
	all := []Rule{
		OpenIngress{},
		SkippedFinalSnapshot{},
		ShortBackupRetention{},
		NoStorageAutoscaling{},
		UndescribedIngress{},
		ProdWithoutMultiAZ{},
		TightIdentifier{},
	}

	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool, len(opts.EnabledRules))
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var rules []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			rules = append(rules, r)
		}
	}
	return rules
}
