// Package oraplan provides the shared contract types for the oraplan CLI.
//
// oraplan resolves a declarative Oracle RDS deployment configuration into a
// concrete set of AWS resource specifications:
//
//	oraplan plan deploy.yaml
//
// The rendered plan is a CloudFormation-shaped document so it can be handed
// to an external provisioning engine and checked with standard template
// tooling. The types in this package are consumed by the CLI and by the
// internal resolver, renderer, differ, and graph packages.
package oraplan

// Plan is the rendered resource specification document for one deployment.
type Plan struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
}

// ResourceDef is a single resource in the rendered plan.
type ResourceDef struct {
	Type           string         `json:"Type" yaml:"Type"`
	Properties     map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn      []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
}

// PlanResult is the JSON output from `oraplan plan`.
type PlanResult struct {
	Success   bool     `json:"success"`
	Plan      *Plan    `json:"plan,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `oraplan validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `oraplan list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PlanDiff describes the differences between two rendered plans.
type PlanDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry is a single resource-level difference.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts resource-level differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}
