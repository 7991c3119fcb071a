// Package differ provides semantic comparison of rendered plan documents.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/oraplan/oraplan"
)

// Result contains the difference between two plans.
type Result struct {
	Diff    oraplan.PlanDiff
	Summary oraplan.DiffSummary
}

// Compare compares two rendered plans and returns differences.
func Compare(plan1, plan2 *oraplan.Plan) *Result {
	result := &Result{}

	res1 := plan1.Resources
	res2 := plan2.Resources

	// Added resources (in plan2 but not in plan1).
	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, oraplan.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Removed resources (in plan1 but not in plan2).
	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, oraplan.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Modified resources.
	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, oraplan.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = oraplan.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result
}

// CompareFiles compares two rendered plan files.
func CompareFiles(file1, file2 string) (*Result, error) {
	p1, err := LoadPlan(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	p2, err := LoadPlan(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(p1, p2), nil
}

// LoadPlan loads a rendered plan from a JSON or YAML file.
func LoadPlan(path string) (*oraplan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan oraplan.Plan

	// Try JSON first.
	if err := json.Unmarshal(data, &plan); err != nil {
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &plan, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 oraplan.ResourceDef) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s -> %s", def1.Type, def2.Type))
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %s -> %s", def1.DeletionPolicy, def2.DeletionPolicy))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties)...)

	if !cmp.Equal(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

// compareProperties recursively compares property maps.
func compareProperties(prefix string, props1, props2 map[string]any) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		val1, exists := props1[key]
		switch {
		case !exists:
			changes = append(changes, fmt.Sprintf("%s added", path))
		case !cmp.Equal(val1, val2):
			if nested1, ok1 := val1.(map[string]any); ok1 {
				if nested2, ok2 := val2.(map[string]any); ok2 {
					changes = append(changes, compareProperties(path, nested1, nested2)...)
					continue
				}
			}
			changes = append(changes, fmt.Sprintf("%s modified", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

func sortEntries(entries []oraplan.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
