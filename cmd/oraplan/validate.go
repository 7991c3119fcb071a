package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan"
	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking a
// configuration and its rendered plan.
func newValidateCmd() *cobra.Command {
	var (
		outputFormat string
		tagFlags     []string
	)

	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a deployment configuration and its rendered plan",
		Long: `Validate checks the configuration against the field rules, then renders
the plan and lints the result.

Checks performed:
  - Configuration: identifier shape, mode exclusivity, required fields
  - Rendered plan: template linting via cfn-lint

Examples:
    oraplan validate deploy.yaml
    oraplan validate deploy.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], outputFormat, tagFlags)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Mandatory tag key=value (repeatable)")

	return cmd
}

func runValidate(configPath, format string, tagFlags []string) error {
	result := validateDeployment(configPath, tagFlags)
	return outputValidateResult(result, format)
}

func validateDeployment(configPath string, tagFlags []string) oraplan.ValidateResult {
	d, err := config.Load(configPath)
	if err != nil {
		return oraplan.ValidateResult{Errors: []string{err.Error()}}
	}

	if errs := config.Validate(d); len(errs) > 0 {
		result := oraplan.ValidateResult{}
		for _, e := range errs {
			result.Errors = append(result.Errors, e.Error())
		}
		return result
	}

	plan, err := buildPlan(configPath, tagFlags, nil)
	if err != nil {
		return oraplan.ValidateResult{Errors: []string{err.Error()}}
	}

	lintResult, err := validation.LintPlan(plan)
	if err != nil {
		return oraplan.ValidateResult{Errors: []string{err.Error()}}
	}

	return oraplan.ValidateResult{
		Success:   lintResult.Passed,
		Resources: len(plan.Resources),
		Errors:    lintResult.Errors,
		Warnings:  lintResult.Warnings,
	}
}

func outputValidateResult(result oraplan.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if result.Success {
			fmt.Printf("Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Printf("  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Println("Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Printf("  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Printf("  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		os.Exit(1)
	}

	return nil
}
