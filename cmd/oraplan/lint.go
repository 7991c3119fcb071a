package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/lint"
)

// newLintCmd creates the "lint" subcommand for advisory configuration checks.
func newLintCmd() *cobra.Command {
	var (
		outputFormat string
		enabledRules []string
	)

	cmd := &cobra.Command{
		Use:   "lint <config.yaml>",
		Short: "Run advisory checks on a deployment configuration",
		Long: `Lint flags configurations that are valid but likely unintended, such as
world-open ingress rules or a production deployment without Multi-AZ.

Lint never fails the command; issues are advisory.

Examples:
    oraplan lint deploy.yaml
    oraplan lint deploy.yaml --rules ORP001,ORP006
    oraplan lint deploy.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(args[0], outputFormat, enabledRules)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&enabledRules, "rules", nil, "Restrict to these rule IDs")

	return cmd
}

func runLint(configPath, format string, enabledRules []string) error {
	d, err := config.Load(configPath)
	if err != nil {
		return err
	}

	result := lint.Check(d, lint.Options{EnabledRules: enabledRules})

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if result.Success {
			fmt.Println("No issues found")
			return nil
		}
		for _, issue := range result.Issues {
			fmt.Printf("%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
		}
		fmt.Printf("\n%d issue(s) found\n", len(result.Issues))

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
