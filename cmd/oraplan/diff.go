package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan"
	"github.com/oraplan/oraplan/internal/differ"
)

// newDiffCmd creates the "diff" subcommand for comparing rendered plans.
func newDiffCmd() *cobra.Command {
	var (
		outputFormat string
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <plan1> <plan2>",
		Short: "Compare two rendered plan files",
		Long: `Diff compares two rendered plans resource by resource.

Examples:
    oraplan diff before.json after.json
    oraplan diff before.yaml after.yaml --format json
    oraplan diff before.json after.json --exit-code`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], outputFormat, exitCode)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with code 1 when plans differ")

	return cmd
}

func runDiff(file1, file2, format string, exitCode bool) error {
	result, err := differ.CompareFiles(file1, file2)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		out := struct {
			Diff    oraplan.PlanDiff    `json:"diff"`
			Summary oraplan.DiffSummary `json:"summary"`
		}{result.Diff, result.Summary}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		printDiffText(result)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if exitCode && result.Summary.Total > 0 {
		os.Exit(1)
	}

	return nil
}

func printDiffText(result *differ.Result) {
	if result.Summary.Total == 0 {
		fmt.Println("Plans are identical")
		return
	}

	for _, e := range result.Diff.Added {
		fmt.Printf("+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Printf("- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Printf("~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Printf("    %s\n", c)
		}
	}

	fmt.Printf("\n%d added, %d removed, %d modified\n",
		result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
}
