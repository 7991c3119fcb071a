package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan/internal/graph"
)

// newGraphCmd creates the "graph" subcommand for visualizing plan
// dependencies.
func newGraphCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
		cluster      bool
		tagFlags     []string
	)

	cmd := &cobra.Command{
		Use:   "graph <config.yaml>",
		Short: "Render the plan's dependency graph",
		Long: `Graph renders the plan and emits its resource dependency graph.

Examples:
    oraplan graph deploy.yaml
    oraplan graph deploy.yaml --format mermaid
    oraplan graph deploy.yaml --cluster -o plan.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(args[0], outputFormat, outputFile, cluster, tagFlags)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&cluster, "cluster", false, "Group nodes by AWS service")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Mandatory tag key=value (repeatable)")

	return cmd
}

func runGraph(configPath, format, outputFile string, cluster bool, tagFlags []string) error {
	plan, err := buildPlan(configPath, tagFlags, nil)
	if err != nil {
		return err
	}

	gen := &graph.Generator{
		Format:        graph.Format(format),
		ClusterByType: cluster,
	}

	out, err := gen.GenerateString(plan)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Println(out)
		return nil
	}

	return os.WriteFile(outputFile, []byte(out), 0644)
}
