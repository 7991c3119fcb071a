package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan"
)

// newListCmd creates the "list" subcommand for enumerating plan resources.
func newListCmd() *cobra.Command {
	var (
		outputFormat string
		tagFlags     []string
	)

	cmd := &cobra.Command{
		Use:   "list <config.yaml>",
		Short: "List the resources a configuration would produce",
		Long: `List renders the plan and prints the resources it contains.

Examples:
    oraplan list deploy.yaml
    oraplan list deploy.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args[0], outputFormat, tagFlags)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Mandatory tag key=value (repeatable)")

	return cmd
}

func runList(configPath, format string, tagFlags []string) error {
	plan, err := buildPlan(configPath, tagFlags, nil)
	if err != nil {
		return err
	}

	result := oraplan.ListResult{}
	for name, def := range plan.Resources {
		result.Resources = append(result.Resources, oraplan.ListResource{
			Name: name,
			Type: def.Type,
		})
	}
	sort.Slice(result.Resources, func(i, j int) bool {
		return result.Resources[i].Name < result.Resources[j].Name
	})

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE")
		for _, r := range result.Resources {
			fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Type)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d resources\n", len(result.Resources))

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
