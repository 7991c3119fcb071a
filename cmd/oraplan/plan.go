package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan"
	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/options"
	"github.com/oraplan/oraplan/internal/render"
	"github.com/oraplan/oraplan/internal/resolve"
)

func newPlanCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
		tagFlags     []string
		subnetIDs    []string
	)

	cmd := &cobra.Command{
		Use:   "plan <config.yaml>",
		Short: "Render the resource plan for a deployment configuration",
		Long: `Plan loads a deployment configuration, resolves the instance topology,
and renders the resource plan document.

Examples:
    oraplan plan deploy.yaml
    oraplan plan deploy.yaml -o plan.json
    oraplan plan deploy.yaml --format yaml
    oraplan plan deploy.yaml --tag CostCenter=db-ops --tag Owner=dba`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(args[0], outputFormat, outputFile, tagFlags, subnetIDs)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringArrayVar(&tagFlags, "tag", nil, "Mandatory tag key=value, wins over config tags (repeatable)")
	cmd.Flags().StringSliceVar(&subnetIDs, "subnet-ids", nil, "Pre-resolved subnet IDs for the subnet group")

	return cmd
}

func runPlan(configPath, format, outputFile string, tagFlags, subnetIDs []string) error {
	plan, err := buildPlan(configPath, tagFlags, subnetIDs)
	if err != nil {
		return err
	}
	return writePlan(plan, format, outputFile)
}

// buildPlan runs the full pipeline: load, validate, resolve, render.
func buildPlan(configPath string, tagFlags, subnetIDs []string) (*oraplan.Plan, error) {
	mandatory, err := parseTags(tagFlags)
	if err != nil {
		return nil, err
	}

	d, err := loadValidConfig(configPath)
	if err != nil {
		return nil, err
	}

	doc, err := loadOptionDocument(configPath, d)
	if err != nil {
		return nil, err
	}

	topo, err := resolve.Resolve(d, mandatory)
	if err != nil {
		return nil, err
	}

	builder := render.NewBuilder(d, topo, doc)
	if len(subnetIDs) > 0 {
		builder.SetSubnetIDs(subnetIDs)
	}

	return builder.Build()
}

// loadValidConfig loads a deployment config and rejects it on any
// validation error.
func loadValidConfig(configPath string) (*config.Deployment, error) {
	d, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if errs := config.Validate(d); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	return d, nil
}

// loadOptionDocument loads the option document referenced by the config.
// Relative paths resolve against the config file's directory. Replica modes
// reference no document and get nil.
func loadOptionDocument(configPath string, d *config.Deployment) (*options.Document, error) {
	if d.OptionGroupSource == "" {
		return nil, nil
	}

	src := d.OptionGroupSource
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(configPath), src)
	}

	return options.Load(src)
}

// parseTags parses repeated key=value flags into the mandatory tag set.
func parseTags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", f)
		}
		tags[key] = value
	}
	return tags, nil
}

func writePlan(plan *oraplan.Plan, format, outputFile string) error {
	var data []byte
	var err error

	switch format {
	case "json":
		data, err = render.ToJSON(plan)
	case "yaml":
		data, err = render.ToYAML(plan)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}

	return os.WriteFile(outputFile, data, 0644)
}
