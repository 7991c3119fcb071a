package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oraplan/oraplan/internal/subnets"
)

// newSubnetsCmd creates the "subnets" subcommand for discovering eligible
// subnet group members.
func newSubnetsCmd() *cobra.Command {
	var (
		vpcID        string
		region       string
		outputFormat string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "subnets",
		Short: "Discover private subnets eligible for a DB subnet group",
		Long: `Subnets queries EC2 for subnets in a VPC tagged Network=Private with
enough free addresses to host database interfaces.

Examples:
    oraplan subnets --vpc vpc-0123456789abcdef0
    oraplan subnets --vpc vpc-0123456789abcdef0 --region us-west-2 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubnets(cmd, vpcID, region, outputFormat, verbose)
		},
	}

	cmd.Flags().StringVar(&vpcID, "vpc", "", "VPC ID to search (required)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: ambient configuration)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log skipped subnets")
	_ = cmd.MarkFlagRequired("vpc")

	return cmd
}

func runSubnets(cmd *cobra.Command, vpcID, region, format string, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}

	finder, err := subnets.NewFinderFromConfig(cmd.Context(), region, log)
	if err != nil {
		return err
	}

	found, err := finder.PrivateSubnets(cmd.Context(), vpcID)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(found, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SUBNET\tZONE\tCIDR\tFREE IPS")
		for _, s := range found {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.AvailabilityZone, s.CIDR, s.AvailableIPs)
		}
		if err := w.Flush(); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}

// newLogger builds the CLI logger. Quiet by default; --verbose enables
// debug output on stderr.
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	if !verbose {
		return zap.NewNop().Sugar(), nil
	}

	cfg := zap.NewDevelopmentConfig()
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}
