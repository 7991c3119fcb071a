// Command oraplan resolves declarative Oracle RDS deployment configurations
// into concrete AWS resource plans.
//
// Usage:
//
//	oraplan plan deploy.yaml          Render the resource plan
//	oraplan validate deploy.yaml      Validate config and rendered plan
//	oraplan lint deploy.yaml          Run advisory configuration checks
//	oraplan version                   Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oraplan",
		Short: "Plan Oracle RDS deployments from declarative configuration",
		Long: `oraplan turns a declarative Oracle RDS deployment configuration into a
concrete resource plan.

Describe the deployment once in YAML:

    identifier: ordb
    instance_count: 2
    engine: oracle-ee

Then render the plan for a provisioning engine:

    oraplan plan deploy.yaml`,
	}

	rootCmd.AddCommand(
		newPlanCmd(),
		newValidateCmd(),
		newLintCmd(),
		newListCmd(),
		newGraphCmd(),
		newDiffCmd(),
		newWatchCmd(),
		newSubnetsCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("oraplan %s\n", getVersion())
		},
	}
}
