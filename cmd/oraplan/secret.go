package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oraplan/oraplan/internal/resolve"
	"github.com/oraplan/oraplan/internal/secrets"
)

// newSecretCmd creates the "secret" subcommand for generating and storing
// master credentials.
func newSecretCmd() *cobra.Command {
	var (
		host    string
		region  string
		push    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "secret <config.yaml>",
		Short: "Generate master credentials for a deployment",
		Long: `Secret generates a master password per instance and optionally stores it
in Secrets Manager under the environment prefix.

The generated password is never printed; only the secret path and username
are. Replica deployments inherit credentials from their source and are
rejected.

Examples:
    oraplan secret deploy.yaml
    oraplan secret deploy.yaml --push --host ordb.example.internal
    oraplan secret deploy.yaml --push --region us-west-2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecret(cmd, args[0], host, region, push, verbose)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Endpoint hostname stored in the secret payload")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: ambient configuration)")
	cmd.Flags().BoolVar(&push, "push", false, "Store the credentials in Secrets Manager")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log storage operations")

	return cmd
}

func runSecret(cmd *cobra.Command, configPath, host, region string, push, verbose bool) error {
	d, err := loadValidConfig(configPath)
	if err != nil {
		return err
	}

	if d.IsReplica() {
		return fmt.Errorf("replica deployments inherit credentials from %s; nothing to generate", d.SourceDBIdentifier)
	}

	topo, err := resolve.Resolve(d, nil)
	if err != nil {
		return err
	}

	var store *secrets.Store
	if push {
		log, err := newLogger(verbose)
		if err != nil {
			return err
		}

		store, err = secrets.NewStoreFromConfig(cmd.Context(), region, log)
		if err != nil {
			return err
		}
		store.Overwrite = d.OverwriteSecret
	}

	policy := secrets.PolicyFromConfig(d)

	for _, inst := range topo.Instances {
		pw, err := secrets.Generate(policy)
		if err != nil {
			return err
		}

		path := secrets.PathFor(d.Environment, inst.Identifier)

		if push {
			payload := secrets.Payload{
				Username: d.MasterUsername,
				Password: pw,
				Host:     host,
				Port:     d.Port,
			}
			if err := store.Put(cmd.Context(), path, payload); err != nil {
				return err
			}
			fmt.Printf("stored %s (username %s)\n", path, d.MasterUsername)
			continue
		}

		fmt.Printf("generated %s (username %s, not stored)\n", path, d.MasterUsername)
	}

	return nil
}
