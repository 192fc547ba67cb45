package main

import (
	"github.com/spf13/cobra"

	"github.com/yanizio/tenancy/internal/app"
)

// cli holds state shared by subcommands for one invocation.
type cli struct {
	env *app.Env
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "tenantctl",
		Short: "Manage tenant schemas",
		Long: `tenantctl applies and reverts the embedded schema migrations.

The shared schema holds the tenant registry.  Every registered tenant owns
one schema named tenant_<id>, migrated in registration order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(c))
	return root
}

// boot opens the environment once per invocation.
func (c *cli) boot(cmd *cobra.Command, _ []string) error {
	env, err := app.Boot(cmd.Context())
	if err != nil {
		return err
	}
	c.env = env
	return nil
}

func (c *cli) close(*cobra.Command, []string) {
	if c.env != nil {
		c.env.Close()
	}
}
