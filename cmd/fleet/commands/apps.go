package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage apps",
	}
	cmd.AddCommand(newAppsListCommand())
	cmd.AddCommand(newAppsGetCommand())
	cmd.AddCommand(newAppsCreateCommand())
	cmd.AddCommand(newAppsDeleteCommand())
	return cmd
}

func newAppsListCommand() *cobra.Command {
	var orgSlug string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List apps in an organization",
		Example: `  # List apps in the configured organization
  fleet apps list

  # List apps in another organization
  fleet apps list --org other-org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if orgSlug == "" {
				orgSlug = rt.cfg.OrgSlug
			}
			apps, err := rt.ops.ListApps(cmd.Context(), orgSlug)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(apps)
			}
			for _, app := range apps {
				fmt.Println(app.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&orgSlug, "org", "", "organization slug")
	return cmd
}

func newAppsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <app>",
		Short: "Show one app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			app, err := rt.ops.GetApp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(app)
		},
	}
}

func newAppsCreateCommand() *cobra.Command {
	var orgSlug string

	cmd := &cobra.Command{
		Use:   "create <app>",
		Short: "Create an app",
		Long: `Create an app in the organization.

Creating an app that already exists in the same organization succeeds
without changes; the same name in another organization is a conflict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if orgSlug == "" {
				orgSlug = rt.cfg.OrgSlug
			}
			app, err := rt.ops.PutApp(cmd.Context(), orgSlug, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(app)
			}
			return printResult(fmt.Sprintf("app %s present in %s", args[0], orgSlug))
		},
	}

	cmd.Flags().StringVar(&orgSlug, "org", "", "organization slug")
	return cmd
}

func newAppsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <app>",
		Short: "Delete an app and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if err := rt.ops.DeleteApp(cmd.Context(), args[0], force); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("app %s deleted", args[0]))
		},
	}

	cmd.Flags().BoolVar(&force, "force", true, "destroy running machines too")
	return cmd
}
