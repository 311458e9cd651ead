package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfleet/openfleet/pkg/fly"
)

func newIPsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ips",
		Aliases: []string{"ip"},
		Short:   "Manage IP addresses",
	}
	cmd.AddCommand(newIPsListCommand())
	cmd.AddCommand(newIPsAllocateCommand())
	cmd.AddCommand(newIPsReleaseCommand())
	return cmd
}

func newIPsListCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an app's allocated addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			app, err := rt.appName(appFlag)
			if err != nil {
				return err
			}
			addresses, err := rt.ops.ListIPs(cmd.Context(), app)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(addresses)
			}
			for _, addr := range addresses {
				region := addr.Region
				if region == "" {
					region = "global"
				}
				fmt.Printf("%s\t%s\t%s\n", addr.Address, addr.Type, region)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newIPsAllocateCommand() *cobra.Command {
	var (
		appFlag string
		ipType  string
		region  string
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate an address for an app",
		Long: `Allocate an address. Types: v4 (dedicated, billed), shared_v4
(free), v6, private_v6 (internal network only).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			app, err := rt.appName(appFlag)
			if err != nil {
				return err
			}
			address, err := rt.ops.AllocateIP(cmd.Context(), app, fly.IPRequest{
				Type:   ipType,
				Region: region,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(address)
			}
			return printResult(fmt.Sprintf("%s allocated (%s)", address.Address, address.Type))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().StringVar(&ipType, "type", fly.IPTypeSharedV4, "address type (v4, shared_v4, v6, private_v6)")
	cmd.Flags().StringVar(&region, "region", "", "region code (empty for global)")
	return cmd
}

func newIPsReleaseCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "release <address>",
		Short: "Release an address",
		Long:  "Release an address back to the platform. Releasing an address that is not allocated succeeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			app, err := rt.appName(appFlag)
			if err != nil {
				return err
			}
			if err := rt.ops.ReleaseIP(cmd.Context(), app, args[0]); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("%s released", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}
