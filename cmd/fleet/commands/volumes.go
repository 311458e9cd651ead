package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfleet/openfleet/pkg/fly"
)

func newVolumesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "volumes",
		Aliases: []string{"volume"},
		Short:   "Manage volumes",
	}
	cmd.AddCommand(newVolumesListCommand())
	cmd.AddCommand(newVolumesGetCommand())
	cmd.AddCommand(newVolumesCreateCommand())
	cmd.AddCommand(newVolumesDeleteCommand())
	cmd.AddCommand(newVolumesExtendCommand())
	return cmd
}

func newVolumesListCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List volumes of an app",
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
			volumes, err := rt.ops.ListVolumes(cmd.Context(), app)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(volumes)
			}
			for _, v := range volumes {
				fmt.Printf("%s\t%s\t%s\t%dGB\t%s\n", v.ID, v.Name, v.Region, v.SizeGB, v.State)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newVolumesGetCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "get <volume-id>",
		Short: "Show one volume",
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
			volume, err := rt.ops.GetVolume(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			return printResult(volume)
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newVolumesCreateCommand() *cobra.Command {
	var (
		appFlag string
		region  string
		sizeGB  int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a volume",
		Long: `Create a volume. A volume lives in one region and is only
mountable by machines in that region.`,
		Args: cobra.ExactArgs(1),
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
			if region == "" {
				region = rt.cfg.Region
			}
			volume, err := rt.ops.CreateVolume(cmd.Context(), app, fly.VolumeCreateRequest{
				Name:   args[0],
				Region: region,
				SizeGB: sizeGB,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(volume)
			}
			return printResult(fmt.Sprintf("volume %s created in %s (%dGB)", volume.ID, volume.Region, volume.SizeGB))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().StringVar(&region, "region", "", "region code")
	cmd.Flags().IntVar(&sizeGB, "size", 1, "size in GB")
	return cmd
}

func newVolumesDeleteCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "delete <volume-id>",
		Short: "Delete a volume",
		Long: `Delete a volume. A volume still attached to a machine is a
conflict; deleting a volume that does not exist succeeds.`,
		Args: cobra.ExactArgs(1),
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
			if err := rt.ops.DeleteVolume(cmd.Context(), app, args[0]); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("volume %s deleted", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newVolumesExtendCommand() *cobra.Command {
	var (
		appFlag string
		sizeGB  int
	)

	cmd := &cobra.Command{
		Use:   "extend <volume-id>",
		Short: "Grow a volume",
		Long:  "Grow a volume to the given size. Volumes never shrink.",
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
			if err := rt.ops.ExtendVolume(cmd.Context(), app, args[0], sizeGB); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("volume %s extended to %dGB", args[0], sizeGB))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().IntVar(&sizeGB, "size", 0, "new size in GB")
	cmd.MarkFlagRequired("size")
	return cmd
}
