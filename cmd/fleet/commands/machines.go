package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfleet/openfleet/pkg/fly"
)

func newMachinesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machines",
		Aliases: []string{"machine"},
		Short:   "Manage machines",
	}
	cmd.AddCommand(newMachinesListCommand())
	cmd.AddCommand(newMachinesGetCommand())
	cmd.AddCommand(newMachinesCreateCommand())
	cmd.AddCommand(newMachinesUpdateCommand())
	cmd.AddCommand(newMachineActionCommand("start", "Start a stopped machine"))
	cmd.AddCommand(newMachineActionCommand("stop", "Stop a running machine"))
	cmd.AddCommand(newMachineActionCommand("restart", "Restart a machine"))
	cmd.AddCommand(newMachineActionCommand("suspend", "Snapshot and pause a machine"))
	cmd.AddCommand(newMachinesExecCommand())
	cmd.AddCommand(newMachinesDeleteCommand())
	return cmd
}

// loadMachineConfig reads a machine configuration from a YAML file.
// The YAML keys mirror the API's JSON field names, so the document is
// decoded through the JSON tags.
func loadMachineConfig(path string) (*fly.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read machine config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse machine config %s: %w", path, err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse machine config %s: %w", path, err)
	}
	var cfg fly.MachineConfig
	if err := json.Unmarshal(encoded, &cfg); err != nil {
		return nil, fmt.Errorf("parse machine config %s: %w", path, err)
	}
	return &cfg, nil
}

func newMachinesListCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List machines of an app",
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
			machines, err := rt.ops.ListMachines(cmd.Context(), app)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(machines)
			}
			for _, m := range machines {
				fmt.Printf("%s\t%s\t%s\t%s\n", m.ID, m.Name, m.State, m.Region)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newMachinesGetCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "get <machine-id>",
		Short: "Show one machine",
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
			machine, err := rt.ops.GetMachine(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			return printResult(machine)
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newMachinesCreateCommand() *cobra.Command {
	var (
		appFlag    string
		image      string
		region     string
		configFile string
		skipLaunch bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a machine and wait for it to converge",
		Long: `Create a machine and wait until it reaches its target state:
started normally, stopped when --skip-launch is set.

The configuration comes from --file (YAML) or, for simple cases, from
--image alone. Creating a machine whose name already exists reuses the
existing machine.`,
		Example: `  # A machine from an image
  fleet machines create worker-1 --app my-app --image registry.fly.io/my-app:v3

  # A machine from a full config file, created but not launched
  fleet machines create worker-1 --app my-app --file machine.yaml --skip-launch`,
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

			var machineConfig fly.MachineConfig
			if configFile != "" {
				loaded, err := loadMachineConfig(configFile)
				if err != nil {
					return err
				}
				machineConfig = *loaded
			}
			if image != "" {
				machineConfig.Image = image
			}
			if machineConfig.Image == "" {
				machineConfig.Image = rt.cfg.Image
			}
			if region == "" {
				region = rt.cfg.Region
			}

			machine, err := rt.ops.CreateMachine(cmd.Context(), app, fly.CreateMachineRequest{
				Name:       args[0],
				Config:     machineConfig,
				Region:     region,
				SkipLaunch: skipLaunch,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(machine)
			}
			return printResult(fmt.Sprintf("machine %s is %s", machine.ID, machine.State))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().StringVar(&image, "image", "", "container image")
	cmd.Flags().StringVar(&region, "region", "", "region code")
	cmd.Flags().StringVarP(&configFile, "file", "f", "", "machine config YAML file")
	cmd.Flags().BoolVar(&skipLaunch, "skip-launch", false, "create the machine without starting it")
	return cmd
}

func newMachinesUpdateCommand() *cobra.Command {
	var (
		appFlag    string
		region     string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "update <machine-id>",
		Short: "Replace a machine's configuration",
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
			machineConfig, err := loadMachineConfig(configFile)
			if err != nil {
				return err
			}
			if err := rt.ops.UpdateMachine(cmd.Context(), app, args[0], *machineConfig, region); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("machine %s updated", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().StringVar(&region, "region", "", "region code")
	cmd.Flags().StringVarP(&configFile, "file", "f", "", "machine config YAML file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newMachineActionCommand(action, short string) *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   action + " <machine-id>",
		Short: short,
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
			switch action {
			case "start":
				err = rt.ops.StartMachine(cmd.Context(), app, args[0])
			case "stop":
				err = rt.ops.StopMachine(cmd.Context(), app, args[0])
			case "restart":
				err = rt.ops.RestartMachine(cmd.Context(), app, args[0])
			case "suspend":
				err = rt.ops.SuspendMachine(cmd.Context(), app, args[0])
			}
			if err != nil {
				return err
			}
			return printResult(fmt.Sprintf("machine %s: %s requested", args[0], action))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newMachinesExecCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "exec <machine-id> -- <command...>",
		Short: "Run a command inside a machine",
		Args:  cobra.MinimumNArgs(2),
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
			result, err := rt.ops.ExecMachine(cmd.Context(), app, args[0], args[1:])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(result)
			}
			if result.Stdout != "" {
				fmt.Print(result.Stdout)
			}
			if result.Stderr != "" {
				fmt.Fprint(os.Stderr, result.Stderr)
			}
			if result.ExitCode != nil && *result.ExitCode != 0 {
				return fmt.Errorf("command exited with code %d", *result.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newMachinesDeleteCommand() *cobra.Command {
	var (
		appFlag string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <machine-id>",
		Short: "Destroy a machine",
		Long: `Destroy a machine.

Without --force the command waits until the platform reports the
machine gone, so the name can be reused immediately afterwards.
Deleting a machine that does not exist succeeds.`,
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
			if err := rt.ops.DeleteMachine(cmd.Context(), app, args[0], force); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("machine %s deleted", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().BoolVar(&force, "force", false, "destroy even while running, without waiting")
	return cmd
}
