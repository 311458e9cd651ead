package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfleet/openfleet/pkg/fleet"
)

func newSecretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "secrets",
		Aliases: []string{"secret"},
		Short:   "Manage app secrets",
		Long: `Manage app secrets. Values are write-only: the platform exposes
key names and value digests, never values. Values are read from stdin
or from a file, never from the command line, so they cannot land in
shell history or process listings.`,
	}
	cmd.AddCommand(newSecretsListCommand())
	cmd.AddCommand(newSecretsSetCommand())
	cmd.AddCommand(newSecretsUnsetCommand())
	cmd.AddCommand(newSecretsSyncCommand())
	return cmd
}

func newSecretsListCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List secret key names and digests",
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
			secrets, err := rt.ops.ListSecrets(cmd.Context(), app)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(secrets)
			}
			for _, s := range secrets {
				fmt.Printf("%s\t%s\n", s.Name, s.Digest)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newSecretsSetCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Set one secret from stdin",
		Example: `  # From a prompt or pipe; a single trailing newline is stripped
  printf '%s' "$DB_PASSWORD" | fleet secrets set DATABASE_PASSWORD --app my-app`,
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

			value, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read secret value from stdin: %w", err)
			}
			value = []byte(strings.TrimSuffix(string(value), "\n"))
			if len(value) == 0 {
				return fmt.Errorf("secret value must not be empty")
			}

			desired := fleet.NewDesiredSecretSet()
			desired.Set(args[0], value)

			result, err := rt.ops.UpsertSecrets(cmd.Context(), app, desired)
			if err != nil {
				return err
			}
			if !result.Ok() {
				return result.Failed[0].Err
			}
			return printResult(fmt.Sprintf("secret %s set", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newSecretsUnsetCommand() *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove one secret",
		Long:  "Remove one secret key. Removing a key the app does not hold succeeds.",
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
			if err := rt.ops.DeleteSecret(cmd.Context(), app, args[0]); err != nil {
				return err
			}
			return printResult(fmt.Sprintf("secret %s removed", args[0]))
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	return cmd
}

func newSecretsSyncCommand() *cobra.Command {
	var (
		appFlag string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the app's secrets equal an env file",
		Long: `Reconcile the app's secret keys against a KEY=VALUE env file.

Keys the app holds that are absent from the file are removed first,
then every key in the file is set. A key that fails is reported and
the remaining keys still proceed; rerun the command to retry.`,
		Example: `  fleet secrets sync --app my-app --file production.env`,
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
			desired, err := loadEnvFile(envFile)
			if err != nil {
				return err
			}

			result, err := rt.ops.Reconcile(cmd.Context(), app, desired)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := printResult(result); err != nil {
					return err
				}
			} else {
				fmt.Printf("set: %d, removed: %d, failed: %d\n",
					len(result.Set), len(result.Removed), len(result.Failed))
				for _, failure := range result.Failed {
					fmt.Printf("failed to %s %s: %v\n", failure.Action, failure.Name, failure.Err)
				}
			}
			if !result.Ok() {
				return fmt.Errorf("%d secret keys failed", len(result.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "app name")
	cmd.Flags().StringVarP(&envFile, "file", "f", "", "KEY=VALUE env file")
	cmd.MarkFlagRequired("file")
	return cmd
}

// loadEnvFile parses a KEY=VALUE file into a desired secret set. Blank
// lines and # comments are skipped; a key with an empty value is an
// error.
func loadEnvFile(path string) (*fleet.DesiredSecretSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer file.Close()

	desired := fleet.NewDesiredSecretSet()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%s:%d: expected KEY=VALUE", path, lineNo)
		}
		if value == "" {
			return nil, fmt.Errorf("%s:%d: empty value for %s", path, lineNo, key)
		}
		desired.Set(key, []byte(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return desired, nil
}
