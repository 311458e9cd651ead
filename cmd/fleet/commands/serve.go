package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfleet/openfleet/pkg/webhook"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the secret intake webhook",
		Long: `Run the secret intake webhook.

The endpoint accepts POST /v1/secret with {"app_name", "name",
"value"} and sets exactly that key on the app. It never removes other
keys and never logs or echoes values. Bind it to a private address;
the listener itself does no authentication.`,
		Example: `  fleet serve --addr 127.0.0.1:8787`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if addr == "" {
				addr = rt.cfg.Webhook.Addr
			}
			server := webhook.NewServer(rt.ops, rt.logger, rt.metrics)
			return server.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to webhook.addr from config)")
	return cmd
}
