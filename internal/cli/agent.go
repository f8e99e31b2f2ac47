package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/veerhq/veer/internal/agent"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Start the local system agent",
	Long: `Start the local HTTP system agent. It maps requests from the web app to OS commands
(power actions, app launch, media keys, telemetry, process management).
Bind it to localhost and set agent.token unless you know what you are doing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return agent.Run(ctx, cfg, Version)
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
