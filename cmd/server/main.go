// @title           OOTD API
// @version         1.0.0
// @description     Backend for the OOTD outfit app: outfit posts with live votes, a swipe deck, a leaderboard, the shop catalog and virtual try-on jobs.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ootd",
		Short: "OOTD backend",
		Long: `OOTD serves the outfit feed, swipe deck, leaderboard, shop catalog and
virtual try-on flow to the web client.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTryOnCmd())

	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
