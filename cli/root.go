/*
Package cli is the command-line client for the call tracker server.

PURPOSE:
  Every command is a thin wrapper over one server endpoint. The server
  owns the timer, so a call started from the CLI keeps running after the
  command exits and can be stopped from anywhere that reaches the server.

COMMANDS:
  start | stop | toggle      Call control
  status                     Today's clock, totals and goals
  watch                      Live readings until the call stops
  rate <v> | balance <v>     Timer settings
  reset                      Clear today's earnings
  goal add|list|rm           Savings goals
  nickname [name]            Show or claim a nickname
  sync                       Push today's totals
  adjust <total> [--note]    Override today's shared total
  stats | leaderboard        Period views (--period biweekly|monthly)

SEE ALSO:
  - client.go: HTTP client
  - ../api: Server endpoints
*/
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// App holds the state shared by all commands.
type App struct {
	Server string
	client *Client
}

// Client returns the API client for the configured server.
func (a *App) Client() *Client {
	if a.client == nil || a.client.BaseURL != a.Server {
		a.client = NewClient(a.Server)
	}
	return a.client
}

// NewRootCmd creates the top-level "calltracker" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "calltracker",
		Short:         "Track call time and earnings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("CALLTRACKER_SERVER")
	if server == "" {
		server = DefaultServer
	}
	root.PersistentFlags().StringVar(&app.Server, "server", server, "Tracker server URL (env CALLTRACKER_SERVER)")

	root.AddCommand(
		newCallCmd(app, "start", "Start a call"),
		newCallCmd(app, "stop", "Stop the call and commit its earnings"),
		newCallCmd(app, "toggle", "Start a call, or stop the running one"),
		newStatusCmd(app),
		newWatchCmd(app),
		newRateCmd(app),
		newBalanceCmd(app),
		newResetCmd(app),
		newGoalCmd(app),
		newNicknameCmd(app),
		newSyncCmd(app),
		newAdjustCmd(app),
		newStatsCmd(app),
		newLeaderboardCmd(app),
	)

	return root
}
