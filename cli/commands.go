package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/calltracker/api"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/timer"
)

// =============================================================================
// CALL CONTROL
// =============================================================================

func newCallCmd(app *App, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Client().Call(cmd.Context(), action)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case resp.Session != nil:
				fmt.Fprintf(out, "Call ended after %s, earned %s. Today: %s\n",
					clockOf(resp.Session.ElapsedSeconds), money(resp.Session.Earnings), money(resp.Today.TotalToday))
			case resp.Changed:
				fmt.Fprintf(out, "Call started at %s\n", localTime(resp.Today.CallStart))
			case action == "start":
				fmt.Fprintf(out, "A call is already running (%s)\n", clockOf(resp.Today.ElapsedSeconds))
			default:
				fmt.Fprintln(out, "No call running")
			}
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's totals and goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := app.Client().Today(cmd.Context())
			if err != nil {
				return err
			}
			printToday(cmd.OutOrStdout(), today)
			return nil
		},
	}
}

func printToday(out io.Writer, t api.TodayDTO) {
	phase := "idle"
	if t.Phase == string(timer.PhaseInCall) {
		phase = fmt.Sprintf("in call since %s (%s, %s)", localTime(t.CallStart), clockOf(t.ElapsedSeconds), money(t.SessionEarnings))
	}
	fmt.Fprintf(out, "Date:      %s\n", t.Date)
	fmt.Fprintf(out, "Phase:     %s\n", phase)
	fmt.Fprintf(out, "Today:     %s (%s on calls)\n", money(t.TotalToday), t.Clock)
	fmt.Fprintf(out, "Rate:      %s/min\n", money(t.RatePerMinute))
	fmt.Fprintf(out, "Balance:   %s\n", money(t.InitialBalance))

	nick := t.Nickname
	if nick == "" {
		nick = "(not set)"
	}
	fmt.Fprintf(out, "Nickname:  %s\n", nick)
	if t.SyncStatus != "" || t.LastSyncTime != "" {
		status := t.SyncStatus
		if t.SyncError != "" {
			status += ": " + t.SyncError
		}
		if t.LastSyncTime != "" {
			status = strings.TrimSpace(status + " (last sync " + localTime(t.LastSyncTime) + ")")
		}
		fmt.Fprintf(out, "Sync:      %s\n", status)
	}
	if len(t.Goals) > 0 {
		fmt.Fprintln(out, "Goals:")
		printGoals(out, t.Goals)
	}
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the running call live until it stops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return app.Client().Stream(cmd.Context(), func(event string, r api.ReadingDTO) {
				if event == "end" {
					fmt.Fprintf(out, "\nNo call running. Today: %s (%s)\n", money(r.TotalToday), r.Clock)
					return
				}
				fmt.Fprintf(out, "\r%s  call %s  today %s", clockOf(r.ElapsedSeconds), moneyFine(r.SessionEarnings), moneyFine(r.TotalToday))
			})
		},
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func newRateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rate <per-minute>",
		Short:   "Set the per-minute rate",
		Example: `  calltracker rate 0.11`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := timer.ParseRate(args[0])
			if err != nil {
				return err
			}
			today, err := app.Client().UpdateSettings(cmd.Context(), api.UpdateSettingsRequest{RatePerMinute: &rate})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate set to %s/min\n", money(today.RatePerMinute))
			return nil
		},
	}
}

func newBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <amount>",
		Short: "Set the amount today starts from",
		Example: `  calltracker balance 12.50
  calltracker balance -- -1   # values starting with "-" go after --`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := timer.ParseBalance(args[0])
			if err != nil {
				return err
			}
			today, err := app.Client().UpdateSettings(cmd.Context(), api.UpdateSettingsRequest{InitialBalance: &balance})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initial balance set to %s. Today: %s\n", money(today.InitialBalance), money(today.TotalToday))
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear today's earnings and initial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset clears today's earnings and abandons a running call; rerun with --yes")
			}
			if _, err := app.Client().Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Today's earnings cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}

// =============================================================================
// GOALS
// =============================================================================

func newGoalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings goals",
	}

	add := &cobra.Command{
		Use:   "add <name> <cost>",
		Short: "Add a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, err := timer.ParseCost(args[1])
			if err != nil {
				return err
			}
			goal, err := app.Client().AddGoal(cmd.Context(), api.CreateGoalRequest{Name: args[0], Cost: cost})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s) as %s\n", goal.Name, money(goal.Cost), goal.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List goals with their funding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			goals, err := app.Client().Goals(cmd.Context())
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals")
				return nil
			}
			printGoals(cmd.OutOrStdout(), goals)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Client().DeleteGoal(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Goal removed")
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func printGoals(out io.Writer, goals []api.GoalProgressDTO) {
	for _, g := range goals {
		mark := " "
		if g.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %s %5.1f%%  %s  %s / %s  (%s)\n",
			mark, bar(g.Percent, 10), g.Percent, g.Name, money(g.Funded), money(g.Cost), g.ID)
	}
}

// =============================================================================
// SHARED RECORDS
// =============================================================================

func newNicknameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "nickname [name]",
		Short: "Show or set your leaderboard nickname",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				nick, err := app.Client().Nickname(cmd.Context())
				if err != nil {
					return err
				}
				if nick == "" {
					fmt.Fprintln(out, "No nickname set")
					return nil
				}
				fmt.Fprintln(out, nick)
				return nil
			}
			nick, err := app.Client().SetNickname(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Nickname is now %s\n", nick)
			return nil
		},
	}
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push today's totals to the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Client().Sync(cmd.Context())
			if err != nil {
				return err
			}
			printSync(cmd.OutOrStdout(), "Synced", resp)
			return nil
		},
	}
}

func newAdjustCmd(app *App) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "adjust <corrected-total>",
		Short: "Correct today's shared total",
		Example: `  calltracker adjust 20 --note "missed call"
  calltracker adjust -- -5    # values starting with "-" go after --`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil {
				return &generic.ValidationError{Field: "corrected total", Value: args[0], Reason: "must be a number"}
			}
			resp, err := app.Client().Adjust(cmd.Context(), api.AdjustmentRequest{CorrectedTotal: total, Note: note})
			if err != nil {
				return err
			}
			printSync(cmd.OutOrStdout(), "Adjusted", resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Reason for the correction")
	return cmd
}

func printSync(out io.Writer, verb string, resp api.SyncResponse) {
	if !resp.Synced || resp.Record == nil {
		fmt.Fprintln(out, "Not signed in yet; nothing was written")
		return
	}
	r := resp.Record
	fmt.Fprintf(out, "%s %s for %s: %s", verb, r.Date, r.Nickname, money(r.TotalEarnings))
	if r.AdjustmentAmount != 0 {
		fmt.Fprintf(out, " (auto %s, adjustment %+.2f)", money(r.AutoEarnings), r.AdjustmentAmount)
	}
	fmt.Fprintln(out)
}

// =============================================================================
// PERIOD VIEWS
// =============================================================================

func newStatsCmd(app *App) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Your totals for the current pay period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Client().Stats(cmd.Context(), period)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %s period %s to %s\n", s.Nickname, s.Period.Type, s.Period.Start, s.Period.End)
			fmt.Fprintf(out, "Total:   %s over %.0f min\n", money(s.TotalEarnings), s.TotalMinutes)
			fmt.Fprintf(out, "Active:  %d of %d days (%.0f%%)\n", s.DaysWithData, s.DaysInPeriod, s.ActivePercent)
			fmt.Fprintf(out, "Average: %s and %.0f min per active day\n", money(s.AvgEarnings), s.AvgMinutes)
			for _, d := range s.Daily {
				fmt.Fprintf(out, "  %s %s %s\n", d.Day, bar(d.Earnings/s.DailyMax*100, 20), money(d.Earnings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "biweekly", "biweekly or monthly")
	return cmd
}

func newLeaderboardCmd(app *App) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Team ranking for the current pay period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lb, err := app.Client().Leaderboard(cmd.Context(), period)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s period %s to %s\n", lb.Period.Type, lb.Period.Start, lb.Period.End)
			if len(lb.Standings) == 0 {
				fmt.Fprintln(out, "No records yet")
			}
			for _, s := range lb.Standings {
				name := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(s.Nickname)
				if s.IsYou {
					name += " (you)"
				}
				diff := ""
				if s.Position > 1 {
					diff = fmt.Sprintf("  %+.2f", s.DiffToPrevious)
				}
				fmt.Fprintf(out, "%2d. %s %s  %s%s\n", s.Position, bar(s.Share, 20), money(s.Total), name, diff)
			}
			if len(lb.Adjustments) > 0 {
				fmt.Fprintln(out, "Recent adjustments:")
				for _, a := range lb.Adjustments {
					fmt.Fprintf(out, "  %s %s %+.2f %s\n", a.Date, a.Nickname, a.AdjustmentAmount, a.AdjustmentNote)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "biweekly", "biweekly or monthly")
	return cmd
}

// =============================================================================
// FORMATTING
// =============================================================================

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// moneyFine shows sub-cent growth during a live call.
func moneyFine(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(4)
}

func clockOf(seconds float64) string {
	return timer.FormatClock(decimal.NewFromFloat(seconds))
}

func localTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339Nano, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Local().Format("15:04:05")
}

// bar renders percent (clamped to 0..100) as a fixed-width bar.
func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}
