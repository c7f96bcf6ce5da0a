package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nifty-trader/internal/models"
)

// addPaperCommands adds paper trading ledger commands.
func addPaperCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Paper trading ledger",
		Long:  "Inspect and manage the simulated trading ledger.",
	}

	cmd.AddCommand(newPaperStatsCmd(app))
	cmd.AddCommand(newPaperOpenCmd(app))
	cmd.AddCommand(newPaperHistoryCmd(app))
	cmd.AddCommand(newPaperCloseCmd(app))
	cmd.AddCommand(newPaperResetCmd(app))

	rootCmd.AddCommand(cmd)
}

func newPaperStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger performance statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			stats := app.Ledger.Stats()
			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Bold("Paper Trading Statistics")
			output.Printf("  Capital:         %s\n", FormatIndianCurrency(stats.Capital))
			output.Printf("  Initial Capital: %s\n", FormatIndianCurrency(stats.InitialCapital))
			output.Printf("  Total P&L:       %s\n", output.FormatPnL(stats.TotalPnL))
			output.Printf("  Return:          %s\n", output.FormatPercentColored(stats.ReturnPercent))
			output.Println()
			output.Printf("  Total Trades:    %d (%d open, %d closed)\n", stats.TotalTrades, stats.OpenTrades, stats.ClosedTrades)
			output.Printf("  Wins / Losses:   %d / %d\n", stats.Wins, stats.Losses)
			output.Printf("  Win Rate:        %.1f%%\n", stats.WinRate)
			output.Printf("  Targets Hit:     %d\n", stats.TargetsHit)
			output.Printf("  Stopped Out:     %d\n", stats.StoppedOut)
			if stats.Wins > 0 {
				output.Printf("  Avg Win:         %s\n", FormatIndianCurrency(stats.AvgWin))
			}
			if stats.Losses > 0 {
				output.Printf("  Avg Loss:        %s\n", FormatIndianCurrency(stats.AvgLoss))
			}
			return nil
		},
	}
}

func newPaperOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "List open paper trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			trades := app.Ledger.OpenTrades()
			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No open trades")
				return nil
			}

			printTradeTable(output, trades)
			return nil
		},
	}
}

func newPaperHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent trade history",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			trades := app.Ledger.History(limit)
			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades recorded yet")
				return nil
			}

			printTradeTable(output, trades)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum trades to show")
	return cmd
}

func newPaperCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <trade-id> <price>",
		Short: "Manually close an open trade at a price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", args[1], err)
			}

			trade, err := app.Ledger.CloseTrade(args[0], price)
			if err != nil {
				output.Error("Close failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Success("Closed %s at %s", trade.ID, FormatPrice(price))
			if trade.PnL != nil {
				output.Printf("  P&L: %s\n", output.FormatPnL(*trade.PnL))
			}
			return nil
		},
	}
}

func newPaperResetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the ledger to its initial capital",
		Long:  "Discard all trades and restore the initial capital. This cannot be undone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				output.Warning("This discards all paper trades. Re-run with --yes to confirm.")
				return nil
			}

			app.Ledger.Reset()
			output.Success("Ledger reset to %s", FormatIndianCurrency(app.Config.Trading.InitialCapital))
			return nil
		},
	}

	cmd.Flags().Bool("yes", false, "skip confirmation")
	return cmd
}

func printTradeTable(output *Output, trades []models.PaperTrade) {
	table := NewTable(output, "ID", "Side", "Qty", "Entry", "Stop", "Target", "Exit", "P&L", "Status")
	for _, t := range trades {
		exit := "-"
		if t.ExitPrice != nil {
			exit = FormatPrice(*t.ExitPrice)
		}
		pnl := "-"
		if t.PnL != nil {
			pnl = output.FormatPnL(*t.PnL)
		}
		table.AddRow(
			t.ID,
			string(t.Side),
			strconv.Itoa(t.Quantity),
			FormatPrice(t.EntryPrice),
			FormatPrice(t.StopLoss),
			FormatPrice(t.Target),
			exit,
			pnl,
			tradeStatusText(output, t.Status),
		)
	}
	table.Render()
}

func tradeStatusText(output *Output, status models.TradeStatus) string {
	switch status {
	case models.TradeOpen:
		return output.Cyan("OPEN")
	case models.TradeTargetHit:
		return output.Green("TARGET")
	case models.TradeStoppedOut:
		return output.Red("STOPPED")
	default:
		return string(status)
	}
}
