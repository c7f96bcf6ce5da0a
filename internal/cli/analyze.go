package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nifty-trader/internal/analysis/scoring"
	"nifty-trader/internal/broker"
	"nifty-trader/internal/models"
)

// addAnalyzeCommands adds analysis commands.
func addAnalyzeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newScreenCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [symbol]",
		Short: "Score the latest candles into a trade signal",
		Long: `Fetch recent candles, run the indicator engine over them and print
the resulting signal with its score breakdown.

Indicators include EMA crossover, RSI, MACD, SuperTrend, VWAP,
candlestick patterns, CPR and support/resistance levels.`,
		Example: `  nifty-trader analyze
  nifty-trader analyze "NIFTY 50" --interval 15min
  nifty-trader analyze --lookback 200`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			symbol := app.Config.Trading.Symbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}
			interval, _ := cmd.Flags().GetString("interval")
			if interval == "" {
				interval = app.Config.Trading.Interval
			}
			lookback, _ := cmd.Flags().GetInt("lookback")

			output.Info("Analyzing %s on %s candles...", symbol, interval)

			to := time.Now()
			from := to.Add(-time.Duration(lookback) * broker.IntervalDuration(interval))
			candles, err := app.Source.Fetch(ctx, symbol, interval, from, to)
			if err != nil {
				output.Error("Failed to fetch candles: %v", err)
				return err
			}

			outcome := app.Scorer.Evaluate(symbol, candles)
			if outcome.Kind == scoring.OutcomeInsufficientData {
				output.Warning("Insufficient data: got %d candles", len(candles))
				return fmt.Errorf("insufficient data")
			}

			signal := outcome.Signal
			if output.IsJSON() {
				return output.JSON(signal)
			}

			printSignal(output, signal)
			return nil
		},
	}

	cmd.Flags().String("interval", "", "candle interval (1min, 5min, 15min, 1day)")
	cmd.Flags().Int("lookback", 150, "number of candles to evaluate")

	return cmd
}

func newScreenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen [symbols...]",
		Short: "Score several symbols and rank them by signal strength",
		Example: `  nifty-trader screen
  nifty-trader screen "NIFTY 50" "NIFTY BANK" --interval 15min`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbols := args
			if len(symbols) == 0 {
				symbols = []string{"NIFTY 50", "NIFTY BANK"}
			}
			interval, _ := cmd.Flags().GetString("interval")
			if interval == "" {
				interval = app.Config.Trading.Interval
			}
			lookback, _ := cmd.Flags().GetInt("lookback")

			provider := func(ctx context.Context, symbol string) ([]models.Candle, error) {
				to := time.Now()
				from := to.Add(-time.Duration(lookback) * broker.IntervalDuration(interval))
				return app.Source.Fetch(ctx, symbol, interval, from, to)
			}

			screener := scoring.NewScreener(app.Scorer, provider, 4)
			results := screener.Scan(ctx, symbols)

			if output.IsJSON() {
				return output.JSON(results)
			}

			table := NewTable(output, "Symbol", "Signal", "Score", "Strength", "Price")
			for _, result := range results {
				switch {
				case result.Err != nil:
					table.AddRow(result.Symbol, output.Red("ERROR"), "-", "-", "-")
				case result.Skipped:
					table.AddRow(result.Symbol, output.DimText("SKIPPED"), "-", "-", "-")
				default:
					table.AddRow(
						result.Symbol,
						output.SignalText(string(result.Signal.Type)),
						fmt.Sprintf("%+.1f", result.Signal.Score),
						fmt.Sprintf("%.0f", result.Signal.Strength),
						FormatPrice(result.Signal.Price),
					)
				}
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("interval", "", "candle interval")
	cmd.Flags().Int("lookback", 150, "number of candles to evaluate")

	return cmd
}

func printSignal(output *Output, signal *models.Signal) {
	output.Println()
	output.Bold("%s  @ %s", signal.Symbol, FormatPrice(signal.Price))
	output.Printf("  Signal:      %s\n", output.SignalText(string(signal.Type)))
	output.Printf("  Score:       %+.1f\n", signal.Score)
	output.Printf("  Strength:    %s\n", FormatConfidence(signal.Strength))
	if signal.Type != models.SignalHold {
		output.Printf("  Stop Loss:   %s\n", FormatPrice(signal.StopLoss))
		output.Printf("  Target:      %s\n", FormatPrice(signal.Target))
		output.Printf("  Risk/Reward: %s\n", FormatRiskReward(signal.RiskReward))
	}
	output.Println()

	output.Bold("Indicators")
	snap := signal.Snapshot
	output.Printf("  EMA:         %.2f / %.2f\n", snap.EMAFast, snap.EMASlow)
	output.Printf("  RSI:         %.1f\n", snap.RSI)
	output.Printf("  MACD:        %.2f (signal %.2f, hist %.2f)\n", snap.MACD, snap.MACDSignal, snap.MACDHistogram)
	trend := "bearish"
	if snap.SuperTrendUp {
		trend = "bullish"
	}
	output.Printf("  SuperTrend:  %.2f (%s)\n", snap.SuperTrend, trend)
	output.Printf("  VWAP:        %.2f\n", snap.VWAP)
	output.Printf("  ATR:         %.2f\n", snap.ATR)
	output.Printf("  CPR:         P %.2f  BC %.2f  TC %.2f\n", snap.Pivots.Pivot, snap.Pivots.BottomC, snap.Pivots.TopC)
	if len(snap.SupportLevels) > 0 {
		output.Printf("  Support:     %s\n", formatLevels(snap.SupportLevels))
	}
	if len(snap.ResistanceLevels) > 0 {
		output.Printf("  Resistance:  %s\n", formatLevels(snap.ResistanceLevels))
	}
	output.Println()

	if len(signal.Reasons) > 0 {
		output.Bold("Reasons")
		for _, reason := range signal.Reasons {
			output.Printf("  - %s\n", reason)
		}
	}
}

func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.2f", l)
	}
	return strings.Join(parts, ", ")
}
