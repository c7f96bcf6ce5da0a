package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nifty-trader/internal/broker"
	"nifty-trader/internal/store"
)

// addDataCommands adds market data commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Market data management",
		Long:  "Fetch, cache and inspect candle data and trader events.",
	}

	cmd.AddCommand(newDataFetchCmd(app))
	cmd.AddCommand(newDataShowCmd(app))
	cmd.AddCommand(newDataEventsCmd(app))

	rootCmd.AddCommand(cmd)
}

func newDataFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [symbol]",
		Short: "Fetch candles and cache them in the local store",
		Example: `  nifty-trader data fetch
  nifty-trader data fetch "NIFTY 50" --interval 15min --days 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			symbol := app.Config.Trading.Symbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}
			interval, _ := cmd.Flags().GetString("interval")
			days, _ := cmd.Flags().GetInt("days")

			to := time.Now()
			from := to.AddDate(0, 0, -days)

			output.Info("Fetching %s %s candles for the last %d days...", symbol, interval, days)

			candles, err := app.Source.Fetch(ctx, symbol, interval, from, to)
			if err != nil {
				output.Error("Fetch failed: %v", err)
				return err
			}
			if len(candles) == 0 {
				output.Warning("No candles returned for %s", symbol)
				return nil
			}

			if err := app.Store.SaveCandles(ctx, symbol, interval, candles); err != nil {
				output.Error("Failed to cache candles: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":   symbol,
					"interval": interval,
					"count":    len(candles),
					"from":     candles[0].Timestamp,
					"to":       candles[len(candles)-1].Timestamp,
				})
			}

			output.Success("Cached %d candles (%s to %s)", len(candles),
				FormatDate(candles[0].Timestamp), FormatDate(candles[len(candles)-1].Timestamp))
			return nil
		},
	}

	cmd.Flags().String("interval", broker.Interval5Min, "candle interval (1min, 5min, 15min, 1day)")
	cmd.Flags().Int("days", 5, "days of history to fetch")

	return cmd
}

func newDataShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [symbol]",
		Short: "Show cached candles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			symbol := app.Config.Trading.Symbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}
			interval, _ := cmd.Flags().GetString("interval")
			limit, _ := cmd.Flags().GetInt("limit")

			to := time.Now()
			from := to.AddDate(0, 0, -30)
			candles, err := app.Store.GetCandles(ctx, symbol, interval, from, to)
			if err != nil {
				output.Error("Query failed: %v", err)
				return err
			}

			if len(candles) == 0 {
				output.Info("No cached candles for %s %s. Run 'nifty-trader data fetch' first.", symbol, interval)
				return nil
			}

			if len(candles) > limit {
				candles = candles[len(candles)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(candles)
			}

			freshness, err := app.Store.GetCandlesFreshness(ctx, symbol, interval)
			if err == nil && !freshness.IsZero() {
				output.Dim("Last updated: %s", FormatDateTime(freshness))
			}

			table := NewTable(output, "Time", "Open", "High", "Low", "Close", "Volume")
			for _, c := range candles {
				table.AddRow(
					c.Timestamp.Format("02 Jan 15:04"),
					fmt.Sprintf("%.2f", c.Open),
					fmt.Sprintf("%.2f", c.High),
					fmt.Sprintf("%.2f", c.Low),
					fmt.Sprintf("%.2f", c.Close),
					FormatVolume(c.Volume),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("interval", broker.Interval5Min, "candle interval")
	cmd.Flags().Int("limit", 20, "maximum candles to show")

	return cmd
}

func newDataEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the trader event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			kind, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")

			events, err := app.Store.GetEvents(ctx, store.EventFilter{
				Kind:  kind,
				Limit: limit,
			})
			if err != nil {
				output.Error("Query failed: %v", err)
				return err
			}

			if len(events) == 0 {
				output.Info("No trader events recorded")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(events)
			}

			for _, event := range events {
				output.Printf("%s  %-15s %s\n",
					event.Timestamp.Format("02 Jan 15:04:05"),
					event.Kind,
					event.Message)
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "filter by event kind")
	cmd.Flags().Int("limit", 50, "maximum events to show")

	return cmd
}
