package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nifty-trader/internal/autotrader"
	"nifty-trader/internal/broker"
	"nifty-trader/internal/models"
	"nifty-trader/internal/stream"
)

// addTraderCommands adds the autonomous trading loop commands.
func addTraderCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trader",
		Short: "Autonomous trading loop",
		Long: `Run the automated trading loop.

The trader polls for fresh candles, scores them into signals and
executes admitted signals against the paper ledger, or against Zerodha
when running in live mode.`,
	}

	cmd.AddCommand(newTraderStartCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTraderStartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the trading loop (runs until interrupted)",
		Example: `  nifty-trader trader start
  nifty-trader trader start --mode live
  nifty-trader trader start --interval 15min --quantity 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Ledger == nil {
				return fmt.Errorf("ledger not available")
			}

			mode := models.TradingMode(app.Config.Trading.Mode)
			if flagMode, _ := cmd.Flags().GetString("mode"); flagMode != "" {
				switch flagMode {
				case "paper":
					mode = models.ModePaper
				case "live":
					mode = models.ModeLive
				default:
					return fmt.Errorf("invalid mode %q, want paper or live", flagMode)
				}
			}

			if mode == models.ModeLive {
				if app.Zerodha == nil || !app.Zerodha.IsAuthenticated() {
					output.Error("Live mode requires an authenticated Zerodha session. Run 'nifty-trader login' first.")
					return fmt.Errorf("not authenticated")
				}
			}

			interval := app.Config.Trading.Interval
			if flagInterval, _ := cmd.Flags().GetString("interval"); flagInterval != "" {
				interval = flagInterval
			}
			quantity := app.Config.Trading.Quantity
			if flagQty, _ := cmd.Flags().GetInt("quantity"); flagQty > 0 {
				quantity = flagQty
			}

			hub := stream.NewHub()
			hub.RegisterConsumer(stream.NewLedgerMonitor(app.Ledger, nil, app.Logger))

			trader := autotrader.New(autotrader.Options{
				Mode:            mode,
				Symbol:          app.Config.Trading.Symbol,
				Interval:        interval,
				Quantity:        quantity,
				PollInterval:    app.Config.Trader.PollInterval(),
				Cooldown:        app.Config.Trader.Cooldown(),
				StopTimeout:     app.Config.Trader.StopTimeout(),
				MaxDailyTrades:  app.Config.Trader.MaxDailyTrades,
				MinStrength:     app.Config.Trader.MinStrength,
				LookbackCandles: app.Config.Trader.LookbackCandles,
				Session:         app.Config.Trading.Session(),
			}, app.Source, app.Gateway, app.Scorer, app.Ledger, hub, app.Store, app.Notifier, app.Logger)

			trader.Subscribe(func(event autotrader.Event) {
				printTraderEvent(output, event)
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hub.Start(ctx)

			// Live mode streams ticks over the Kite websocket so open
			// trades react to prices between polls.
			if mode == models.ModeLive {
				ticker := broker.NewLiveTicker(broker.LiveTickerConfig{
					APIKey:      app.Zerodha.APIKey(),
					AccessToken: app.Zerodha.AccessToken(),
					Symbols:     []string{app.Config.Trading.Symbol},
					OnTick:      hub.Publish,
					OnError: func(err error) {
						output.Warning("Ticker: %v", err)
					},
				})
				if err := ticker.Connect(ctx); err != nil {
					output.Warning("Live ticker unavailable, falling back to polling: %v", err)
				} else {
					defer ticker.Close()
				}
			}

			if err := trader.Start(ctx); err != nil {
				output.Error("Failed to start trader: %v", err)
				return err
			}

			output.Success("Trader started in %s mode on %s (%s candles)", mode, app.Config.Trading.Symbol, interval)
			output.Dim("Press Ctrl+C to stop.")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			output.Println()
			output.Info("Stopping trader...")
			if err := trader.Stop(); err != nil {
				output.Warning("Stop returned: %v", err)
			}
			hub.Stop()

			status := trader.Status()
			printTraderSummary(output, status)

			if err := app.Notifier.SendDailySummary(context.Background(), &status.Stats); err != nil {
				output.Warning("Summary notification failed: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().String("mode", "", "trading mode (paper or live)")
	cmd.Flags().String("interval", "", "candle interval (1min, 5min, 15min)")
	cmd.Flags().Int("quantity", 0, "order quantity")

	return cmd
}

func printTraderEvent(output *Output, event autotrader.Event) {
	ts := event.Timestamp.Format("15:04:05")
	switch event.Type {
	case autotrader.EventSignal:
		if event.Signal != nil {
			output.Printf("[%s] %s %s (strength %.0f)\n", ts,
				output.SignalText(string(event.Signal.Type)),
				FormatPrice(event.Signal.Price), event.Signal.Strength)
		}
	case autotrader.EventTradeExecuted:
		if event.Trade != nil {
			output.Success("[%s] Opened %s %s x%d @ %s (stop %s, target %s)", ts,
				event.Trade.ID, event.Trade.Side, event.Trade.Quantity,
				FormatPrice(event.Trade.EntryPrice),
				FormatPrice(event.Trade.StopLoss),
				FormatPrice(event.Trade.Target))
		}
	case autotrader.EventTradeClosed:
		if event.Trade != nil && event.Trade.PnL != nil {
			output.Printf("[%s] Closed %s (%s): %s\n", ts,
				event.Trade.ID, event.Trade.Status, output.FormatPnL(*event.Trade.PnL))
		}
	case autotrader.EventError:
		output.Error("[%s] %s", ts, event.Message)
	default:
		output.Dim("[%s] %s", ts, event.Message)
	}
}

func printTraderSummary(output *Output, status autotrader.Status) {
	output.Println()
	output.Bold("Session Summary")
	output.Printf("  Trades Today:  %d\n", status.TradesToday)
	output.Printf("  Open Trades:   %d\n", len(status.OpenTrades))
	output.Printf("  Capital:       %s\n", FormatIndianCurrency(status.Stats.Capital))
	output.Printf("  Total P&L:     %s\n", output.FormatPnL(status.Stats.TotalPnL))
	if status.Stats.ClosedTrades > 0 {
		output.Printf("  Win Rate:      %.1f%%\n", status.Stats.WinRate)
	}
	if len(status.Errors) > 0 {
		output.Printf("  Errors:        %d (last: %s)\n", len(status.Errors), status.Errors[len(status.Errors)-1])
	}
}
