package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"signalbacktest/api"
	"signalbacktest/internal/app"
	"signalbacktest/internal/domain"
	"signalbacktest/internal/logger"
	l2_service "signalbacktest/internal/service/l2"
	"signalbacktest/internal/report"
	"signalbacktest/internal/util"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.New().Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "signalbacktest",
		Short:         "backtest long-only strategies over daily price series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "yaml run config; flags override its values")
	rootCmd.PersistentFlags().String("prices", "prices.csv", "price universe csv (date,symbol,open,high,low,close,volume)")
	rootCmd.PersistentFlags().String("start", "", "window start, 2006-01-02")
	rootCmd.PersistentFlags().String("end", "", "window end, 2006-01-02")
	rootCmd.PersistentFlags().Float64("capital", 1_000_000, "initial capital")
	rootCmd.PersistentFlags().Int64("fee-bps", 0, "proportional fee in bps, both sides")
	rootCmd.PersistentFlags().Int64("stamp-bps", 0, "sell-side transaction tax in bps")
	rootCmd.PersistentFlags().String("html", "", "also write an html report to this path")

	rootCmd.AddCommand(newRunCmd(), newRotateCmd(), newServeCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "signal-event backtest (moving-average crossover or oscillator)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindConfig(cmd)
			if err != nil {
				return err
			}
			cfg, err := runConfigFromViper(v)
			if err != nil {
				return err
			}
			cfg.Lot = v.GetInt64("lot")

			strategy := app.SignalStrategy{}
			if v.IsSet("oscillator-lookback") && v.GetInt("oscillator-lookback") > 0 {
				strategy.Oscillator = &app.OscillatorParams{
					Lookback:   v.GetInt("oscillator-lookback"),
					Oversold:   v.GetFloat64("oversold"),
					Overbought: v.GetFloat64("overbought"),
				}
			} else {
				strategy.Crossover = &app.CrossoverParams{
					FastWindow: v.GetInt("fast"),
					SlowWindow: v.GetInt("slow"),
				}
			}

			handler, err := app.InitializeDependencies(v.GetString("prices"))
			if err != nil {
				return err
			}

			result, err := handler.RunSignalBacktest(runContext(), app.SignalBacktestInput{
				Config:   cfg,
				Strategy: strategy,
			})
			if err != nil {
				return err
			}
			return emit(cmd, v, result)
		},
	}
	cmd.Flags().Int64("lot", 100, "minimum tradable unit")
	cmd.Flags().String("timing", string(domain.ExecutionTiming_SameDay), "same-day or next-available")
	cmd.Flags().Int("fast", 10, "fast sma window")
	cmd.Flags().Int("slow", 30, "slow sma window")
	cmd.Flags().Int("oscillator-lookback", 0, "use the oscillator strategy with this lookback instead of the crossover")
	cmd.Flags().Float64("oversold", -10, "oscillator oversold bound")
	cmd.Flags().Float64("overbought", 10, "oscillator overbought bound")
	return cmd
}

func newRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "periodic rotation backtest driven by a pick expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindConfig(cmd)
			if err != nil {
				return err
			}
			cfg, err := runConfigFromViper(v)
			if err != nil {
				return err
			}

			handler, err := app.InitializeDependencies(v.GetString("prices"))
			if err != nil {
				return err
			}

			result, err := handler.RunRotationBacktest(runContext(), app.RotationBacktestInput{
				Config:     cfg,
				Expression: v.GetString("expression"),
				TopN:       v.GetInt("top-n"),
				Period:     l2_service.PeriodUnit(v.GetString("period")),
			})
			if err != nil {
				return err
			}
			return emit(cmd, v, result)
		},
	}
	cmd.Flags().String("expression", "pricePercentChange(nMonthsAgo(6), currentDate)", "pick-scoring expression")
	cmd.Flags().Int("top-n", 5, "picks per period")
	cmd.Flags().String("period", string(l2_service.PeriodUnit_Monthly), "monthly or weekly")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the backtest http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindConfig(cmd)
			if err != nil {
				return err
			}
			handler, err := app.InitializeDependencies(v.GetString("prices"))
			if err != nil {
				return err
			}
			apiHandler := api.ApiHandler{BacktestHandler: *handler}
			return apiHandler.StartApi(v.GetInt("port"))
		},
	}
	cmd.Flags().Int("port", 3009, "listen port")
	return cmd
}

// bindConfig layers the optional yaml config file under the command's flags.
func bindConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, err
	}
	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

func runConfigFromViper(v *viper.Viper) (domain.RunConfig, error) {
	start, err := util.ParseDay(v.GetString("start"))
	if err != nil {
		return domain.RunConfig{}, err
	}
	end, err := util.ParseDay(v.GetString("end"))
	if err != nil {
		return domain.RunConfig{}, err
	}
	timing := domain.ExecutionTiming_SameDay
	if t := v.GetString("timing"); t != "" {
		timing = domain.ExecutionTiming(t)
	}
	return domain.RunConfig{
		Start:          start,
		End:            end,
		InitialCapital: decimal.NewFromFloat(v.GetFloat64("capital")),
		Timing:         timing,
		FeeBps:         v.GetInt64("fee-bps"),
		StampBps:       v.GetInt64("stamp-bps"),
	}, nil
}

func runContext() context.Context {
	profile, _ := domain.NewProfile()
	ctx := context.WithValue(context.Background(), domain.ContextProfileKey, profile)
	return context.WithValue(ctx, logger.ContextKey, logger.New())
}

func emit(cmd *cobra.Command, v *viper.Viper, result *app.BacktestResult) error {
	bytes, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bytes))

	if htmlPath := v.GetString("html"); htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := report.RenderHTML(f, result); err != nil {
			return err
		}
	}
	return nil
}
