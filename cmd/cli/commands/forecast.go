package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/signalkit/signalkit/internal/signal"
	"github.com/signalkit/signalkit/pkg/models"
)

type ForecastOptions struct {
	Input      string
	TimeLayout string
	Cutoff     string
	Models     []string
	Search     bool
	Aggregated bool
	Folds      int
	Horizon    int
}

func NewForecastCmd() *cobra.Command {
	opts := &ForecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Split a series, apply forecasting models and report scores",
		Example: `  # Hold out the last year of the example series and score two models
  signalkit forecast --cutoff last:12 --models naive,es

  # Grid-search ARIMA orders and forecast two years ahead
  signalkit forecast --cutoff last:12 --models arima --search --horizon 24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "airpassengers", "CSV file, influx:<flux query>, or 'airpassengers'")
	cmd.Flags().StringVar(&opts.TimeLayout, "time-layout", "2006-01-02", "Timestamp layout for CSV input and --cutoff")
	cmd.Flags().StringVar(&opts.Cutoff, "cutoff", "last:12", "Train/test cutoff: a date or last:N")
	cmd.Flags().StringSliceVarP(&opts.Models, "models", "m", []string{"naive", "es"}, "Models to apply")
	cmd.Flags().BoolVar(&opts.Search, "search", false, "Grid-search tunable models before fitting")
	cmd.Flags().BoolVar(&opts.Aggregated, "aggregated", false, "Also apply the averaging ensemble")
	cmd.Flags().IntVar(&opts.Folds, "folds", 0, "Also compute N rolling cross-validation folds")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 0, "Also forecast N steps past the observed range")

	return cmd
}

func runForecast(opts *ForecastOptions) error {
	logger := newLogger()
	ctx := context.Background()

	ds, err := loadDataset(opts.Input, opts.TimeLayout, logger)
	if err != nil {
		return err
	}

	var a *signal.Analysis
	if ds.IsUnivariate() {
		a, err = signal.NewAnalysis(ds, logger)
	} else {
		var ma *signal.MultivariateAnalysis
		ma, err = signal.NewMultivariateAnalysis(ds, logger)
		if ma != nil {
			a = ma.Analysis
		}
	}
	if err != nil {
		return err
	}

	cutoff, err := parseCutoff(ds, opts.Cutoff, opts.TimeLayout)
	if err != nil {
		return err
	}

	var splitOpts []signal.SplitOption
	if opts.Folds > 0 {
		splitOpts = append(splitOpts, signal.WithFolds(opts.Folds))
	}
	split, err := a.Split(cutoff, splitOpts...)
	if err != nil {
		return err
	}
	fmt.Printf("Split: %d training rows, %d test rows\n", split.Train.Len(), split.Test.Len())

	for _, name := range opts.Models {
		model, err := buildModel(name, logger)
		if err != nil {
			return err
		}

		var modelOpts []signal.ModelOption
		if opts.Search {
			space := defaultSearchSpace(name)
			if space != nil {
				modelOpts = append(modelOpts, signal.WithSearchSpace(space))
			}
		}
		result, err := a.ApplyModel(ctx, model, modelOpts...)
		if err != nil {
			return err
		}
		if len(result.BestParams) > 0 {
			fmt.Printf("%s best parameters: %v\n", result.ModelName, result.BestParams)
		}

		if opts.Horizon > 0 {
			if _, err := a.Forecast(ctx, model, opts.Horizon); err != nil {
				return err
			}
		}
	}

	if opts.Aggregated {
		if _, err := a.ApplyAggregated(ctx); err != nil {
			return err
		}
		if opts.Horizon > 0 {
			if _, err := a.ForecastAggregated(ctx, opts.Horizon); err != nil {
				return err
			}
		}
	}

	printScores(a.Scores())
	if opts.Horizon > 0 {
		printForecasts(a.Results(), opts.Horizon)
	}
	return nil
}

func printScores(scores map[string]models.Scores) {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nScores:")
	for _, name := range names {
		s := scores[name]
		fmt.Printf("- %-22s R2=%-8.2f RMSE=%-8.2f MAPE=%.2f%%\n",
			name, s[models.MetricR2], s[models.MetricRMSE], s[models.MetricMAPE])
	}
}

func printForecasts(results map[string]*models.ModelResult, horizon int) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := results[name]
		if !result.HasForecast() {
			continue
		}
		fmt.Printf("\n%s forecast (%d steps):\n", name, horizon)
		index := result.Forecast.Index()
		for _, col := range result.Forecast.Columns() {
			for i, v := range col.Values {
				fmt.Printf("  %s  %s = %.2f\n", index[i].Format("2006-01-02"), col.Name, v)
			}
		}
	}
}
