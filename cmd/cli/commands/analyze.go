package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/signalkit/signalkit/internal/signal"
	"github.com/signalkit/signalkit/internal/stattest"
)

type AnalyzeOptions struct {
	Input      string
	TimeLayout string
	Tests      []string
}

func NewAnalyzeCmd() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Profile a series and run statistical tests",
		Example: `  # Profile the bundled example series
  signalkit analyze

  # Profile a CSV file and test stationarity and seasonality
  signalkit analyze --input data.csv --tests stationarity,seasonality`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "airpassengers", "CSV file, influx:<flux query>, or 'airpassengers'")
	cmd.Flags().StringVar(&opts.TimeLayout, "time-layout", "2006-01-02", "Timestamp layout for CSV input")
	cmd.Flags().StringSliceVarP(&opts.Tests, "tests", "t", []string{stattest.KindStationarity}, "Test kinds (stationarity, seasonality, causality, normality)")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions) error {
	logger := newLogger()

	ds, err := loadDataset(opts.Input, opts.TimeLayout, logger)
	if err != nil {
		return err
	}

	var tests func(kind, name string, args ...interface{}) (*stattest.Result, error)
	if ds.IsUnivariate() {
		a, err := signal.NewAnalysis(ds, logger)
		if err != nil {
			return err
		}
		printProfile(a)
		tests = a.ApplyTest
	} else {
		a, err := signal.NewMultivariateAnalysis(ds, logger)
		if err != nil {
			return err
		}
		printProfile(a.Analysis)
		tests = a.ApplyTest
	}

	for _, kind := range opts.Tests {
		result, err := tests(kind, "")
		if err != nil {
			return err
		}
		fmt.Printf("\n%s:\n", result.TestName)
		fmt.Printf("- Statistic: %.4f\n", result.Statistic)
		fmt.Printf("- P-Value:   %.4f\n", result.PValue)
		fmt.Printf("- Verdict:   %s\n", result.Interpretation)
	}
	return nil
}

func printProfile(a *signal.Analysis) {
	report := a.Profile()

	fmt.Println("Dataset Profile:")
	fmt.Printf("- Name:       %s\n", report.DatasetName)
	fmt.Printf("- Rows:       %d\n", report.NumRows)
	fmt.Printf("- Columns:    %d\n", report.NumColumns)
	fmt.Printf("- Time Range: %s to %s\n",
		report.StartTime.Format("2006-01-02"), report.EndTime.Format("2006-01-02"))

	names := make([]string, 0, len(report.Columns))
	for name := range report.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := report.Columns[name]
		fmt.Printf("\nColumn %q:\n", name)
		fmt.Printf("- Mean: %.2f  StdDev: %.2f\n", stats.Mean, stats.StdDev)
		fmt.Printf("- Min: %.2f  Q25: %.2f  Median: %.2f  Q75: %.2f  Max: %.2f\n",
			stats.Min, stats.Q25, stats.Median, stats.Q75, stats.Max)
		fmt.Printf("- Skewness: %.3f  Kurtosis: %.3f\n", stats.Skewness, stats.Kurtosis)
	}
}
