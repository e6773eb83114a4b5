package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/signalkit/signalkit/internal/signal"
	"github.com/signalkit/signalkit/internal/visualization"
)

type PlotOptions struct {
	Input      string
	TimeLayout string
	Kind       string
	Cutoff     string
	Models     []string
	Horizon    int
	Output     string
}

func NewPlotCmd() *cobra.Command {
	opts := &PlotOptions{}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a figure to an image file",
		Example: `  # Plot the raw example series
  signalkit plot --kind signal --output signal.png

  # Plot model predictions over the held-out year
  signalkit plot --kind predictions --models naive,es --output preds.png

  # Plot out-of-range forecasts
  signalkit plot --kind forecast --models es --horizon 24 --output fc.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "airpassengers", "CSV file, influx:<flux query>, or 'airpassengers'")
	cmd.Flags().StringVar(&opts.TimeLayout, "time-layout", "2006-01-02", "Timestamp layout for CSV input and --cutoff")
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "signal", "Figure kind (signal, acf, predictions, aggregated, forecast)")
	cmd.Flags().StringVar(&opts.Cutoff, "cutoff", "last:12", "Train/test cutoff: a date or last:N")
	cmd.Flags().StringSliceVarP(&opts.Models, "models", "m", []string{"naive", "es"}, "Models to apply for prediction/forecast figures")
	cmd.Flags().IntVar(&opts.Horizon, "horizon", 12, "Forecast horizon for the forecast figure")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "figure.png", "Output image file")

	return cmd
}

func runPlot(opts *PlotOptions) error {
	logger := newLogger()
	ctx := context.Background()
	renderer := visualization.NewRenderer(logger)

	ds, err := loadDataset(opts.Input, opts.TimeLayout, logger)
	if err != nil {
		return err
	}

	switch opts.Kind {
	case "signal":
		p, err := renderer.PlotSignal(ds)
		if err != nil {
			return err
		}
		return p.Save(8*vg.Inch, 4*vg.Inch, opts.Output)

	case "acf":
		p, err := renderer.ACFPlot(ds, 0)
		if err != nil {
			return err
		}
		return p.Save(8*vg.Inch, 4*vg.Inch, opts.Output)

	case "predictions", "aggregated", "forecast":
		a, err := signal.NewAnalysis(ds, logger)
		if err != nil {
			return err
		}
		cutoff, err := parseCutoff(ds, opts.Cutoff, opts.TimeLayout)
		if err != nil {
			return err
		}
		if _, err := a.Split(cutoff); err != nil {
			return err
		}

		if opts.Kind == "aggregated" {
			if _, err := a.ApplyAggregated(ctx); err != nil {
				return err
			}
			p, err := renderer.ShowAggregatedPredictions(a)
			if err != nil {
				return err
			}
			return p.Save(8*vg.Inch, 4*vg.Inch, opts.Output)
		}

		for _, name := range opts.Models {
			model, err := buildModel(name, logger)
			if err != nil {
				return err
			}
			if _, err := a.ApplyModel(ctx, model); err != nil {
				return err
			}
			if opts.Kind == "forecast" {
				if _, err := a.Forecast(ctx, model, opts.Horizon); err != nil {
					return err
				}
			}
		}

		var p *plot.Plot
		if opts.Kind == "forecast" {
			p, err = renderer.ShowForecast(a)
		} else {
			p, err = renderer.ShowPredictions(a)
		}
		if err != nil {
			return err
		}
		return p.Save(8*vg.Inch, 4*vg.Inch, opts.Output)

	default:
		return fmt.Errorf("unknown figure kind %q", opts.Kind)
	}
}
