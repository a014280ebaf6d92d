package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schoolinfra/domain/infra"
	"schoolinfra/domain/recommend"
	"schoolinfra/internal"
	"schoolinfra/internal/analysis"
	"schoolinfra/internal/config"
	"schoolinfra/internal/container"
	"schoolinfra/internal/migration"
	"schoolinfra/internal/training"
	"schoolinfra/ports"
)

var (
	logLevel  string
	appConfig *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "schoolinfra-cli",
		Short:         "Offline pipeline for school infrastructure recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			var err error
			if appConfig, err = config.Load(); err != nil {
				return err
			}

			logCfg := internal.LogConfig{Level: appConfig.Log.Level, Format: "console"}
			if logLevel != "" {
				logCfg.Level = logLevel
			}
			return internal.InitLogger(logCfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newLabelCmd(),
		newTrainCmd(),
		newAnalyzeCmd(),
		newGapsCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLabelCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Derive rule-based recommendations for every row",
		Long: `Apply the threshold rules to a CSV or XLSX table and write it back with a
Recommendations column.

Example: schoolinfra-cli label --input data.xlsx --output updated_data_with_extended_recommendations.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.New(appConfig)
			if err != nil {
				return err
			}
			return runLabel(cmd.Context(), c, input, output)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data.csv", "Input table (csv or xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "updated_data_with_extended_recommendations.csv", "Labeled output table")
	return cmd
}

func runLabel(ctx context.Context, c *container.Container, input, output string) error {
	table, err := c.Reader.ReadTable(ctx, input)
	if err != nil {
		return err
	}
	labeled := analysis.LabelDataset(table, c.Labeler)
	if err := c.Writer.WriteTable(ctx, output, labeled); err != nil {
		return err
	}

	actionable := 0
	for _, rec := range labeled.Records {
		if rec.Value(infra.ColRecommendations) != recommend.NoActionText {
			actionable++
		}
	}
	zap.L().Info("dataset labeled",
		zap.String("output", output),
		zap.Int("rows", len(labeled.Records)),
		zap.Int("rules", len(c.Labeler.Rules())),
		zap.Int("needing_action", actionable))
	return nil
}

func newTrainCmd() *cobra.Command {
	var input, chartsDir string
	var kMin, kMax int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Select k, fit the ML-kNN model and save its artifacts",
		Long: `Train one candidate per k on a seeded split, keep the most accurate, refit it on
the full labeled table and write the model, binarizer and markdown report.

Example: schoolinfra-cli train --input updated_data_with_extended_recommendations.csv --charts charts/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("k-min") {
				appConfig.Training.KMin = kMin
			}
			if cmd.Flags().Changed("k-max") {
				appConfig.Training.KMax = kMax
			}
			c, err := container.New(appConfig)
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), c, input, chartsDir)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "updated_data_with_extended_recommendations.csv", "Labeled input table")
	cmd.Flags().StringVar(&chartsDir, "charts", "", "Directory for confusion matrix charts (skipped when empty)")
	cmd.Flags().IntVar(&kMin, "k-min", 5, "Smallest neighbour count to try")
	cmd.Flags().IntVar(&kMax, "k-max", 9, "Largest neighbour count to try")
	return cmd
}

func runTrain(ctx context.Context, c *container.Container, input, chartsDir string) error {
	table, err := c.Reader.ReadTable(ctx, input)
	if err != nil {
		return err
	}

	result, err := training.Train(ctx, table, c.Config.Training)
	if err != nil {
		return err
	}

	paths := c.Config.Paths
	if err := training.Save(ctx, c.ModelStore, paths.ModelPath, paths.MLBPath, result); err != nil {
		return err
	}
	if err := training.WriteReport(paths.ReportPath, result); err != nil {
		return err
	}

	if chartsDir != "" {
		files, err := training.ConfusionCharts(chartsDir, result)
		if err != nil {
			return err
		}
		zap.L().Info("confusion charts written", zap.String("dir", chartsDir), zap.Int("files", len(files)))
	}

	fmt.Printf("Best k: %d (subset accuracy %.2f%%)\n", result.BestK, result.BestAccuracy*100)
	fmt.Printf("Model:  %s\nLabels: %s\nReport: %s\n", paths.ModelPath, paths.MLBPath, paths.ReportPath)
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	var input, output string
	var saveToDB bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score every row and attach model predictions",
		Long: `Load the saved model and binarizer, compute facility scores and predicted
recommendations for each row, and write the analysis results table.

Example: schoolinfra-cli analyze --input data.csv --output infrastructure_analysis_results.csv --db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.New(appConfig)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background()) //nolint:errcheck

			if output == "" {
				output = appConfig.Paths.ResultsCSV
			}
			return runAnalyze(cmd.Context(), c, input, output, saveToDB)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data.csv", "Input table (csv or xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Results table (defaults to RESULTS_CSV)")
	cmd.Flags().BoolVar(&saveToDB, "db", false, "Also store the run in DATABASE_URL")
	return cmd
}

func runAnalyze(ctx context.Context, c *container.Container, input, output string, saveToDB bool) error {
	table, err := c.Reader.ReadTable(ctx, input)
	if err != nil {
		return err
	}
	model, err := c.ModelStore.LoadModel(ctx, c.Config.Paths.ModelPath)
	if err != nil {
		return err
	}
	binarizer, err := c.ModelStore.LoadBinarizer(ctx, c.Config.Paths.MLBPath)
	if err != nil {
		return err
	}

	results, out, err := analysis.Analyze(ctx, table, model, binarizer)
	if err != nil {
		return err
	}
	if err := c.Writer.WriteTable(ctx, output, out); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(results), output)

	if !saveToDB {
		return nil
	}
	if err := c.InitWithDatabase(ctx); err != nil {
		return err
	}
	run := ports.NewResultRun(model.ID, filepath.Base(input), len(results))
	if err := c.ResultRepo.SaveRun(ctx, run, out.Headers, results); err != nil {
		return err
	}
	fmt.Printf("Stored run %s\n", run.ID)
	return nil
}

func newGapsCmd() *cobra.Command {
	var input, facility, state, order string
	var limit int

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Rank locations by schools lacking a facility",
		Long: `Sum schools without a facility per location and list the largest (or smallest) gaps.

Example: schoolinfra-cli gaps --facility internet --order desc --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.New(appConfig)
			if err != nil {
				return err
			}
			if input == "" {
				input = appConfig.Paths.ResultsCSV
			}
			table, err := c.Reader.ReadTable(cmd.Context(), input)
			if err != nil {
				return err
			}
			report, err := analysis.FacilityGaps(table.Records, facility, state, order, limit)
			if err != nil {
				return err
			}
			return printGaps(report)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Table to rank (defaults to RESULTS_CSV)")
	cmd.Flags().StringVar(&facility, "facility", "library", "Facility: library, internet, drinking_water, toilet, electricity, computer")
	cmd.Flags().StringVar(&state, "state", "all", "Restrict to one state")
	cmd.Flags().StringVar(&order, "order", analysis.OrderDesc, "Sort order: asc or desc")
	cmd.Flags().IntVar(&limit, "limit", analysis.DefaultGapLimit, "Number of locations to list")
	return cmd
}

func printGaps(report *analysis.GapReport) error {
	fmt.Printf("Schools without %s (%s)\n\n", report.Label, report.Order)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLOCATION\tWITHOUT\tTOTAL")
	for i, g := range report.Gaps {
		fmt.Fprintf(w, "%d\t%s\t%.0f\t%.0f\n", i+1, g.Location, g.WithoutFacility, g.TotalSchools)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if s := report.Stats; s != nil {
		fmt.Printf("\nTotal: %.0f  Average: %.1f  Max: %.0f  Min: %.0f\n", s.Total, s.Average, s.Max, s.Min)
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the analysis results schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.New(appConfig)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background()) //nolint:errcheck

			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return err
			}
			version, err := migration.NewRunner().AppliedVersion(cmd.Context(), c.DB)
			if err != nil {
				return err
			}
			fmt.Printf("Schema at version %s (%s)\n", version, appConfig.Database.Driver)
			return nil
		},
	}
}
