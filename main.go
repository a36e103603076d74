package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/recallml/internal/backfill"
	"github.com/example/recallml/internal/config"
	"github.com/example/recallml/internal/database"
	"github.com/example/recallml/internal/dataset"
	"github.com/example/recallml/internal/excel"
	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/internal/logging"
	"github.com/example/recallml/internal/model"
	"github.com/example/recallml/internal/norm"
	"github.com/example/recallml/internal/predictor"
	"github.com/example/recallml/internal/scheduler"
	"github.com/example/recallml/internal/spaced_repetition"
)

var rootCmd = &cobra.Command{
	Use:   "recallml",
	Short: "recallml - ML interval prediction for spaced repetition",
	Long: `recallml schedules spaced-repetition reviews with a trained regression
model: it derives the feature vector the model was trained on from stored
review history, predicts the next interval in days, and can rewrite
baseline-scheduled history to the model's intervals.

Configuration is read from recallml.toml (point RECALLML_CONFIG elsewhere)
with RECALLML_* environment overrides; DATABASE_URL selects postgres.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(modelCmd)
}

// app carries the process-wide state every command starts from. The
// database connection is opened per command, since predict and model work
// on artifacts alone.
type app struct {
	Config *config.Config
	Logger *zap.Logger
}

func newApp() (*app, error) {
	// .env is optional; deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RECALLML_CONFIG"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &app{Config: cfg, Logger: logger}, nil
}

func (a *app) Close() {
	_ = a.Logger.Sync()
}

func (a *app) openDatabase() error {
	if err := database.Connect(a.Config.DatabaseDriver, a.Config.DatabaseDSN); err != nil {
		return err
	}
	a.Logger.Info("database connected", zap.String("driver", a.Config.DatabaseDriver))
	return nil
}

// buildPredictor assembles the serving pipeline from the configured
// artifacts. Width mismatches between stats, weights and the feature
// layout are reported here, before any data is touched.
func buildPredictor(a *app) (*predictor.Predictor, error) {
	cfg := a.Config

	stats, err := norm.LoadStats(cfg.StatsPath)
	if err != nil {
		return nil, err
	}
	normalizer, err := norm.New(stats, features.Count)
	if err != nil {
		return nil, err
	}

	var backend model.Model
	if cfg.RemoteURL != "" {
		backend = model.NewRemote(cfg.RemoteURL, cfg.RemoteAPIKey, cfg.RemoteTimeout())
		a.Logger.Info("using remote model backend", zap.String("url", cfg.RemoteURL))
	} else {
		mlp, err := model.LoadMLP(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		if mlp.InputWidth() != features.Count {
			return nil, fmt.Errorf("%w: weights expect %d inputs, pipeline produces %d",
				model.ErrInputWidth, mlp.InputWidth(), features.Count)
		}
		a.Logger.Info("model weights loaded",
			zap.String("path", cfg.ModelPath),
			zap.String("version", mlp.Version()))
		backend = mlp
	}

	if cfg.MetadataPath != "" {
		if meta, err := model.LoadMetadata(cfg.MetadataPath); err == nil {
			a.Logger.Info("model metadata",
				zap.String("modelVersion", meta.ModelVersion),
				zap.Int("numFeatures", meta.NumFeatures))
		} else {
			a.Logger.Debug("model metadata not loaded", zap.Error(err))
		}
	}

	return predictor.New(normalizer, backend, a.Logger)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("recallml v0.1.0")
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run the prediction pipeline once from base feature values",
	Long: `Run the prediction pipeline once from base feature values and print the
resolved interval. The flag defaults describe a typical mid-training
review, so a bare invocation doubles as a smoke test of the artifacts.

Examples:
  recallml predict
  recallml predict --memory-strength 14 --success-rate 0.9 --streak 8
  recallml predict --compare --recalled=false`,
}

var predictBase features.BaseFeatureSet
var predictCompare bool
var predictRecalled bool
var predictJSON bool

func init() {
	f := predictCmd.Flags()
	f.Float64Var(&predictBase.MemoryStrength, "memory-strength", 1, "Memory strength in days-equivalent")
	f.Float64Var(&predictBase.DifficultyRating, "difficulty", 0.25, "Difficulty rating, 0-1")
	f.Float64Var(&predictBase.TimeSinceLastReview, "days-since-review", 0, "Days since the last review")
	f.Float64Var(&predictBase.SuccessRate, "success-rate", 0.75, "Lifetime recall success rate, 0-1")
	f.Float64Var(&predictBase.AverageResponseTime, "response-time-ms", 3000, "Average response time in milliseconds")
	f.IntVar(&predictBase.TotalReviews, "total-reviews", 24, "Total prior reviews")
	f.IntVar(&predictBase.ConsecutiveCorrect, "streak", 5, "Consecutive correct recalls")
	f.Float64Var(&predictBase.TimeOfDay, "time-of-day", 0.5, "Time of day as a fraction of 24h, 0-1")
	f.BoolVar(&predictCompare, "compare", false, "Also compute the SM-2 baseline interval")
	f.BoolVar(&predictRecalled, "recalled", true, "Review outcome graded into the SM-2 comparison")
	f.BoolVar(&predictJSON, "json", false, "Print the result as JSON")
}

func runPredictCmd(a *app, cmd *cobra.Command, args []string) error {
	if err := predictBase.Validate(); err != nil {
		return err
	}

	pred, err := buildPredictor(a)
	if err != nil {
		return err
	}
	result, err := pred.Predict(predictBase)
	if err != nil {
		return err
	}

	if predictCompare {
		st := spaced_repetition.DefaultState()
		st.Repetitions = predictBase.ConsecutiveCorrect
		if days := int(math.Round(predictBase.MemoryStrength)); days > st.Interval {
			st.Interval = days
		}
		next := spaced_repetition.NewScheduler().NextInterval(st, predictRecalled, int(predictBase.AverageResponseTime))
		result.BaselineInterval = next.Interval
	}

	if predictJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Printf("Predicted interval: %d days (%s)\n", result.Interval, result.AlgorithmUsed)
	if predictCompare {
		fmt.Printf("SM-2 baseline: %d days\n", result.BaselineInterval)
	}
	return nil
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Rewrite stored baseline history with model predictions",
	Long: `Convert stored baseline-scheduled review events to model-predicted
intervals, one item at a time. Selection and budgets come from the
configuration and can be overridden with flags.

Examples:
  recallml backfill --dry-run
  recallml backfill --users 5 --reviews-per-user 100
  recallml backfill --all-users`,
}

var backfillUsers int
var backfillReviews int
var backfillAllUsers bool
var backfillDryRun bool
var backfillJSON bool

func init() {
	f := backfillCmd.Flags()
	f.IntVar(&backfillUsers, "users", config.DefaultBackfillUsers, "Number of target users to process, 0 for all")
	f.IntVar(&backfillReviews, "reviews-per-user", config.DefaultReviewsPerUser, "Conversion budget per user, split across the user's items")
	f.BoolVar(&backfillAllUsers, "all-users", false, "Include non-simulated accounts")
	f.BoolVar(&backfillDryRun, "dry-run", false, "Compute and report without rewriting history")
	f.BoolVar(&backfillJSON, "json", false, "Print the run report as JSON")
}

func runBackfillCmd(a *app, cmd *cobra.Command, args []string) error {
	if err := a.openDatabase(); err != nil {
		return err
	}
	defer database.Close()

	pred, err := buildPredictor(a)
	if err != nil {
		return err
	}

	runCfg := backfill.Config{
		Users:          a.Config.BackfillUsers,
		ReviewsPerUser: a.Config.BackfillReviewsPerUser,
		AllUsers:       a.Config.BackfillAllUsers,
		DryRun:         backfillDryRun,
	}
	flags := cmd.Flags()
	if flags.Changed("users") {
		runCfg.Users = backfillUsers
	}
	if flags.Changed("reviews-per-user") {
		runCfg.ReviewsPerUser = backfillReviews
	}
	if flags.Changed("all-users") {
		runCfg.AllUsers = backfillAllUsers
	}

	// Ctrl+C stops the run between items; the partial report still lands.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := backfill.NewRunner(pred, runCfg, a.Logger).Run(ctx)
	if report != nil {
		if backfillJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}
	}
	if runErr != nil {
		return runErr
	}
	if !backfillJSON {
		return printStoreSummary()
	}
	return nil
}

func printReport(report *backfill.Report) {
	label := "Backfill"
	if report.DryRun {
		label = "Backfill dry run"
	}
	took := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	fmt.Printf("%s finished in %s\n", label, took)
	fmt.Printf("Users processed: %d\n", report.UsersProcessed)
	fmt.Printf("Items processed: %d\n", report.ItemsProcessed)
	fmt.Printf("Events converted: %d\n", report.EventsConverted)
	if report.EventsConverted > 0 {
		fmt.Printf("Agreement with baseline: %.1f%%\n", report.AgreementRate*100)
		fmt.Printf("Mean interval: ml %.1f days, baseline %.1f days\n",
			report.MeanMLInterval, report.MeanBaselineInterval)
	}
	if len(report.Failures) > 0 {
		fmt.Printf("Failures: %d\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  user %d item %d: %s\n", f.UserID, f.ItemID, f.Err)
		}
	}
	if report.DryRun {
		fmt.Println("Dry run: history was not modified")
	}
}

func printStoreSummary() error {
	stats := database.NewStatsRepository()
	byAlgorithm, err := stats.AlgorithmSummary()
	if err != nil {
		return err
	}
	fmt.Println("Stored history:")
	for _, s := range byAlgorithm {
		fmt.Printf("  %s: %d events, mean interval %.1f days\n", s.Algorithm, s.Events, s.MeanInterval)
	}
	conversion, err := stats.ConversionSummary()
	if err != nil {
		return err
	}
	if conversion.Converted > 0 {
		fmt.Printf("  converted total: %d, agreement %.1f%%, mean ml %.1f vs baseline %.1f days\n",
			conversion.Converted, conversion.AgreementRate*100,
			conversion.MeanMLInterval, conversion.MeanBaselineInterval)
	}
	return nil
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the backfill daily as a long-running daemon",
}

var scheduleAt string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAt, "at", config.DefaultScheduleAt, "Daily run time, HH:MM (24h)")
}

func runScheduleCmd(a *app, cmd *cobra.Command, args []string) error {
	if err := a.openDatabase(); err != nil {
		return err
	}
	defer database.Close()

	pred, err := buildPredictor(a)
	if err != nil {
		return err
	}

	at := a.Config.ScheduleAt
	if cmd.Flags().Changed("at") {
		at = scheduleAt
	}

	runner := backfill.NewRunner(pred, backfill.Config{
		Users:          a.Config.BackfillUsers,
		ReviewsPerUser: a.Config.BackfillReviewsPerUser,
		AllUsers:       a.Config.BackfillAllUsers,
	}, a.Logger)
	job := func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(at, job, a.Logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	fmt.Println("Schedule daemon running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	a.Logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Cancel first so an in-flight run stops between items, then halt
	// the scheduler.
	cancel()
	sched.Stop()
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import [workbook.xlsx]",
	Short: "Seed users, items and review history from an xlsx workbook",
	Long: `Seed users, items and review history from an xlsx workbook. Sheets may
be omitted; rows that fail to parse are reported and skipped. Users and
items already present are left untouched, review rows always append.

Example:
  recallml import seed.xlsx --reviews-sheet History`,
	Args: cobra.ExactArgs(1),
}

var importUsersSheet string
var importItemsSheet string
var importReviewsSheet string
var importStartRow int

func init() {
	defaults := excel.DefaultConfig()
	f := importCmd.Flags()
	f.StringVar(&importUsersSheet, "users-sheet", defaults.UsersSheet, "Worksheet holding users")
	f.StringVar(&importItemsSheet, "items-sheet", defaults.ItemsSheet, "Worksheet holding items")
	f.StringVar(&importReviewsSheet, "reviews-sheet", defaults.ReviewsSheet, "Worksheet holding review history")
	f.IntVar(&importStartRow, "start-row", defaults.StartRow, "First data row, 1-based")
}

func runImportCmd(a *app, cmd *cobra.Command, args []string) error {
	if err := a.openDatabase(); err != nil {
		return err
	}
	defer database.Close()

	result, err := excel.NewImporter(a.Logger).Import(excel.Config{
		FilePath:     args[0],
		UsersSheet:   importUsersSheet,
		ItemsSheet:   importItemsSheet,
		ReviewsSheet: importReviewsSheet,
		StartRow:     importStartRow,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rows processed: %d\n", result.TotalProcessed)
	fmt.Printf("Users created: %d\n", result.UsersCreated)
	fmt.Printf("Items created: %d\n", result.ItemsCreated)
	fmt.Printf("Review events created: %d\n", result.EventsCreated)
	fmt.Printf("Items recomputed: %d\n", result.ItemsUpdated)
	if result.Skipped > 0 {
		fmt.Printf("Skipped duplicates: %d\n", result.Skipped)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Row errors: %d\n", len(result.Errors))
		for _, rowErr := range result.Errors {
			fmt.Printf("  %s\n", rowErr)
		}
	}
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write training rows derived from stored history",
	Long: `Write one training row per stored baseline review event: the raw
feature vector derived from the history before that event, plus the
interval actually used as the target.

Examples:
  recallml export --format csv --output dataset.csv
  recallml export > dataset.json`,
}

var exportFormat string
var exportOutput string

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "json", "Output format: json or csv")
	f.StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}

func runExportCmd(a *app, cmd *cobra.Command, args []string) error {
	exporter := dataset.NewExporter(a.Logger)
	var write func(io.Writer, []dataset.Row) error
	switch exportFormat {
	case "json":
		write = exporter.WriteJSON
	case "csv":
		write = exporter.WriteCSV
	default:
		return fmt.Errorf("unknown export format %q (want json or csv)", exportFormat)
	}

	if err := a.openDatabase(); err != nil {
		return err
	}
	defer database.Close()

	rows, err := exporter.Rows()
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return write(os.Stdout, rows)
	}
	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	if err := write(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d training rows to %s\n", len(rows), exportOutput)
	return nil
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Print model artifact details and verify their consistency",
}

func runModelCmd(a *app, cmd *cobra.Command, args []string) error {
	cfg := a.Config

	stats, err := norm.LoadStats(cfg.StatsPath)
	if err != nil {
		return err
	}
	fmt.Printf("Normalization stats: %s (width %d)\n", cfg.StatsPath, stats.Width())
	switch stats.Width() {
	case features.Count:
		fmt.Println("Feature variant: full derived vector")
	case features.BaseCount:
		fmt.Println("Feature variant: simplified base vector")
	}

	inputWidth := 0
	if cfg.RemoteURL != "" {
		fmt.Printf("Model backend: remote %s\n", cfg.RemoteURL)
	} else {
		mlp, err := model.LoadMLP(cfg.ModelPath)
		if err != nil {
			return err
		}
		inputWidth = mlp.InputWidth()
		fmt.Printf("Model backend: %s (version %s, input width %d)\n",
			cfg.ModelPath, mlp.Version(), mlp.InputWidth())
	}

	declared := 0
	meta, err := model.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		fmt.Printf("Metadata: not available (%v)\n", err)
	} else {
		declared = meta.NumFeatures
		fmt.Printf("Metadata: model %s, trained %s on %d rows (%d held out)\n",
			meta.ModelVersion, meta.TrainedDate, meta.TrainingSize, meta.TestSize)
		if meta.Architecture != "" {
			fmt.Printf("Architecture: %s\n", meta.Architecture)
		}
		if len(meta.Performance) > 0 {
			keys := make([]string, 0, len(meta.Performance))
			for k := range meta.Performance {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println("Performance:")
			for _, k := range keys {
				fmt.Printf("  %s: %.4f\n", k, meta.Performance[k])
			}
		}
	}

	consistent := true
	if stats.Width() != features.Count && stats.Width() != features.BaseCount {
		fmt.Printf("❌ Stats width %d matches no known feature layout\n", stats.Width())
		consistent = false
	}
	if inputWidth != 0 {
		if inputWidth == stats.Width() {
			fmt.Println("✅ Input layer matches stats width")
		} else {
			fmt.Printf("❌ Input layer expects %d features, stats provide %d\n", inputWidth, stats.Width())
			consistent = false
		}
	}
	if declared != 0 {
		if declared == stats.Width() {
			fmt.Println("✅ Metadata feature count matches stats width")
		} else {
			fmt.Printf("❌ Metadata declares %d features, stats provide %d\n", declared, stats.Width())
			consistent = false
		}
	}
	if !consistent {
		return errors.New("model artifacts are inconsistent")
	}
	return nil
}

// newAppRunner creates a Cobra RunE closure carrying the app instance.
func newAppRunner(a *app, runFunc func(*app, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return runFunc(a, cmd, args)
	}
}

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	predictCmd.RunE = newAppRunner(a, runPredictCmd)
	backfillCmd.RunE = newAppRunner(a, runBackfillCmd)
	scheduleCmd.RunE = newAppRunner(a, runScheduleCmd)
	importCmd.RunE = newAppRunner(a, runImportCmd)
	exportCmd.RunE = newAppRunner(a, runExportCmd)
	modelCmd.RunE = newAppRunner(a, runModelCmd)

	if err := rootCmd.Execute(); err != nil {
		a.Close()
		os.Exit(1)
	}
}
