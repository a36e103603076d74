// Package backfill rewrites stored baseline review history with model
// predictions. It is the only component that mutates persisted history.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/recallml/internal/database"
	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/internal/predictor"
	"github.com/example/recallml/pkg/models"
)

// ErrEventNotInHistory is returned when a selected event cannot be located
// in its item's ordered history. The prefix is positional, so an event
// without a position cannot be converted.
var ErrEventNotInHistory = errors.New("backfill: event not found in item history")

// Config bounds one backfill run.
type Config struct {
	// Users caps how many target users are processed. <= 0 means all.
	Users int
	// ReviewsPerUser is the conversion budget per user, split evenly
	// across the user's items by integer division.
	ReviewsPerUser int
	// AllUsers widens selection beyond simulated accounts.
	AllUsers bool
	// DryRun computes and reports without rewriting history.
	DryRun bool
}

// ItemFailure records one item the run skipped.
type ItemFailure struct {
	UserID int64  `json:"userId"`
	ItemID int64  `json:"itemId"`
	Err    string `json:"error"`
}

// Report aggregates one run's outcome.
type Report struct {
	StartedAt            time.Time     `json:"startedAt"`
	FinishedAt           time.Time     `json:"finishedAt"`
	DryRun               bool          `json:"dryRun"`
	UsersProcessed       int           `json:"usersProcessed"`
	ItemsProcessed       int           `json:"itemsProcessed"`
	EventsConverted      int           `json:"eventsConverted"`
	Failures             []ItemFailure `json:"failures,omitempty"`
	AgreementRate        float64       `json:"agreementRate"`
	MeanMLInterval       float64       `json:"meanMlInterval"`
	MeanBaselineInterval float64       `json:"meanBaselineInterval"`
}

// Runner executes backfill runs against the connected database.
type Runner struct {
	users     *database.UserRepository
	items     *database.ItemRepository
	reviews   *database.ReviewRepository
	runs      *database.RunRepository
	predictor *predictor.Predictor
	cfg       Config
	log       *zap.Logger
}

// NewRunner creates a runner bound to the shared database connection.
func NewRunner(pred *predictor.Predictor, cfg Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		users:     database.NewUserRepository(),
		items:     database.NewItemRepository(),
		reviews:   database.NewReviewRepository(),
		runs:      database.NewRunRepository(),
		predictor: pred,
		cfg:       cfg,
		log:       log,
	}
}

// Run converts baseline events to model-scheduled ones, one item at a time.
// Item failures are recorded in the report and do not stop the run; the
// returned error is non-nil only for storage failures outside any single
// item, or context cancellation. The report (possibly partial) is persisted
// and returned either way.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: time.Now().UTC(),
		DryRun:    r.cfg.DryRun,
	}

	targets, err := r.users.BackfillTargets(r.cfg.Users, r.cfg.AllUsers)
	if err != nil {
		return nil, fmt.Errorf("backfill: select users: %w", err)
	}

	r.log.Info("backfill run started",
		zap.Int("targets", len(targets)),
		zap.Int("reviews_per_user", r.cfg.ReviewsPerUser),
		zap.Bool("all_users", r.cfg.AllUsers),
		zap.Bool("dry_run", r.cfg.DryRun),
	)

	var agreed, mlSum, baselineSum int

	for _, user := range targets {
		items, err := r.items.ByUser(user.ID)
		if err != nil {
			r.finish(report, agreed, mlSum, baselineSum)
			return report, fmt.Errorf("backfill: list items for user %d: %w", user.ID, err)
		}
		report.UsersProcessed++

		if len(items) == 0 {
			continue
		}
		budget := r.cfg.ReviewsPerUser / len(items)
		if budget <= 0 {
			r.log.Debug("per-item budget is zero, skipping user",
				zap.Int64("user", user.ID),
				zap.Int("items", len(items)),
			)
			continue
		}

		for i := range items {
			if err := ctx.Err(); err != nil {
				r.finish(report, agreed, mlSum, baselineSum)
				return report, err
			}

			item := &items[i]
			converted, itemAgreed, itemML, itemBaseline, err := r.processItem(item, budget)
			if err != nil {
				report.Failures = append(report.Failures, ItemFailure{
					UserID: user.ID,
					ItemID: item.ID,
					Err:    err.Error(),
				})
				r.log.Warn("item skipped",
					zap.Int64("user", user.ID),
					zap.Int64("item", item.ID),
					zap.Error(err),
				)
				continue
			}
			report.ItemsProcessed++
			report.EventsConverted += converted
			agreed += itemAgreed
			mlSum += itemML
			baselineSum += itemBaseline
		}
	}

	r.finish(report, agreed, mlSum, baselineSum)
	return report, nil
}

// processItem converts up to budget baseline events of one item. The first
// error aborts the item; earlier conversions within it stand.
func (r *Runner) processItem(item *models.Item, budget int) (converted, agreed, mlSum, baselineSum int, err error) {
	selected, err := r.reviews.BaselineForItem(item.ID, budget)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if len(selected) == 0 {
		return 0, 0, 0, 0, nil
	}

	history, err := r.reviews.HistoryForItem(item.ID)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	for _, event := range selected {
		position := eventPosition(history, event.ID)
		if position < 0 {
			return converted, agreed, mlSum, baselineSum,
				fmt.Errorf("event %d: %w", event.ID, ErrEventNotInHistory)
		}

		base := features.FromReview(*item, history[:position], event)
		result, err := r.predictor.Predict(base)
		if err != nil {
			return converted, agreed, mlSum, baselineSum,
				fmt.Errorf("event %d: %w", event.ID, err)
		}

		if !r.cfg.DryRun {
			if err := r.reviews.MarkConverted(event.ID, result.Interval, event.IntervalUsed); err != nil {
				return converted, agreed, mlSum, baselineSum,
					fmt.Errorf("event %d: %w", event.ID, err)
			}
		}

		converted++
		if result.Interval == event.IntervalUsed {
			agreed++
		}
		mlSum += result.Interval
		baselineSum += event.IntervalUsed
	}

	return converted, agreed, mlSum, baselineSum, nil
}

// finish stamps and persists the report. Dry runs are recorded too, flagged
// by the dry_run column.
func (r *Runner) finish(report *Report, agreed, mlSum, baselineSum int) {
	report.FinishedAt = time.Now().UTC()
	if report.EventsConverted > 0 {
		n := float64(report.EventsConverted)
		report.AgreementRate = float64(agreed) / n
		report.MeanMLInterval = float64(mlSum) / n
		report.MeanBaselineInterval = float64(baselineSum) / n
	}

	run := &models.BackfillRun{
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		UsersProcessed:  report.UsersProcessed,
		ItemsProcessed:  report.ItemsProcessed,
		EventsConverted: report.EventsConverted,
		Failures:        len(report.Failures),
		DryRun:          report.DryRun,
	}
	if err := r.runs.Create(run); err != nil {
		r.log.Error("failed to persist run report", zap.Error(err))
	}

	r.log.Info("backfill run finished",
		zap.Int("users", report.UsersProcessed),
		zap.Int("items", report.ItemsProcessed),
		zap.Int("converted", report.EventsConverted),
		zap.Int("failures", len(report.Failures)),
		zap.Float64("agreement_rate", report.AgreementRate),
		zap.Bool("dry_run", report.DryRun),
	)
}

func eventPosition(history []models.ReviewEvent, eventID int64) int {
	for i := range history {
		if history[i].ID == eventID {
			return i
		}
	}
	return -1
}
