// Package dataset exports training rows for the model-training side: one
// row per qualifying review event, raw (un-normalized) features plus the
// interval that was actually used as the regression target.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/example/recallml/internal/database"
	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/pkg/models"
)

// Row is one training example.
type Row struct {
	ItemID         int64     `json:"itemId"`
	EventID        int64     `json:"eventId"`
	Features       []float64 `json:"features"`
	TargetInterval int       `json:"targetInterval"`
}

// Exporter builds training rows from stored history.
type Exporter struct {
	users   *database.UserRepository
	items   *database.ItemRepository
	reviews *database.ReviewRepository
	log     *zap.Logger
}

// NewExporter creates an exporter bound to the shared database connection.
func NewExporter(log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		users:   database.NewUserRepository(),
		items:   database.NewItemRepository(),
		reviews: database.NewReviewRepository(),
		log:     log,
	}
}

// Rows derives one row per baseline-tagged event across all users. Only
// baseline events qualify: converted events carry model output as their
// interval, which must not feed back into training targets.
func (e *Exporter) Rows() ([]Row, error) {
	users, err := e.users.BackfillTargets(0, true)
	if err != nil {
		return nil, fmt.Errorf("dataset: select users: %w", err)
	}

	var rows []Row
	for _, user := range users {
		items, err := e.items.ByUser(user.ID)
		if err != nil {
			return nil, fmt.Errorf("dataset: list items for user %d: %w", user.ID, err)
		}
		for i := range items {
			item := &items[i]
			history, err := e.reviews.HistoryForItem(item.ID)
			if err != nil {
				return nil, fmt.Errorf("dataset: load history for item %d: %w", item.ID, err)
			}
			for pos, event := range history {
				if event.AlgorithmUsed != models.AlgorithmBaseline {
					continue
				}
				base := features.FromReview(*item, history[:pos], event)
				vector, err := features.Extract(base)
				if err != nil {
					return nil, fmt.Errorf("dataset: extract event %d: %w", event.ID, err)
				}
				rows = append(rows, Row{
					ItemID:         item.ID,
					EventID:        event.ID,
					Features:       vector,
					TargetInterval: event.IntervalUsed,
				})
			}
		}
	}

	e.log.Info("training rows derived", zap.Int("rows", len(rows)))
	return rows, nil
}

// WriteJSON writes rows as one JSON array.
func (e *Exporter) WriteJSON(w io.Writer, rows []Row) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("dataset: encode rows: %w", err)
	}
	return nil
}

// WriteCSV writes rows with a header of the canonical feature names.
func (e *Exporter) WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	header := append([]string{"itemId", "eventId"}, features.Names()...)
	header = append(header, "targetInterval")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		record = append(record,
			strconv.FormatInt(row.ItemID, 10),
			strconv.FormatInt(row.EventID, 10),
		)
		for _, value := range row.Features {
			record = append(record, strconv.FormatFloat(value, 'g', -1, 64))
		}
		record = append(record, strconv.Itoa(row.TargetInterval))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("dataset: write row for event %d: %w", row.EventID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("dataset: flush: %w", err)
	}
	return nil
}
