// Package excel seeds users, items and review history from xlsx workbooks.
package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/recallml/internal/database"
	"github.com/example/recallml/pkg/models"
)

// Config defines the import configuration
type Config struct {
	FilePath     string // Path to the workbook
	UsersSheet   string // Sheet with user rows
	ItemsSheet   string // Sheet with item rows
	ReviewsSheet string // Sheet with review history rows
	StartRow     int    // First data row (1-based, header above it)
}

// DefaultConfig returns the default import configuration
func DefaultConfig() Config {
	return Config{
		UsersSheet:   "Users",
		ItemsSheet:   "Items",
		ReviewsSheet: "Reviews",
		StartRow:     2,
	}
}

// Result holds the counters of an import operation
type Result struct {
	TotalProcessed int
	UsersCreated   int
	ItemsCreated   int
	EventsCreated  int
	ItemsUpdated   int
	Skipped        int
	Errors         []string
}

// Importer loads workbook contents into the connected database.
type Importer struct {
	users   *database.UserRepository
	items   *database.ItemRepository
	reviews *database.ReviewRepository
	log     *zap.Logger
}

// NewImporter creates an importer bound to the shared database connection.
func NewImporter(log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		users:   database.NewUserRepository(),
		items:   database.NewItemRepository(),
		reviews: database.NewReviewRepository(),
		log:     log,
	}
}

// Import reads the workbook sheet by sheet. Sheets may be omitted; rows that
// fail to parse are reported in Result.Errors and do not stop the import.
// After history rows land, the touched items' review counters are recomputed
// from their stored history.
func (im *Importer) Import(config Config) (*Result, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %v", err)
	}
	defer f.Close()

	result := &Result{Errors: make([]string, 0)}

	// username -> id, filled by the Users pass and lookups
	userIDs := make(map[string]int64)
	existing, err := im.users.BackfillTargets(0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing users: %v", err)
	}
	for _, user := range existing {
		userIDs[user.Username] = user.ID
	}

	// username+prompt -> item, filled lazily per user
	itemIDs := make(map[string]int64)

	if rows, ok := sheetRows(f, config.UsersSheet); ok {
		im.importUsers(rows, config.StartRow, userIDs, result)
	}
	if rows, ok := sheetRows(f, config.ItemsSheet); ok {
		if err := im.loadItems(userIDs, itemIDs); err != nil {
			return nil, err
		}
		im.importItems(rows, config.StartRow, userIDs, itemIDs, result)
	}

	touched := make(map[int64]bool)
	if rows, ok := sheetRows(f, config.ReviewsSheet); ok {
		if err := im.loadItems(userIDs, itemIDs); err != nil {
			return nil, err
		}
		im.importReviews(rows, config.StartRow, userIDs, itemIDs, touched, result)
	}

	for itemID := range touched {
		if err := im.refreshItemState(itemID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", itemID, err))
			continue
		}
		result.ItemsUpdated++
	}

	im.log.Info("workbook imported",
		zap.String("file", config.FilePath),
		zap.Int("users_created", result.UsersCreated),
		zap.Int("items_created", result.ItemsCreated),
		zap.Int("events_created", result.EventsCreated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, bool) {
	index, err := f.GetSheetIndex(sheet)
	if err != nil || index < 0 {
		return nil, false
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, false
	}
	return rows, true
}

// importUsers expects columns: username, simulated
func (im *Importer) importUsers(rows [][]string, startRow int, userIDs map[string]int64, result *Result) {
	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		result.TotalProcessed++

		username := cell(row, 0)
		if username == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("users row %d: username cannot be empty", i+1))
			continue
		}
		if _, exists := userIDs[username]; exists {
			result.Skipped++
			continue
		}

		user := &models.User{
			Username:  username,
			Simulated: parseBool(cell(row, 1)),
		}
		if err := im.users.Create(user); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("users row %d: %v", i+1, err))
			continue
		}
		userIDs[username] = user.ID
		result.UsersCreated++
	}
}

// importItems expects columns: username, prompt, answer, difficulty, memory_strength
func (im *Importer) importItems(rows [][]string, startRow int, userIDs map[string]int64, itemIDs map[string]int64, result *Result) {
	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		result.TotalProcessed++

		username := cell(row, 0)
		prompt := cell(row, 1)
		if username == "" || prompt == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("items row %d: username and prompt are required", i+1))
			continue
		}
		userID, exists := userIDs[username]
		if !exists {
			result.Errors = append(result.Errors, fmt.Sprintf("items row %d: unknown user %q", i+1, username))
			continue
		}
		if _, exists := itemIDs[itemKey(username, prompt)]; exists {
			result.Skipped++
			continue
		}

		item := &models.Item{
			UserID:           userID,
			Prompt:           prompt,
			Answer:           cell(row, 2),
			DifficultyRating: parseFloatOrDefault(cell(row, 3), 0, 1, 0.3),
			MemoryStrength:   parseFloatOrDefault(cell(row, 4), 0.01, 3650, 1.0),
		}
		if err := im.items.Create(item); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("items row %d: %v", i+1, err))
			continue
		}
		itemIDs[itemKey(username, prompt)] = item.ID
		result.ItemsCreated++
	}
}

// importReviews expects columns: username, prompt, recalled, response_ms,
// interval, reviewed_at
func (im *Importer) importReviews(rows [][]string, startRow int, userIDs map[string]int64, itemIDs map[string]int64, touched map[int64]bool, result *Result) {
	for i, row := range rows {
		if i < startRow-1 {
			continue
		}
		result.TotalProcessed++

		username := cell(row, 0)
		prompt := cell(row, 1)
		itemID, exists := itemIDs[itemKey(username, prompt)]
		if !exists {
			result.Errors = append(result.Errors, fmt.Sprintf("reviews row %d: unknown item %q for user %q", i+1, prompt, username))
			continue
		}

		recalledCell := cell(row, 2)
		if recalledCell == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("reviews row %d: recalled is required", i+1))
			continue
		}
		reviewedAt, err := parseTime(cell(row, 5))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reviews row %d: %v", i+1, err))
			continue
		}

		event := &models.ReviewEvent{
			ItemID:         itemID,
			Recalled:       parseBool(recalledCell),
			ResponseTimeMs: parseIntOrDefault(cell(row, 3), 0, 600000, 2000),
			IntervalUsed:   parseIntOrDefault(cell(row, 4), 1, 3650, 1),
			AlgorithmUsed:  models.AlgorithmBaseline,
			ReviewedAt:     reviewedAt,
		}
		if err := im.reviews.Create(event); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reviews row %d: %v", i+1, err))
			continue
		}
		touched[itemID] = true
		result.EventsCreated++
	}
}

// loadItems fills the item lookup for every known user.
func (im *Importer) loadItems(userIDs map[string]int64, itemIDs map[string]int64) error {
	for username, userID := range userIDs {
		items, err := im.items.ByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to load items for user %q: %v", username, err)
		}
		for _, item := range items {
			itemIDs[itemKey(username, item.Prompt)] = item.ID
		}
	}
	return nil
}

// refreshItemState recomputes the item's review counters from its stored
// history, the same derivation the prediction pipeline reads.
func (im *Importer) refreshItemState(itemID int64) error {
	item, err := im.items.GetByID(itemID)
	if err != nil {
		return err
	}
	history, err := im.reviews.HistoryForItem(itemID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	recalled := 0
	streak := 0
	for _, event := range history {
		if event.Recalled {
			recalled++
			streak++
		} else {
			streak = 0
		}
	}
	last := history[len(history)-1]

	item.TotalReviews = len(history)
	item.ConsecutiveCorrect = streak
	item.DifficultyRating = 1 - float64(recalled)/float64(len(history))
	item.MemoryStrength = float64(last.IntervalUsed)
	if item.MemoryStrength < 1 {
		item.MemoryStrength = 1
	}
	reviewedAt := last.ReviewedAt
	item.LastReviewedAt = &reviewedAt

	return im.items.UpdateReviewState(item)
}

func itemKey(username, prompt string) string {
	return username + "\x00" + prompt
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

// parseIntOrDefault parses an integer, clamping into [min, max] and falling
// back to defaultVal on garbage
func parseIntOrDefault(s string, min, max, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func parseFloatOrDefault(s string, min, max, defaultVal float64) float64 {
	val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01-02-06 15:04", // excelize default datetime number format
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("reviewed_at is required")
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
