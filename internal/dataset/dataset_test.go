package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/recallml/internal/database"
	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/pkg/models"
)

func setupDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset_test.db")
	require.NoError(t, database.Connect("sqlite3", path))
	t.Cleanup(func() {
		require.NoError(t, database.Close())
	})
}

func seedHistory(t *testing.T) (itemID int64, eventIDs []int64) {
	t.Helper()
	user := &models.User{Username: "sim_alpha", Simulated: true}
	require.NoError(t, database.NewUserRepository().Create(user))
	item := &models.Item{
		UserID:             user.ID,
		Prompt:             "bonjour",
		Answer:             "hello",
		DifficultyRating:   0.3,
		MemoryStrength:     1.0,
		ConsecutiveCorrect: 1,
	}
	require.NoError(t, database.NewItemRepository().Create(item))

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	reviews := database.NewReviewRepository()
	intervals := []int{1, 2, 5}
	for i, interval := range intervals {
		event := &models.ReviewEvent{
			ItemID:         item.ID,
			Recalled:       i != 1,
			ResponseTimeMs: 2000 + i*500,
			IntervalUsed:   interval,
			AlgorithmUsed:  models.AlgorithmBaseline,
			ReviewedAt:     base.Add(time.Duration(i) * 24 * time.Hour),
		}
		require.NoError(t, reviews.Create(event))
		eventIDs = append(eventIDs, event.ID)
	}
	return item.ID, eventIDs
}

func TestRows(t *testing.T) {
	setupDB(t)
	itemID, eventIDs := seedHistory(t)

	rows, err := NewExporter(nil).Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for i, row := range rows {
		assert.Equal(t, itemID, row.ItemID)
		assert.Equal(t, eventIDs[i], row.EventID)
		assert.Len(t, row.Features, features.Count)
	}

	// targets are the intervals actually used
	assert.Equal(t, 1, rows[0].TargetInterval)
	assert.Equal(t, 2, rows[1].TargetInterval)
	assert.Equal(t, 5, rows[2].TargetInterval)

	// features come from the prefix: memoryStrength is the event's own
	// interval, totalReviews counts earlier events only
	assert.InDelta(t, 1.0, rows[0].Features[0], 1e-9)
	assert.InDelta(t, 0.0, rows[0].Features[5], 1e-9)
	assert.InDelta(t, 2.0, rows[1].Features[0], 1e-9)
	assert.InDelta(t, 1.0, rows[1].Features[5], 1e-9)
	assert.InDelta(t, 5.0, rows[2].Features[0], 1e-9)
	assert.InDelta(t, 2.0, rows[2].Features[5], 1e-9)
	// success rate over the first two events is 1/2
	assert.InDelta(t, 0.5, rows[2].Features[3], 1e-9)
}

func TestRowsSkipConvertedEvents(t *testing.T) {
	setupDB(t)
	_, eventIDs := seedHistory(t)
	require.NoError(t, database.NewReviewRepository().MarkConverted(eventIDs[1], 7, 2))

	rows, err := NewExporter(nil).Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, eventIDs[0], rows[0].EventID)
	assert.Equal(t, eventIDs[2], rows[1].EventID)
	// the prefix still spans the full history, converted events included
	assert.InDelta(t, 2.0, rows[1].Features[5], 1e-9)
}

func TestWriteCSV(t *testing.T) {
	setupDB(t)
	seedHistory(t)

	exporter := NewExporter(nil)
	rows, err := exporter.Rows()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	require.Len(t, header, 2+features.Count+1)
	assert.Equal(t, "itemId", header[0])
	assert.Equal(t, "eventId", header[1])
	assert.Equal(t, "memoryStrength", header[2])
	assert.Equal(t, "targetInterval", header[len(header)-1])

	// spot-check a numeric cell survives the round trip
	value, err := strconv.ParseFloat(records[1][2], 64)
	require.NoError(t, err)
	assert.InDelta(t, rows[0].Features[0], value, 1e-12)
	assert.Equal(t, "1", records[1][len(header)-1])
}

func TestWriteJSON(t *testing.T) {
	setupDB(t)
	seedHistory(t)

	exporter := NewExporter(nil)
	rows, err := exporter.Rows()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteJSON(&buf, rows))

	var decoded []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, len(rows))
	assert.Equal(t, rows[0].EventID, decoded[0].EventID)
	assert.Equal(t, rows[0].TargetInterval, decoded[0].TargetInterval)
	assert.InDelta(t, rows[0].Features[0], decoded[0].Features[0], 1e-12)
}
