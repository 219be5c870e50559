package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec(`DELETE FROM outbox_events`).Error)
	return db
}

func seedOutboxEvent(t *testing.T, db *gorm.DB, mutate func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     time.Now(),
	}
	if mutate != nil {
		mutate(&row)
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestRepositoryExistsTx(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, nil)

	exists, err := repo.ExistsTx(db, row.EventType, row.AggregateType, row.AggregateID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsTx(db, row.EventType, row.AggregateType, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.ExistsTx(nil, row.EventType, row.AggregateType, row.AggregateID)
	assert.Error(t, err)
}

func TestRepositoryFetchUnpublishedForPublish(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	ready := seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		row.CreatedAt = now.Add(-time.Minute)
	})
	seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		published := now
		row.PublishedAt = &published
	})
	seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		row.AttemptCount = 5
	})

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ready.ID, rows[0].ID)
}

func TestRepositoryFetchOrdersOldestFirstAndLimits(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	oldest := seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		row.CreatedAt = now.Add(-2 * time.Hour)
	})
	seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		row.CreatedAt = now.Add(-time.Hour)
	})
	seedOutboxEvent(t, db, func(row *models.OutboxEvent) {
		row.CreatedAt = now
	})

	rows, err := repo.FetchUnpublishedForPublish(db, 2, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, oldest.ID, rows[0].ID)
}

func TestRepositoryMarkPublishedTx(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, nil)

	require.NoError(t, repo.MarkPublishedTx(db, row.ID))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.NotNil(t, stored.PublishedAt)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryMarkFailedTxIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, nil)

	require.NoError(t, repo.MarkFailedTx(db, row.ID, errors.New("publish timed out")))
	require.NoError(t, repo.MarkFailedTx(db, row.ID, errors.New("publish timed out again")))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, 2, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "publish timed out again", *stored.LastError)
}

func TestRepositoryMarkTerminalTxStopsFetching(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := seedOutboxEvent(t, db, func(r *models.OutboxEvent) {
		r.AttemptCount = 2
	})

	require.NoError(t, repo.MarkTerminalTx(db, row.ID, errors.New("unresolvable payload"), 5))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, 5, stored.AttemptCount)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestServiceEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc := NewService(repo, logg)
	existing := seedOutboxEvent(t, db, nil)

	err := svc.EmitIfNotExists(context.Background(), db, DomainEvent{
		EventType:     existing.EventType,
		AggregateType: existing.AggregateType,
		AggregateID:   existing.AggregateID,
		Data:          map[string]string{"status": "paid"},
		Version:       1,
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
