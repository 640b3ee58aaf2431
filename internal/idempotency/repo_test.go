package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

func setupIdempotencyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS idempotency_records (
  id TEXT PRIMARY KEY,
  scope TEXT NOT NULL,
  key TEXT NOT NULL,
  state TEXT NOT NULL,
  request_hash TEXT NOT NULL,
  result TEXT,
  created_at DATETIME,
  expires_at DATETIME NOT NULL,
  CONSTRAINT uq_idempotency_scope_key UNIQUE (scope, key)
);`
	require.NoError(t, conn.Exec(ddl).Error)
	require.NoError(t, conn.Exec("DELETE FROM idempotency_records").Error)
	return conn
}

func newRecord(scope, key string, state enums.IdempotencyState, expiresAt time.Time) *models.IdempotencyRecord {
	return &models.IdempotencyRecord{
		ID:          uuid.New(),
		Scope:       scope,
		Key:         key,
		State:       state,
		RequestHash: "hash",
		ExpiresAt:   expiresAt,
	}
}

func TestRepository_InsertConflictOnScopeKey(t *testing.T) {
	conn := setupIdempotencyTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first := newRecord("payments.create", "abc", enums.IdempotencyStateInProgress, time.Now().Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, first))

	second := newRecord("payments.create", "abc", enums.IdempotencyStateInProgress, time.Now().Add(time.Minute))
	err := repo.Insert(ctx, second)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, scopeKeyConstraint))

	// Same key under a different scope is a separate reservation.
	other := newRecord("payments.test", "abc", enums.IdempotencyStateInProgress, time.Now().Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, other))
}

func TestRepository_MarkCompletedAndGet(t *testing.T) {
	conn := setupIdempotencyTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	rec := newRecord("payments.create", "key-1", enums.IdempotencyStateInProgress, time.Now().Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, rec))

	require.NoError(t, repo.MarkCompleted(ctx, "payments.create", "key-1", []byte(`{"ok":true}`)))

	got, err := repo.GetByScopeKey(ctx, "payments.create", "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, enums.IdempotencyStateCompleted, got.State)
	assert.JSONEq(t, `{"ok":true}`, string(got.Result))

	missing, err := repo.GetByScopeKey(ctx, "payments.create", "no-such-key")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_DeleteExpired(t *testing.T) {
	conn := setupIdempotencyTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	expired := newRecord("payments.create", "old", enums.IdempotencyStateCompleted, time.Now().Add(-time.Hour))
	fresh := newRecord("payments.create", "new", enums.IdempotencyStateCompleted, time.Now().Add(time.Hour))
	require.NoError(t, repo.Insert(ctx, expired))
	require.NoError(t, repo.Insert(ctx, fresh))

	purged, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	remaining, err := repo.GetByScopeKey(ctx, "payments.create", "new")
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}
