package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"event-signup-backend/internal/migrations"
	"event-signup-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// testDSNEnv names the Postgres database the *_db_test.go files run against.
// It must be a disposable database: tests add rows and never truncate.
const testDSNEnv = "EVENTS_TEST_DSN"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// setupTestDB connects to the test database and applies the embedded
// migrations once per test binary.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping database test", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	migrateOnce.Do(func() {
		migrateErr = migrations.Up(ctx, pool)
	})
	require.NoError(t, migrateErr, "Failed to migrate test database")

	return pool, pool.Close
}

// createTestUser signs up a user with a unique email
func createTestUser(t *testing.T, db *pgxpool.Pool) *models.User {
	t.Helper()
	user, err := NewUserRepository(db).Upsert(context.Background(), uuid.NewString()+"@example.com")
	require.NoError(t, err, "Failed to create test user")
	return user
}

// createTestEvent inserts a plain event organized by organizer
func createTestEvent(t *testing.T, db *pgxpool.Pool, organizer *models.User, title string, at time.Time, maxParticipants int) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:              uuid.NewString(),
		Organizer:       organizer.ID,
		Title:           title,
		Datetime:        at,
		Location:        "Test Location",
		MaxParticipants: maxParticipants,
	}
	require.NoError(t, NewEventRepository(db).Create(context.Background(), event), "Failed to create test event %s", title)
	return event
}

// setEventState flips the cancelled and ended flags of an event
func setEventState(t *testing.T, db *pgxpool.Pool, eventID string, cancelled, ended bool) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`UPDATE events SET is_cancelled = $2, is_ended = $3 WHERE id = $1`, eventID, cancelled, ended)
	require.NoError(t, err, "Failed to update event state")
}

func countRows(t *testing.T, db *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func eventIDs(events []*models.Event, organizer string) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if organizer == "" || e.Organizer == organizer {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
