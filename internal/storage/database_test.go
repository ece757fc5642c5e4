package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesSchema(t *testing.T) {
	db := openTestDB(t)

	// All tables exist and are queryable on a fresh database.
	sources, err := db.GetAllSources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	date, hashes, err := db.LoadBuryState()
	require.NoError(t, err)
	assert.Empty(t, date)
	assert.Nil(t, hashes)

	count, err := db.CountReviewsSince(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertSource(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertSource("/vault/notes", SourceLocal)
	require.NoError(t, err)
	assert.Positive(t, id)

	// Re-registering the same path is idempotent.
	again, err := db.InsertSource("/vault/notes", SourceLocal)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	gitID, err := db.InsertSource("https://example.com/cards.git", SourceGit)
	require.NoError(t, err)
	assert.NotEqual(t, id, gitID)

	sources, err := db.GetAllSources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
}

func TestFindSourceByPath(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertSource("/vault/notes", SourceLocal)
	require.NoError(t, err)

	s, err := db.FindSourceByPath("/vault/notes")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "/vault/notes", s.Path)
	assert.Equal(t, SourceLocal, s.Kind)
	assert.False(t, s.LastScanned.Valid)

	missing, err := db.FindSourceByPath("/nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateSourceLastScanned(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertSource("/vault/notes", SourceLocal)
	require.NoError(t, err)
	require.NoError(t, db.UpdateSourceLastScanned(id))

	s, err := db.FindSourceByPath("/vault/notes")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.LastScanned.Valid)
}

func TestBuryStateRoundTrip(t *testing.T) {
	db := openTestDB(t)

	hashes := []string{"hash-a", "hash-b"}
	require.NoError(t, db.SaveBuryState("2024-06-15", hashes))

	date, loaded, err := db.LoadBuryState()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", date)
	assert.Equal(t, hashes, loaded)

	// Saving again overwrites instead of appending.
	require.NoError(t, db.SaveBuryState("2024-06-16", nil))
	date, loaded, err = db.LoadBuryState()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-16", date)
	assert.Empty(t, loaded)
}

func TestReviewLog(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.LogReview("hash-a", "Good", 3, 250, base))
	require.NoError(t, db.LogReview("hash-a", "Easy", 10, 270, base.Add(time.Hour)))
	require.NoError(t, db.LogReview("hash-b", "Hard", 1, 230, base.Add(-48*time.Hour)))

	count, err := db.CountReviewsSince(base)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = db.CountReviewsSince(base.Add(-72 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
