package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCacheDB(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return NewRepository(db)
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := setupCacheDB(t)

	payload := map[string]float64{"price": 585.0}
	require.NoError(t, repo.Store("finmind_quote", "2330", payload, TTLQuote))

	data, err := repo.GetIfFresh("finmind_quote", "2330")
	require.NoError(t, err)
	require.NotNil(t, data)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 585.0, got["price"])
}

func TestGetIfFresh_MissReturnsNilNil(t *testing.T) {
	repo := setupCacheDB(t)

	data, err := repo.GetIfFresh("finmind_quote", "0050")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGetIfFresh_ExpiredReturnsNil_GetStillServesStale(t *testing.T) {
	repo := setupCacheDB(t)

	// Negative TTL stores an already-expired row.
	require.NoError(t, repo.Store("finmind_quote", "2330", "stale", -time.Minute))

	fresh, err := repo.GetIfFresh("finmind_quote", "2330")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get("finmind_quote", "2330")
	require.NoError(t, err)
	assert.NotNil(t, stale)
}

func TestStore_UpsertsOnSameKey(t *testing.T) {
	repo := setupCacheDB(t)

	require.NoError(t, repo.Store("finmind_quote", "2330", "old", TTLQuote))
	require.NoError(t, repo.Store("finmind_quote", "2330", "new", TTLQuote))

	data, err := repo.Get("finmind_quote", "2330")
	require.NoError(t, err)

	var got string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "new", got)
}

func TestValidateTable_RejectsUnknownTables(t *testing.T) {
	repo := setupCacheDB(t)

	err := repo.Store("trades; DROP TABLE trades", "x", "y", time.Minute)
	assert.Error(t, err)

	_, err = repo.GetIfFresh("unknown_table", "x")
	assert.Error(t, err)
}

func TestCleanupJob_RemovesOnlyExpired(t *testing.T) {
	repo := setupCacheDB(t)

	require.NoError(t, repo.Store("finmind_quote", "expired", "x", -time.Minute))
	require.NoError(t, repo.Store("finmind_quote", "fresh", "y", time.Hour))
	require.NoError(t, repo.Store("finmind_history", "expired", "z", -time.Minute))

	job := NewCleanupJob(repo, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, "client_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	data, err := repo.Get("finmind_quote", "expired")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = repo.Get("finmind_quote", "fresh")
	require.NoError(t, err)
	assert.NotNil(t, data)
}
