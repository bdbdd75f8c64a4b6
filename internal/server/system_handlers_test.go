package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yclin/stockfolio/internal/database"
)

type fakeJob struct {
	runs int
	err  error
}

func (j *fakeJob) Run() error   { j.runs++; return j.err }
func (j *fakeJob) Name() string { return "fake" }

func testSystemHandlers(t *testing.T, syncJob *fakeJob) *SystemHandlers {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewSystemHandlers(log, t.TempDir(), nil, nil, nil, syncJob, nil)
}

func testDB(t *testing.T, name string) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHandleDatabaseStats(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testDB(t, "ledger")
	_, err := db.Conn().Exec("CREATE TABLE trades (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	h := NewSystemHandlers(log, t.TempDir(), db, nil, nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/system/database/stats", nil)
	rec := httptest.NewRecorder()
	h.HandleDatabaseStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Databases []DBInfo `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Databases, 1)
	assert.Equal(t, "ledger", resp.Databases[0].Name)
	assert.Greater(t, resp.Databases[0].PageCount, int64(0))
}

func TestHandleIntegrityCheck(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewSystemHandlers(log, t.TempDir(), testDB(t, "ledger"), testDB(t, "history"), nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/system/database/integrity", nil)
	rec := httptest.NewRecorder()
	h.HandleIntegrityCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Databases["ledger"])
	assert.Equal(t, "ok", resp.Databases["history"])
}

func TestHandleVacuum(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewSystemHandlers(log, t.TempDir(), testDB(t, "ledger"), nil, nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/system/database/vacuum", nil)
	rec := httptest.NewRecorder()
	h.HandleVacuum(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Vacuumed []string `json:"vacuumed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"ledger"}, resp.Vacuumed)
}

func TestHandleDiskUsage(t *testing.T) {
	h := testSystemHandlers(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(h.dataDir, "ledger.db"), make([]byte, 2048), 0o644))

	req := httptest.NewRequest("GET", "/api/system/disk", nil)
	rec := httptest.NewRecorder()
	h.HandleDiskUsage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp["data_dir_mb"], 0.0)
}

func TestHandleTriggerSync(t *testing.T) {
	job := &fakeJob{}
	h := testSystemHandlers(t, job)

	req := httptest.NewRequest("POST", "/api/system/jobs/sync-daily-stats", nil)
	rec := httptest.NewRecorder()
	h.HandleTriggerSync(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, job.runs)
}

func TestHandleTriggerSync_JobError(t *testing.T) {
	job := &fakeJob{err: errors.New("boom")}
	h := testSystemHandlers(t, job)

	req := httptest.NewRequest("POST", "/api/system/jobs/sync-daily-stats", nil)
	rec := httptest.NewRecorder()
	h.HandleTriggerSync(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleTriggerCleanup_NotConfigured(t *testing.T) {
	h := testSystemHandlers(t, nil)

	req := httptest.NewRequest("POST", "/api/system/jobs/client-data-cleanup", nil)
	rec := httptest.NewRecorder()
	h.HandleTriggerCleanup(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
