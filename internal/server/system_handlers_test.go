package server

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSystemStatus(t *testing.T) {
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir())

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest("GET", "/api/system/status", nil))

	require.Equal(t, 200, rec.Code)

	var res SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "healthy", res.Status)
	assert.GreaterOrEqual(t, res.UptimeHours, 0.0)
	assert.GreaterOrEqual(t, res.RAMPercent, 0.0)
}

func TestHandleDiskUsage(t *testing.T) {
	dataDir := t.TempDir()
	studiesDir := filepath.Join(dataDir, "studies")
	require.NoError(t, os.MkdirAll(studiesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(studiesDir, "blob"), make([]byte, 2048), 0644))

	h := NewSystemHandlers(zerolog.Nop(), dataDir)

	rec := httptest.NewRecorder()
	h.HandleDiskUsage(rec, httptest.NewRequest("GET", "/api/system/disk", nil))

	require.Equal(t, 200, rec.Code)

	var res DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Greater(t, res.StudiesMB, 0.0)
	assert.GreaterOrEqual(t, res.DataDirMB, res.StudiesMB)
}
