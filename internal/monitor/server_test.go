package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusReturnsSnapshot(t *testing.T) {
	bb := blackboard.New(false)
	bb.Put("services/kmerfinder/results", "ok")

	srv := New(bb, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	services, ok := snapshot["services"].(map[string]any)
	require.True(t, ok)
	kmerfinder, ok := services["kmerfinder"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", kmerfinder["results"])
	assert.Contains(t, snapshot, "log")
}
