package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIDocument_Valid(t *testing.T) {
	document := NewOpenAPIDocument()

	require.NoError(t, document.Validate(t.Context()))
	for _, path := range []string{"/health", "/api/screenshots", "/api/screenshots/export/pdf", "/api/screenshots/{id}/image", "/api/screenshots/{id}"} {
		assert.NotNil(t, document.Paths.Value(path), "missing path %s", path)
	}
}

func TestDocsRoutes(t *testing.T) {
	e := newTestServer(t, newMemoryStore(), &fakeRenderer{}, 10)

	page := doRequest(e, http.MethodGet, "/docs", nil, "")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "/docs/json")

	rec := doRequest(e, http.MethodGet, "/docs/json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "3.0.3", raw["openapi"])
	assert.Contains(t, raw["paths"], "/api/screenshots/{id}")
}
