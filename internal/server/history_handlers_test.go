package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/history"
)

func TestHistoryHandlers(t *testing.T) {
	s, h := newTestServer(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.Append(ctx, history.Entry{Data: "first https://a.example/x", Symbol: "QR Code"}))
	require.NoError(t, h.Append(ctx, history.Entry{Data: "second", Symbol: "EAN-13"}))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "second", list.Entries[0].Data)
	assert.Equal(t, []string{"https://a.example/x"}, list.Entries[1].Links)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/history/copy", nil))
	assert.Equal(t, "second\n\nfirst https://a.example/x", rec.Body.String())

	id := list.Entries[0].ID
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/history/copy?id="+id, nil))
	assert.Equal(t, "second", rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/history/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.List(), 1)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/history/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/history", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, h.List())
}
