package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/history"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

// scanInto records payloads in the history by scanning generated codes.
func scanInto(t *testing.T, dir string, payloads ...string) {
	t.Helper()
	for i, p := range payloads {
		file := testutil.WriteQR(t, dir, "code"+string(rune('a'+i))+".png", p)
		_, _, err := execute(t, "image", file)
		require.NoError(t, err)
	}
}

func TestHistoryListEmpty(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "History is empty\n", out)
}

func TestHistoryListNewestFirst(t *testing.T) {
	dir := isolate(t)
	scanInto(t, dir, "first", "https://example.org/second")

	out, _, err := execute(t, "history", "list", "--format", "json")
	require.NoError(t, err)

	var items []struct {
		ID    string   `json:"id"`
		Data  string   `json:"data"`
		Links []string `json:"links"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.org/second", items[0].Data)
	assert.Equal(t, []string{"https://example.org/second"}, items[0].Links)
	assert.Equal(t, "first", items[1].Data)
	assert.Equal(t, history.Entry{Data: "first"}.ID(), items[1].ID)
}

func TestHistoryCopyAndDelete(t *testing.T) {
	dir := isolate(t)
	scanInto(t, dir, "one", "two")
	idOne := history.Entry{Data: "one"}.ID()
	idTwo := history.Entry{Data: "two"}.ID()

	out, _, err := execute(t, "history", "copy", idOne, idTwo)
	require.NoError(t, err)
	assert.Equal(t, "two\n\none\n", out)

	out, _, err = execute(t, "history", "delete", idOne)
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 entries\n", out)

	out, _, err = execute(t, "history", "copy")
	require.NoError(t, err)
	assert.Equal(t, "two\n", out)
}

func TestHistoryClear(t *testing.T) {
	dir := isolate(t)
	scanInto(t, dir, "gone")

	out, _, err := execute(t, "history", "clear")
	require.NoError(t, err)
	assert.Equal(t, "History cleared\n", out)

	out, _, err = execute(t, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "History is empty\n", out)
}

func TestHistoryListUnsupportedFormat(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "history", "list", "--format", "xml")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "xml"))
}
