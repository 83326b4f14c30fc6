package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/prefs"
)

func TestPrefsShowDefaults(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "prefs", "show")
	require.NoError(t, err)
	assert.Equal(t, "max: 100\nsave: true\nauto-start: false\ncamera: \n", out)
}

func TestPrefsSetAndReset(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "prefs", "set", "max", "5")
	require.NoError(t, err)
	_, _, err = execute(t, "prefs", "set", "save", "false")
	require.NoError(t, err)

	out, _, err := execute(t, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max: 5\n")
	assert.Contains(t, out, "save: false\n")

	_, _, err = execute(t, "prefs", "reset", "max", "save")
	require.NoError(t, err)
	out, _, err = execute(t, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max: 100\n")
	assert.Contains(t, out, "save: true\n")
}

func TestPrefsSaveDisabledSkipsPersisting(t *testing.T) {
	dir := isolate(t)
	_, _, err := execute(t, "prefs", "set", "save", "false")
	require.NoError(t, err)
	scanInto(t, dir, "volatile")

	out, _, err := execute(t, "history", "list")
	require.NoError(t, err)
	assert.Equal(t, "History is empty\n", out)
}

func TestParsePref(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{"max", prefs.KeyMax, "20", 20, false},
		{"max zero", prefs.KeyMax, "0", nil, true},
		{"max text", prefs.KeyMax, "many", nil, true},
		{"save", prefs.KeySave, "false", false, false},
		{"auto start", prefs.KeyAutoStart, "true", true, false},
		{"auto start text", prefs.KeyAutoStart, "sometimes", nil, true},
		{"camera", prefs.KeyCamera, "frames", "frames", false},
		{"history is not settable", prefs.KeyHistory, "[]", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePref(tt.key, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrefsResetUnknownKey(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "prefs", "reset", "colour")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preference")
}
