package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates empty files below dir and returns their paths.
func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		paths[i] = p
	}
	return paths
}

func TestDiscovery_Find(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"b.png", "a.jpg", "notes.txt", "a_overlay.png", "scan.TIFF",
		"sub/c.webp", "sub/deeper/d.gif", "sub/e_overlay.png",
	)
	join := func(n string) string { return filepath.Join(dir, n) }

	tests := []struct {
		name      string
		discovery Discovery
		args      []string
		want      []string
	}{
		{
			name: "no args",
			want: nil,
		},
		{
			name: "flat directory skips non images and overlays",
			args: []string{dir},
			want: []string{join("a.jpg"), join("b.png"), join("scan.TIFF")},
		},
		{
			name:      "recursive",
			discovery: Discovery{Recursive: true},
			args:      []string{dir},
			want: []string{
				join("a.jpg"), join("b.png"), join("scan.TIFF"),
				join("sub/c.webp"), join("sub/deeper/d.gif"),
			},
		},
		{
			name:      "include",
			discovery: Discovery{Recursive: true, Include: []string{"*.png", "*.gif"}},
			args:      []string{dir},
			want:      []string{join("b.png"), join("sub/deeper/d.gif")},
		},
		{
			name:      "exclude wins over include",
			discovery: Discovery{Include: []string{"*.png", "*.jpg"}, Exclude: []string{"a.*"}},
			args:      []string{dir},
			want:      []string{join("b.png")},
		},
		{
			name: "explicit files are kept whatever the extension",
			args: []string{join("notes.txt"), join("a_overlay.png")},
			want: []string{join("a_overlay.png"), join("notes.txt")},
		},
		{
			name: "duplicates collapse",
			args: []string{join("b.png"), dir, join("b.png")},
			want: []string{join("a.jpg"), join("b.png"), join("scan.TIFF")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.discovery.Find(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscovery_FindMissing(t *testing.T) {
	_, err := Discovery{}.Find([]string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchAny(t *testing.T) {
	assert.False(t, matchAny("a.png", nil))
	assert.True(t, matchAny("a.png", []string{"*.jpg", "*.png"}))
	assert.False(t, matchAny("a.png", []string{"[", "*.jpg"}))
}

func TestIsOverlay(t *testing.T) {
	assert.True(t, isOverlay("/x/code_overlay.png"))
	assert.False(t, isOverlay("/x/overlay.png"))
	assert.False(t, isOverlay("/x/code_overlay.png.bak"))
}
