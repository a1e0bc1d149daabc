package s0_data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("コード\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestResolveAsOf_DatedNames(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, filepath.Join(dir, "sbi_20261014.csv"), now)
	writeFile(t, filepath.Join(dir, "nested", "sbi_2026-10-16.csv"), now.Add(-48*time.Hour))
	writeFile(t, filepath.Join(dir, "undated.csv"), now.Add(time.Hour))
	writeFile(t, filepath.Join(dir, "notes_20261231.txt"), now)

	asOf, path, err := ResolveAsOf(dir, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), asOf)
	assert.Equal(t, "sbi_2026-10-16.csv", filepath.Base(path))
}

func TestResolveAsOf_FallsBackToModTime(t *testing.T) {
	dir := t.TempDir()
	newest := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	writeFile(t, filepath.Join(dir, "a.csv"), newest.Add(-72*time.Hour))
	writeFile(t, filepath.Join(dir, "b.csv"), newest)

	asOf, path, err := ResolveAsOf(dir, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), asOf)
	assert.Equal(t, "b.csv", filepath.Base(path))
}

func TestResolveAsOf_Empty(t *testing.T) {
	_, _, err := ResolveAsOf(t.TempDir(), time.UTC)
	assert.Error(t, err)
}

func TestDateFromName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		want time.Time
	}{
		{"screening_20261016.csv", true, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		{"2026-01-05_export.csv", true, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"export_20260230.csv", false, time.Time{}},
		{"export.csv", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DateFromName(tt.name, time.UTC)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
