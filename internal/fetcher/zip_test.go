package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIPSingle(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"Motor_Vehicle_Collisions.csv": "a,b\n"})
	dest := t.TempDir()

	path, err := ExtractZIPSingle(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "Motor_Vehicle_Collisions.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestExtractZIPSingle_MultipleFiles(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"a.csv": "1", "b.csv": "2"})
	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1 file")
}

func TestExtractZIPSingle_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../evil.csv": "x"})
	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractZIPSingle_NotAZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.zip")
	require.NoError(t, os.WriteFile(p, []byte("nope"), 0o644))
	_, err := ExtractZIPSingle(p, t.TempDir())
	assert.Error(t, err)
}
