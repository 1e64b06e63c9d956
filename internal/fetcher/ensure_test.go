package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
	content []byte
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFetcher) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	args := m.Called(ctx, url, path)
	if err := args.Error(1); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, m.content, 0o644); err != nil {
		return 0, err
	}
	return int64(len(m.content)), nil
}

func TestEnsureFile_Existing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	f := &mockFetcher{}
	require.NoError(t, EnsureFile(context.Background(), f, path, "https://example.com/raw.csv"))
	f.AssertNotCalled(t, "DownloadToFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureFile_Downloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "raw.csv")
	f := &mockFetcher{content: []byte("a,b\n")}
	f.On("DownloadToFile", mock.Anything, "https://example.com/raw.csv", path).Return(int64(4), nil)

	require.NoError(t, EnsureFile(context.Background(), f, path, "https://example.com/raw.csv"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
	f.AssertExpectations(t)
}

func TestEnsureFile_ExtractsZip(t *testing.T) {
	var buf strings.Builder
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("collisions.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("lat,lon\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	dir := t.TempDir()
	path := filepath.Join(dir, "raw.csv")
	f := &mockFetcher{content: []byte(buf.String())}
	f.On("DownloadToFile", mock.Anything, "ftp://example.com/pub/raw.ZIP", mock.Anything).Return(int64(0), nil)

	require.NoError(t, EnsureFile(context.Background(), f, path, "ftp://example.com/pub/raw.ZIP"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lat,lon\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files removed")
}

func TestEnsureFile_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")

	err := EnsureFile(context.Background(), &mockFetcher{}, path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no download url")

	f := &mockFetcher{}
	f.On("DownloadToFile", mock.Anything, "https://example.com/raw.csv", path).Return(int64(0), eris.New("boom"))
	err = EnsureFile(context.Background(), f, path, "https://example.com/raw.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoFileExists(t, path)
}

func TestRouter(t *testing.T) {
	h, ftp := &mockFetcher{content: []byte("h")}, &mockFetcher{content: []byte("f")}
	r := &Router{HTTP: h, FTP: ftp}
	dir := t.TempDir()

	h.On("DownloadToFile", mock.Anything, "https://x.test/a", mock.Anything).Return(int64(1), nil)
	ftp.On("DownloadToFile", mock.Anything, "ftp://x.test/a", mock.Anything).Return(int64(1), nil)

	_, err := r.DownloadToFile(context.Background(), "https://x.test/a", filepath.Join(dir, "1"))
	require.NoError(t, err)
	_, err = r.DownloadToFile(context.Background(), "ftp://x.test/a", filepath.Join(dir, "2"))
	require.NoError(t, err)
	h.AssertExpectations(t)
	ftp.AssertExpectations(t)

	_, err = r.Download(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
}
