package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/ml"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockFetcher) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	args := m.Called(ctx, url, path)
	if err := args.Error(1); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(url), 0o644); err != nil {
		return 0, err
	}
	return int64(len(url)), nil
}

func TestEnsureModel_DownloadsMissingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ml.EncoderFile), []byte("x"), 0o644))

	f := &mockFetcher{}
	f.On("DownloadToFile", mock.Anything, "https://models.example/v1/"+ml.ForestFile, filepath.Join(dir, ml.ForestFile)).Return(int64(1), nil)
	f.On("DownloadToFile", mock.Anything, "https://models.example/v1/"+ml.FeatureNamesFile, filepath.Join(dir, ml.FeatureNamesFile)).Return(int64(1), nil)

	require.NoError(t, EnsureModel(context.Background(), f, dir, "https://models.example/v1/"))
	f.AssertExpectations(t)
	f.AssertNumberOfCalls(t, "DownloadToFile", 2)
}

func TestEnsureModel_NoURL(t *testing.T) {
	err := EnsureModel(context.Background(), &mockFetcher{}, t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no download url")
}

func TestFetch_DefaultTargets(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Data.RawURL = "https://data.example/raw.csv"
	cfg.Data.CleanURL = "https://data.example/clean.csv"

	f := &mockFetcher{}
	f.On("DownloadToFile", mock.Anything, cfg.Data.RawURL, cfg.Data.RawPath()).Return(int64(1), nil)
	f.On("DownloadToFile", mock.Anything, cfg.Data.CleanURL, cfg.Data.CleanPath()).Return(int64(1), nil)

	require.NoError(t, Fetch(context.Background(), f, cfg, nil))
	f.AssertExpectations(t)
}

func TestFetch_UnknownTarget(t *testing.T) {
	err := Fetch(context.Background(), &mockFetcher{}, testConfig(t.TempDir()), []string{"weights"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fetch target")
}
