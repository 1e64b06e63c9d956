package fetcher

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EnsureFile makes sure path exists. A present file is left alone; otherwise
// rawURL is downloaded to path, creating its directory. A .zip download must
// hold a single file, which becomes path.
func EnsureFile(ctx context.Context, f Fetcher, path, rawURL string) error {
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("path", path))

	if _, err := os.Stat(path); err == nil {
		log.Info("file available")
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "fetcher: stat %s", path)
	}
	if rawURL == "" {
		return eris.Errorf("fetcher: %s is missing and no download url is configured", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create %s", dir)
	}

	log.Info("downloading file", zap.String("url", rawURL))
	if !isZip(rawURL) {
		n, err := f.DownloadToFile(ctx, rawURL, path)
		if err != nil {
			return eris.Wrapf(err, "fetcher: download %s", rawURL)
		}
		log.Info("download complete", zap.Int64("bytes", n))
		return nil
	}

	tmp, err := os.MkdirTemp(dir, ".fetch-*")
	if err != nil {
		return eris.Wrap(err, "fetcher: create temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	archive := filepath.Join(tmp, "download.zip")
	n, err := f.DownloadToFile(ctx, rawURL, archive)
	if err != nil {
		return eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	extracted, err := ExtractZIPSingle(archive, filepath.Join(tmp, "out"))
	if err != nil {
		return err
	}
	if err := os.Rename(extracted, path); err != nil {
		return eris.Wrapf(err, "fetcher: move %s into place", extracted)
	}
	log.Info("download complete", zap.Int64("bytes", n), zap.String("extracted", filepath.Base(extracted)))
	return nil
}

func isZip(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.EqualFold(filepath.Ext(p), ".zip")
}
