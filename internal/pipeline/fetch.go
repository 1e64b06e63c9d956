package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sells-group/collision-cli/internal/config"
	"github.com/sells-group/collision-cli/internal/fetcher"
	"github.com/sells-group/collision-cli/internal/ml"
)

// Fetch targets.
const (
	TargetRaw   = "raw"
	TargetClean = "clean"
	TargetModel = "model"
)

// Targets lists every fetch target.
var Targets = []string{TargetRaw, TargetClean, TargetModel}

// ModelFiles are the artifact files a served model cannot do without.
var ModelFiles = []string{ml.ForestFile, ml.EncoderFile, ml.FeatureNamesFile}

// EnsureModel makes sure every required artifact file is present under dir,
// downloading missing ones from baseURL + "/" + name.
func EnsureModel(ctx context.Context, f fetcher.Fetcher, dir, baseURL string) error {
	for _, name := range ModelFiles {
		url := ""
		if baseURL != "" {
			url = strings.TrimRight(baseURL, "/") + "/" + name
		}
		if err := fetcher.EnsureFile(ctx, f, filepath.Join(dir, name), url); err != nil {
			return err
		}
	}
	return nil
}

// Fetch ensures the named inputs are present. An empty list fetches the raw
// and clean extracts.
func Fetch(ctx context.Context, f fetcher.Fetcher, cfg *config.Config, targets []string) error {
	if len(targets) == 0 {
		targets = []string{TargetRaw, TargetClean}
	}
	for _, t := range targets {
		var err error
		switch t {
		case TargetRaw:
			err = fetcher.EnsureFile(ctx, f, cfg.Data.RawPath(), cfg.Data.RawURL)
		case TargetClean:
			err = fetcher.EnsureFile(ctx, f, cfg.Data.CleanPath(), cfg.Data.CleanURL)
		case TargetModel:
			err = EnsureModel(ctx, f, cfg.Model.Dir, cfg.Model.URL)
		default:
			return unknownTarget(t)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
