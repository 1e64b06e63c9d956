package ml

import (
	"bufio"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Artifact file names inside a model directory.
const (
	ForestFile       = "random_forest_model.gob"
	BoostingFile     = "gradient_boosting_model.gob"
	LogisticFile     = "logistic_model.gob"
	EncoderFile      = "label_encoder.gob"
	FeatureNamesFile = "feature_names.txt"
	ManifestFile     = "manifest.yaml"
)

// ModelSummary is the held-out score of one trained model.
type ModelSummary struct {
	Accuracy float64 `yaml:"accuracy"`
	MacroF1  float64 `yaml:"macro_f1"`
}

// Manifest describes a training run.
type Manifest struct {
	TrainedAt time.Time               `yaml:"trained_at"`
	Rows      int                     `yaml:"rows"`
	Features  int                     `yaml:"features"`
	Classes   []string                `yaml:"classes"`
	Models    map[string]ModelSummary `yaml:"models"`
}

// ForestModel is the served classifier with its fitted preprocessor.
type ForestModel struct {
	Preprocessor *Preprocessor
	Forest       *RandomForest
}

// BoostingModel is the gradient-boosted trees classifier with its fitted preprocessor.
type BoostingModel struct {
	Preprocessor *Preprocessor
	Boosting     *GradientBoosting
}

// LogisticModel is the linear baseline with its fitted preprocessor.
type LogisticModel struct {
	Preprocessor *Preprocessor
	Logistic     *LogisticRegression
}

// Artifact is everything a training run writes to its model directory.
type Artifact struct {
	Forest       ForestModel
	Boosting     *BoostingModel
	Logistic     *LogisticModel
	Encoder      *LabelEncoder
	FeatureNames []string
	Manifest     Manifest
}

// Save writes the artifact files into dir, creating it when needed.
func (a *Artifact) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "ml: create model dir %s", dir)
	}
	if err := writeGob(filepath.Join(dir, ForestFile), &a.Forest); err != nil {
		return err
	}
	if a.Boosting != nil {
		if err := writeGob(filepath.Join(dir, BoostingFile), a.Boosting); err != nil {
			return err
		}
	}
	if a.Logistic != nil {
		if err := writeGob(filepath.Join(dir, LogisticFile), a.Logistic); err != nil {
			return err
		}
	}
	if err := writeGob(filepath.Join(dir, EncoderFile), a.Encoder); err != nil {
		return err
	}
	names := strings.Join(a.FeatureNames, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, FeatureNamesFile), []byte(names), 0o644); err != nil {
		return eris.Wrap(err, "ml: write feature names")
	}
	manifest, err := yaml.Marshal(&a.Manifest)
	if err != nil {
		return eris.Wrap(err, "ml: marshal manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0o644); err != nil {
		return eris.Wrap(err, "ml: write manifest")
	}
	return nil
}

// LoadArtifact reads a model directory. The boosting and logistic models are optional.
func LoadArtifact(dir string) (*Artifact, error) {
	a := &Artifact{Encoder: &LabelEncoder{}}
	if err := readGob(filepath.Join(dir, ForestFile), &a.Forest); err != nil {
		return nil, err
	}
	if err := readGob(filepath.Join(dir, EncoderFile), a.Encoder); err != nil {
		return nil, err
	}
	bm := &BoostingModel{}
	switch err := readGob(filepath.Join(dir, BoostingFile), bm); {
	case err == nil:
		a.Boosting = bm
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	lm := &LogisticModel{}
	switch err := readGob(filepath.Join(dir, LogisticFile), lm); {
	case err == nil:
		a.Logistic = lm
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	names, err := ReadFeatureNames(filepath.Join(dir, FeatureNamesFile))
	if err != nil {
		return nil, err
	}
	a.FeatureNames = names

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &a.Manifest); err != nil {
			return nil, eris.Wrap(err, "ml: parse manifest")
		}
	case !os.IsNotExist(err):
		return nil, eris.Wrap(err, "ml: read manifest")
	}
	return a, nil
}

// ReadFeatureNames reads one feature name per line, skipping blank lines.
func ReadFeatureNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ml: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "ml: read %s", path)
	}
	return names, nil
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ml: create %s", path)
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "ml: encode %s", path)
	}
	return eris.Wrapf(f.Close(), "ml: close %s", path)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "ml: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return eris.Wrapf(err, "ml: decode %s", path)
	}
	return nil
}
