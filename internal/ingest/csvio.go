package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/collision-cli/internal/model"
)

// CleanFile cleans the raw file at in and writes the clean artifact to out.
func CleanFile(ctx context.Context, in, out string) (Report, error) {
	f, err := os.Open(in)
	if err != nil {
		return Report{}, eris.Wrapf(err, "ingest: open %s", in)
	}
	defer f.Close() //nolint:errcheck

	records, rep, err := Clean(ctx, f)
	if err != nil {
		return rep, err
	}
	if err := WriteCSV(out, records); err != nil {
		return rep, err
	}
	return rep, nil
}

// ReadClean loads clean_collision_data.csv.
func ReadClean(path string) ([]model.CleanCollision, error) {
	return ReadCSV[model.CleanCollision](path)
}

// ReadProcessed loads processed_collision_data.csv.
func ReadProcessed(path string) ([]model.Collision, error) {
	return ReadCSV[model.Collision](path)
}

// ReadCSV decodes every row of a headered CSV file into T by column name.
// Columns without a matching field are ignored.
func ReadCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	out, err := DecodeCSV[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", path)
	}
	return out, nil
}

// DecodeCSV decodes a headered CSV stream into T.
func DecodeCSV[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read header")
	}

	var out []T
	for {
		var v T
		err := dec.Decode(&v)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode row %d", len(out)+1)
		}
		out = append(out, v)
	}
}

// WriteCSV writes records with a header row to path, creating parent directories.
// The file is written to a temporary name and renamed so readers never see a partial artifact.
func WriteCSV[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "ingest: create dir for %s", path)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "ingest: create %s", tmp)
	}

	if err := EncodeCSV(f, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "ingest: close %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "ingest: rename %s", tmp)
	}
	return nil
}

// EncodeCSV writes a header row followed by one row per record.
func EncodeCSV[T any](w io.Writer, records []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "ingest: encode header")
	}
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrapf(err, "ingest: encode row %d", i+1)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush csv")
}
