package items

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/util"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

const backupVersion = 1

// backup is the on-disk envelope, zstd-compressed JSON.
type backup struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Items     []Item    `json:"items"`
}

// Export writes every item in the given format.
func (s *Store) Export(ctx context.Context, w io.Writer, format Format) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	if all == nil {
		all = []Item{}
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(all); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode yaml export")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode json export")
		}
		return nil
	}
}

// Import reads items in the given format. With replace the collection is
// swapped atomically; otherwise items are saved one by one, updating those
// whose ID already exists. It returns the number of items read.
func (s *Store) Import(ctx context.Context, r io.Reader, format Format, replace bool) (int, error) {
	incoming, err := decodeItems(r, format)
	if err != nil {
		return 0, err
	}
	if replace {
		if err := s.ReplaceAll(ctx, incoming); err != nil {
			return 0, err
		}
		return len(incoming), nil
	}
	for i, it := range incoming {
		if err := it.Validate(); err != nil {
			return i, errors.AddContext(err, errors.CtxOperation, "import")
		}
	}
	for i, it := range incoming {
		if _, err := s.Save(ctx, it); err != nil {
			return i, err
		}
	}
	return len(incoming), nil
}

func decodeItems(r io.Reader, format Format) ([]Item, error) {
	var out []Item
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&out); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.CodeParse, "decode yaml items")
		}
	default:
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "decode json items")
		}
	}
	return out, nil
}

// Backup writes a compressed snapshot of every item to path.
func (s *Store) Backup(ctx context.Context, path string) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(backup{Version: backupVersion, CreatedAt: s.now(), Items: all})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode backup")
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create zstd writer")
	}
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, errors.CodeInternal, "compress backup")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "compress backup")
	}

	tmp := path + ".tmp"
	if err := util.WriteFileWithDirs(tmp, buf.Bytes(), 0o600); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write backup"), errors.CtxPath, path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "finalize backup"), errors.CtxPath, path)
	}
	record("backup", nil)
	return nil
}

// Restore replaces the collection with the contents of a backup file and
// returns the number of restored items.
func (s *Store) Restore(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.AddContext(errors.New(errors.CodeNotFound, "backup "+path), errors.CtxPath, path)
		}
		return 0, errors.Wrap(err, errors.CodeInternal, "open backup")
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeParse, "open zstd stream")
	}
	defer zr.Close()

	var b backup
	if err := json.NewDecoder(zr).Decode(&b); err != nil {
		return 0, errors.AddContext(errors.Wrap(err, errors.CodeParse, "decode backup"), errors.CtxPath, path)
	}
	if b.Version != backupVersion {
		return 0, errors.Newf(errors.CodeNotSupported, "backup version %d is not supported", b.Version)
	}
	if err := s.ReplaceAll(ctx, b.Items); err != nil {
		return 0, err
	}
	record("restore", nil)
	return len(b.Items), nil
}
