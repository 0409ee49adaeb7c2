// Package snapshot writes and reads point-in-time copies of the catalog store.
//
// A snapshot lives in <baseDir>/<id>/ and holds entries.json, the raw store
// entries used for restore, and catalog.json, the canonical catalog for
// consumers that only need the data.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"gearsel/internal/state"
)

const (
	entriesFile = "entries.json"
	catalogFile = "catalog.json"
)

// ErrNotFound reports a snapshot directory without entries.json.
var ErrNotFound = errors.New("snapshot: not found")

type Snapshotter interface {
	WriteSnapshot(snapshotID string, st state.Store) error
}

// Reader loads the entries of a snapshot.
type Reader interface {
	ReadSnapshot(snapshotID string) (map[string]state.Entry, error)
}

// NewID returns a fresh snapshot id.
func NewID() string { return uuid.NewString() }

type FilesystemSnapshotter struct {
	baseDir string
}

func NewFilesystemSnapshotter(baseDir string) *FilesystemSnapshotter {
	return &FilesystemSnapshotter{baseDir: baseDir}
}

// Dir returns the directory of a snapshot.
func (f *FilesystemSnapshotter) Dir(snapshotID string) string {
	return filepath.Join(f.baseDir, snapshotID)
}

func (f *FilesystemSnapshotter) WriteSnapshot(snapshotID string, st state.Store) error {
	if snapshotID == "" {
		return errors.New("empty snapshot id")
	}
	dir := f.Dir(snapshotID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	dump, err := state.Dump(st)
	if err != nil {
		return errors.Wrap(err, "dump store")
	}
	cat, err := state.LoadCatalog(st)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	if err := writeJSON(filepath.Join(dir, catalogFile), cat); err != nil {
		return err
	}
	// entries.json goes last: its presence marks the snapshot complete.
	return writeJSON(filepath.Join(dir, entriesFile), dump)
}

func (f *FilesystemSnapshotter) ReadSnapshot(snapshotID string) (map[string]state.Entry, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir(snapshotID), entriesFile))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "snapshot %s", snapshotID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	var dump map[string]state.Entry
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot")
	}
	return dump, nil
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "encode")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	return errors.Wrap(os.Rename(tmp, path), "rename")
}
