// Package restore rebuilds a catalog store from the latest snapshot and the
// change-log entries written after it.
package restore

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"gearsel/internal/changelog"
	"gearsel/internal/manifest"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

// DefaultChangelogPath is where builds append changes unless configured otherwise.
var DefaultChangelogPath = filepath.Join("changelog", "catalog.jsonl")

type Restorer struct {
	stateStore     state.Store
	snapshots      snapshot.Reader
	manifestReader manifest.Reader
	changelogPath  string
	log            zerolog.Logger
}

type Option func(*Restorer)

// WithChangelogPath sets the JSON-lines change log replayed by RestoreAndReplay.
func WithChangelogPath(path string) Option {
	return func(r *Restorer) { r.changelogPath = path }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Restorer) { r.log = l }
}

func NewRestorer(st state.Store, snaps snapshot.Reader, mr manifest.Reader, opts ...Option) *Restorer {
	r := &Restorer{
		stateStore:     st,
		snapshots:      snaps,
		manifestReader: mr,
		changelogPath:  DefaultChangelogPath,
		log:            zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result counts the outcome of a replay. LastAppliedOffset is the change-log
// offset consumed up to, including lines skipped as stale.
type Result struct {
	SnapshotID        string
	Restored          int
	Applied           int
	Skipped           int
	LastAppliedOffset int64
	Bytes             int64
	Error             error
}

// RestoreFromSnapshot replaces the store contents with the snapshot's entries.
// An empty id or a missing snapshot leaves the store untouched.
func (r *Restorer) RestoreFromSnapshot(snapshotID string) (int, error) {
	if snapshotID == "" || r.snapshots == nil {
		return 0, nil
	}
	dump, err := r.snapshots.ReadSnapshot(snapshotID)
	if errors.Is(err, snapshot.ErrNotFound) {
		r.log.Warn().Str("snapshot_id", snapshotID).Msg("snapshot not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read snapshot")
	}
	if err := r.stateStore.LoadAll(dump); err != nil {
		return 0, errors.Wrap(err, "load snapshot")
	}
	r.log.Info().Str("snapshot_id", snapshotID).Int("keys", len(dump)).Msg("loaded snapshot")
	return len(dump), nil
}

// apply writes one encoded change and bumps the counters.
func (r *Restorer) apply(res *Result, data []byte, unit string, n int64) error {
	var c changelog.Change
	if err := json.Unmarshal(data, &c); err != nil {
		return errors.Wrapf(err, "unmarshal %s %d", unit, n)
	}
	ok, _, err := r.stateStore.Apply(c.Key, c.Entry())
	if err != nil {
		return errors.Wrapf(err, "apply %s %d", unit, n)
	}
	if ok {
		res.Applied++
	} else {
		res.Skipped++
	}
	return nil
}

// ReplayChangelog applies every line after fromOffset. A missing file is an
// empty change log.
func (r *Restorer) ReplayChangelog(changelogPath string, fromOffset int64) Result {
	res := Result{LastAppliedOffset: fromOffset}
	file, err := os.Open(changelogPath)
	if os.IsNotExist(err) {
		return res
	}
	if err != nil {
		res.Error = errors.Wrap(err, "open changelog")
		return res
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var lineNum int64
	for scanner.Scan() {
		lineNum++
		if lineNum <= fromOffset {
			continue
		}
		line := scanner.Bytes()
		res.Bytes += int64(len(line)) + 1
		if err := r.apply(&res, line, "line", lineNum); err != nil {
			res.Error = err
			return res
		}
		res.LastAppliedOffset = lineNum
	}
	if err := scanner.Err(); err != nil {
		res.Error = errors.Wrap(err, "scan changelog")
	}
	return res
}

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ReplayKafka applies change messages read from rd. fromOffset is a message
// index, matching the file offset when the topic mirrors the file. Reading
// stops at io.EOF or when ctx ends.
func (r *Restorer) ReplayKafka(ctx context.Context, rd kafkaMessageReader, fromOffset int64) Result {
	res := Result{LastAppliedOffset: fromOffset}
	var idx int64
	for {
		m, err := rd.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return res
			}
			res.Error = errors.Wrap(err, "read kafka")
			return res
		}
		idx++
		if idx <= fromOffset {
			continue
		}
		res.Bytes += int64(len(m.Value))
		if err := r.apply(&res, m.Value, "message", idx); err != nil {
			res.Error = err
			return res
		}
		res.LastAppliedOffset = idx
	}
}

// ReplayKafkaTopic replays partition 0 of topic.
func (r *Restorer) ReplayKafkaTopic(ctx context.Context, brokers []string, topic string, fromOffset int64) Result {
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer rd.Close()
	return r.ReplayKafka(ctx, rd, fromOffset)
}

// RestoreAndReplay loads the snapshot named by the latest manifest and
// replays the configured change log from the manifest's offset. Without a
// manifest the whole change log is replayed onto the current store.
func (r *Restorer) RestoreAndReplay(ctx context.Context) (Result, error) {
	m, err := r.manifestReader.ReadLatest(ctx)
	switch {
	case errors.Is(err, manifest.ErrNoManifest):
		r.log.Warn().Msg("no manifest published, replaying full change log")
	case err != nil:
		return Result{}, errors.Wrap(err, "read manifest")
	}

	restored, err := r.RestoreFromSnapshot(m.SnapshotID)
	if err != nil {
		return Result{}, errors.Wrap(err, "restore snapshot")
	}

	result := r.ReplayChangelog(r.changelogPath, m.LastChangelogOffset)
	result.SnapshotID = m.SnapshotID
	result.Restored = restored
	r.log.Info().
		Str("snapshot_id", m.SnapshotID).
		Int("applied", result.Applied).
		Int("skipped", result.Skipped).
		Int64("last_offset", result.LastAppliedOffset).
		Msg("replay finished")
	return result, result.Error
}
