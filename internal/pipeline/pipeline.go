// Package pipeline runs a catalog build: normalize a raw import, apply the
// fixed-price and repair passes, then persist every changed record to the
// store and the change log, optionally followed by a snapshot and manifest.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"gearsel/internal/adapter"
	"gearsel/internal/catalog"
	"gearsel/internal/changelog"
	"gearsel/internal/manifest"
	"gearsel/internal/metrics"
	"gearsel/internal/pricing"
	"gearsel/internal/repair"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

// ErrEmptyCatalog is returned when an import normalizes to no records.
// Persisting it would tombstone the whole stored catalog.
var ErrEmptyCatalog = errors.New("pipeline: import produced an empty catalog")

// NowUnix returns current time in epoch seconds. Split for testability.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }

// Report summarizes one build.
type Report struct {
	Normalize   adapter.Stats  `json:"normalize"`
	FixedPriced int            `json:"fixedPriced"`
	Repair      repair.Summary `json:"repair"`
	Changed     int            `json:"changed"`
	Unchanged   int            `json:"unchanged"`
	Removed     int            `json:"removed"`
	SnapshotID  string         `json:"snapshotId,omitempty"`
	Offset      int64          `json:"changelogOffset"`
}

type Builder struct {
	adapter  *adapter.Adapter
	calc     *pricing.Calculator
	repairer *repair.Repairer
	st       state.Store
	clog     changelog.Writer
	snaps    snapshot.Snapshotter
	pub      manifest.Publisher
	metrics  *metrics.Registry
	log      zerolog.Logger
}

type Option func(*Builder)

func WithChangelog(w changelog.Writer) Option {
	return func(b *Builder) { b.clog = w }
}

// WithSnapshots makes every build end with a snapshot and a manifest pointing
// at it.
func WithSnapshots(s snapshot.Snapshotter, p manifest.Publisher) Option {
	return func(b *Builder) { b.snaps, b.pub = s, p }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

func New(a *adapter.Adapter, calc *pricing.Calculator, r *repair.Repairer, st state.Store, opts ...Option) *Builder {
	b := &Builder{adapter: a, calc: calc, repairer: r, st: st, log: zerolog.Nop()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Prepare runs the in-memory passes on an already normalized catalog.
func (b *Builder) Prepare(cat catalog.Catalog, rep *Report) catalog.Catalog {
	rep.FixedPriced = b.calc.ApplyFixedPrice(&cat)
	out, sum := b.repairer.Repair(cat)
	rep.Repair = sum
	if b.metrics != nil {
		for c, n := range sum.Patched {
			b.metrics.RepairPatched.WithLabelValues(c).Add(float64(n))
		}
	}
	return out
}

// Build normalizes raw JSON and persists the result.
func (b *Builder) Build(ctx context.Context, raw []byte) (catalog.Catalog, Report, error) {
	var rep Report
	cat, stats := b.adapter.NormalizeJSON(raw)
	rep.Normalize = stats
	if cat.Len() == 0 {
		return cat, rep, ErrEmptyCatalog
	}
	cat = b.Prepare(cat, &rep)
	if err := b.Persist(ctx, cat, &rep); err != nil {
		return cat, rep, err
	}
	b.log.Info().
		Int("records", cat.Len()).
		Int("dropped", stats.Dropped).
		Int("fixed_priced", rep.FixedPriced).
		Int("patched", rep.Repair.Total()).
		Int("changed", rep.Changed).
		Int("unchanged", rep.Unchanged).
		Int("removed", rep.Removed).
		Str("snapshot_id", rep.SnapshotID).
		Msg("catalog build finished")
	return cat, rep, nil
}

// Persist writes cat to the store. Records whose encoded value and position
// are unchanged are skipped; others get the next per-key seq. Stored keys
// absent from cat receive a tombstone.
func (b *Builder) Persist(ctx context.Context, cat catalog.Catalog, rep *Report) error {
	now := NowUnix()
	seen := make(map[string]struct{}, cat.Len())
	for _, rec := range state.Records(cat) {
		seen[rec.Key] = struct{}{}
		val, err := json.Marshal(rec.Value)
		if err != nil {
			return errors.Wrapf(err, "marshal %s", rec.Key)
		}
		prev, ok := b.st.Get(rec.Key)
		if ok && !prev.Deleted && prev.Pos == rec.Pos && bytes.Equal(prev.Record, val) {
			rep.Unchanged++
			continue
		}
		c := changelog.Change{Key: rec.Key, Seq: prev.Seq + 1, Pos: rec.Pos, Reason: changelog.ReasonUpsert, Record: val, TS: now}
		if err := b.commit(ctx, c); err != nil {
			return err
		}
		rep.Changed++
	}

	// collect first: backends must not be written during Range
	var gone []changelog.Change
	err := b.st.Range(func(key string, e state.Entry) error {
		if _, ok := seen[key]; ok || e.Deleted {
			return nil
		}
		gone = append(gone, changelog.Change{Key: key, Seq: e.Seq + 1, Pos: e.Pos, Reason: changelog.ReasonDelete, Deleted: true, TS: now})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scan store")
	}
	for _, c := range gone {
		if err := b.commit(ctx, c); err != nil {
			return err
		}
		rep.Removed++
	}

	if o, ok := b.clog.(changelog.Offsetter); ok {
		rep.Offset = o.Offset()
	}
	if b.metrics != nil {
		b.metrics.BuildRecords.WithLabelValues("changed").Add(float64(rep.Changed))
		b.metrics.BuildRecords.WithLabelValues("unchanged").Add(float64(rep.Unchanged))
		b.metrics.BuildRecords.WithLabelValues("removed").Add(float64(rep.Removed))
	}

	if b.snaps == nil {
		return nil
	}
	sid := snapshot.NewID()
	if err := b.snaps.WriteSnapshot(sid, b.st); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	rep.SnapshotID = sid
	if b.pub != nil {
		if err := b.pub.PublishLatest(ctx, sid, rep.Offset, cat.Len()); err != nil {
			return errors.Wrap(err, "publish manifest")
		}
	}
	return nil
}

func (b *Builder) commit(ctx context.Context, c changelog.Change) error {
	applied, _, err := b.st.Apply(c.Key, c.Entry())
	if err != nil {
		return errors.Wrapf(err, "apply %s", c.Key)
	}
	if !applied || b.clog == nil {
		return nil
	}
	if err := b.clog.Append(ctx, c); err != nil {
		return errors.Wrapf(err, "append changelog %s", c.Key)
	}
	if b.metrics != nil {
		b.metrics.ChangelogAppended.Inc()
	}
	return nil
}
