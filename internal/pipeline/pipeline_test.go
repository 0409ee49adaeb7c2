package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearsel/internal/adapter"
	"gearsel/internal/catalog"
	"gearsel/internal/changelog"
	"gearsel/internal/manifest"
	"gearsel/internal/metrics"
	"gearsel/internal/pricing"
	"gearsel/internal/repair"
	"gearsel/internal/restore"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

const firstImport = `{
  "hcGearboxes": [
    {"model": "HC400", "ratios": [1.5, 2.0], "transferCapacity": [0.3, 0.28], "inputSpeedRange": [1000, 2100], "thrust": 82, "basePrice": 23000},
    {"model": "HC600A", "ratios": [2.0], "transferCapacity": [0.45], "inputSpeedRange": [1000, 2100], "thrust": 100, "basePrice": 30000}
  ],
  "hcmGearboxes": [
    {"model": "HCM435", "ratios": [2.0], "transferCapacity": [0.32], "basePrice": 51000}
  ],
  "flexibleCouplings": [
    {"model": "HGTHT4.5", "torque": 4.5, "maxTorque": 11.25, "maxSpeed": 2400, "weight": 45, "basePrice": 6200}
  ]
}`

// HC600A is gone and HC400 has a new thrust rating.
const secondImport = `{
  "hcGearboxes": [
    {"model": "HC400", "ratios": [1.5, 2.0], "transferCapacity": [0.3, 0.28], "inputSpeedRange": [1000, 2100], "thrust": 90, "basePrice": 23000}
  ],
  "hcmGearboxes": [
    {"model": "HCM435", "ratios": [2.0], "transferCapacity": [0.32], "basePrice": 51000}
  ],
  "flexibleCouplings": [
    {"model": "HGTHT4.5", "torque": 4.5, "maxTorque": 11.25, "maxSpeed": 2400, "weight": 45, "basePrice": 6200}
  ]
}`

type fixture struct {
	st      *state.InMemoryStore
	clog    *changelog.FileWriter
	snaps   *snapshot.FilesystemSnapshotter
	mf      *manifest.FilesystemManifest
	metrics *metrics.Registry
	builder *Builder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	clog, err := changelog.NewFileWriter(dir, "catalog.jsonl")
	require.NoError(t, err)
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	def := catalog.DefaultDefaults()
	f := fixture{
		st:      state.NewInMemoryStore(),
		clog:    clog,
		snaps:   snapshot.NewFilesystemSnapshotter(dir),
		mf:      manifest.NewFilesystemManifest(dir),
		metrics: metrics.NewRegistry(),
	}
	f.builder = New(adapter.New(calc, def), calc, repair.New(def, zerolog.Nop()), f.st,
		WithChangelog(clog),
		WithSnapshots(f.snaps, f.mf),
		WithMetrics(f.metrics),
	)
	return f
}

func TestBuild_FirstImportWritesEverything(t *testing.T) {
	f := newFixture(t)
	cat, rep, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)

	assert.Equal(t, 4, cat.Len())
	assert.Equal(t, 4, rep.Changed)
	assert.Equal(t, 0, rep.Unchanged)
	assert.Equal(t, int64(4), rep.Offset)
	assert.Equal(t, 1, rep.FixedPriced, "HCM435 is a fixed-price series")
	assert.NotEmpty(t, rep.SnapshotID)

	e, ok := f.st.Get(catalog.Key(catalog.HCGearboxes, "HC600A"))
	require.True(t, ok)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, 1, e.Pos)

	m, err := f.mf.ReadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rep.SnapshotID, m.SnapshotID)
	assert.Equal(t, int64(4), m.LastChangelogOffset)
	assert.Equal(t, 4, m.Records)

	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.ChangelogAppended))
}

func TestBuild_SecondImportWritesOnlyDifferences(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)

	_, rep, err := f.builder.Build(context.Background(), []byte(secondImport))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Changed)
	assert.Equal(t, 2, rep.Unchanged)
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, int64(6), rep.Offset)

	hc400, _ := f.st.Get(catalog.Key(catalog.HCGearboxes, "HC400"))
	assert.Equal(t, int64(2), hc400.Seq)
	gone, _ := f.st.Get(catalog.Key(catalog.HCGearboxes, "HC600A"))
	assert.True(t, gone.Deleted)
	assert.Equal(t, int64(2), gone.Seq)

	got, err := state.LoadCatalog(f.st)
	require.NoError(t, err)
	hc := got.Gearboxes[catalog.HCGearboxes]
	require.Len(t, hc, 1)
	assert.Equal(t, 90.0, hc[0].Thrust)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BuildRecords.WithLabelValues("removed")))
}

func TestBuild_RebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)
	_, rep, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Changed)
	assert.Equal(t, 0, rep.Removed)
	assert.Equal(t, 4, rep.Unchanged)
	assert.Equal(t, int64(4), f.clog.Offset())
}

func TestBuild_RestoreMatchesBuiltCatalog(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)
	want, _, err := f.builder.Build(context.Background(), []byte(secondImport))
	require.NoError(t, err)

	st := state.NewInMemoryStore()
	r := restore.NewRestorer(st, f.snaps, f.mf, restore.WithChangelogPath(f.clog.Path()))
	res, err := r.RestoreAndReplay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied, "latest snapshot already covers the change log")

	got, err := state.LoadCatalog(st)
	require.NoError(t, err)
	wb, err := json.Marshal(want)
	require.NoError(t, err)
	gb, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wb), string(gb))
}

func TestBuild_NotRecordShaped(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.builder.Build(context.Background(), []byte(firstImport))
	require.NoError(t, err)

	_, rep, err := f.builder.Build(context.Background(), []byte(`[1,2,3]`))
	require.ErrorIs(t, err, ErrEmptyCatalog)
	assert.Equal(t, 0, rep.Removed)
	assert.Equal(t, int64(4), f.clog.Offset())
}
