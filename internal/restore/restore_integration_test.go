package restore

import (
	"context"
	"encoding/json"
	"testing"

	"gearsel/internal/catalog"
	"gearsel/internal/changelog"
	"gearsel/internal/manifest"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

func change(t *testing.T, key string, seq int64, pos int, v any) changelog.Change {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return changelog.Change{Key: key, Seq: seq, Pos: pos, Reason: changelog.ReasonUpsert, Record: b}
}

// Integration: changelog -> snapshot -> manifest -> more changes -> RestoreAndReplay on a pebble store.
func TestIntegration_RestoreAndReplay_EndToEnd(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	cw, err := changelog.NewFileWriter(base, "catalog.jsonl")
	if err != nil {
		t.Fatalf("changelog: %v", err)
	}
	prep := state.NewInMemoryStore()
	write := func(c changelog.Change) {
		t.Helper()
		if err := cw.Append(ctx, c); err != nil {
			t.Fatalf("append: %v", err)
		}
		if _, _, err := prep.Apply(c.Key, c.Entry()); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	hc400 := catalog.Key(catalog.HCGearboxes, "HC400")
	hc600 := catalog.Key(catalog.HCGearboxes, "HC600A")
	coupling := catalog.Key(catalog.FlexibleCouplings, "HGTHT4.5")

	// 1) Initial build, then snapshot + manifest at the current offset.
	write(change(t, hc400, 1, 0, catalog.Gearbox{Model: "HC400", Thrust: 82}))
	write(change(t, hc600, 1, 1, catalog.Gearbox{Model: "HC600A", Thrust: 100}))
	snaps := snapshot.NewFilesystemSnapshotter(base)
	sid := snapshot.NewID()
	if err := snaps.WriteSnapshot(sid, prep); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	mf := manifest.NewFilesystemManifest(base)
	if err := mf.PublishLatest(ctx, sid, cw.Offset(), 2); err != nil {
		t.Fatalf("publish manifest: %v", err)
	}

	// 2) Later build: HC400 changes, HC600A is removed, a coupling appears.
	write(change(t, hc400, 2, 0, catalog.Gearbox{Model: "HC400", Thrust: 90}))
	write(changelog.Change{Key: hc600, Seq: 2, Pos: 1, Reason: changelog.ReasonDelete, Deleted: true})
	write(change(t, coupling, 1, 0, catalog.Coupling{Model: "HGTHT4.5", Torque: 4.5}))

	// 3) Restore into a fresh pebble store.
	st, closeFn, err := state.Open("pebble", t.TempDir())
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })

	r := NewRestorer(st, snaps, mf, WithChangelogPath(cw.Path()))
	res, err := r.RestoreAndReplay(ctx)
	if err != nil {
		t.Fatalf("RestoreAndReplay: %v", err)
	}
	if res.Restored != 2 || res.Applied != 3 || res.Skipped != 0 || res.LastAppliedOffset != 5 {
		t.Fatalf("result unexpected: %+v", res)
	}

	got, err := state.LoadCatalog(st)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	want, err := state.LoadCatalog(prep)
	if err != nil {
		t.Fatalf("LoadCatalog prep: %v", err)
	}
	gb, _ := json.Marshal(got)
	wb, _ := json.Marshal(want)
	if string(gb) != string(wb) {
		t.Fatalf("restored catalog differs:\n got %s\nwant %s", gb, wb)
	}
	hc := got.Gearboxes[catalog.HCGearboxes]
	if len(hc) != 1 || hc[0].Thrust != 90 {
		t.Fatalf("unexpected gearboxes: %+v", hc)
	}
}
