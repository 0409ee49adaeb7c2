package state

import (
	"encoding/json"
	"testing"
)

func entry(seq int64, record string) Entry {
	return Entry{Seq: seq, Record: json.RawMessage(record)}
}

func TestApply_SeqRules(t *testing.T) {
	s := NewInMemoryStore()

	applied, cur, err := s.Apply("flexibleCouplings/HGTHT4", entry(1, `{"model":"HGTHT4"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied || cur.Seq != 1 {
		t.Fatalf("first apply should apply: %+v", cur)
	}

	// same seq is a replay and must not overwrite
	applied, cur, err = s.Apply("flexibleCouplings/HGTHT4", entry(1, `{"model":"other"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied || string(cur.Record) != `{"model":"HGTHT4"}` {
		t.Fatalf("same seq should be skipped: %+v", cur)
	}

	applied, cur, err = s.Apply("flexibleCouplings/HGTHT4", entry(3, `{"model":"HGTHT4","torque":4}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied || cur.Seq != 3 {
		t.Fatalf("gap should apply: %+v", cur)
	}

	applied, _, _ = s.Apply("flexibleCouplings/HGTHT4", entry(2, `{}`))
	if applied {
		t.Fatalf("lower seq should be skipped")
	}
}

func TestInMemoryStore_RangeSortedAndLoadAll(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.LoadAll(map[string]Entry{
		"standbyPumps/2CY7.5/2.5D": entry(1, `{}`),
		"hcGearboxes/HC400":        entry(2, `{}`),
		"flexibleCouplings/HGTHT4": entry(1, `{}`),
	})
	var keys []string
	if err := s.Range(func(k string, e Entry) error { keys = append(keys, k); return nil }); err != nil {
		t.Fatalf("range: %v", err)
	}
	want := []string{"flexibleCouplings/HGTHT4", "hcGearboxes/HC400", "standbyPumps/2CY7.5/2.5D"}
	if len(keys) != len(want) {
		t.Fatalf("keys=%v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys=%v want=%v", keys, want)
		}
	}

	_ = s.LoadAll(nil)
	if _, ok := s.Get("hcGearboxes/HC400"); ok {
		t.Fatalf("LoadAll should replace contents")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, _, err := Open("mysql", t.TempDir()); err == nil {
		t.Fatalf("expected error")
	}
	st, closeFn, err := Open("memory", "")
	if err != nil || st == nil || closeFn == nil {
		t.Fatalf("memory open: %v", err)
	}
}
