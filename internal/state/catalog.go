package state

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"gearsel/internal/catalog"
)

// Record is one catalog record with its storage key.
type Record struct {
	Key        string
	Collection string
	Model      string
	Pos        int
	Value      any
}

// Records flattens cat into storage records in catalog order.
func Records(cat catalog.Catalog) []Record {
	var out []Record
	for _, name := range catalog.GearboxCollections {
		for i, g := range cat.Gearboxes[name] {
			out = append(out, Record{Key: catalog.Key(name, g.Model), Collection: name, Model: g.Model, Pos: i, Value: g})
		}
	}
	for i, c := range cat.Couplings {
		out = append(out, Record{Key: catalog.Key(catalog.FlexibleCouplings, c.Model), Collection: catalog.FlexibleCouplings, Model: c.Model, Pos: i, Value: c})
	}
	for i, p := range cat.Pumps {
		out = append(out, Record{Key: catalog.Key(catalog.StandbyPumps, p.Model), Collection: catalog.StandbyPumps, Model: p.Model, Pos: i, Value: p})
	}
	return out
}

// LoadCatalog rebuilds a catalog from every live entry in st, ordering each
// collection by stored position.
func LoadCatalog(st Store) (catalog.Catalog, error) {
	type item struct {
		pos   int
		model string
		raw   json.RawMessage
	}
	byColl := map[string][]item{}
	err := st.Range(func(key string, e Entry) error {
		if e.Deleted || len(e.Record) == 0 {
			return nil
		}
		coll, model, ok := catalog.SplitKey(key)
		if !ok {
			return errors.Newf("malformed key %q", key)
		}
		byColl[coll] = append(byColl[coll], item{pos: e.Pos, model: model, raw: e.Record})
		return nil
	})
	if err != nil {
		return catalog.Catalog{}, err
	}

	cat := catalog.New()
	for coll, items := range byColl {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].pos != items[j].pos {
				return items[i].pos < items[j].pos
			}
			return items[i].model < items[j].model
		})
		for _, it := range items {
			if err := decodeInto(&cat, coll, it.raw); err != nil {
				return catalog.Catalog{}, errors.Wrapf(err, "decode %s/%s", coll, it.model)
			}
		}
	}
	return cat, nil
}

func decodeInto(cat *catalog.Catalog, coll string, raw json.RawMessage) error {
	switch catalog.KindOf(coll) {
	case catalog.KindGearbox:
		var g catalog.Gearbox
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		cat.Gearboxes[coll] = append(cat.Gearboxes[coll], g)
	case catalog.KindCoupling:
		var c catalog.Coupling
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		cat.Couplings = append(cat.Couplings, c)
	case catalog.KindPump:
		var p catalog.Pump
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		cat.Pumps = append(cat.Pumps, p)
	default:
		return errors.Newf("unknown collection %q", coll)
	}
	return nil
}
