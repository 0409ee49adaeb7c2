// Package importer turns raw catalog messages into canonical per-record
// messages. It holds no state, so the transactional consume/produce loop in
// cmd/importer can retry a message freely.
package importer

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"gearsel/internal/adapter"
	"gearsel/internal/catalog"
	"gearsel/internal/pipeline"
	"gearsel/internal/state"
)

// Message is one raw import. A message that is not an envelope is taken to be
// the catalog document itself.
type Message struct {
	BatchID string          `json:"batchId,omitempty"`
	Source  string          `json:"source,omitempty"`
	Catalog json.RawMessage `json:"catalog"`
}

// Record is one canonical catalog record ready to produce, keyed by Key.
type Record struct {
	Key        string          `json:"key"`
	Collection string          `json:"collection"`
	Model      string          `json:"model"`
	Pos        int             `json:"pos"`
	BatchID    string          `json:"batchId"`
	Record     json.RawMessage `json:"record"`
	UpdatedAt  int64           `json:"updatedAt"`
}

// Preparer runs the post-normalization passes.
type Preparer interface {
	Prepare(cat catalog.Catalog, rep *pipeline.Report) catalog.Catalog
}

// NowUnix returns current time in epoch seconds. Split for testability.
var NowUnix = func() int64 { return time.Now().UTC().Unix() }

type Converter struct {
	adapter *adapter.Adapter
	prep    Preparer
}

func NewConverter(a *adapter.Adapter, p Preparer) *Converter {
	return &Converter{adapter: a, prep: p}
}

// Decode reads an envelope or a bare catalog document. A missing batch id is
// filled with a fresh uuid.
func Decode(value []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(value, &m); err != nil {
		return Message{}, errors.Wrap(err, "decode import message")
	}
	if len(bytes.TrimSpace(m.Catalog)) == 0 {
		m = Message{Catalog: json.RawMessage(value)}
	}
	if m.BatchID == "" {
		m.BatchID = uuid.NewString()
	}
	return m, nil
}

// Convert normalizes one message. An empty result is an error so the caller
// can skip the message without opening a transaction.
func (c *Converter) Convert(value []byte) ([]Record, pipeline.Report, error) {
	var rep pipeline.Report
	m, err := Decode(value)
	if err != nil {
		return nil, rep, err
	}
	cat, stats := c.adapter.NormalizeJSON(m.Catalog)
	rep.Normalize = stats
	if cat.Len() == 0 {
		return nil, rep, pipeline.ErrEmptyCatalog
	}
	if c.prep != nil {
		cat = c.prep.Prepare(cat, &rep)
	}

	now := NowUnix()
	recs := state.Records(cat)
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		b, err := json.Marshal(r.Value)
		if err != nil {
			return nil, rep, errors.Wrapf(err, "marshal %s", r.Key)
		}
		out = append(out, Record{
			Key:        r.Key,
			Collection: r.Collection,
			Model:      r.Model,
			Pos:        r.Pos,
			BatchID:    m.BatchID,
			Record:     b,
			UpdatedAt:  now,
		})
	}
	return out, rep, nil
}
