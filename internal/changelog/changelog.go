// Package changelog appends per-record catalog changes to a JSON-lines file
// and/or a Kafka topic. The file line number is the change-log offset that
// manifests and restores refer to.
package changelog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"gearsel/internal/manifest"
	"gearsel/internal/state"
)

// Reasons recorded on a Change.
const (
	ReasonUpsert = "upsert"
	ReasonDelete = "delete"
)

// Change is one versioned catalog record write.
type Change struct {
	Key     string          `json:"key"`
	Seq     int64           `json:"seq"`
	Pos     int             `json:"pos"`
	Reason  string          `json:"reason,omitempty"`
	Record  json.RawMessage `json:"record,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
	TS      int64           `json:"ts"`
}

// Entry is the state form of c.
func (c Change) Entry() state.Entry {
	return state.Entry{Seq: c.Seq, Pos: c.Pos, Record: c.Record, Deleted: c.Deleted}
}

type Writer interface {
	Append(ctx context.Context, c Change) error
}

// Offsetter is implemented by writers that know the current change-log offset.
type Offsetter interface {
	Offset() int64
}

// MultiWriter fans out writes to multiple underlying writers.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

func (m *MultiWriter) Append(ctx context.Context, c Change) error {
	for _, w := range m.writers {
		if err := w.Append(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Offset reports the offset of the first wrapped writer that tracks one.
func (m *MultiWriter) Offset() int64 {
	for _, w := range m.writers {
		if o, ok := w.(Offsetter); ok {
			return o.Offset()
		}
	}
	return 0
}

// FileWriter appends one JSON line per change.
type FileWriter struct {
	mu     sync.Mutex
	path   string
	offset int64
}

func NewFileWriter(dir string, filename string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir")
	}
	w := &FileWriter{path: filepath.Join(dir, filename)}
	n, err := countLines(w.path)
	if err != nil {
		return nil, err
	}
	w.offset = n
	return w, nil
}

func (w *FileWriter) Path() string { return w.path }

// Offset is the number of changes in the file.
func (w *FileWriter) Offset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

func (w *FileWriter) Append(_ context.Context, c Change) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&c); err != nil {
		return errors.Wrap(err, "encode")
	}
	w.offset++
	return nil
}

func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()
	var n int64
	buf := make([]byte, 32*1024)
	r := bufio.NewReader(f)
	for {
		c, err := r.Read(buf)
		n += int64(bytes.Count(buf[:c], []byte{'\n'}))
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, errors.Wrap(err, "count lines")
		}
	}
}

// KafkaWriter publishes changes to a Kafka topic keyed by record key.
type KafkaWriter struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter creates a Kafka writer.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaWriter(bootstrap string, topic string) *KafkaWriter {
	return &KafkaWriter{writer: &kafka.Writer{
		Addr:         kafka.TCP(manifest.Brokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

func (k *KafkaWriter) Append(ctx context.Context, c Change) error {
	b, err := json.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	return errors.Wrapf(k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(c.Key), Value: b}), "kafka append %s", c.Key)
}

// NewKafkaWriterWith is only for tests to inject a fake writer.
func NewKafkaWriterWith(w kafkaMessageWriter) *KafkaWriter {
	return &KafkaWriter{writer: w}
}
