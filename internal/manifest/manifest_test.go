package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestPublishAndReadLatest(t *testing.T) {
	old := NowUnix
	NowUnix = func() int64 { return 1700000000 }
	t.Cleanup(func() { NowUnix = old })

	dir := t.TempDir()
	m := NewFilesystemManifest(dir)
	if _, err := m.ReadLatest(context.Background()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("want ErrNoManifest before publish, got %v", err)
	}
	if err := m.PublishLatest(context.Background(), "sid-123", 42, 7); err != nil {
		t.Fatalf("PublishLatest error: %v", err)
	}
	got, err := m.ReadLatest(context.Background())
	if err != nil {
		t.Fatalf("ReadLatest error: %v", err)
	}
	want := Manifest{SnapshotID: "sid-123", LastChangelogOffset: 42, Records: 7, CreatedAtEpochSecond: 1700000000}
	if got != want {
		t.Fatalf("unexpected manifest: %+v", got)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests
type fakeKafkaWriter struct {
	msgs []kafka.Message
	fail bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("fail")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaManifest_PublishLatest_Success(t *testing.T) {
	fk := &fakeKafkaWriter{}
	km := NewKafkaManifestWith(fk, "catalog-manifest-latest")
	if err := km.PublishLatest(context.Background(), "sid-abc", 99, 3); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fk.msgs) != 1 {
		t.Fatalf("want 1 msg, got %d", len(fk.msgs))
	}
	if string(fk.msgs[0].Key) != "catalog-manifest-latest" {
		t.Fatalf("bad key: %s", string(fk.msgs[0].Key))
	}
}

func TestKafkaManifest_PublishLatest_Fail(t *testing.T) {
	km := NewKafkaManifestWith(&fakeKafkaWriter{fail: true}, "catalog-manifest-latest")
	if err := km.PublishLatest(context.Background(), "sid-abc", 99, 3); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMultiPublisher_StopsOnError(t *testing.T) {
	ok := &fakeKafkaWriter{}
	bad := &fakeKafkaWriter{fail: true}
	after := &fakeKafkaWriter{}
	mp := NewMultiPublisher(NewKafkaManifestWith(ok, "k"), NewKafkaManifestWith(bad, "k"), NewKafkaManifestWith(after, "k"))
	if err := mp.PublishLatest(context.Background(), "sid", 1, 1); err == nil {
		t.Fatalf("expected error")
	}
	if len(ok.msgs) != 1 || len(after.msgs) != 0 {
		t.Fatalf("unexpected fan-out: ok=%d after=%d", len(ok.msgs), len(after.msgs))
	}
}

// fakeKafkaReader replays msgs then reports io.EOF.
type fakeKafkaReader struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeKafkaReader) Close() error { f.closed = true; return nil }

func manifestMsg(t *testing.T, key, sid string, off int64) kafka.Message {
	t.Helper()
	b, err := json.Marshal(Manifest{SnapshotID: sid, LastChangelogOffset: off})
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Key: []byte(key), Value: b}
}

func TestKafkaReader_KeepsLastForKey(t *testing.T) {
	fr := &fakeKafkaReader{msgs: []kafka.Message{
		manifestMsg(t, "k", "sid-1", 1),
		manifestMsg(t, "other", "sid-x", 100),
		manifestMsg(t, "k", "sid-2", 5),
	}}
	got, err := NewKafkaReaderWith(fr, "k").ReadLatest(context.Background())
	if err != nil {
		t.Fatalf("ReadLatest: %v", err)
	}
	if got.SnapshotID != "sid-2" || got.LastChangelogOffset != 5 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if !fr.closed {
		t.Fatalf("reader not closed")
	}
}

func TestKafkaReader_NoManifest(t *testing.T) {
	fr := &fakeKafkaReader{msgs: []kafka.Message{manifestMsg(t, "other", "sid-x", 1)}}
	if _, err := NewKafkaReaderWith(fr, "k").ReadLatest(context.Background()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("want ErrNoManifest, got %v", err)
	}
}

func TestBrokers(t *testing.T) {
	got := Brokers(" a:1, ,b:2 ")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("bad brokers: %v", got)
	}
}
