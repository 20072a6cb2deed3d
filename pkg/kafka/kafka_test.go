package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type sample struct {
	CollectionID string `json:"collection_id"`
	WordCount    int    `json:"word_count"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[sample]([]byte(`{"collection_id":"news","word_count":7}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.CollectionID != "news" || got.WordCount != 7 {
		t.Errorf("got %+v", got)
	}
	if _, err := DecodeJSON[sample]([]byte(`{not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestEncodeEvents(t *testing.T) {
	msgs, err := encodeEvents([]Event{
		{Key: "news", Value: sample{CollectionID: "news", WordCount: 3}},
		{Key: "blogs", Value: map[string]string{"document_id": "d1"}},
	})
	if err != nil {
		t.Fatalf("encodeEvents: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if string(msgs[0].Key) != "news" || string(msgs[0].Value) != `{"collection_id":"news","word_count":3}` {
		t.Errorf("msg[0] = %s / %s", msgs[0].Key, msgs[0].Value)
	}

	_, err = encodeEvents([]Event{{Key: "bad", Value: make(chan int)}})
	if err == nil || !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("err = %v, want marshal error naming the key", err)
	}
}

type fakeReader struct {
	msgs      []kafka.Message
	next      int
	committed chan int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.next < len(r.msgs) {
		r.next++
		return r.msgs[r.next-1], nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed <- m.Offset
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerRetriesThenSkips(t *testing.T) {
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Key: []byte("news"), Value: []byte("flaky"), Offset: 1},
			{Key: []byte("news"), Value: []byte("broken"), Offset: 2},
		},
		committed: make(chan int64, 2),
	}
	calls := map[string]int{}
	handler := func(_ context.Context, _ []byte, value []byte) error {
		calls[string(value)]++
		if string(value) == "flaky" && calls["flaky"] < 3 {
			return errors.New("postgres unavailable")
		}
		if string(value) == "broken" {
			return errors.New("still failing")
		}
		return nil
	}
	c := newConsumer(reader, "document-ingest", handler, 3)
	c.retry.InitialDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	for _, want := range []int64{1, 2} {
		select {
		case got := <-reader.committed:
			if got != want {
				t.Errorf("committed offset %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("offset %d never committed", want)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start: %v", err)
	}
	if !reader.closed {
		t.Error("reader not closed on shutdown")
	}
	if calls["flaky"] != 3 || calls["broken"] != 3 {
		t.Errorf("calls = %v, want 3 attempts each", calls)
	}
}

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "document-ingest")
	if err := p.PublishBatch(context.Background(), nil); err != nil || len(w.written) != 0 {
		t.Fatalf("empty batch: err = %v, written = %d", err, len(w.written))
	}
	err := p.PublishBatch(context.Background(), []Event{
		{Key: "news", Value: sample{CollectionID: "news"}},
		{Key: "bad", Value: make(chan int)},
	})
	if err == nil || len(w.written) != 0 {
		t.Fatalf("unencodable batch: err = %v, written = %d", err, len(w.written))
	}

	w.err = errors.New("leader not available")
	err = p.PublishBatch(context.Background(), []Event{{Key: "news", Value: sample{CollectionID: "news"}}})
	if !errors.Is(err, w.err) || !strings.Contains(err.Error(), "publishing 1 events") {
		t.Errorf("err = %v", err)
	}
}
