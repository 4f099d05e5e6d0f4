package framestream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"pkt.systems/tiller/schema"
)

// chunkReader yields the input in fixed-size reads to exercise frame
// reassembly across chunk boundaries.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	if end-r.pos > len(p) {
		end = r.pos + len(p)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func drain(t *testing.T, d *Decoder) []schema.StreamEvent {
	t.Helper()
	var events []schema.StreamEvent
	for {
		event, err := d.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		events = append(events, event)
	}
}

const wellFormed = "data: {\"kind\":\"run_started\",\"run_id\":\"r1\"}\n\n" +
	"data: {\"kind\":\"content_chunk\",\"chunk\":\"<Action>click(sel: '#go')</Action>\"}\n\n" +
	"data: {\"kind\":\"run_completed\"}\n\n"

func TestDecoderChunkingInvariance(t *testing.T) {
	want := drain(t, NewDecoder(bytes.NewReader([]byte(wellFormed))))
	if len(want) != 3 {
		t.Fatalf("expected 3 events, got %d", len(want))
	}
	for size := 1; size <= len(wellFormed); size++ {
		got := drain(t, NewDecoder(&chunkReader{data: []byte(wellFormed), size: size}))
		if len(got) != len(want) {
			t.Fatalf("size %d: got %d events, want %d", size, len(got), len(want))
		}
		for i := range got {
			if got[i].Kind != want[i].Kind || got[i].Chunk != want[i].Chunk {
				t.Fatalf("size %d event %d: got %+v want %+v", size, i, got[i], want[i])
			}
		}
	}
}

func TestDecoderSplitMidMarker(t *testing.T) {
	frame := "data: {\"kind\":\"thinking\",\"message\":\"hm\"}\n\n"
	for _, split := range []int{2, len("data: ") + 3, len(frame) - 1} {
		reader := io.MultiReader(
			bytes.NewReader([]byte(frame[:split])),
			bytes.NewReader([]byte(frame[split:])),
		)
		events := drain(t, NewDecoder(reader))
		if len(events) != 1 {
			t.Fatalf("split %d: got %d events", split, len(events))
		}
		if events[0].Kind != schema.EventThinking || events[0].Message != "hm" {
			t.Fatalf("split %d: unexpected event %+v", split, events[0])
		}
	}
}

func TestDecoderSkipsMalformedFrames(t *testing.T) {
	input := "data: {not json}\n\n" +
		"data: {\"kind\":\"run_completed\"}\n\n"
	events := drain(t, NewDecoder(bytes.NewReader([]byte(input))))
	if len(events) != 1 {
		t.Fatalf("expected malformed frame to be skipped, got %d events", len(events))
	}
	if events[0].Kind != schema.EventRunCompleted {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestDecoderDiscardsTrailingFragment(t *testing.T) {
	input := "data: {\"kind\":\"run_started\"}\n\n" +
		"data: {\"kind\":\"run_comp" // truncated, no delimiter
	events := drain(t, NewDecoder(bytes.NewReader([]byte(input))))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestDecoderMultiLineData(t *testing.T) {
	input := "data: {\"kind\":\"content_chunk\",\ndata: \"chunk\":\"ab\"}\n\n"
	events := drain(t, NewDecoder(bytes.NewReader([]byte(input))))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Chunk != "ab" {
		t.Fatalf("unexpected chunk: %q", events[0].Chunk)
	}
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	input := "event: message\nid: 7\n: keepalive\ndata: {\"kind\":\"run_started\"}\n\n"
	events := drain(t, NewDecoder(bytes.NewReader([]byte(input))))
	if len(events) != 1 || events[0].Kind != schema.EventRunStarted {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecoderCRLFDelimiters(t *testing.T) {
	input := "data: {\"kind\":\"run_started\"}\r\n\r\ndata: {\"kind\":\"run_completed\"}\r\n\r\n"
	events := drain(t, NewDecoder(bytes.NewReader([]byte(input))))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestDecoderContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDecoder(bytes.NewReader([]byte(wellFormed)))
	if _, err := d.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestDecoderPropagatesReadErrors(t *testing.T) {
	d := NewDecoder(failingReader{})
	if _, err := d.Next(context.Background()); err == nil || err.Error() != "connection reset" {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestDecoderPreservesRaw(t *testing.T) {
	events := drain(t, NewDecoder(bytes.NewReader([]byte(wellFormed))))
	if len(events[0].Raw) == 0 {
		t.Fatalf("expected raw payload")
	}
}
