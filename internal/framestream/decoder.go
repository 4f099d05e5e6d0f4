// Package framestream decodes the producer's SSE-framed event stream.
// Frames are blank-line delimited; payload lines carry a "data:" marker.
// The decoder is tolerant of arbitrary chunk boundaries and skips frames
// that fail to deserialize.
package framestream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tiller/schema"
)

const dataMarker = "data:"

// readChunkSize is the per-read buffer size; frames regularly span reads.
const readChunkSize = 4096

// Decoder turns a raw byte stream into discrete stream events.
type Decoder struct {
	reader io.Reader
	buf    []byte
	eof    bool
	log    pslog.Logger
}

// NewDecoder constructs a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithLogger(r, nil)
}

// NewDecoderWithLogger constructs a decoder that logs skipped frames.
func NewDecoderWithLogger(r io.Reader, logger pslog.Logger) *Decoder {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Decoder{reader: r, log: logger}
}

// Next returns the next decoded event. Malformed frames are skipped, not
// surfaced. At end of stream any incomplete trailing fragment is
// discarded and io.EOF is returned. Events are emitted exactly once, in
// arrival order, regardless of how chunk boundaries fall.
func (d *Decoder) Next(ctx context.Context) (schema.StreamEvent, error) {
	for {
		if ctx.Err() != nil {
			return schema.StreamEvent{}, ctx.Err()
		}
		if frame, ok := d.cutFrame(); ok {
			event, ok := d.decodeFrame(frame)
			if !ok {
				continue
			}
			return event, nil
		}
		if d.eof {
			return schema.StreamEvent{}, io.EOF
		}
		if err := d.fill(); err != nil {
			return schema.StreamEvent{}, err
		}
	}
}

// cutFrame removes and returns the first complete frame from the buffer.
func (d *Decoder) cutFrame() ([]byte, bool) {
	idx := bytes.Index(d.buf, []byte("\n\n"))
	crlfIdx := bytes.Index(d.buf, []byte("\r\n\r\n"))
	width := 2
	if crlfIdx >= 0 && (idx < 0 || crlfIdx < idx) {
		idx = crlfIdx
		width = 4
	}
	if idx < 0 {
		return nil, false
	}
	frame := d.buf[:idx]
	d.buf = d.buf[idx+width:]
	return frame, true
}

func (d *Decoder) fill() error {
	chunk := make([]byte, readChunkSize)
	n, err := d.reader.Read(chunk)
	if n > 0 {
		d.buf = append(d.buf, chunk[:n]...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.eof = true
			return nil
		}
		return err
	}
	return nil
}

// decodeFrame extracts marker-prefixed payload lines and deserializes
// them. Frames without a payload or with undecodable payloads are
// dropped.
func (d *Decoder) decodeFrame(frame []byte) (schema.StreamEvent, bool) {
	payload, ok := framePayload(frame)
	if !ok {
		return schema.StreamEvent{}, false
	}
	var event schema.StreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		if d.log != nil {
			d.log.Warn("frame decode failed", "preview", previewText(string(payload), 200), "err", err)
		}
		return schema.StreamEvent{}, false
	}
	event.Raw = append([]byte(nil), payload...)
	return event, true
}

// framePayload joins the data lines of one frame. Non-data fields and
// comments are ignored per the framing contract.
func framePayload(frame []byte) ([]byte, bool) {
	var parts []string
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, dataMarker) {
			continue
		}
		part := line[len(dataMarker):]
		part = strings.TrimPrefix(part, " ")
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, false
	}
	return []byte(strings.Join(parts, "\n")), true
}

func previewText(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
