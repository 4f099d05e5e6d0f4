package core

import "pkt.systems/tiller/schema"

// transcript stores scrollback lines and scroll state for one session.
// ScrollOffset is the number of lines from the bottom; 0 means at bottom.
type transcript struct {
	lines        []string
	scrollOffset int
	maxLines     int
}

// Append adds lines to the transcript. If the view is scrolled up, the
// scroll offset is increased to keep it anchored.
func (t *transcript) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	t.lines = append(t.lines, lines...)
	if t.scrollOffset > 0 {
		t.scrollOffset += len(lines)
	}
	maxLines := t.maxLines
	if maxLines <= 0 {
		maxLines = schema.DefaultTranscriptMaxLines
	}
	if maxLines > 0 && len(t.lines) > maxLines {
		trim := len(t.lines) - maxLines
		t.lines = t.lines[trim:]
		if t.scrollOffset > len(t.lines) {
			t.scrollOffset = len(t.lines)
		}
		if t.scrollOffset < 0 {
			t.scrollOffset = 0
		}
	}
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up
// (older lines), negative delta scrolls down. Limit is the viewport
// height.
func (t *transcript) Scroll(delta, limit int) {
	t.scrollOffset = clampScroll(t.scrollOffset+delta, len(t.lines), limit)
}

// Snapshot returns a view of the transcript for the given viewport limit.
func (t *transcript) Snapshot(limit int) schema.TranscriptSnapshot {
	total := len(t.lines)
	if limit <= 0 || limit > total {
		limit = total
	}

	max := maxScroll(total, limit)
	if t.scrollOffset > max {
		t.scrollOffset = max
	}

	end := total - t.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	lines := make([]string, end-start)
	copy(lines, t.lines[start:end])

	return schema.TranscriptSnapshot{
		Lines:        lines,
		TotalLines:   total,
		ScrollOffset: t.scrollOffset,
		AtBottom:     t.scrollOffset == 0,
	}
}

// Export returns the transcript state for persistence.
func (t *transcript) Export() ([]string, int) {
	if t == nil {
		return nil, 0
	}
	lines := append([]string(nil), t.lines...)
	offset := t.scrollOffset
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	return lines, offset
}

// newTranscript returns a transcript with the provided line cap.
func newTranscript(maxLines int) *transcript {
	t := &transcript{maxLines: schema.DefaultTranscriptMaxLines}
	if maxLines > 0 {
		t.maxLines = maxLines
	}
	return t
}

// newTranscriptFromPersisted constructs a transcript from persisted data.
func newTranscriptFromPersisted(lines []string, offset, maxLines int) *transcript {
	t := newTranscript(maxLines)
	restored := append([]string(nil), lines...)
	if t.maxLines > 0 && len(restored) > t.maxLines {
		restored = restored[len(restored)-t.maxLines:]
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(restored) {
		offset = len(restored)
	}
	t.lines = restored
	t.scrollOffset = offset
	return t
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
