package core

import (
	"context"

	"pkt.systems/tiller/schema"
)

// OpenStreamRequest identifies one run to start on the producer.
type OpenStreamRequest struct {
	UserID    schema.UserID
	SessionID schema.SessionID
	RunID     schema.RunID
	Prompt    string
	TargetURL string
}

// StreamProvider opens producer event streams for new runs.
type StreamProvider interface {
	Open(ctx context.Context, req OpenStreamRequest) (EventStream, error)
}

// EventStream delivers decoded producer events in order. Next returns
// io.EOF when the stream ends normally.
type EventStream interface {
	Next(ctx context.Context) (schema.StreamEvent, error)
	Close() error
}

// Surface executes approved page actions.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, value string) error
}
