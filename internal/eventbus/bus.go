package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tiller/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventAction carries an action lifecycle update.
	EventAction EventType = "action"
	// EventTranscript carries appended transcript lines.
	EventTranscript EventType = "transcript"
	// EventRun carries a run lifecycle update.
	EventRun EventType = "run"
	// EventSession carries a session lifecycle update.
	EventSession EventType = "session"
)

// Event represents a UI-facing event emitted by the core service. Seq is
// per-user monotonic and supports replay after reconnect.
type Event struct {
	Seq        uint64
	Type       EventType
	Action     schema.ActionEvent
	Transcript schema.TranscriptEvent
	Run        schema.RunEvent
	Session    schema.SessionEvent
}

// Bus fanouts events to per-user subscribers and retains bounded history
// for replay.
type Bus struct {
	mu          sync.Mutex
	users       map[schema.UserID]*userBus
	log         pslog.Logger
	depth       int
	historySize int
}

type userBus struct {
	seq     uint64
	subs    map[chan Event]struct{}
	history []Event
}

// New constructs a Bus with the given replay history size.
func New(logger pslog.Logger, historySize int) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if historySize <= 0 {
		historySize = 1000
	}
	return &Bus{
		users:       make(map[schema.UserID]*userBus),
		log:         logger,
		depth:       256,
		historySize: historySize,
	}
}

// Subscribe registers a subscriber for the user and returns the channel,
// a cancel func, the current seq, and the retained history.
func (b *Bus) Subscribe(userID schema.UserID) (<-chan Event, func(), uint64, []Event) {
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	ub := b.userBusLocked(userID)
	ub.subs[ch] = struct{}{}
	count := len(ub.subs)
	seq := ub.seq
	history := append([]Event(nil), ub.history...)
	b.mu.Unlock()
	b.log.With("user", userID).Debug("eventbus subscribe", "subs", count, "history", len(history))
	return ch, func() {
		b.mu.Lock()
		if ub := b.users[userID]; ub != nil {
			delete(ub.subs, ch)
			if len(ub.subs) == 0 && len(ub.history) == 0 {
				delete(b.users, userID)
			}
		}
		// Closed under the lock: publish sends only to channels still
		// registered, under this same lock.
		close(ch)
		b.mu.Unlock()
		b.log.With("user", userID).Debug("eventbus unsubscribe")
	}, seq, history
}

// OnActionEvent publishes an action event.
func (b *Bus) OnActionEvent(event schema.ActionEvent) {
	b.publish(event.UserID, Event{Type: EventAction, Action: event})
}

// OnTranscript publishes a transcript event.
func (b *Bus) OnTranscript(event schema.TranscriptEvent) {
	b.publish(event.UserID, Event{Type: EventTranscript, Transcript: event})
}

// OnRunEvent publishes a run event.
func (b *Bus) OnRunEvent(event schema.RunEvent) {
	b.publish(event.UserID, Event{Type: EventRun, Run: event})
}

// OnSessionEvent publishes a session event.
func (b *Bus) OnSessionEvent(event schema.SessionEvent) {
	b.publish(event.UserID, Event{Type: EventSession, Session: event})
}

func (b *Bus) publish(userID schema.UserID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ub := b.userBusLocked(userID)
	ub.seq++
	event.Seq = ub.seq
	ub.history = append(ub.history, event)
	if len(ub.history) > b.historySize {
		ub.history = ub.history[len(ub.history)-b.historySize:]
	}
	// Sends stay under the lock; they never block (full subscribers drop
	// the event), and a concurrent unsubscribe cannot close a channel
	// mid-send.
	dropped := 0
	for sub := range ub.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("user", userID).Trace("eventbus dropped", "type", event.Type, "count", dropped)
	}
}

func (b *Bus) userBusLocked(userID schema.UserID) *userBus {
	ub := b.users[userID]
	if ub == nil {
		ub = &userBus{subs: make(map[chan Event]struct{})}
		b.users[userID] = ub
	}
	return ub
}
