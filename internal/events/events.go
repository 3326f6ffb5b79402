// Package events carries marketplace notifications out of the request path.
// Services emit an Event after their write commits. Async queues it and its
// workers fan it out to Redis pub/sub, Kafka, push and e-mail.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"carlink/market/internal/utils"
)

type Type string

const (
	InquiryCreated   Type = "inquiry.created"
	InquiryResponded Type = "inquiry.responded"
	InquiryClosed    Type = "inquiry.closed"
	MessageSent      Type = "message.sent"
	MatchCreated     Type = "match.created"
)

// Event is addressed to a single recipient.
type Event struct {
	Type        Type         `json:"type"`
	RecipientID utils.SixID  `json:"recipient_id"`
	ActorID     utils.SixID  `json:"actor_id"`
	RoomID      *utils.SixID `json:"room_id,omitempty"`
	ListingID   *utils.SixID `json:"listing_id,omitempty"`
	InquiryID   *utils.SixID `json:"inquiry_id,omitempty"`
	MatchID     *utils.SixID `json:"match_id,omitempty"`
	RequestID   *utils.SixID `json:"request_id,omitempty"`
	Score       float64      `json:"score,omitempty"`
	Preview     string       `json:"preview,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Title is the short human-readable heading used by push notifications.
func (e Event) Title() string {
	switch e.Type {
	case InquiryCreated:
		return "New inquiry about your listing"
	case InquiryResponded:
		return "The seller replied to your inquiry"
	case InquiryClosed:
		return "Inquiry closed"
	case MessageSent:
		return "New message"
	case MatchCreated:
		return "New car matches your request"
	}
	return string(e.Type)
}

// Emitter delivers events. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, e Event) error

func (f EmitterFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// Composite fans an event out to every emitter and joins their errors.
type Composite struct {
	emitters []Emitter
}

func NewComposite(emitters ...Emitter) *Composite {
	c := &Composite{}
	for _, e := range emitters {
		c.Add(e)
	}
	return c
}

func (c *Composite) Add(e Emitter) {
	if e != nil {
		c.emitters = append(c.emitters, e)
	}
}

func (c *Composite) Len() int { return len(c.emitters) }

func (c *Composite) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, em := range c.emitters {
		if err := em.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("emit %s: %w", e.Type, errors.Join(errs...))
	}
	return nil
}

// Log writes every event at debug level.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Emit(_ context.Context, e Event) error {
	l.log.Debug("event",
		zap.String("type", string(e.Type)),
		zap.Stringer("recipient", e.RecipientID),
		zap.Stringer("actor", e.ActorID),
	)
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }

// Recorder keeps emitted events in memory. Tests use it to assert on
// notifications.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return r.Err
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
