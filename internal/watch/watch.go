// Package watch keeps a local view of a server-held resource synchronized
// through a push event stream, degrading to periodic snapshot polling when
// the stream cannot be kept open.
//
// A Subscription owns one resource's lifecycle: it fetches an initial
// snapshot, opens the stream, retries failed attempts per Policy, and after
// the retry budget is spent switches permanently to polling for that
// subscription's lifetime. All connectivity failures are handled here;
// callers only ever observe them through Mode and Errors.
package watch

import (
	"context"
	"encoding/json"
	"time"
)

// Mode is a subscription's connection state. Exactly one value holds at any
// time.
type Mode int

const (
	ModeDisconnected Mode = iota
	ModeConnecting
	ModeStreaming
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModeDisconnected:
		return "disconnected"
	case ModeConnecting:
		return "connecting"
	case ModeStreaming:
		return "streaming"
	case ModePolling:
		return "polling"
	}
	return "unknown"
}

// Event is one decoded stream frame. The supervisor only interprets Type;
// Raw carries the full frame for subscribers. Unknown types are forwarded,
// not rejected.
type Event struct {
	Type string
	Raw  json.RawMessage
}

// Stream is a single open push connection. Recv blocks until the next frame
// or a transport error; implementations do not retry.
type Stream interface {
	Recv() ([]byte, error)
	Close() error
}

// Opener dials one stream at the given endpoint path.
type Opener interface {
	Open(ctx context.Context, path string) (Stream, error)
}

// OpenFunc adapts a function to the Opener interface.
type OpenFunc func(ctx context.Context, path string) (Stream, error)

func (f OpenFunc) Open(ctx context.Context, path string) (Stream, error) {
	return f(ctx, path)
}

// Fetcher performs one snapshot fetch against a REST path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (json.RawMessage, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, path string) (json.RawMessage, error)

func (f FetchFunc) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	return f(ctx, path)
}

// Policy controls retry and polling cadence. MaxRetries counts scheduled
// stream re-attempts: 0 means the first failure falls straight back to
// polling.
type Policy struct {
	MaxRetries   int
	RetryDelay   time.Duration
	PollInterval time.Duration
}

// DefaultPolicy matches the documented configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		RetryDelay:   2 * time.Second,
		PollInterval: 5 * time.Second,
	}
}

// withDefaults replaces out-of-range fields with defaults so an invalid
// policy can never stall a subscription.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = def.RetryDelay
	}
	if p.PollInterval <= 0 {
		p.PollInterval = def.PollInterval
	}
	return p
}

// Adapter parameterizes a subscription over a concrete resource type: how
// to build its endpoints, decode its snapshot, and classify its events.
type Adapter[R any] struct {
	// EventsPath returns the stream endpoint path for a resource id.
	EventsPath func(id string) string

	// SnapshotPath returns the REST path for the canonical snapshot.
	SnapshotPath func(id string) string

	// Decode turns a snapshot payload into the resource value.
	Decode func(data json.RawMessage) (R, error)

	// Terminal reports whether the snapshot's status ends polling.
	Terminal func(r R) bool

	// Completion reports whether an event signals resource completion and
	// should trigger an out-of-band snapshot refresh. Optional.
	Completion func(ev Event) bool

	// UserError extracts a domain-reported error meant for the user,
	// keyed by its originating context. Optional.
	UserError func(ev Event) (key, message string, ok bool)
}
