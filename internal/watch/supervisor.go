package watch

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/statusdeck/statusdeck/internal/sanitize"
)

// Subscription tracks one resource. Create with Subscribe, stop with
// Unsubscribe. A Subscription never shares timers, streams, or state with
// another, even for the same resource id.
type Subscription[R any] struct {
	opener  Opener
	fetch   Fetcher
	adapter Adapter[R]
	policy  Policy

	mu sync.Mutex
	st *state[R]

	// notify coalesces change signals for reactive consumers.
	notify chan struct{}
}

// state is the per-resource record. It is replaced wholesale, never reused,
// when the resource id changes; cleanedUp is checked at the top of every
// asynchronous continuation so nothing mutates a torn-down record.
type state[R any] struct {
	id         string
	mode       Mode
	retryCount int
	events     []Event
	snapshot   *R
	errors     map[string]string

	cleanedUp  bool
	retryTimer *time.Timer
	pollCancel context.CancelFunc
	stream     Stream

	ctx    context.Context
	cancel context.CancelFunc
}

// Subscribe starts tracking the resource with the given id. The returned
// subscription is already connecting.
func Subscribe[R any](opener Opener, fetch Fetcher, adapter Adapter[R], policy Policy, id string) *Subscription[R] {
	s := &Subscription[R]{
		opener:  opener,
		fetch:   fetch,
		adapter: adapter,
		policy:  policy.withDefaults(),
		notify:  make(chan struct{}, 1),
	}
	s.mu.Lock()
	s.startLocked(id)
	s.mu.Unlock()
	return s
}

// startLocked installs a fresh state record for id and kicks off the first
// connection attempt. Caller holds s.mu.
func (s *Subscription[R]) startLocked(id string) {
	ctx, cancel := context.WithCancel(context.Background())
	st := &state[R]{
		id:     id,
		mode:   ModeConnecting,
		errors: make(map[string]string),
		ctx:    ctx,
		cancel: cancel,
	}
	s.st = st
	go s.connect(st)
}

// Switch re-targets the subscription to a different resource id: the old
// state is torn down and a fresh record (empty event log, zero retry count)
// replaces it. Switching to the current id is a no-op.
func (s *Subscription[R]) Switch(id string) {
	s.mu.Lock()
	if s.st != nil && !s.st.cleanedUp && s.st.id == id {
		s.mu.Unlock()
		return
	}
	if s.st != nil {
		s.teardownLocked(s.st)
	}
	s.startLocked(id)
	s.mu.Unlock()
	s.changed()
}

// Unsubscribe tears the subscription down. Idempotent.
func (s *Subscription[R]) Unsubscribe() {
	s.mu.Lock()
	if s.st == nil || s.st.cleanedUp {
		s.mu.Unlock()
		return
	}
	s.teardownLocked(s.st)
	s.mu.Unlock()
	s.changed()
}

// teardownLocked releases the state's resources in a fixed order: retry
// timer, polling interval, open stream, then the cleaned-up flag. Caller
// holds s.mu.
func (s *Subscription[R]) teardownLocked(st *state[R]) {
	if st.retryTimer != nil {
		st.retryTimer.Stop()
		st.retryTimer = nil
	}
	if st.pollCancel != nil {
		st.pollCancel()
		st.pollCancel = nil
	}
	if st.stream != nil {
		st.stream.Close()
		st.stream = nil
	}
	st.cleanedUp = true
	st.mode = ModeDisconnected
	st.cancel()
}

// Refetch re-fetches the snapshot immediately without touching the
// connection state machine.
func (s *Subscription[R]) Refetch() {
	s.mu.Lock()
	st := s.st
	cleaned := st == nil || st.cleanedUp
	s.mu.Unlock()
	if cleaned {
		return
	}
	go s.refreshSnapshot(st)
}

// --- accessors ---

// Resource returns the id currently being tracked.
func (s *Subscription[R]) Resource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.id
}

// Mode returns the current connection mode.
func (s *Subscription[R]) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.mode
}

// RetryCount returns how many stream re-attempts have been scheduled for
// the current resource.
func (s *Subscription[R]) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.retryCount
}

// IsConnected reports whether updates are flowing, by stream or by poll.
func (s *Subscription[R]) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.mode == ModeStreaming || s.st.mode == ModePolling
}

// Events returns a copy of the append-only event log, in arrival order.
func (s *Subscription[R]) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.st.events))
	copy(out, s.st.events)
	return out
}

// Snapshot returns the latest snapshot, if one has been fetched.
func (s *Subscription[R]) Snapshot() (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.snapshot == nil {
		var zero R
		return zero, false
	}
	return *s.st.snapshot, true
}

// Errors returns a copy of the sanitized, user-visible errors keyed by
// their originating context.
func (s *Subscription[R]) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.st.errors))
	for k, v := range s.st.errors {
		out[k] = v
	}
	return out
}

// Changed returns a channel that receives a coalesced signal whenever the
// subscription's observable state changes.
func (s *Subscription[R]) Changed() <-chan struct{} {
	return s.notify
}

func (s *Subscription[R]) changed() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// --- state machine ---

// connect runs one attempt cycle: refresh the snapshot (best effort), then
// open the stream. Stream failures feed the retry/fallback rule.
func (s *Subscription[R]) connect(st *state[R]) {
	s.refreshSnapshot(st)

	stream, err := s.opener.Open(st.ctx, s.adapter.EventsPath(st.id))

	s.mu.Lock()
	if st.cleanedUp {
		s.mu.Unlock()
		if err == nil {
			stream.Close()
		}
		return
	}
	if err != nil {
		s.streamFailedLocked(st, err)
		s.mu.Unlock()
		s.changed()
		return
	}
	st.stream = stream
	st.mode = ModeStreaming
	st.retryCount = 0
	s.mu.Unlock()
	s.changed()

	go s.readLoop(st, stream)
}

// streamFailedLocked applies the retry/fallback rule after a failed open or
// a dropped stream. The retry budget spans the whole subscription: the check
// precedes the increment, so maxRetries counts scheduled re-attempts and 0
// falls back on the first failure. Caller holds s.mu; st is not cleaned up.
func (s *Subscription[R]) streamFailedLocked(st *state[R], err error) {
	if st.retryCount >= s.policy.MaxRetries {
		log.Printf("watch: stream for %s failed (%v); retries exhausted, polling every %s", st.id, err, s.policy.PollInterval)
		s.startPollingLocked(st)
		return
	}
	st.retryCount++
	st.mode = ModeConnecting
	log.Printf("watch: stream for %s failed (%v); retry %d/%d in %s", st.id, err, st.retryCount, s.policy.MaxRetries, s.policy.RetryDelay)
	st.retryTimer = time.AfterFunc(s.policy.RetryDelay, func() {
		s.mu.Lock()
		if st.cleanedUp {
			s.mu.Unlock()
			return
		}
		st.retryTimer = nil
		s.mu.Unlock()
		s.connect(st)
	})
}

// readLoop forwards decoded frames as appended events until the stream
// errors or the state is torn down.
func (s *Subscription[R]) readLoop(st *state[R], stream Stream) {
	for {
		frame, err := stream.Recv()
		if err != nil {
			stream.Close()
			s.mu.Lock()
			if st.cleanedUp || st.stream != stream {
				s.mu.Unlock()
				return
			}
			st.stream = nil
			s.streamFailedLocked(st, err)
			s.mu.Unlock()
			s.changed()
			return
		}

		ev, ok := decodeEvent(frame)
		if !ok {
			continue
		}

		s.mu.Lock()
		if st.cleanedUp || st.stream != stream {
			s.mu.Unlock()
			return
		}
		st.events = append(st.events, ev)
		if s.adapter.UserError != nil {
			if key, msg, ok := s.adapter.UserError(ev); ok {
				st.errors[key] = sanitize.Sanitize(msg)
			}
		}
		completion := s.adapter.Completion != nil && s.adapter.Completion(ev)
		s.mu.Unlock()
		s.changed()

		// The final snapshot is authoritative even if this event beat the
		// backend's own status write.
		if completion {
			go s.refreshSnapshot(st)
		}
	}
}

// decodeEvent parses one frame. Malformed frames are dropped and logged;
// they never affect connection state.
func decodeEvent(frame []byte) (Event, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil || head.Type == "" {
		log.Printf("watch: dropping malformed event frame: %.120s", frame)
		return Event{}, false
	}
	raw := make(json.RawMessage, len(frame))
	copy(raw, frame)
	return Event{Type: head.Type, Raw: raw}, true
}

// refreshSnapshot fetches and stores the canonical snapshot. Failures are
// logged and leave the previous snapshot untouched.
func (s *Subscription[R]) refreshSnapshot(st *state[R]) {
	snap, ok := s.fetchSnapshot(st)
	if !ok {
		return
	}
	s.mu.Lock()
	if st.cleanedUp {
		s.mu.Unlock()
		return
	}
	st.snapshot = &snap
	s.mu.Unlock()
	s.changed()
}

func (s *Subscription[R]) fetchSnapshot(st *state[R]) (R, bool) {
	var zero R
	data, err := s.fetch.Fetch(st.ctx, s.adapter.SnapshotPath(st.id))
	if err != nil {
		log.Printf("watch: snapshot fetch for %s: %v", st.id, err)
		return zero, false
	}
	snap, err := s.adapter.Decode(data)
	if err != nil {
		log.Printf("watch: snapshot decode for %s: %v", st.id, err)
		return zero, false
	}
	return snap, true
}

// startPollingLocked flips the subscription into polling mode. Polling is
// terminal for this subscription: only teardown or a terminal snapshot ends
// it. Caller holds s.mu.
func (s *Subscription[R]) startPollingLocked(st *state[R]) {
	st.mode = ModePolling
	pollCtx, cancel := context.WithCancel(st.ctx)
	st.pollCancel = cancel
	go s.pollLoop(st, pollCtx)
}

// pollLoop fetches immediately, then on the fixed interval, until the
// snapshot reports a terminal status or the context is cancelled.
func (s *Subscription[R]) pollLoop(st *state[R], ctx context.Context) {
	ticker := time.NewTicker(s.policy.PollInterval)
	defer ticker.Stop()
	for {
		if s.pollOnce(st, ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pollOnce performs one snapshot fetch. It returns true when polling should
// stop. A failed fetch keeps the previous snapshot and polling continues on
// schedule.
func (s *Subscription[R]) pollOnce(st *state[R], ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	snap, ok := s.fetchSnapshot(st)
	if !ok {
		return false
	}

	s.mu.Lock()
	if st.cleanedUp {
		s.mu.Unlock()
		return true
	}
	st.snapshot = &snap
	terminal := s.adapter.Terminal != nil && s.adapter.Terminal(snap)
	if terminal {
		if st.pollCancel != nil {
			st.pollCancel()
			st.pollCancel = nil
		}
		st.mode = ModeDisconnected
		log.Printf("watch: %s reached terminal status, polling stopped", st.id)
	}
	s.mu.Unlock()
	s.changed()
	return terminal
}
