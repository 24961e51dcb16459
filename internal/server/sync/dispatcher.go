// Package sync implements the synchronization engine: a push-based
// subscription layer over the three independently-changing collections
// (elements, participants, cursors). Writers publish the affected
// collection after each committed mutation; every subscriber whose
// topic mask covers it gets a freshly recomputed snapshot, and a
// periodic tick re-delivers presence and cursor snapshots so pure time
// decay propagates even with no writes.
package sync

import "sync"

// Topic identifies one of the shared collections. Topics combine as a
// bitmask in subscription predicates and publish calls.
type Topic uint8

// The three shared collections
const (
	TopicElements Topic = 1 << iota
	TopicParticipants
	TopicCursors
)

// TopicAll covers every collection
const TopicAll = TopicElements | TopicParticipants | TopicCursors

// Dispatcher fans change notifications out to subscribers. A publish
// wakes only subscribers whose mask includes an affected topic;
// unaffected subscribers are not woken.
type Dispatcher struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscription is one subscriber's registration. Pending notifications
// coalesce into a topic bitmask rather than queueing per event: a slow
// subscriber sees one combined wakeup, never a backlog, and each
// delivery recomputes state fresh so nothing is lost by coalescing.
type Subscription struct {
	topics  Topic
	mu      sync.Mutex
	pending Topic
	ready   chan struct{}
}

// Subscribe registers a subscriber for the given topic mask
func (d *Dispatcher) Subscribe(topics Topic) *Subscription {
	sub := &Subscription{
		topics: topics,
		ready:  make(chan struct{}, 1),
	}

	d.mu.Lock()
	d.subs[sub] = struct{}{}
	d.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber; its Ready channel receives no
// further wakeups
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	d.mu.Lock()
	delete(d.subs, sub)
	d.mu.Unlock()
}

// Publish notifies every subscriber whose mask overlaps the given topics.
// Publish never blocks on slow subscribers.
func (d *Dispatcher) Publish(topics Topic) {
	d.mu.Lock()
	for sub := range d.subs {
		if overlap := sub.topics & topics; overlap != 0 {
			sub.notify(overlap)
		}
	}
	d.mu.Unlock()
}

// PublishParticipants announces a participant-collection change. It lets
// writers outside this package (the HTTP join handler) publish without
// depending on topic masks.
func (d *Dispatcher) PublishParticipants() {
	d.Publish(TopicParticipants)
}

// Ready returns a channel that receives a wakeup when notifications are
// pending. After a wakeup the subscriber calls Take to drain them.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Take drains and returns the pending topic mask, resetting it to zero
func (s *Subscription) Take() Topic {
	s.mu.Lock()
	pending := s.pending
	s.pending = 0
	s.mu.Unlock()
	return pending
}

func (s *Subscription) notify(topics Topic) {
	s.mu.Lock()
	s.pending |= topics
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default: // a wakeup is already queued
	}
}
