package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func drain(sub *Subscription) bool {
	select {
	case <-sub.Ready():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestDispatcher_PublishWakesMatchingSubscriber(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(TopicElements)

	d.Publish(TopicElements)

	assert.True(t, drain(sub))
	assert.Equal(t, TopicElements, sub.Take())
}

func TestDispatcher_UnaffectedSubscriberNotWoken(t *testing.T) {
	d := NewDispatcher()
	elements := d.Subscribe(TopicElements)
	cursors := d.Subscribe(TopicCursors)

	d.Publish(TopicElements)

	assert.True(t, drain(elements))
	assert.False(t, drain(cursors))
	assert.Equal(t, Topic(0), cursors.Take())
}

func TestDispatcher_MaskedDelivery(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(TopicElements | TopicCursors)

	// only the overlapping part of the publish reaches the subscriber
	d.Publish(TopicCursors | TopicParticipants)

	assert.True(t, drain(sub))
	assert.Equal(t, TopicCursors, sub.Take())
}

func TestDispatcher_CoalescesBursts(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(TopicAll)

	// a burst of publishes while the subscriber is not draining
	d.Publish(TopicElements)
	d.Publish(TopicCursors)
	d.Publish(TopicElements)
	d.Publish(TopicParticipants)

	// one wakeup, pending mask combined
	assert.True(t, drain(sub))
	assert.Equal(t, TopicAll, sub.Take())

	// nothing left queued beyond that single wakeup
	if drain(sub) {
		assert.Equal(t, Topic(0), sub.Take())
	}
}

func TestDispatcher_TakeResetsPending(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(TopicAll)

	d.Publish(TopicElements)
	drain(sub)

	assert.Equal(t, TopicElements, sub.Take())
	assert.Equal(t, Topic(0), sub.Take())
}

func TestDispatcher_UnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(TopicAll)
	d.Unsubscribe(sub)

	d.Publish(TopicAll)

	assert.False(t, drain(sub))
	assert.Equal(t, Topic(0), sub.Take())
}

func TestDispatcher_MultipleSubscribersIndependent(t *testing.T) {
	d := NewDispatcher()
	a := d.Subscribe(TopicAll)
	b := d.Subscribe(TopicAll)

	d.Publish(TopicElements)

	assert.True(t, drain(a))
	assert.True(t, drain(b))
	assert.Equal(t, TopicElements, a.Take())
	assert.Equal(t, TopicElements, b.Take())
}
