package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/testutil"
	"github.com/roach88/strata/internal/types"
)

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	s := New("rec")
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	var order []string
	subs := []*recorder{
		{name: "first", log: &order},
		{name: "second", log: &order},
		{name: "third", log: &order},
	}
	for _, sub := range subs {
		s.Registry().Register(sub)
	}

	const n = 5
	insertFrames(t, s, gen, entity, testutil.FrameRange(1, n)...)

	late := &recorder{name: "late"}
	s.Registry().Register(late)

	for _, sub := range subs {
		assert.Len(t, sub.batches, n, "%s should see every insert", sub.name)
		assert.Equal(t, n, sub.numEvents())
	}
	assert.Empty(t, late.batches, "a subscriber registered after the inserts never sees them")

	require.Len(t, order, 3*n)
	for i := 0; i < n; i++ {
		assert.Equal(t, []string{"first", "second", "third"}, order[3*i:3*i+3])
	}

	insertFrames(t, s, gen, entity, 100)
	assert.Len(t, late.batches, 1)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	s := New("rec")
	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")

	rec := &recorder{name: "rec"}
	h := s.Registry().Register(rec)
	insertFrames(t, s, gen, entity, 1)

	assert.True(t, s.Registry().Unregister(h))
	assert.False(t, s.Registry().Unregister(h), "second unregister reports unknown handle")
	insertFrames(t, s, gen, entity, 2)

	assert.Len(t, rec.batches, 1)
	assert.Equal(t, 0, s.Registry().Len())
}

func TestLookupByHandle(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{name: "rec"}
	h := r.Register(rec)
	other := r.Register(otherSubscriber{})

	got, ok := Lookup[*recorder](r, h)
	require.True(t, ok)
	assert.Same(t, rec, got)

	_, ok = Lookup[*recorder](r, other)
	assert.False(t, ok, "type mismatch yields not found")

	_, ok = Lookup[otherSubscriber](r, h)
	assert.False(t, ok, "type mismatch yields not found")

	_, ok = Lookup[*recorder](r, SubscriberHandle(999))
	assert.False(t, ok, "unknown handle yields not found")

	r.Unregister(h)
	_, ok = Lookup[*recorder](r, h)
	assert.False(t, ok)
}

func TestSharedRegistryBetweenStores(t *testing.T) {
	r := NewRegistry()
	a := New("a", WithRegistry(r))
	b := New("b", WithRegistry(r))

	var seen []string
	r.Register(NewFuncSubscriber("stores", func(events []Event) {
		for _, ev := range events {
			seen = append(seen, ev.StoreID)
		}
	}))

	gen := types.NewSequentialGenerator(1)
	entity := types.ParseEntityPath("points")
	insertFrames(t, a, gen, entity, 1)
	insertFrames(t, b, gen, entity, 1)

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	r.Register(&recorder{name: "x"})
	r.Register(&recorder{name: "y"})

	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.NotPanics(t, func() { r.Notify([]Event{{}}) })
}
