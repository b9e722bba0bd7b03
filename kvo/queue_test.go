package kvo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniversalProperty4_NoSharedStateBetweenInstances(t *testing.T) {
	a := &person{}
	a.InitObservable(a)
	b := &person{}
	b.InitObservable(b)

	a.Set("first", "A")
	assert.Nil(t, b.Get("first"))

	a.AddObserver("first", nil, func(target any, source Object, key string, context any, revision Revision) {})
	assert.True(t, a.HasObserverFor("first"))
	assert.False(t, b.HasObserverFor("first"))
}

func TestQueue_SuspendCoalescesNotification(t *testing.T) {
	p := &person{}
	p.InitObservable(p)
	q := NewQueue()
	p.SetQueue(q)

	calls := 0
	p.AddObserver("value", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
	})

	q.Suspend()
	p.Set("value", 1)
	p.Set("value", 2)
	assert.Equal(t, 0, calls, "notification deferred while suspended")

	q.Resume()
	assert.Equal(t, 1, calls)
}

func TestQueue_AddObserverResolvesImmediatelyWhenRootConcrete(t *testing.T) {
	type leaf struct{ Observable }
	l := &leaf{}
	l.InitObservable(l)
	l.Set("c", 1)

	p := &person{}
	p.InitObservable(p)
	p.Set("a", l)

	fires := 0
	p.AddObserver("a.c", nil, func(target any, source Object, key string, context any, revision Revision) {
		fires++
	})

	l.Set("c", 2)
	assert.Equal(t, 1, fires)
}

func TestQueue_SetMaxPendingRejectsBeyondLimit(t *testing.T) {
	q := NewQueue()
	q.SetMaxPending(2)

	for i := 0; i < 2; i++ {
		i := i
		assert.NotPanics(t, func() {
			q.AddObserver("x", nil, i, func(target any, source Object, key string, context any, revision Revision) {}, nil)
		})
	}

	assert.Panics(t, func() {
		q.AddObserver("x", nil, 99, func(target any, source Object, key string, context any, revision Revision) {}, nil)
	})
}

func TestQueue_FlushResolvesDeferredAbsoluteRoot(t *testing.T) {
	q := NewQueue()
	fires := 0
	q.AddObserver("x", nil, nil, func(target any, source Object, key string, context any, revision Revision) {
		fires++
	}, nil)

	p := &person{}
	p.InitObservable(p)
	p.Set("x", 1)

	q.Flush(p)
	p.Set("x", 2)
	assert.Equal(t, 1, fires)
}
