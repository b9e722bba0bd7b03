package kvo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// person is the test fixture embedding Observable, standing in for a
// record type in the rest of the module.
type person struct {
	Observable
}

func newPerson() *person {
	p := &person{}
	p.InitObservable(p)
	p.DefineProperty("fullName", Property{
		Cacheable:  true,
		CacheKey:   "fullName",
		LastSetKey: "fullName",
		DependentKeys: []string{"first", "last"},
		Fn: func(obj Object, key string, value any, hasValue bool) any {
			first, _ := obj.Get("first").(string)
			last, _ := obj.Get("last").(string)
			if last == "" {
				return first + " <undef>"
			}
			return first + " " + last
		},
	})
	return p
}

func TestS1_ComputedPropertyCache(t *testing.T) {
	p := newPerson()
	p.Set("first", "A")
	assert.Equal(t, "A <undef>", p.Get("fullName"))

	p.Set("last", "B")
	assert.Equal(t, "A B", p.Get("fullName"))
}

func TestS2_GroupedNotification(t *testing.T) {
	p := &person{}
	p.InitObservable(p)

	calls := 0
	var lastValue any
	p.AddObserver("value", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
		lastValue = source.Get(key)
	})

	p.BeginPropertyChanges()
	p.Set("value", 1)
	p.Set("value", 2)
	p.Set("value", 3)
	p.EndPropertyChanges()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, lastValue)
}

func TestS3_ChainObserverRewiring(t *testing.T) {
	type leaf struct{ Observable }
	type mid struct{ Observable }
	type root struct{ Observable }

	newLeaf := func() *leaf {
		l := &leaf{}
		l.InitObservable(l)
		return l
	}
	newMid := func() *mid {
		m := &mid{}
		m.InitObservable(m)
		return m
	}

	r := &root{}
	r.InitObservable(r)

	var fires int
	var last any
	r.AddObserver("a.b.c", nil, func(target any, source Object, key string, context any, revision Revision) {
		fires++
		last = source.Get(key)
	})

	m1 := newMid()
	l1 := newLeaf()
	l1.Set("c", 1)
	m1.Set("b", l1)
	r.Set("a", m1)

	require.Equal(t, 1, fires)
	assert.Equal(t, 1, last)

	m2 := newMid()
	l2 := newLeaf()
	l2.Set("c", 2)
	m2.Set("b", l2)
	r.Set("a", m2)

	require.Equal(t, 2, fires)
	assert.Equal(t, 2, last)

	l2.Set("c", 99)
	require.Equal(t, 3, fires)
	assert.Equal(t, 99, last)

	l1.Set("c", 1000)
	assert.Equal(t, 3, fires, "stale leaf must no longer drive the observer")
}

func TestS5_SetIfChangedIsNoop(t *testing.T) {
	p := &person{}
	p.InitObservable(p)
	p.Set("x", "same")

	calls := 0
	p.AddObserver("x", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
	})

	revBefore := p.Revision()
	p.SetIfChanged("x", "same")
	assert.Equal(t, 0, calls)
	assert.Equal(t, revBefore, p.Revision())

	p.SetIfChanged("x", "different")
	assert.Equal(t, 1, calls)
}

func TestS6_CombinedObserverFiresOnceAcrossDependentAttributes(t *testing.T) {
	p := newPerson()
	p.Set("first", "A")
	p.Set("last", "B")

	calls := 0
	p.AddObserver("*", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
	})

	p.BeginPropertyChanges()
	p.Set("first", "C")
	p.EndPropertyChanges()

	// "first" plus its cacheable dependent "fullName" both queue, but the
	// same (target, method) observer on "*" must fire exactly once.
	assert.Equal(t, 1, calls)
}

func TestUniversalProperty1_AtMostOncePerRevision(t *testing.T) {
	p := newPerson()
	p.Set("first", "A")
	p.Set("last", "B")

	calls := 0
	p.AddObserver("fullName", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
	})
	p.AddObserver("first", nil, func(target any, source Object, key string, context any, revision Revision) {
		calls++
	})

	p.Set("first", "Z")
	assert.Equal(t, 2, calls, "distinct observers on distinct keys both fire once")
}

func TestUniversalProperty3_DependentCacheClosureBeforeObserverFires(t *testing.T) {
	p := newPerson()
	p.Set("first", "A")
	p.Set("last", "B")
	_ = p.Get("fullName") // populate cache

	var sawDuringFanout any
	p.AddObserver("first", nil, func(target any, source Object, key string, context any, revision Revision) {
		sawDuringFanout = source.Get("fullName")
	})

	p.Set("first", "Z")
	assert.Equal(t, "Z B", sawDuringFanout)
}

func TestUniversalProperty6_RevisionMonotonic(t *testing.T) {
	p := &person{}
	p.InitObservable(p)

	r0 := p.Revision()
	p.Set("x", 1)
	r1 := p.Revision()
	p.Set("x", 2)
	r2 := p.Revision()

	assert.Greater(t, r1, r0)
	assert.Greater(t, r2, r1)
}

func TestHasObserverFor(t *testing.T) {
	p := &person{}
	p.InitObservable(p)
	assert.False(t, p.HasObserverFor("x"))

	observe := func(target any, source Object, key string, context any, revision Revision) {}
	p.AddObserver("x", nil, observe)
	assert.True(t, p.HasObserverFor("x"))

	p.RemoveObserver("x", nil, observe)
	assert.False(t, p.HasObserverFor("x"))
}

func TestDidChangeFor(t *testing.T) {
	p := &person{}
	p.InitObservable(p)
	token := "watcher-1"

	assert.False(t, p.DidChangeFor(token, "x"))

	p.Set("x", "hello")
	assert.True(t, p.DidChangeFor(token, "x"))
	assert.False(t, p.DidChangeFor(token, "x"))
}

func TestIncrementDecrementToggle(t *testing.T) {
	p := &person{}
	p.InitObservable(p)
	p.Set("count", 0)
	p.IncrementProperty("count")
	p.IncrementProperty("count")
	p.DecrementProperty("count")
	assert.Equal(t, 1, p.Get("count"))

	p.Set("flag", false)
	p.ToggleProperty("flag")
	assert.Equal(t, true, p.Get("flag"))
	p.ToggleProperty("flag")
	assert.Equal(t, false, p.Get("flag"))
}
