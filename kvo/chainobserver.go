package kvo

import "strings"

// chainObserver observes one segment of a dotted path, re-wiring itself as
// intermediate objects in the path come and go. A chain "a.b.c" is three
// linked nodes: the first observes "a" on the root; when "a" resolves to
// an Object, that node builds a child node observing "b" on it; the
// terminal node observes "c" and, on change, invokes the master
// target/method pair the whole chain was built for.
type chainObserver struct {
	segment string
	rest    []string // remaining path segments after this one; empty if terminal

	root any // the Object this node's segment is read from

	masterTarget  any
	masterMethod  ObserverFunc
	masterContext any

	child *chainObserver

	// selfMethodID is this node's own identity as an observer target,
	// derived once so AddObserver/RemoveObserver on root see a stable key.
	selfMethodID uint64
}

var chainObserverIDSeq uint64

func nextChainObserverID() uint64 {
	chainObserverIDSeq++
	return chainObserverIDSeq
}

// newChainObserver builds and wires a chain rooted at root for the given
// dotted path.
func newChainObserver(root Object, path string, target any, method ObserverFunc, context any) *chainObserver {
	segs := strings.Split(strings.TrimPrefix(path, "*"), ".")
	return buildChainObserver(root, segs, target, method, context)
}

func buildChainObserver(root Object, segs []string, target any, method ObserverFunc, context any) *chainObserver {
	c := &chainObserver{
		segment:       segs[0],
		masterTarget:  target,
		masterMethod:  method,
		masterContext: context,
		selfMethodID:  nextChainObserverID(),
	}
	if len(segs) > 1 {
		c.rest = segs[1:]
	}
	c.wire(root)
	return c
}

func (c *chainObserver) onSegmentChange(target any, source Object, key string, context any, revision Revision) {
	if len(c.rest) == 0 {
		c.masterMethod(c.masterTarget, source, c.segment, c.masterContext, revision)
		return
	}
	if c.child != nil {
		c.child.destroy()
		c.child = nil
	}
	next := source.Get(c.segment)
	if nextObj, ok := next.(Object); ok {
		c.child = buildChainObserver(nextObj, c.rest, c.masterTarget, c.masterMethod, c.masterContext)
		if termSource, termSeg, ok := c.child.deepestTerminal(); ok {
			c.masterMethod(c.masterTarget, termSource, termSeg, c.masterContext, revision)
		}
	}
}

// deepestTerminal walks to the live terminal node of this (sub)chain, if
// one has been built, reporting the object and segment it observes. A
// chain that stalled partway (an intermediate segment not yet resolving
// to an Object) has no terminal and returns ok=false.
func (c *chainObserver) deepestTerminal() (Object, string, bool) {
	if len(c.rest) == 0 {
		root, ok := c.root.(Object)
		return root, c.segment, ok
	}
	if c.child == nil {
		return nil, "", false
	}
	return c.child.deepestTerminal()
}

func (c *chainObserver) wire(root Object) {
	c.root = root
	root.AddObserver(c.segment, c, c.observerFunc(), nil)
	if len(c.rest) == 0 {
		return
	}
	val := root.Get(c.segment)
	if obj, ok := val.(Object); ok {
		c.child = buildChainObserver(obj, c.rest, c.masterTarget, c.masterMethod, c.masterContext)
	}
}

// observerFunc adapts onSegmentChange to ObserverFunc; each chainObserver
// instance gets a distinct target identity (itself) even though the
// returned func value's code pointer is shared across instances.
func (c *chainObserver) observerFunc() ObserverFunc {
	return func(target any, source Object, key string, context any, revision Revision) {
		c.onSegmentChange(target, source, key, context, revision)
	}
}

// destroy tears down this node's observer registration and its child's,
// recursively, returning the chain's root to an unwired state.
func (c *chainObserver) destroy() {
	if root, ok := c.root.(Object); ok {
		root.RemoveObserver(c.segment, c, c.observerFunc())
	}
	if c.child != nil {
		c.child.destroy()
		c.child = nil
	}
}
