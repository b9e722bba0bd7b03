package kvo

import (
	"fmt"
	"reflect"
)

// Queue is the process-wide (or explicitly scoped) coordinator for
// path-based observer attachment and notification suspension. It defers
// installing a ChainObserver until the path has a root object (the chain
// itself waits for any intermediate objects along the path), and it
// coalesces notification while observation is suspended.
//
// DefaultQueue preserves the ergonomics of the source's singleton; any
// Observable can be pointed at its own Queue via SetQueue for isolated
// tests.
type Queue struct {
	pending    []pendingAttach
	pendingKey map[attachKey]bool
	maxPending int

	suspendCount int
	dirty        map[Object]bool
}

type pendingAttach struct {
	path    string
	root    Object
	target  any
	method  ObserverFunc
	context any
}

type attachKey struct {
	path     string
	root     any
	target   any
	methodID uint64
}

// NewQueue returns an empty, unsuspended queue.
func NewQueue() *Queue {
	return &Queue{
		pendingKey: make(map[attachKey]bool),
		dirty:      make(map[Object]bool),
	}
}

// DefaultQueue is the package-wide queue Observable uses when no explicit
// Queue has been set via SetQueue, mirroring the source's global instance.
var DefaultQueue = NewQueue()

// SetMaxPending caps how many unresolved (path, target, method, root)
// tuples the queue will hold before AddObserver starts rejecting new
// registrations outright. Zero (the default) means unlimited. This is a
// misuse guard against observer paths whose root never resolves, not a
// real resource limit — a single process has no shortage of memory for a
// few thousand pending tuples.
func (q *Queue) SetMaxPending(n int) {
	q.maxPending = n
}

func keyOf(path string, root Object, target any, method ObserverFunc) attachKey {
	return attachKey{path: path, root: root, target: target, methodID: uint64(reflect.ValueOf(method).Pointer())}
}

// AddObserver installs a chain observer for path against root immediately
// when root is non-nil, whether or not the intermediate segments have
// values yet; a tuple with a nil root is enqueued and installed later by
// Flush. A path is installed at most once per (path, target, method, root)
// tuple.
func (q *Queue) AddObserver(path string, root Object, target any, method ObserverFunc, context any) {
	key := keyOf(path, root, target, method)
	if q.pendingKey[key] {
		return
	}
	// A chain observer always installs successfully against a concrete
	// root (it pauses internally at whichever segment is currently
	// undefined and re-wires itself later), so "resolvable now" reduces
	// to "root is non-nil" in this port — there is no separate global
	// name-resolution step, since the Go port has no dynamic global
	// registry for unrooted absolute paths.
	if root != nil {
		newChainObserver(root, path, target, method, context)
		q.pendingKey[key] = true
		return
	}
	if q.maxPending > 0 && len(q.pending) >= q.maxPending {
		panic(fmt.Sprintf("kvo: pending observer queue limit (%d) exceeded adding path %q; root never resolved", q.maxPending, path))
	}
	q.pending = append(q.pending, pendingAttach{path: path, root: root, target: target, method: method, context: context})
	q.pendingKey[key] = true
}

// RemoveObserver clears the dedup record and any still-pending
// (unresolved) tuple for a path observer. Installed chain observers are
// torn down by Observable.RemoveObserver, which calls this method and then
// destroys the matching chain rooted on that object.
func (q *Queue) RemoveObserver(path string, root Object, target any, method ObserverFunc) {
	key := keyOf(path, root, target, method)
	delete(q.pendingKey, key)
	for i, p := range q.pending {
		if p.path == path && p.root == root && p.target == target {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
}

// Flush installs a ChainObserver for every pending tuple (pending tuples
// are those added with a nil root), using receiver as the root, and
// removes them from the pending list. Idempotent.
func (q *Queue) Flush(receiver Object) {
	if len(q.pending) == 0 {
		return
	}
	remaining := q.pending[:0]
	for _, p := range q.pending {
		if p.root == nil {
			p.root = receiver
		}
		if p.root != nil {
			newChainObserver(p.root, p.path, p.target, p.method, p.context)
			continue
		}
		remaining = append(remaining, p)
	}
	q.pending = remaining
	delete(q.dirty, receiver)
}

// Suspend increments the suspension counter; while positive, Observable
// defers notification instead of firing immediately.
func (q *Queue) Suspend() {
	q.suspendCount++
}

// Resume decrements the suspension counter; at zero, every object that
// accumulated pending changes while suspended is flushed.
func (q *Queue) Resume() {
	if q.suspendCount == 0 {
		return
	}
	q.suspendCount--
	if q.suspendCount > 0 {
		return
	}
	pending := q.dirty
	q.dirty = make(map[Object]bool)
	for obj := range pending {
		// EndPropertyChanges no-ops the changeLevel decrement when already
		// at zero, then flushes because Suspended() is now false.
		obj.EndPropertyChanges()
	}
}

// Suspended reports whether notification is currently deferred. A nil
// Queue is never suspended.
func (q *Queue) Suspended() bool {
	return q != nil && q.suspendCount > 0
}

func (q *Queue) objectHasPendingChanges(obj Object) {
	if q.dirty == nil {
		q.dirty = make(map[Object]bool)
	}
	q.dirty[obj] = true
}
