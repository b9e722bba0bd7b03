// Package kvo implements the key-value observation substrate: computed
// properties with dependent-key invalidation, change coalescing, chained
// (dotted-path) observation, and a process-wide queue that resolves
// path-based observers as the object graph they traverse comes into being.
//
// The package is strictly single-threaded and cooperative: every operation
// is synchronous, and the only deferral mechanisms are property-change
// grouping (BeginPropertyChanges/EndPropertyChanges) and queue suspension
// (Queue.Suspend/Resume). No goroutines, channels, or mutexes appear here;
// that is a correctness requirement, not a style choice.
package kvo

// ObserverFunc is the signature a registered observer is invoked with.
// target is the opaque identity the observer was registered under (often,
// but not required to be, an Object itself); source is the object whose
// property changed; revision is source's revision at the start of the
// notification pass that fires the observer.
type ObserverFunc func(target any, source Object, key string, context any, revision Revision)

// member is one registered (target, method) pair.
type member struct {
	target  any
	method  ObserverFunc
	context any
}

// identity is what ObserverSet keys members by: target identity plus a
// pointer identity for the method value, derived via reflect by the caller
// (see funcIdentity in observable.go) since Go func values aren't directly
// comparable. target must itself be a comparable value; chain observers and
// callers that register closures should pass a stable pointer.
type identity struct {
	target   any
	methodID uint64
}

// ObserverSet is a small multiset of (target, method, context) triples
// keyed by target+method identity. It dedups on that identity (last writer
// wins for context) and enumerates a defensive snapshot for fan-out, so a
// removal mid-pass (or a re-registration racing a recursive Set) cannot
// corrupt the in-progress iteration.
type ObserverSet struct {
	order []identity
	byKey map[identity]*member
}

// NewObserverSet returns an empty set.
func NewObserverSet() *ObserverSet {
	return &ObserverSet{byKey: make(map[identity]*member)}
}

// Add registers (target, method, context) under methodID, idempotent on
// the (target, methodID) pair: a second Add with the same pair overwrites
// method and context in place without duplicating the enumeration order.
func (s *ObserverSet) Add(target any, methodID uint64, method ObserverFunc, context any) {
	key := identity{target: target, methodID: methodID}
	if existing, ok := s.byKey[key]; ok {
		existing.method = method
		existing.context = context
		return
	}
	s.byKey[key] = &member{target: target, method: method, context: context}
	s.order = append(s.order, key)
}

// Remove tears down the registration for (target, methodID), if present.
func (s *ObserverSet) Remove(target any, methodID uint64) {
	key := identity{target: target, methodID: methodID}
	if _, ok := s.byKey[key]; !ok {
		return
	}
	delete(s.byKey, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of live registrations.
func (s *ObserverSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Snapshot is one enumerated member, copied out of the set so mutation
// during fan-out cannot corrupt the in-progress pass.
type Snapshot struct {
	Target   any
	MethodID uint64
	Method   ObserverFunc
	Context  any
}

// GetMembers returns a stable snapshot list in registration order.
func (s *ObserverSet) GetMembers() []Snapshot {
	if s == nil {
		return nil
	}
	out := make([]Snapshot, 0, len(s.order))
	for _, key := range s.order {
		m := s.byKey[key]
		out = append(out, Snapshot{
			Target:   m.target,
			MethodID: key.methodID,
			Method:   m.method,
			Context:  m.context,
		})
	}
	return out
}
