package kvo

import (
	"reflect"
	"strings"
)

// changeToken records what DidChangeFor last observed for one caller-
// supplied context value.
type changeToken struct {
	revision Revision
	values   map[string]any
}

// Observable is the embeddable KVO substrate. Any struct embedding
// Observable by value gains Get/Set, computed properties with dependent-key
// invalidation, change coalescing, and observer registration, satisfying
// Object through promoted methods. Call InitObservable once, from the
// embedding type's constructor, so notifications carry the outer type as
// both target and source; omitting it is safe but means Observable sees
// itself as self, which is fine for standalone use (tests, examples) but
// means any PropertyWillChange/UnknownProperty overrides on the outer type
// are never reached.
type Observable struct {
	self Object

	revision    Revision
	changeLevel int

	changes      map[string]struct{}
	changesOrder []string

	values     map[string]any
	properties map[string]*Property
	cache      map[string]any
	cacheDep   map[string]*[]string
	dependents map[string][]string

	observers      map[string]*ObserverSet
	localObservers map[string][]string
	observedKeys   map[string]struct{}
	localRegistry  map[string]ObserverFunc

	lastSetValues map[string]any
	changeTokens  map[any]*changeToken

	queue *Queue
}

// InitObservable wires self as the receiver notifications and hook
// dispatch address. Must be called before any other method when the
// embedding type overrides PropertyWillChange, UnknownProperty,
// PropertyObserver, or AutomaticallyNotifiesObserversFor.
func (o *Observable) InitObservable(self Object) {
	o.self = self
	o.ensureInit()
}

// SetQueue overrides the ObserverQueue used for path-based observation and
// suspension coordination; nil restores DefaultQueue.
func (o *Observable) SetQueue(q *Queue) {
	o.queue = q
}

// RegisterLocalObserver populates the method-name registry AddLocalObserver
// draws from. Call during the embedding type's init pass, mirroring the
// source's declarative local-observer wiring.
func (o *Observable) RegisterLocalObserver(name string, fn ObserverFunc) {
	o.ensureInit()
	o.localRegistry[name] = fn
}

// AddLocalObserver registers methodName (previously passed to
// RegisterLocalObserver) as an observer of key.
func (o *Observable) AddLocalObserver(key, methodName string) Object {
	o.ensureInit()
	if _, ok := o.localRegistry[methodName]; !ok {
		panic("kvo: AddLocalObserver: no local observer registered as " + methodName)
	}
	o.localObservers[key] = append(o.localObservers[key], methodName)
	o.observedKeys[key] = struct{}{}
	return o.selfObj()
}

// DefineProperty registers a computed-property descriptor for key and, if
// it declares dependent keys, wires them via RegisterDependentKey.
func (o *Observable) DefineProperty(key string, prop Property) {
	o.ensureInit()
	p := prop
	o.properties[key] = &p
	if len(p.DependentKeys) > 0 {
		o.RegisterDependentKey(key, p.DependentKeys...)
	}
}

func (o *Observable) ensureInit() {
	if o.properties == nil {
		o.properties = make(map[string]*Property)
	}
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if o.cache == nil {
		o.cache = make(map[string]any)
	}
	if o.cacheDep == nil {
		o.cacheDep = make(map[string]*[]string)
	}
	if o.dependents == nil {
		o.dependents = make(map[string][]string)
	}
	if o.observers == nil {
		o.observers = make(map[string]*ObserverSet)
	}
	if o.localObservers == nil {
		o.localObservers = make(map[string][]string)
	}
	if o.observedKeys == nil {
		o.observedKeys = make(map[string]struct{})
	}
	if o.localRegistry == nil {
		o.localRegistry = make(map[string]ObserverFunc)
	}
	if o.changes == nil {
		o.changes = make(map[string]struct{})
	}
	if o.lastSetValues == nil {
		o.lastSetValues = make(map[string]any)
	}
	if o.changeTokens == nil {
		o.changeTokens = make(map[any]*changeToken)
	}
}

func (o *Observable) selfObj() Object {
	if o.self != nil {
		return o.self
	}
	return o
}

func (o *Observable) queueRef() *Queue {
	if o.queue != nil {
		return o.queue
	}
	return DefaultQueue
}

func equalValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func funcIdentity(fn ObserverFunc) uint64 {
	return uint64(reflect.ValueOf(fn).Pointer())
}

func isPath(key string) bool {
	if key == "*" {
		return false
	}
	return strings.Contains(key, ".") || strings.HasPrefix(key, "*")
}

// Revision returns the object's current revision.
func (o *Observable) Revision() Revision {
	return o.revision
}

// Get returns key's value: a computed property's (possibly cached) result,
// a stored plain value, or a delegate to UnknownProperty if self implements
// UnknownPropertyProvider.
func (o *Observable) Get(key string) any {
	o.ensureInit()
	if prop, ok := o.properties[key]; ok {
		if prop.Cacheable {
			if v, ok := o.cache[prop.CacheKey]; ok {
				return v
			}
		}
		v := prop.Fn(o.selfObj(), key, nil, false)
		if prop.Cacheable {
			o.cache[prop.CacheKey] = v
		}
		return v
	}
	if v, ok := o.values[key]; ok {
		return v
	}
	if up, ok := o.selfObj().(UnknownPropertyProvider); ok {
		return up.UnknownProperty(key)
	}
	return nil
}

// Set assigns key's value. For a computed descriptor, Fn is invoked with
// the new value only when the value differs from the last-set value (or
// always, if Volatile); otherwise the plain value is written when it
// differs from the current one. PropertyWillChange/PropertyDidChange fire
// around the mutation unless self implements NotificationPolicy and
// returns false for this key.
func (o *Observable) Set(key string, value any) Object {
	o.ensureInit()
	self := o.selfObj()
	notifies := true
	if np, ok := self.(NotificationPolicy); ok {
		notifies = np.AutomaticallyNotifiesObserversFor(key)
	}

	if prop, ok := o.properties[key]; ok {
		last, hadLast := o.lastSetValues[prop.LastSetKey]
		changed := prop.Volatile || !hadLast || !equalValue(last, value)
		if !changed {
			return self
		}
		if notifies {
			self.PropertyWillChange(key)
		}
		ret := prop.Fn(self, key, value, true)
		if prop.LastSetKey != "" {
			o.lastSetValues[prop.LastSetKey] = value
		}
		if prop.Cacheable {
			o.cache[prop.CacheKey] = ret
		}
		if notifies {
			// keepCache=true: Fn already recomputed and re-cached ret
			// above, so the notification pass must not clear it out from
			// under us. See SPEC_FULL.md §9, Open Question 1.
			self.PropertyDidChange(key, ret, true)
		} else {
			o.revision++
		}
		return self
	}

	old, existed := o.values[key]
	if existed && equalValue(old, value) {
		return self
	}
	if notifies {
		self.PropertyWillChange(key)
	}
	o.values[key] = value
	if notifies {
		self.PropertyDidChange(key, value)
	} else {
		o.revision++
	}
	return self
}

// PropertyWillChange is a no-op hook; embedding types override it (through
// Object dispatch) to snapshot state before a mutation.
func (o *Observable) PropertyWillChange(key string) Object {
	return o.selfObj()
}

// PropertyDidChange increments the revision, clears key's own cache slot
// (unless keepCache), clears the cache of every descriptor transitively
// dependent on key, and either queues key for a later flush (when grouped
// or the queue is suspended) or notifies immediately.
func (o *Observable) PropertyDidChange(key string, value any, keepCache ...bool) Object {
	o.ensureInit()
	kc := len(keepCache) > 0 && keepCache[0]
	o.revision++

	if !kc {
		if prop, ok := o.properties[key]; ok && prop.Cacheable {
			delete(o.cache, prop.CacheKey)
		}
	}
	for _, dep := range o.cachedDependentsFor(key) {
		if p, ok := o.properties[dep]; ok {
			delete(o.cache, p.CacheKey)
		}
	}

	o.addPendingChange(key)

	q := o.queueRef()
	if o.changeLevel > 0 || q.Suspended() {
		if q.Suspended() {
			q.objectHasPendingChanges(o.selfObj())
		}
		return o.selfObj()
	}
	o.flushNotifications()
	return o.selfObj()
}

// NotifyPropertyChange forces PropertyWillChange/PropertyDidChange for key
// regardless of automatic-notification policy.
func (o *Observable) NotifyPropertyChange(key string, value any) Object {
	self := o.selfObj()
	self.PropertyWillChange(key)
	return self.PropertyDidChange(key, value)
}

// AllPropertiesDidChange notifies every observed key via the wildcard.
func (o *Observable) AllPropertiesDidChange() Object {
	return o.selfObj().PropertyDidChange("*", nil)
}

// BeginPropertyChanges opens a change-coalescing group.
func (o *Observable) BeginPropertyChanges() Object {
	o.ensureInit()
	o.changeLevel++
	return o.selfObj()
}

// EndPropertyChanges closes a change-coalescing group; at nesting level
// zero, with pending changes and the queue not suspended, it flushes them.
func (o *Observable) EndPropertyChanges() Object {
	o.ensureInit()
	if o.changeLevel > 0 {
		o.changeLevel--
	}
	if o.changeLevel == 0 && len(o.changes) > 0 && !o.queueRef().Suspended() {
		o.flushNotifications()
	}
	return o.selfObj()
}

func (o *Observable) addPendingChange(key string) {
	if _, ok := o.changes[key]; ok {
		return
	}
	o.changes[key] = struct{}{}
	o.changesOrder = append(o.changesOrder, key)
}

// cachedDependentsFor returns the transitive closure of cacheable
// descriptors dependent on key, memoized in cacheDep. A seen-set bounds
// the walk against user-declared cycles in RegisterDependentKey.
func (o *Observable) cachedDependentsFor(key string) []string {
	if memo, ok := o.cacheDep[key]; ok {
		return *memo
	}
	seen := map[string]bool{key: true}
	var result []string
	var walk func(string)
	walk = func(k string) {
		for _, dependent := range o.dependents[k] {
			if seen[dependent] {
				continue
			}
			seen[dependent] = true
			if p, ok := o.properties[dependent]; ok && p.Cacheable {
				result = append(result, dependent)
			}
			walk(dependent)
		}
	}
	walk(key)
	o.cacheDep[key] = &result
	return result
}

// RegisterDependentKey records that key's cache (and notification) must be
// invalidated whenever any of deps changes.
func (o *Observable) RegisterDependentKey(key string, deps ...string) Object {
	o.ensureInit()
	for _, dep := range deps {
		o.dependents[dep] = append(o.dependents[dep], key)
	}
	o.cacheDep = make(map[string]*[]string)
	return o.selfObj()
}

// flushNotifications drains o.changes, expanding it with dependent keys,
// and fires observers for each key in LIFO order. If an observer's
// callback mutates the object further, the resulting keys queue and are
// processed in a subsequent pass within this same invocation — never
// interleaved into the current key's member list.
func (o *Observable) flushNotifications() {
	self := o.selfObj()
	if q := o.queueRef(); q != nil {
		q.Flush(self)
	}

	o.changeLevel++
	defer func() { o.changeLevel-- }()

	for len(o.changes) > 0 {
		pending := o.changes
		order := o.changesOrder
		o.changes = make(map[string]struct{})
		o.changesOrder = nil

		if _, ok := pending["*"]; ok {
			for k := range o.observedKeys {
				if _, exists := pending[k]; !exists {
					pending[k] = struct{}{}
					order = append(order, k)
				}
			}
		}

		o.expandDependentsInto(pending, &order)

		rev := o.revision
		fired := make(map[identity]bool)
		for i := len(order) - 1; i >= 0; i-- {
			o.notifyKey(order[i], rev, fired)
		}
	}
}

func (o *Observable) expandDependentsInto(pending map[string]struct{}, order *[]string) {
	i := 0
	for i < len(*order) {
		key := (*order)[i]
		for _, dep := range o.dependents[key] {
			if _, ok := pending[dep]; !ok {
				pending[dep] = struct{}{}
				*order = append(*order, dep)
			}
			if p, ok := o.properties[dep]; ok && p.Cacheable {
				delete(o.cache, p.CacheKey)
			}
		}
		i++
	}
}

func (o *Observable) notifyKey(key string, rev Revision, fired map[identity]bool) {
	self := o.selfObj()

	if set, ok := o.observers[key]; ok {
		for _, m := range set.GetMembers() {
			idk := identity{target: m.Target, methodID: m.MethodID}
			if fired[idk] {
				continue
			}
			fired[idk] = true
			m.Method(m.Target, self, key, m.Context, rev)
		}
	}

	for _, name := range o.localObservers[key] {
		if fn, ok := o.localRegistry[name]; ok {
			fn(self, self, key, nil, rev)
		}
	}

	if key != "*" {
		if set, ok := o.observers["*"]; ok {
			for _, m := range set.GetMembers() {
				idk := identity{target: m.Target, methodID: m.MethodID}
				if fired[idk] {
					continue
				}
				fired[idk] = true
				m.Method(m.Target, self, key, m.Context, rev)
			}
		}
	}

	if hook, ok := self.(PropertyObserverHook); ok {
		hook.PropertyObserver(self, key, rev)
	}
}

// AddObserver registers method as an observer of key on target. A key
// containing "." or starting with "*" is a path; it is handed to the
// ObserverQueue for chained (possibly deferred) resolution instead of a
// direct per-key ObserverSet.
func (o *Observable) AddObserver(key string, target any, method ObserverFunc, context ...any) Object {
	o.ensureInit()
	var ctx any
	if len(context) > 0 {
		ctx = context[0]
	}
	if isPath(key) {
		root := o.selfObj()
		o.queueRef().AddObserver(key, root, target, method, ctx)
		return root
	}
	set, ok := o.observers[key]
	if !ok {
		set = NewObserverSet()
		o.observers[key] = set
	}
	set.Add(target, funcIdentity(method), method, ctx)
	o.observedKeys[key] = struct{}{}
	return o.selfObj()
}

// RemoveObserver tears down a previously registered observer.
func (o *Observable) RemoveObserver(key string, target any, method ObserverFunc) Object {
	o.ensureInit()
	if isPath(key) {
		o.queueRef().RemoveObserver(key, o.selfObj(), target, method)
		segs := strings.Split(strings.TrimPrefix(key, "*"), ".")
		if set, ok := o.observers[segs[0]]; ok {
			rest := strings.Join(segs[1:], ".")
			for _, m := range set.GetMembers() {
				c, ok := m.Target.(*chainObserver)
				if ok && c.masterTarget == target && funcIdentity(c.masterMethod) == funcIdentity(method) && strings.Join(c.rest, ".") == rest {
					c.destroy()
				}
			}
		}
		return o.selfObj()
	}
	if set, ok := o.observers[key]; ok {
		set.Remove(target, funcIdentity(method))
		if set.Len() == 0 && len(o.localObservers[key]) == 0 {
			delete(o.observedKeys, key)
		}
	}
	return o.selfObj()
}

// HasObserverFor reports whether key has any live observer, after
// flushing the queue so deferred path attachments are accounted for.
func (o *Observable) HasObserverFor(key string) bool {
	o.ensureInit()
	if q := o.queueRef(); q != nil {
		q.Flush(o.selfObj())
	}
	if set, ok := o.observers[key]; ok && set.Len() > 0 {
		return true
	}
	return len(o.localObservers[key]) > 0
}

// DidChangeFor reports whether the object has changed since token last
// called DidChangeFor, by comparing the current revision against the
// revision token last observed. When token has no prior revision on
// record, it falls back to comparing keys' current values against nil.
func (o *Observable) DidChangeFor(token any, keys ...string) bool {
	o.ensureInit()
	prev, seen := o.changeTokens[token]

	changed := false
	if !seen {
		for _, k := range keys {
			if !equalValue(nil, o.Get(k)) {
				changed = true
				break
			}
		}
	} else {
		changed = prev.revision != o.revision
	}

	values := make(map[string]any, len(keys))
	for _, k := range keys {
		values[k] = o.Get(k)
	}
	o.changeTokens[token] = &changeToken{revision: o.revision, values: values}
	return changed
}

// GetPath resolves a dotted path by repeated Get calls through Objects.
func (o *Observable) GetPath(path string) any {
	var cur any = o.selfObj()
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(Object)
		if !ok {
			return nil
		}
		cur = obj.Get(seg)
	}
	return cur
}

// SetPath resolves path's parent and sets its final segment.
func (o *Observable) SetPath(path string, value any) Object {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return o.Set(path, value)
	}
	parent := o.GetPath(path[:idx])
	if obj, ok := parent.(Object); ok {
		obj.Set(path[idx+1:], value)
	}
	return o.selfObj()
}

// SetPathIfChanged is SetPath gated on the current value differing.
func (o *Observable) SetPathIfChanged(path string, value any) Object {
	if equalValue(o.GetPath(path), value) {
		return o.selfObj()
	}
	return o.SetPath(path, value)
}

// SetIfChanged is Set gated on the current value differing.
func (o *Observable) SetIfChanged(key string, value any) Object {
	if equalValue(o.Get(key), value) {
		return o.selfObj()
	}
	return o.Set(key, value)
}

// GetEach reads multiple keys in one call.
func (o *Observable) GetEach(keys ...string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = o.Get(k)
	}
	return out
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IncrementProperty increments a numeric key by one, preserving int vs
// float64 representation.
func (o *Observable) IncrementProperty(key string) Object {
	return o.selfObj().Set(key, adjustNumeric(o.Get(key), 1))
}

// DecrementProperty decrements a numeric key by one.
func (o *Observable) DecrementProperty(key string) Object {
	return o.selfObj().Set(key, adjustNumeric(o.Get(key), -1))
}

func adjustNumeric(v any, delta int) any {
	switch n := v.(type) {
	case int:
		return n + delta
	case int64:
		return n + int64(delta)
	case float64:
		return n + float64(delta)
	default:
		if f, ok := numericValue(v); ok {
			return f + float64(delta)
		}
		return delta
	}
}

// ToggleProperty flips a boolean key between two values (default
// true/false) on every call.
func (o *Observable) ToggleProperty(key string, values ...any) Object {
	trueVal, falseVal := any(true), any(false)
	if len(values) > 0 {
		trueVal = values[0]
	}
	if len(values) > 1 {
		falseVal = values[1]
	}
	current := o.Get(key)
	if equalValue(current, trueVal) {
		return o.selfObj().Set(key, falseVal)
	}
	return o.selfObj().Set(key, trueVal)
}
