package kvo

// Revision is a monotonically increasing per-object counter, incremented
// on each PropertyDidChange. Observers receive the revision current at the
// start of the notification pass; within one pass, an observer is deduped
// by its (target, method) identity, not by revision.
type Revision uint64

// Object is the capability interface observable targets satisfy. Any
// struct embedding Observable gets it for free by delegation. The
// interface exists so internal dispatch (PropertyWillChange overrides,
// notification hooks, path observation through arbitrary graph nodes)
// goes through the receiver's own method set rather than calling
// Observable's defaults directly — the same role a base-class virtual
// call plays in a dynamically typed original.
type Object interface {
	Get(key string) any
	Set(key string, value any) Object

	AddObserver(key string, target any, method ObserverFunc, context ...any) Object
	RemoveObserver(key string, target any, method ObserverFunc) Object
	HasObserverFor(key string) bool

	BeginPropertyChanges() Object
	EndPropertyChanges() Object

	PropertyWillChange(key string) Object
	PropertyDidChange(key string, value any, keepCache ...bool) Object
	NotifyPropertyChange(key string, value any) Object
	AllPropertiesDidChange() Object

	DidChangeFor(token any, keys ...string) bool
	RegisterDependentKey(key string, deps ...string) Object

	GetPath(path string) any
	SetPath(path string, value any) Object
	SetPathIfChanged(path string, value any) Object
	SetIfChanged(key string, value any) Object
	GetEach(keys ...string) []any
	IncrementProperty(key string) Object
	DecrementProperty(key string) Object
	ToggleProperty(key string, values ...any) Object

	Revision() Revision
}

// UnknownPropertyProvider lets an embedding struct answer Get calls for
// keys with no registered Property descriptor and no stored value. If the
// self object doesn't implement this, Get returns nil for unknown keys.
type UnknownPropertyProvider interface {
	UnknownProperty(key string) any
}

// PropertyObserverHook receives one call per changed key, per notification
// pass, after every registered observer has fired for that key.
type PropertyObserverHook interface {
	PropertyObserver(source Object, key string, revision Revision)
}

// NotificationPolicy lets an embedding struct suppress the automatic
// PropertyWillChange/PropertyDidChange wrapping Set performs for specific
// keys. Absent this interface, every key notifies.
type NotificationPolicy interface {
	AutomaticallyNotifiesObserversFor(key string) bool
}
