package kvo

// PropertyFunc backs a computed property. It is invoked with hasValue=false
// for a Get (value is nil and ignored) and hasValue=true for a Set (value
// is the newly assigned value); its return is the property's current
// value, cached under CacheKey when Cacheable is set.
type PropertyFunc func(obj Object, key string, value any, hasValue bool) any

// Property is a computed-property descriptor: the struct equivalent of the
// source's tagged closure (isProperty/isCacheable/isVolatile/dependentKeys
// attached to a function value). Go has no way to hang fields off a func,
// so the descriptor is a plain value registered against a key via
// Observable.DefineProperty.
type Property struct {
	// Fn computes the property's value.
	Fn PropertyFunc

	// Cacheable memoizes Fn's result under CacheKey until invalidated by
	// a direct Set, a dependent-key change, or an explicit PropertyDidChange.
	Cacheable bool

	// CacheKey identifies this descriptor's memo slot. Required when
	// Cacheable is true; by convention the property's own key.
	CacheKey string

	// Volatile forces Fn to be re-invoked on every Set regardless of
	// whether the incoming value matches the last-set value.
	Volatile bool

	// LastSetKey identifies the memo slot used to detect whether a Set
	// call's value differs from the previous one. Required unless
	// Volatile is true; by convention the property's own key.
	LastSetKey string

	// DependentKeys lists other keys on the same object whose change
	// should invalidate this property's cache (when Cacheable) and queue
	// this key for its own observers to fire.
	DependentKeys []string
}
