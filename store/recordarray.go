package store

import "hubjs.dev/hub/kvo"

// RecordArray is the ToMany counterpart of a scalar attribute: a
// kvo-observable collection of *Record, so appending, removing, or
// replacing related records fires exactly one "[]" notification instead of
// one per element, matching the coalescence guarantee scalar attributes
// already get from kvo.Property.
type RecordArray struct {
	*kvo.ObservableSlice[*Record]
}

// NewRecordArray wraps records (copied) in an observable collection.
func NewRecordArray(records ...*Record) *RecordArray {
	return &RecordArray{ObservableSlice: kvo.NewObservableSlice(records...)}
}
