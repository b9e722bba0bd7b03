// Package idutil provides identifier and content-fingerprint helpers
// for the store package: synthetic record ids and a stable hash of a data
// hash's contents, which changes whenever those contents change.
package idutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"hubjs.dev/hub/hubutil"
)

// NewID returns a new random identifier, used by Store.CreateRecord as a
// new record's id.
func NewID() string {
	return uuid.NewString()
}

// DataHashFingerprint returns a stable hex-encoded SHA-256 digest of hash's
// contents. Map key order does not affect the result: keys are sorted
// before encoding.
func DataHashFingerprint(hash map[string]any) string {
	keys := make([]string, 0, len(hash))
	for k := range hash {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, keyValue{Key: k, Value: hash[k]})
	}

	// json.Marshal of a slice preserves order, unlike a map, giving a
	// deterministic byte stream to hash. A DataHash is a programmer
	// contract to hold JSON-like values; anything else is a caller bug,
	// not a condition to recover from.
	b := hubutil.Must(json.Marshal(ordered))
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type keyValue struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}
