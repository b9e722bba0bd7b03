package store

import (
	"time"

	"hubjs.dev/hub/hubutil"
	"hubjs.dev/hub/kvo"
)

// AttributeKind selects how Attribute coerces a data hash value to and
// from the Go type a Record's callers actually work with.
type AttributeKind int

const (
	KindString AttributeKind = iota
	KindNumber
	KindBool
	KindDateTime
	KindToOne
	KindToMany
)

type attrConfig struct {
	relatedType string
	def         *any
}

// AttrOption configures an Attribute's coercion behavior.
type AttrOption func(*attrConfig)

// WithRelatedType names the record type a ToOne/ToMany attribute resolves
// through Find.
func WithRelatedType(recordType string) AttrOption {
	return func(c *attrConfig) { c.relatedType = recordType }
}

// WithDefault sets the value Attribute returns from Get when the data hash
// has no entry for this attribute, instead of nil.
func WithDefault(value any) AttrOption {
	return func(c *attrConfig) { c.def = hubutil.Ptr(value) }
}

// Attribute builds a kvo.Property that reads and writes attribute name
// through a Record's owning Store, coercing between the data hash's raw
// JSON-like representation and kind's Go type. ToOne/ToMany attributes are
// cached (they materialize Record pointers, which is not free); scalar
// attributes are not, since the hash read itself is already cheap.
func Attribute(name string, kind AttributeKind, opts ...AttrOption) kvo.Property {
	cfg := &attrConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return kvo.Property{
		Cacheable:  kind == KindToOne || kind == KindToMany,
		CacheKey:   name,
		LastSetKey: name,
		Fn: func(obj kvo.Object, key string, value any, hasValue bool) any {
			rec, ok := obj.(*Record)
			if !ok {
				return nil
			}
			if hasValue {
				return writeAttribute(rec, name, kind, cfg, value)
			}
			return readAttribute(rec, name, kind, cfg)
		},
	}
}

func readAttribute(rec *Record, name string, kind AttributeKind, cfg *attrConfig) any {
	hash := rec.store.ReadDataHash(rec.storeKey)
	raw, ok := hash[name]
	if !ok {
		return hubutil.PtrValue(cfg.def)
	}
	switch kind {
	case KindString:
		s, _ := raw.(string)
		return s
	case KindNumber:
		return numericValue(raw)
	case KindBool:
		b, _ := raw.(bool)
		return b
	case KindDateTime:
		return readDateTime(raw)
	case KindToOne:
		sk, ok := raw.(StoreKey)
		if !ok {
			return nil
		}
		return rec.store.findByStoreKey(cfg.relatedType, sk)
	case KindToMany:
		sks, _ := raw.([]StoreKey)
		out := make([]*Record, 0, len(sks))
		for _, sk := range sks {
			out = append(out, rec.store.findByStoreKey(cfg.relatedType, sk))
		}
		return NewRecordArray(out...)
	default:
		return raw
	}
}

func writeAttribute(rec *Record, name string, kind AttributeKind, cfg *attrConfig, value any) any {
	hash := rec.store.ReadEditableDataHash(rec.storeKey)
	switch kind {
	case KindDateTime:
		if t, ok := value.(time.Time); ok {
			hash[name] = t.UTC().Format(time.RFC3339)
		} else {
			delete(hash, name)
		}
	case KindToOne:
		if related, ok := value.(*Record); ok {
			hash[name] = related.storeKey
		} else {
			delete(hash, name)
		}
	case KindToMany:
		var related []*Record
		switch v := value.(type) {
		case *RecordArray:
			related = v.Items()
		case []*Record:
			related = v
		}
		sks := make([]StoreKey, len(related))
		for i, r := range related {
			sks[i] = r.storeKey
		}
		hash[name] = sks
	default:
		hash[name] = value
	}
	rec.store.WriteDataHash(rec.storeKey, hash, rec.dirtyStatus())
	rec.store.DataHashDidChange(rec.storeKey)
	return readAttribute(rec, name, kind, cfg)
}

func readDateTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

func numericValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
