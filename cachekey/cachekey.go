// Package cachekey implements a compound, order-sensitive hash/equality
// key: a sequence of heterogeneous components folded incrementally into a
// hashcode, a checksum, and a count, so that higher-level query caches can
// fingerprint a lookup without comparing full component sequences on every
// hit.
package cachekey

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	hashBase       = 17
	hashMultiplier = 37
)

// Key is built up with Update/UpdateAll and then used as a map key's
// stand-in via Hashcode/Equal, or rendered with String. A Key is not safe
// for concurrent use while being built; once handed off it is conventionally
// treated as frozen, though nothing here enforces that.
type Key struct {
	components []any
	count      int
	checksum   int64
	hashcode   int64
	isNull     bool
}

// New returns an empty Key ready for Update/UpdateAll.
func New() *Key {
	return &Key{hashcode: hashBase}
}

// Null is the singleton null key: it fails Equal against every key,
// including itself, since it exists purely as a semantic sentinel ("no
// key could be built") rather than a real empty key.
var Null = &Key{hashcode: hashBase, isNull: true}

// Update appends one component and folds its hash into the running
// scalars:
//
//	baseHash  = componentHash(component)   // 1 if component is nil
//	count    += 1
//	checksum += baseHash
//	hashcode  = multiplier*hashcode + baseHash*count
func (k *Key) Update(component any) {
	h := componentHash(component)
	k.count++
	k.checksum += h
	k.hashcode = hashMultiplier*k.hashcode + h*int64(k.count)
	k.components = append(k.components, component)
}

// UpdateAll calls Update for each element of components, in order.
func (k *Key) UpdateAll(components []any) {
	for _, c := range components {
		k.Update(c)
	}
}

// Hashcode returns the folded polynomial hash. Two keys built from equal
// sequences (whether via UpdateAll or repeated Update) always produce the
// same Hashcode.
func (k *Key) Hashcode() int64 { return k.hashcode }

// Checksum returns the sum of per-component hashes, order-independent by
// itself (order sensitivity comes from Hashcode and from Equal's pointwise
// component comparison).
func (k *Key) Checksum() int64 { return k.checksum }

// Count returns the number of components folded into the key so far.
func (k *Key) Count() int { return k.count }

// Equal reports whether k and other are equal: all of {hashcode,
// checksum, count, pairwise component equality in order} must match; any
// single mismatch short-circuits to false. The null key (see Null) is
// equal to nothing, including another null key or itself.
func (k *Key) Equal(other *Key) bool {
	if k.isNull || other == nil || other.isNull {
		return false
	}
	if k.hashcode != other.hashcode || k.checksum != other.checksum || k.count != other.count {
		return false
	}
	if len(k.components) != len(other.components) {
		return false
	}
	for i := range k.components {
		if !componentsEqual(k.components[i], other.components[i]) {
			return false
		}
	}
	return true
}

// String renders "<hashcode>:<checksum>:<c0>:<c1>:..." using the same
// order-sensitive element rendering used for hashing.
func (k *Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", k.hashcode, k.checksum)
	for _, c := range k.components {
		b.WriteByte(':')
		b.WriteString(renderComponent(c))
	}
	return b.String()
}

// componentHash hashes a single component. A nil component hashes to 1.
// A homogeneous array or slice is hashed order-sensitively over its
// elements; anything else falls back to its value-equality hash.
func componentHash(c any) int64 {
	if c == nil {
		return 1
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		var h int64 = 1
		for i := 0; i < v.Len(); i++ {
			h = hashMultiplier*h + componentHash(v.Index(i).Interface())
		}
		return h
	default:
		return scalarHash(c)
	}
}

// scalarHash produces a deterministic, process-stable (not cryptographic)
// hash for a non-array/slice value.
func scalarHash(c any) int64 {
	switch v := c.(type) {
	case string:
		return stringHash(v)
	case bool:
		if v {
			return 1231
		}
		return 1237
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return int64(v * 1000)
	case float64:
		return int64(v * 1000)
	default:
		return stringHash(fmt.Sprintf("%v", v))
	}
}

// stringHash is Java's String.hashCode algorithm: s[0]*31^(n-1) + ... +
// s[n-1], which is itself an order-sensitive polynomial fold — the same
// shape as the outer Key fold, just with base 31 over bytes.
func stringHash(s string) int64 {
	var h int64
	for i := 0; i < len(s); i++ {
		h = 31*h + int64(s[i])
	}
	return h
}

func renderComponent(c any) string {
	if c == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		parts := make([]string, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts[i] = renderComponent(v.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", c)
	}
}

// componentsEqual compares two components: arrays/slices compare
// element-wise and order-sensitively; everything else compares with
// reflect.DeepEqual.
func componentsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if (va.Kind() == reflect.Array || va.Kind() == reflect.Slice) &&
		(vb.Kind() == reflect.Array || vb.Kind() == reflect.Slice) {
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !componentsEqual(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
