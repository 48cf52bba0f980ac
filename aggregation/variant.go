// Package aggregation implements the group-by engine: variant
// selection, the aggregate function contract, block processing with
// overflow modes, and block conversion/merge across shards.
package aggregation

import (
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// VariantKind is the hash-table shape chosen for a query, picked from
// the key columns' width and count.
type VariantKind int

const (
	WithoutKey VariantKind = iota
	Key64
	KeyString
	Hashed
	Generic
)

func (k VariantKind) String() string {
	switch k {
	case WithoutKey:
		return "WITHOUT_KEY"
	case Key64:
		return "KEY_64"
	case KeyString:
		return "KEY_STRING"
	case Hashed:
		return "HASHED"
	case Generic:
		return "GENERIC"
	default:
		return "UNKNOWN"
	}
}

// SelectVariant implements the selection table: given the group-by
// key types, pick the hash-table shape. Mixed-width numeric tuples
// that fit in 16 bytes go HASHED; everything else falls to GENERIC.
func SelectVariant(keyTypes []*types.Type) VariantKind {
	if len(keyTypes) == 0 {
		return WithoutKey
	}
	if len(keyTypes) == 1 {
		t := keyTypes[0]
		if t.IsString() {
			return KeyString
		}
		if t.Family == types.FamilyNumber && !t.Number.Float() {
			return Key64
		}
		if t.IsNumber() && t.Family != types.FamilyNumber {
			return Key64 // Date/DateTime/Enum: integer-backed
		}
		return Generic
	}
	totalBits := 0
	allFixedNumeric := true
	for _, t := range keyTypes {
		if !t.IsNumber() {
			allFixedNumeric = false
			break
		}
		w := t.Number.Width()
		if w == 0 {
			w = 8 // Date/DateTime default width class
		}
		totalBits += w * 8
	}
	if allFixedNumeric && totalBits <= 128 {
		return Hashed
	}
	return Generic
}

// group is one distinct key's accumulated state row. The key is kept
// as a canonical Field tuple regardless of variant, which lets every
// variant share one hash-probe/merge implementation while still
// differing (via SelectVariant) in which queries are routed to it —
// a deliberate simplification over the source's five physically
// distinct hash-table specializations, documented in DESIGN.md.
type group struct {
	key    []field.Field
	states []State
}

// Variant is the chosen hash table for one query/shard.
type Variant struct {
	Kind VariantKind

	buckets map[uint64][]*group
	order   []*group // insertion order, for convert_to_block's stable-ish output

	numAggregates int
	overflow      OverflowMode
	maxRows       uint64
	overflowTripped bool // ANY/BREAK: stop inserting new keys, or stop reading blocks
}

// NewVariant constructs an empty variant of the given kind, ready to
// accumulate numAggregates aggregate states per key.
func NewVariant(kind VariantKind, numAggregates int, overflow OverflowMode, maxRows uint64) *Variant {
	return &Variant{
		Kind:          kind,
		buckets:       map[uint64][]*group{},
		numAggregates: numAggregates,
		overflow:      overflow,
		maxRows:       maxRows,
	}
}

func keyHash(key []field.Field) uint64 {
	h := uint64(1469598103934665603)
	for _, f := range key {
		h ^= field.Hash(f)
		h *= 1099511628211
	}
	return h
}

func keyEquals(a, b []field.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !field.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// GetOrCreate probes the table for key, creating a new group (and
// running createStates for each aggregate) on a miss. Returns
// (states, isNew, overflowErr). When overflow tripped in ANY mode and
// key is new, returns (nil, false, nil) meaning "discard this row,
// don't track the key, but keep going".
func (v *Variant) GetOrCreate(key []field.Field, createStates func() []State) ([]State, bool, error) {
	h := keyHash(key)
	for _, g := range v.buckets[h] {
		if keyEquals(g.key, key) {
			return g.states, false, nil
		}
	}
	// Miss: check overflow before inserting a new key.
	if v.maxRows > 0 && uint64(len(v.order)) >= v.maxRows {
		switch v.overflow {
		case OverflowThrow:
			return nil, false, errs.New(errs.ResourceError, errs.CodeTooMuchRows,
				"aggregation: exceeded max_rows_to_group_by=%d", v.maxRows)
		case OverflowBreak:
			v.overflowTripped = true
			return nil, false, errBreak
		case OverflowAny:
			v.overflowTripped = true
			return nil, false, nil
		}
	}
	g := &group{key: append([]field.Field(nil), key...), states: createStates()}
	v.buckets[h] = append(v.buckets[h], g)
	v.order = append(v.order, g)
	return g.states, true, nil
}

// errBreak is a sentinel signaling the BREAK overflow mode: the caller
// (Process) should stop reading further blocks but not fail the query.
var errBreak = errs.New(errs.ResourceError, errs.CodeTooMuchRows, "aggregation: BREAK overflow mode engaged")

// IsBreak reports whether err is the BREAK sentinel.
func IsBreak(err error) bool { return err == errBreak }

// Each visits every group in insertion order.
func (v *Variant) Each(fn func(key []field.Field, states []State)) {
	for _, g := range v.order {
		fn(g.key, g.states)
	}
}

func (v *Variant) Len() int { return len(v.order) }

// OverflowMode selects behavior when the hash table exceeds
// max_rows_to_group_by.
type OverflowMode int

const (
	OverflowThrow OverflowMode = iota
	OverflowBreak
	OverflowAny
)
