// Package field implements Field, the tagged single-value variant used
// only at type boundaries: constants, Column.Get(row), and Keeper
// payload parsing. Field is never used for bulk data — see
// lattice/column for that.
package field

import "fmt"

// Tag discriminates the Field union. The non-POD tags (String, Array,
// Tuple, Decimal) start at TagMinNonPOD; callers that need to decide
// whether a Field owns heap data (e.g. a copying assignment) compare
// against that boundary instead of listing every non-POD tag, mirroring
// the source's "destructor dispatch over a tag range" design.
type Tag uint8

const (
	TagNull Tag = iota
	TagUInt64
	TagInt64
	TagUInt128
	TagInt128
	TagFloat64

	// TagMinNonPOD marks the start of the non-POD tag range: every tag
	// from here on owns heap data and needs destructor-style handling
	// in the source; in Go the GC handles that for us, but the boundary
	// is kept because IsNonPOD is part of the documented contract other
	// packages (e.g. the aggregation GENERIC variant) rely on.
	TagMinNonPOD Tag = 6
	TagString    Tag = 6
	TagArray     Tag = 7
	TagTuple     Tag = 8
	TagDecimal32 Tag = 9
	TagDecimal64 Tag = 10
	TagDecimal128 Tag = 11
)

// IsNonPOD reports whether this tag owns heap data.
func (t Tag) IsNonPOD() bool { return t >= TagMinNonPOD }

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagUInt64:
		return "UInt64"
	case TagInt64:
		return "Int64"
	case TagUInt128:
		return "UInt128"
	case TagInt128:
		return "Int128"
	case TagFloat64:
		return "Float64"
	case TagString:
		return "String"
	case TagArray:
		return "Array"
	case TagTuple:
		return "Tuple"
	case TagDecimal32:
		return "Decimal32"
	case TagDecimal64:
		return "Decimal64"
	case TagDecimal128:
		return "Decimal128"
	default:
		return "Unknown"
	}
}

// Decimal is a fixed-point value: unscaled integer plus scale (number
// of fractional digits). Width (32/64/128) is carried by the Field's
// Tag, not by this struct.
type Decimal struct {
	Unscaled int64 // widened to hold 32/64 bit unscaled values
	Hi       uint64 // high 64 bits, used only for Decimal128
	Scale    int32
}

// Field is a tagged value union over {Null, UInt64, Int64, UInt128,
// Int128, Float64, String, Array, Tuple, Decimal{32,64,128}}.
type Field struct {
	tag Tag

	u64 uint64 // UInt64, low 64 of UInt128/Int128, Decimal.Unscaled reinterpreted
	hi  uint64 // high 64 of UInt128/Int128
	f64 float64

	str string
	arr []Field
	dec Decimal
}

func Null() Field { return Field{tag: TagNull} }

func FromUInt64(v uint64) Field { return Field{tag: TagUInt64, u64: v} }

func FromInt64(v int64) Field { return Field{tag: TagInt64, u64: uint64(v)} }

func FromFloat64(v float64) Field { return Field{tag: TagFloat64, f64: v} }

func FromUInt128(lo, hi uint64) Field { return Field{tag: TagUInt128, u64: lo, hi: hi} }

func FromInt128(lo, hi uint64) Field { return Field{tag: TagInt128, u64: lo, hi: hi} }

func FromString(v string) Field { return Field{tag: TagString, str: v} }

func FromArray(v []Field) Field { return Field{tag: TagArray, arr: v} }

func FromTuple(v []Field) Field { return Field{tag: TagTuple, arr: v} }

func FromDecimal32(unscaled int32, scale int32) Field {
	return Field{tag: TagDecimal32, dec: Decimal{Unscaled: int64(unscaled), Scale: scale}}
}

func FromDecimal64(unscaled int64, scale int32) Field {
	return Field{tag: TagDecimal64, dec: Decimal{Unscaled: unscaled, Scale: scale}}
}

func FromDecimal128(lo, hi uint64, scale int32) Field {
	return Field{tag: TagDecimal128, dec: Decimal{Unscaled: int64(lo), Hi: hi, Scale: scale}}
}

func (f Field) Tag() Tag       { return f.tag }
func (f Field) IsNull() bool   { return f.tag == TagNull }
func (f Field) UInt64() uint64 { return f.u64 }
func (f Field) Int64() int64   { return int64(f.u64) }
func (f Field) Float64() float64 { return f.f64 }
func (f Field) UInt128() (lo, hi uint64) { return f.u64, f.hi }
func (f Field) Int128() (lo, hi uint64)  { return f.u64, f.hi }
func (f Field) String() string { return f.str }
func (f Field) Array() []Field { return f.arr }
func (f Field) Tuple() []Field { return f.arr }
func (f Field) Decimal() Decimal { return f.dec }

// GoString renders a debug-friendly representation; used by tests and
// by the Keeper payload parser's diagnostic logging.
func (f Field) GoString() string {
	switch f.tag {
	case TagNull:
		return "NULL"
	case TagUInt64:
		return fmt.Sprintf("%d", f.u64)
	case TagInt64:
		return fmt.Sprintf("%d", int64(f.u64))
	case TagFloat64:
		return fmt.Sprintf("%g", f.f64)
	case TagString:
		return fmt.Sprintf("%q", f.str)
	case TagArray, TagTuple:
		return fmt.Sprintf("%v", f.arr)
	default:
		return fmt.Sprintf("%s(%v)", f.tag, f.dec)
	}
}

// Equal compares two Fields by tag and value. Arrays/Tuples compare
// elementwise.
func Equal(a, b Field) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagNull:
		return true
	case TagUInt64, TagInt64:
		return a.u64 == b.u64
	case TagUInt128, TagInt128:
		return a.u64 == b.u64 && a.hi == b.hi
	case TagFloat64:
		return a.f64 == b.f64
	case TagString:
		return a.str == b.str
	case TagArray, TagTuple:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case TagDecimal32, TagDecimal64, TagDecimal128:
		return a.dec == b.dec
	default:
		return false
	}
}

// Hash produces a 64-bit digest suitable for use as a GENERIC
// aggregation key (see lattice/aggregation), combining tag and value
// bytes with FNV-1a — adequate for in-memory hash-table dispersion,
// not a cryptographic or cross-process-stable hash.
func Hash(f Field) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime64
	}
	mixU64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			mix(byte(v >> (8 * i)))
		}
	}
	mix(byte(f.tag))
	switch f.tag {
	case TagNull:
	case TagUInt64, TagInt64:
		mixU64(f.u64)
	case TagUInt128, TagInt128:
		mixU64(f.u64)
		mixU64(f.hi)
	case TagFloat64:
		mixU64(uint64(f.f64))
	case TagString:
		for i := 0; i < len(f.str); i++ {
			mix(f.str[i])
		}
	case TagArray, TagTuple:
		for _, e := range f.arr {
			mixU64(Hash(e))
		}
	default:
		mixU64(uint64(f.dec.Unscaled))
		mixU64(f.dec.Hi)
		mixU64(uint64(f.dec.Scale))
	}
	return h
}
