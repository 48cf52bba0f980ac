// Package types implements the column type descriptor model: a stable
// name, a family tag, and the constructors/predicates/serializers
// every column and function consults. Registration follows a
// package-level table looked up by name: the built-in scalar types are
// registered at package init, composite types (FixedString, Array,
// Nullable, Tuple, AggregateState) on first use; generalized here from
// "named byte buckets" to "named value types".
package types

import (
	"fmt"
	"sync"
)

// Family is the coarse kind of a Type, independent of width/signedness.
type Family int

const (
	FamilyNumber Family = iota
	FamilyDate
	FamilyDateTime
	FamilyString
	FamilyFixedString
	FamilyArray
	FamilyTuple
	FamilyNullable
	FamilyAggregateState
	FamilyEnum8
	FamilyEnum16
)

// NumberKind distinguishes the numeric widths/signedness Family=Number
// covers; irrelevant for every other family.
type NumberKind int

const (
	NumUInt8 NumberKind = iota
	NumUInt16
	NumUInt32
	NumUInt64
	NumInt8
	NumInt16
	NumInt32
	NumInt64
	NumFloat32
	NumFloat64
)

func (n NumberKind) Signed() bool {
	switch n {
	case NumInt8, NumInt16, NumInt32, NumInt64, NumFloat32, NumFloat64:
		return true
	default:
		return false
	}
}

func (n NumberKind) Width() int {
	switch n {
	case NumUInt8, NumInt8:
		return 1
	case NumUInt16, NumInt16:
		return 2
	case NumUInt32, NumInt32, NumFloat32:
		return 4
	case NumUInt64, NumInt64, NumFloat64:
		return 8
	default:
		return 0
	}
}

func (n NumberKind) Float() bool { return n == NumFloat32 || n == NumFloat64 }

// Type is the immutable descriptor every column, function, and Field
// boundary consults. Equality between two Types is by canonical Name
// — a deliberate simplification of the source's more elaborate type
// tree, adequate because this repo never needs structural subtyping,
// only name-keyed lookup and comparison.
type Type struct {
	Name   string
	Family Family

	Number NumberKind // valid iff Family == FamilyNumber

	FixedSize int // valid iff Family == FamilyFixedString (the N)

	Elem *Type // valid iff Family is Array or Nullable

	Tuple []*Type // valid iff Family == FamilyTuple

	AggFunc string  // valid iff Family == FamilyAggregateState
	AggArgs []*Type // valid iff Family == FamilyAggregateState

	EnumValues map[string]int64 // valid iff Family is Enum8/Enum16
}

// Equals is name equality, per the data model's "Type equality is by
// canonical name" rule.
func (t *Type) Equals(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Name == o.Name
}

// IsNumber reports whether the type "behaves as number" for the
// purposes of comparison/arithmetic dispatch: plain numbers plus
// Date/DateTime, which are numeric encodings underneath.
func (t *Type) IsNumber() bool {
	switch t.Family {
	case FamilyNumber, FamilyDate, FamilyDateTime, FamilyEnum8, FamilyEnum16:
		return true
	default:
		return false
	}
}

func (t *Type) IsString() bool {
	return t.Family == FamilyString || t.Family == FamilyFixedString
}

func (t *Type) String() string { return t.Name }

var (
	registryMu sync.RWMutex
	registry   = map[string]*Type{}
)

// Register adds a Type to the process registry, panicking on a
// duplicate name: registration is a programmer error surface, not a
// runtime one.
func Register(t *Type) *Type {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[t.Name]; ok {
		panic(fmt.Sprintf("types: duplicate type name %q", t.Name))
	}
	registry[t.Name] = t
	return t
}

// Lookup returns the registered Type for name, or nil if none exists.
func Lookup(name string) *Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Built-in scalar types, registered at package init.
var (
	UInt8    = Register(&Type{Name: "UInt8", Family: FamilyNumber, Number: NumUInt8})
	UInt16   = Register(&Type{Name: "UInt16", Family: FamilyNumber, Number: NumUInt16})
	UInt32   = Register(&Type{Name: "UInt32", Family: FamilyNumber, Number: NumUInt32})
	UInt64   = Register(&Type{Name: "UInt64", Family: FamilyNumber, Number: NumUInt64})
	Int8     = Register(&Type{Name: "Int8", Family: FamilyNumber, Number: NumInt8})
	Int16    = Register(&Type{Name: "Int16", Family: FamilyNumber, Number: NumInt16})
	Int32    = Register(&Type{Name: "Int32", Family: FamilyNumber, Number: NumInt32})
	Int64    = Register(&Type{Name: "Int64", Family: FamilyNumber, Number: NumInt64})
	Float32  = Register(&Type{Name: "Float32", Family: FamilyNumber, Number: NumFloat32})
	Float64  = Register(&Type{Name: "Float64", Family: FamilyNumber, Number: NumFloat64})
	Date     = Register(&Type{Name: "Date", Family: FamilyDate, Number: NumUInt16})
	DateTime = Register(&Type{Name: "DateTime", Family: FamilyDateTime, Number: NumUInt32})
	String   = Register(&Type{Name: "String", Family: FamilyString})
)

// FixedString returns (registering on first use) the Type for
// FixedString(n).
func FixedString(n int) *Type {
	name := fmt.Sprintf("FixedString(%d)", n)
	if t := Lookup(name); t != nil {
		return t
	}
	return Register(&Type{Name: name, Family: FamilyFixedString, FixedSize: n})
}

// Array returns (registering on first use) the Type for Array(elem).
func Array(elem *Type) *Type {
	name := fmt.Sprintf("Array(%s)", elem.Name)
	if t := Lookup(name); t != nil {
		return t
	}
	return Register(&Type{Name: name, Family: FamilyArray, Elem: elem})
}

// Nullable returns (registering on first use) the Type for Nullable(elem).
func Nullable(elem *Type) *Type {
	name := fmt.Sprintf("Nullable(%s)", elem.Name)
	if t := Lookup(name); t != nil {
		return t
	}
	return Register(&Type{Name: name, Family: FamilyNullable, Elem: elem})
}

// Tuple returns (registering on first use) the Type for Tuple(elems...).
func Tuple(elems ...*Type) *Type {
	name := "Tuple("
	for i, e := range elems {
		if i > 0 {
			name += ", "
		}
		name += e.Name
	}
	name += ")"
	if t := Lookup(name); t != nil {
		return t
	}
	return Register(&Type{Name: name, Family: FamilyTuple, Tuple: elems})
}

// AggregateState returns (registering on first use) the Type for
// AggregateFunction(func, args...)'s state representation.
func AggregateState(fn string, args ...*Type) *Type {
	name := fmt.Sprintf("AggregateState(%s)", fn)
	if t := Lookup(name); t != nil {
		return t
	}
	return Register(&Type{Name: name, Family: FamilyAggregateState, AggFunc: fn, AggArgs: args})
}
