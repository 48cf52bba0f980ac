package aggregation

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// State is an opaque per-group accumulator. Concrete aggregate
// functions assert it back to their own pointer type; the engine
// never looks inside.
type State any

// Function is the aggregate function contract: CreateEmptyState,
// Add, Merge, Serialize, Deserialize. ArgTypes/ReturnType follow the
// same validate-then-describe shape as the scalar function protocol.
type Function interface {
	Name() string
	ArgTypes() []*types.Type
	// StateType describes the AggregateState(name, argTypes...) type
	// this function's state serializes as when stored in a column.
	StateType() *types.Type
	// FinalType is the type ConvertToBlock produces for this function.
	FinalType() *types.Type

	CreateEmptyState() State
	Add(state State, args []field.Field) error
	Merge(dst State, src State) error
	Serialize(state State, w io.Writer) error
	Deserialize(r io.Reader) (State, error)
	// Finalize extracts the externally visible result field from state.
	Finalize(state State) field.Field
}

// DeltaAdder is an optional fast path: functions like count can fold
// a whole block's contribution into one call instead of one Add per
// row, when the arguments are irrelevant (count(*)) or constant.
type DeltaAdder interface {
	AddDelta(state State, n uint64)
}

// --- count -----------------------------------------------------------------

type countState struct{ n uint64 }

type countFunction struct{ argTypes []*types.Type }

func NewCount(argTypes []*types.Type) Function { return &countFunction{argTypes: argTypes} }

func (f *countFunction) Name() string            { return "count" }
func (f *countFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *countFunction) StateType() *types.Type  { return types.AggregateState("count", f.argTypes...) }
func (f *countFunction) FinalType() *types.Type  { return types.UInt64 }

func (f *countFunction) CreateEmptyState() State { return &countState{} }

func (f *countFunction) Add(state State, args []field.Field) error {
	state.(*countState).n++
	return nil
}

func (f *countFunction) AddDelta(state State, n uint64) { state.(*countState).n += n }

func (f *countFunction) Merge(dst, src State) error {
	dst.(*countState).n += src.(*countState).n
	return nil
}

func (f *countFunction) Serialize(state State, w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, state.(*countState).n)
}

func (f *countFunction) Deserialize(r io.Reader) (State, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &countState{n: n}, nil
}

func (f *countFunction) Finalize(state State) field.Field {
	return field.FromUInt64(state.(*countState).n)
}

// --- sum ---------------------------------------------------------------

type sumState struct {
	isFloat bool
	i       int64
	u       uint64
	f       float64
}

type sumFunction struct {
	argTypes []*types.Type
	isFloat  bool
	isSigned bool
}

func NewSum(argType *types.Type) Function {
	return &sumFunction{
		argTypes: []*types.Type{argType},
		isFloat:  argType.IsNumber() && argType.Number.Float(),
		isSigned: argType.IsNumber() && argType.Number.Signed(),
	}
}

func (f *sumFunction) Name() string            { return "sum" }
func (f *sumFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *sumFunction) StateType() *types.Type  { return types.AggregateState("sum", f.argTypes...) }
func (f *sumFunction) FinalType() *types.Type {
	switch {
	case f.isFloat:
		return types.Float64
	case f.isSigned:
		return types.Int64
	default:
		return types.UInt64
	}
}

func (f *sumFunction) CreateEmptyState() State { return &sumState{isFloat: f.isFloat} }

func (f *sumFunction) Add(state State, args []field.Field) error {
	if len(args) != 1 {
		return errs.New(errs.LogicError, errs.CodeNumberOfArgumentsDoesntMatch, "sum: expected 1 argument")
	}
	s := state.(*sumState)
	a := args[0]
	switch {
	case s.isFloat:
		s.f += numericAsFloat(a)
	case f.isSigned:
		s.i += a.Int64()
	default:
		s.u += a.UInt64()
	}
	return nil
}

func (f *sumFunction) Merge(dst, src State) error {
	d, s := dst.(*sumState), src.(*sumState)
	d.f += s.f
	d.i += s.i
	d.u += s.u
	return nil
}

func (f *sumFunction) Serialize(state State, w io.Writer) error {
	s := state.(*sumState)
	return binary.Write(w, binary.LittleEndian, [3]uint64{math.Float64bits(s.f), uint64(s.i), s.u})
}

func (f *sumFunction) Deserialize(r io.Reader) (State, error) {
	var buf [3]uint64
	if err := binary.Read(r, binary.LittleEndian, &buf); err != nil {
		return nil, err
	}
	return &sumState{isFloat: f.isFloat, f: math.Float64frombits(buf[0]), i: int64(buf[1]), u: buf[2]}, nil
}

func (f *sumFunction) Finalize(state State) field.Field {
	s := state.(*sumState)
	switch {
	case f.isFloat:
		return field.FromFloat64(s.f)
	case f.isSigned:
		return field.FromInt64(s.i)
	default:
		return field.FromUInt64(s.u)
	}
}

func numericAsFloat(f field.Field) float64 {
	switch f.Tag() {
	case field.TagFloat64:
		return f.Float64()
	case field.TagInt64:
		return float64(f.Int64())
	default:
		return float64(f.UInt64())
	}
}

// --- min / max -----------------------------------------------------------

type extremeState struct {
	has bool
	v   field.Field
}

type extremeFunction struct {
	argTypes []*types.Type
	isMax    bool
}

func NewMin(argType *types.Type) Function { return &extremeFunction{argTypes: []*types.Type{argType}} }
func NewMax(argType *types.Type) Function {
	return &extremeFunction{argTypes: []*types.Type{argType}, isMax: true}
}

func (f *extremeFunction) Name() string {
	if f.isMax {
		return "max"
	}
	return "min"
}
func (f *extremeFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *extremeFunction) StateType() *types.Type  { return types.AggregateState(f.Name(), f.argTypes...) }
func (f *extremeFunction) FinalType() *types.Type  { return f.argTypes[0] }

func (f *extremeFunction) CreateEmptyState() State { return &extremeState{} }

func (f *extremeFunction) better(a, b field.Field) bool {
	c := compareFields(a, b)
	if f.isMax {
		return c > 0
	}
	return c < 0
}

func (f *extremeFunction) Add(state State, args []field.Field) error {
	s := state.(*extremeState)
	if len(args) != 1 {
		return errs.New(errs.LogicError, errs.CodeNumberOfArgumentsDoesntMatch, "%s: expected 1 argument", f.Name())
	}
	if !s.has || f.better(args[0], s.v) {
		s.v, s.has = args[0], true
	}
	return nil
}

func (f *extremeFunction) Merge(dst, src State) error {
	d, s := dst.(*extremeState), src.(*extremeState)
	if s.has && (!d.has || f.better(s.v, d.v)) {
		d.v, d.has = s.v, true
	}
	return nil
}

func (f *extremeFunction) Serialize(state State, w io.Writer) error {
	s := state.(*extremeState)
	if err := binary.Write(w, binary.LittleEndian, s.has); err != nil {
		return err
	}
	if !s.has {
		return nil
	}
	return serializeField(w, s.v)
}

func (f *extremeFunction) Deserialize(r io.Reader) (State, error) {
	var has bool
	if err := binary.Read(r, binary.LittleEndian, &has); err != nil {
		return nil, err
	}
	if !has {
		return &extremeState{}, nil
	}
	v, err := deserializeField(r)
	if err != nil {
		return nil, err
	}
	return &extremeState{has: true, v: v}, nil
}

func (f *extremeFunction) Finalize(state State) field.Field {
	s := state.(*extremeState)
	if !s.has {
		return field.Null()
	}
	return s.v
}

// --- avg -------------------------------------------------------------------

type avgState struct {
	sum   float64
	count uint64
}

type avgFunction struct{ argTypes []*types.Type }

func NewAvg(argType *types.Type) Function { return &avgFunction{argTypes: []*types.Type{argType}} }

func (f *avgFunction) Name() string            { return "avg" }
func (f *avgFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *avgFunction) StateType() *types.Type  { return types.AggregateState("avg", f.argTypes...) }
func (f *avgFunction) FinalType() *types.Type  { return types.Float64 }

func (f *avgFunction) CreateEmptyState() State { return &avgState{} }

func (f *avgFunction) Add(state State, args []field.Field) error {
	if len(args) != 1 {
		return errs.New(errs.LogicError, errs.CodeNumberOfArgumentsDoesntMatch, "avg: expected 1 argument")
	}
	s := state.(*avgState)
	s.sum += numericAsFloat(args[0])
	s.count++
	return nil
}

func (f *avgFunction) Merge(dst, src State) error {
	d, s := dst.(*avgState), src.(*avgState)
	d.sum += s.sum
	d.count += s.count
	return nil
}

func (f *avgFunction) Serialize(state State, w io.Writer) error {
	s := state.(*avgState)
	return binary.Write(w, binary.LittleEndian, [2]uint64{math.Float64bits(s.sum), s.count})
}

func (f *avgFunction) Deserialize(r io.Reader) (State, error) {
	var buf [2]uint64
	if err := binary.Read(r, binary.LittleEndian, &buf); err != nil {
		return nil, err
	}
	return &avgState{sum: math.Float64frombits(buf[0]), count: buf[1]}, nil
}

func (f *avgFunction) Finalize(state State) field.Field {
	s := state.(*avgState)
	if s.count == 0 {
		return field.FromFloat64(0)
	}
	return field.FromFloat64(s.sum / float64(s.count))
}

// --- uniqExact ---------------------------------------------------------

type uniqExactState struct {
	seen map[uint64][]field.Field
}

type uniqExactFunction struct{ argTypes []*types.Type }

func NewUniqExact(argTypes []*types.Type) Function { return &uniqExactFunction{argTypes: argTypes} }

func (f *uniqExactFunction) Name() string            { return "uniqExact" }
func (f *uniqExactFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *uniqExactFunction) StateType() *types.Type {
	return types.AggregateState("uniqExact", f.argTypes...)
}
func (f *uniqExactFunction) FinalType() *types.Type { return types.UInt64 }

func (f *uniqExactFunction) CreateEmptyState() State {
	return &uniqExactState{seen: map[uint64][]field.Field{}}
}

func (f *uniqExactFunction) Add(state State, args []field.Field) error {
	s := state.(*uniqExactState)
	h := keyHash(args)
	for _, existing := range s.seen[h] {
		if keyEquals(existing, args) {
			return nil
		}
	}
	s.seen[h] = append(s.seen[h], append([]field.Field(nil), args...))
	return nil
}

func (f *uniqExactFunction) Merge(dst, src State) error {
	d, s := dst.(*uniqExactState), src.(*uniqExactState)
	for h, group := range s.seen {
		for _, key := range group {
			found := false
			for _, existing := range d.seen[h] {
				if keyEquals(existing, key) {
					found = true
					break
				}
			}
			if !found {
				d.seen[h] = append(d.seen[h], key)
			}
		}
	}
	return nil
}

func (f *uniqExactFunction) Serialize(state State, w io.Writer) error {
	s := state.(*uniqExactState)
	total := uint64(0)
	for _, g := range s.seen {
		total += uint64(len(g))
	}
	if err := binary.Write(w, binary.LittleEndian, total); err != nil {
		return err
	}
	for _, g := range s.seen {
		for _, key := range g {
			for _, fld := range key {
				if err := serializeField(w, fld); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (f *uniqExactFunction) Deserialize(r io.Reader) (State, error) {
	var total uint64
	if err := binary.Read(r, binary.LittleEndian, &total); err != nil {
		return nil, err
	}
	s := &uniqExactState{seen: map[uint64][]field.Field{}}
	arity := len(f.argTypes)
	for i := uint64(0); i < total; i++ {
		key := make([]field.Field, arity)
		for j := 0; j < arity; j++ {
			v, err := deserializeField(r)
			if err != nil {
				return nil, err
			}
			key[j] = v
		}
		h := keyHash(key)
		s.seen[h] = append(s.seen[h], key)
	}
	return s, nil
}

func (f *uniqExactFunction) Finalize(state State) field.Field {
	s := state.(*uniqExactState)
	total := uint64(0)
	for _, g := range s.seen {
		total += uint64(len(g))
	}
	return field.FromUInt64(total)
}

// --- groupArray ----------------------------------------------------------

type groupArrayState struct{ items []field.Field }

type groupArrayFunction struct {
	argTypes []*types.Type
	maxSize  int // 0 = unbounded
}

func NewGroupArray(argType *types.Type, maxSize int) Function {
	return &groupArrayFunction{argTypes: []*types.Type{argType}, maxSize: maxSize}
}

func (f *groupArrayFunction) Name() string            { return "groupArray" }
func (f *groupArrayFunction) ArgTypes() []*types.Type { return f.argTypes }
func (f *groupArrayFunction) StateType() *types.Type {
	return types.AggregateState("groupArray", f.argTypes...)
}
func (f *groupArrayFunction) FinalType() *types.Type { return types.Array(f.argTypes[0]) }

func (f *groupArrayFunction) CreateEmptyState() State { return &groupArrayState{} }

func (f *groupArrayFunction) Add(state State, args []field.Field) error {
	s := state.(*groupArrayState)
	if f.maxSize > 0 && len(s.items) >= f.maxSize {
		return nil
	}
	s.items = append(s.items, args[0])
	return nil
}

func (f *groupArrayFunction) Merge(dst, src State) error {
	d, s := dst.(*groupArrayState), src.(*groupArrayState)
	for _, v := range s.items {
		if f.maxSize > 0 && len(d.items) >= f.maxSize {
			break
		}
		d.items = append(d.items, v)
	}
	return nil
}

func (f *groupArrayFunction) Serialize(state State, w io.Writer) error {
	s := state.(*groupArrayState)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s.items))); err != nil {
		return err
	}
	for _, v := range s.items {
		if err := serializeField(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *groupArrayFunction) Deserialize(r io.Reader) (State, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	s := &groupArrayState{items: make([]field.Field, 0, n)}
	for i := uint64(0); i < n; i++ {
		v, err := deserializeField(r)
		if err != nil {
			return nil, err
		}
		s.items = append(s.items, v)
	}
	return s, nil
}

func (f *groupArrayFunction) Finalize(state State) field.Field {
	s := state.(*groupArrayState)
	return field.FromArray(append([]field.Field(nil), s.items...))
}

// --- shared field (de)serialization, used by states that persist raw
// values (min/max/uniqExact/groupArray) ------------------------------------

func serializeField(w io.Writer, f field.Field) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(f.Tag())); err != nil {
		return err
	}
	switch f.Tag() {
	case field.TagNull:
		return nil
	case field.TagUInt64:
		return binary.Write(w, binary.LittleEndian, f.UInt64())
	case field.TagInt64:
		return binary.Write(w, binary.LittleEndian, f.Int64())
	case field.TagFloat64:
		return binary.Write(w, binary.LittleEndian, f.Float64())
	default:
		s := f.String()
		if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
			return err
		}
		_, err := w.Write([]byte(s))
		return err
	}
}

func deserializeField(r io.Reader) (field.Field, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return field.Field{}, err
	}
	switch field.Tag(tag) {
	case field.TagNull:
		return field.Null(), nil
	case field.TagUInt64:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return field.Field{}, err
		}
		return field.FromUInt64(v), nil
	case field.TagInt64:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return field.Field{}, err
		}
		return field.FromInt64(v), nil
	case field.TagFloat64:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return field.Field{}, err
		}
		return field.FromFloat64(v), nil
	default:
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return field.Field{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return field.Field{}, err
		}
		return field.FromString(string(buf)), nil
	}
}

func compareFields(a, b field.Field) int {
	if a.Tag() == field.TagFloat64 || b.Tag() == field.TagFloat64 {
		af, bf := numericAsFloat(a), numericAsFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.Tag() == field.TagString || b.Tag() == field.TagString {
		as, bs := a.String(), b.String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	au, bu := a.UInt64(), b.UInt64()
	switch {
	case au < bu:
		return -1
	case au > bu:
		return 1
	default:
		return 0
	}
}
