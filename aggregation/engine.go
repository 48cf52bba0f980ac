package aggregation

import (
	"strconv"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// Params describes one GROUP BY clause: the key column positions, the
// aggregate functions to run (each over its own argument positions),
// and the overflow policy.
type Params struct {
	KeyPositions []int
	KeyTypes     []*types.Type
	Functions    []Function
	ArgPositions [][]int // ArgPositions[i] feeds Functions[i]

	Overflow OverflowMode
	MaxRows  uint64
}

// Engine drives one GROUP BY across however many blocks are read. It
// is not safe for concurrent use; callers sharding by partition build
// one Engine per shard and Merge the resulting Variants.
type Engine struct {
	params  Params
	variant *Variant
}

func NewEngine(params Params) *Engine {
	kind := SelectVariant(params.KeyTypes)
	return &Engine{
		params:  params,
		variant: NewVariant(kind, len(params.Functions), params.Overflow, params.MaxRows),
	}
}

func (e *Engine) Variant() *Variant { return e.variant }

// Process folds one source block into the hash table. It returns
// IsBreak(err)==true when the BREAK overflow mode has engaged: the
// caller should stop feeding further blocks but treat the query as
// otherwise successful.
func (e *Engine) Process(blk *block.Block) error {
	n := blk.RowCount()
	key := make([]field.Field, len(e.params.KeyPositions))

	// Fast path: count(*) with no GROUP BY key and no other aggregate
	// can fold the whole block in one AddDelta call.
	if len(e.params.KeyPositions) == 0 && len(e.params.Functions) == 1 {
		if da, ok := e.params.Functions[0].(DeltaAdder); ok {
			states, _, err := e.variant.GetOrCreate(nil, e.createStates)
			if err != nil {
				return err
			}
			if states != nil {
				da.AddDelta(states[0], uint64(n))
			}
			return nil
		}
	}

	for row := 0; row < n; row++ {
		for i, pos := range e.params.KeyPositions {
			key[i] = blk.Columns[pos].Column.Get(row)
		}
		states, _, err := e.variant.GetOrCreate(key, e.createStates)
		if err != nil {
			return err
		}
		if states == nil {
			continue // ANY overflow: row discarded, key not tracked
		}
		for i, fn := range e.params.Functions {
			args := make([]field.Field, len(e.params.ArgPositions[i]))
			for j, pos := range e.params.ArgPositions[i] {
				args[j] = blk.Columns[pos].Column.Get(row)
			}
			if err := fn.Add(states[i], args); err != nil {
				return errs.Wrap(err, errs.LogicError, errs.CodeLogicalError,
					"aggregation: %s.Add failed", fn.Name())
			}
		}
	}
	return nil
}

func (e *Engine) createStates() []State {
	states := make([]State, len(e.params.Functions))
	for i, fn := range e.params.Functions {
		states[i] = fn.CreateEmptyState()
	}
	return states
}

// Merge combines other's groups into e's variant. Both must have been
// built with the same Params (same variant kind, same function list),
// or this raises CodeCannotMergeDifferentAggVariants.
func (e *Engine) Merge(other *Engine) error {
	if e.variant.Kind != other.variant.Kind {
		return errs.New(errs.LogicError, errs.CodeCannotMergeDifferentAggVariants,
			"aggregation: cannot merge variant %s into %s", other.variant.Kind, e.variant.Kind)
	}
	if len(e.params.Functions) != len(other.params.Functions) {
		return errs.New(errs.LogicError, errs.CodeCannotMergeDifferentAggVariants,
			"aggregation: function count mismatch %d vs %d", len(other.params.Functions), len(e.params.Functions))
	}
	var mergeErr error
	other.variant.Each(func(key []field.Field, otherStates []State) {
		if mergeErr != nil {
			return
		}
		dstStates, _, err := e.variant.GetOrCreate(key, e.createStates)
		if err != nil {
			mergeErr = err
			return
		}
		if dstStates == nil {
			return
		}
		for i, fn := range e.params.Functions {
			if err := fn.Merge(dstStates[i], otherStates[i]); err != nil {
				mergeErr = errs.Wrap(err, errs.LogicError, errs.CodeLogicalError,
					"aggregation: %s.Merge failed", fn.Name())
				return
			}
		}
	})
	return mergeErr
}

// ConvertToBlock materializes the current hash table as a result
// block: one column per GROUP BY key, followed by one column per
// aggregate function's Finalize output.
func (e *Engine) ConvertToBlock() (*block.Block, error) {
	cols := make([]column.Column, 0, len(e.params.KeyTypes)+len(e.params.Functions))
	names := make([]string, 0, cap(cols))

	for i, t := range e.params.KeyTypes {
		cols = append(cols, newColumnForType(t))
		names = append(names, keyColumnName(i))
	}
	for _, fn := range e.params.Functions {
		cols = append(cols, newColumnForType(fn.FinalType()))
		names = append(names, fn.Name())
	}

	e.variant.Each(func(key []field.Field, states []State) {
		for i, f := range key {
			appendField(cols[i], f)
		}
		for i, fn := range e.params.Functions {
			appendField(cols[len(key)+i], fn.Finalize(states[i]))
		}
	})

	named := make([]block.NamedColumn, len(cols))
	for i, c := range cols {
		t := c.Type()
		named[i] = block.NamedColumn{Name: names[i], Type: t, Column: c}
	}
	return block.New(named...), nil
}

func keyColumnName(i int) string {
	if i == 0 {
		return "key"
	}
	return "key" + strconv.Itoa(i+1)
}

func newColumnForType(t *types.Type) column.Column {
	if t.IsString() {
		return column.NewStringColumn()
	}
	switch t.Number {
	case types.NumUInt8:
		return column.NewVectorColumn[uint8](t)
	case types.NumUInt16:
		return column.NewVectorColumn[uint16](t)
	case types.NumUInt32:
		return column.NewVectorColumn[uint32](t)
	case types.NumUInt64:
		return column.NewVectorColumn[uint64](t)
	case types.NumInt8:
		return column.NewVectorColumn[int8](t)
	case types.NumInt16:
		return column.NewVectorColumn[int16](t)
	case types.NumInt32:
		return column.NewVectorColumn[int32](t)
	case types.NumInt64:
		return column.NewVectorColumn[int64](t)
	case types.NumFloat32:
		return column.NewVectorColumn[float32](t)
	case types.NumFloat64:
		return column.NewVectorColumn[float64](t)
	default:
		return column.NewVectorColumn[uint64](t)
	}
}

func appendField(c column.Column, f field.Field) {
	switch cc := c.(type) {
	case *column.StringColumn:
		cc.AppendString(f.String())
	case *column.VectorColumn[uint8]:
		cc.Append(uint8(f.UInt64()))
	case *column.VectorColumn[uint16]:
		cc.Append(uint16(f.UInt64()))
	case *column.VectorColumn[uint32]:
		cc.Append(uint32(f.UInt64()))
	case *column.VectorColumn[uint64]:
		cc.Append(f.UInt64())
	case *column.VectorColumn[int8]:
		cc.Append(int8(f.Int64()))
	case *column.VectorColumn[int16]:
		cc.Append(int16(f.Int64()))
	case *column.VectorColumn[int32]:
		cc.Append(int32(f.Int64()))
	case *column.VectorColumn[int64]:
		cc.Append(f.Int64())
	case *column.VectorColumn[float32]:
		cc.Append(float32(f.Float64()))
	case *column.VectorColumn[float64]:
		cc.Append(f.Float64())
	default:
		c.InsertDefault()
	}
}
