package wire

import (
	"encoding/binary"
	"math"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/types"
)

// appendLE16 appends v as two little-endian bytes. VectorColumn has no
// 16-bit Writer primitive of its own since Hello/Query packet fields
// never need one; only vector payloads do.
func appendLE16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func (r *Reader) readUint16LE() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// WriteBlock serializes blk into the Data packet body: columns in
// declared order, each writing its name, type descriptor, and
// type-specific bytes (vector: raw little-endian values; string:
// varint offsets implied by per-row varint length prefixes; array:
// recursive).
func WriteBlock(w *Writer, blk *block.Block) error {
	w.WriteUvarint(uint64(len(blk.Columns)))
	w.WriteUvarint(uint64(blk.RowCount()))
	for _, nc := range blk.Columns {
		w.WriteString(nc.Name)
		writeType(w, nc.Type)
		if err := writeColumn(w, nc.Column); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlock deserializes a Data packet body back into a *block.Block.
func ReadBlock(r *Reader) (*block.Block, error) {
	numCols, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rows, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	cols := make([]block.NamedColumn, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		typ, err := readType(r)
		if err != nil {
			return nil, err
		}
		col, err := readColumn(r, typ, int(rows))
		if err != nil {
			return nil, err
		}
		cols = append(cols, block.NamedColumn{Name: name, Type: typ, Column: col})
	}
	return block.New(cols...), nil
}

// typeTag mirrors types.Family but stays local to the wire format so a
// Family reordering in the types package doesn't silently change the
// wire encoding.
type typeTag uint8

const (
	tagNumber typeTag = iota
	tagDate
	tagDateTime
	tagString
	tagFixedString
	tagArray
	tagNullable
)

func writeType(w *Writer, t *types.Type) {
	switch t.Family {
	case types.FamilyNumber:
		w.WriteUint8(uint8(tagNumber))
		w.WriteUint8(uint8(t.Number))
	case types.FamilyDate:
		w.WriteUint8(uint8(tagDate))
	case types.FamilyDateTime:
		w.WriteUint8(uint8(tagDateTime))
	case types.FamilyString:
		w.WriteUint8(uint8(tagString))
	case types.FamilyFixedString:
		w.WriteUint8(uint8(tagFixedString))
		w.WriteUvarint(uint64(t.FixedSize))
	case types.FamilyArray:
		w.WriteUint8(uint8(tagArray))
		writeType(w, t.Elem)
	case types.FamilyNullable:
		w.WriteUint8(uint8(tagNullable))
		writeType(w, t.Elem)
	default:
		// Tuple/AggregateState/Enum8/Enum16 never cross the wire in
		// this build — query results are always flattened to the
		// families above before a Data packet is emitted.
		w.WriteUint8(uint8(tagString))
	}
}

func readType(r *Reader) (*types.Type, error) {
	tagByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch typeTag(tagByte) {
	case tagNumber:
		n, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return numberType(types.NumberKind(n))
	case tagDate:
		return types.Date, nil
	case tagDateTime:
		return types.DateTime, nil
	case tagString:
		return types.String, nil
	case tagFixedString:
		n, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		return types.FixedString(int(n)), nil
	case tagArray:
		elem, err := readType(r)
		if err != nil {
			return nil, err
		}
		return types.Array(elem), nil
	case tagNullable:
		elem, err := readType(r)
		if err != nil {
			return nil, err
		}
		return types.Nullable(elem), nil
	default:
		return nil, errs.New(errs.LogicError, errs.CodeIllegalColumn, "wire: unknown type tag %d", tagByte)
	}
}

func numberType(k types.NumberKind) (*types.Type, error) {
	switch k {
	case types.NumUInt8:
		return types.UInt8, nil
	case types.NumUInt16:
		return types.UInt16, nil
	case types.NumUInt32:
		return types.UInt32, nil
	case types.NumUInt64:
		return types.UInt64, nil
	case types.NumInt8:
		return types.Int8, nil
	case types.NumInt16:
		return types.Int16, nil
	case types.NumInt32:
		return types.Int32, nil
	case types.NumInt64:
		return types.Int64, nil
	case types.NumFloat32:
		return types.Float32, nil
	case types.NumFloat64:
		return types.Float64, nil
	default:
		return nil, errs.New(errs.LogicError, errs.CodeIllegalColumn, "wire: unknown number kind %d", k)
	}
}

func writeColumn(w *Writer, col column.Column) error {
	col = col.ConvertToFullIfConst()
	switch c := col.(type) {
	case *column.VectorColumn[uint8]:
		for _, v := range c.Data() {
			w.WriteUint8(v)
		}
	case *column.VectorColumn[uint16]:
		for _, v := range c.Data() {
			w.buf = appendLE16(w.buf, v)
		}
	case *column.VectorColumn[uint32]:
		for _, v := range c.Data() {
			w.WriteUint32(v)
		}
	case *column.VectorColumn[uint64]:
		for _, v := range c.Data() {
			w.WriteUint64(v)
		}
	case *column.VectorColumn[int8]:
		for _, v := range c.Data() {
			w.WriteUint8(uint8(v))
		}
	case *column.VectorColumn[int16]:
		for _, v := range c.Data() {
			w.buf = appendLE16(w.buf, uint16(v))
		}
	case *column.VectorColumn[int32]:
		for _, v := range c.Data() {
			w.WriteUint32(uint32(v))
		}
	case *column.VectorColumn[int64]:
		for _, v := range c.Data() {
			w.WriteUint64(uint64(v))
		}
	case *column.VectorColumn[float32]:
		for _, v := range c.Data() {
			w.WriteUint32(math.Float32bits(v))
		}
	case *column.VectorColumn[float64]:
		for _, v := range c.Data() {
			w.WriteUint64(math.Float64bits(v))
		}
	case *column.StringColumn:
		for i := 0; i < c.Size(); i++ {
			w.WriteString(string(c.RowBytes(i)))
		}
	case *column.FixedStringColumn:
		for i := 0; i < c.Size(); i++ {
			w.WriteRaw(c.RowBytes(i))
		}
	case *column.ArrayColumn:
		for i := 0; i < c.Size(); i++ {
			start, end := c.Bounds(i)
			w.WriteUvarint(uint64(end - start))
		}
		if err := writeColumn(w, c.Data()); err != nil {
			return err
		}
	case *column.NullableColumn:
		w.WriteRaw(c.NullMap())
		if err := writeColumn(w, c.Nested()); err != nil {
			return err
		}
	default:
		return errs.New(errs.LogicError, errs.CodeIllegalColumn, "wire: unsupported column type %T", col)
	}
	return nil
}

func readColumn(r *Reader, typ *types.Type, rows int) (column.Column, error) {
	switch typ.Family {
	case types.FamilyNumber, types.FamilyDate, types.FamilyDateTime:
		return readNumericColumn(r, typ, rows)
	case types.FamilyString:
		c := column.NewStringColumn()
		c.Reserve(rows)
		for i := 0; i < rows; i++ {
			s, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			c.AppendString(s)
		}
		return c, nil
	case types.FamilyFixedString:
		c := column.NewFixedStringColumn(typ.FixedSize)
		c.Reserve(rows)
		for i := 0; i < rows; i++ {
			b, err := r.ReadRaw(typ.FixedSize)
			if err != nil {
				return nil, err
			}
			c.Append(b)
		}
		return c, nil
	case types.FamilyArray:
		lengths := make([]int, rows)
		total := 0
		for i := 0; i < rows; i++ {
			n, err := r.ReadUvarint()
			if err != nil {
				return nil, err
			}
			lengths[i] = int(n)
			total += int(n)
		}
		elemCol, err := readColumn(r, typ.Elem, total)
		if err != nil {
			return nil, err
		}
		arr := column.NewArrayColumn(typ.Elem, elemCol)
		offsets := make([]uint64, rows)
		offset := 0
		for i := 0; i < rows; i++ {
			offset += lengths[i]
			offsets[i] = uint64(offset)
		}
		arr.SetOffsets(offsets)
		return arr, nil
	case types.FamilyNullable:
		nullMap, err := r.ReadRaw(rows)
		if err != nil {
			return nil, err
		}
		nested, err := readColumn(r, typ.Elem, rows)
		if err != nil {
			return nil, err
		}
		nc := column.NewNullableColumn(nested)
		nc.SetNullMap(nullMap)
		return nc, nil
	default:
		return nil, errs.New(errs.LogicError, errs.CodeIllegalColumn, "wire: unsupported wire type family %v", typ.Family)
	}
}

func readNumericColumn(r *Reader, typ *types.Type, rows int) (column.Column, error) {
	switch typ.Number {
	case types.NumUInt8:
		data := make([]uint8, rows)
		for i := range data {
			v, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return column.NewVectorColumnFrom[uint8](typ, data), nil
	case types.NumUInt16:
		data := make([]uint16, rows)
		for i := range data {
			v, err := r.readUint16LE()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return column.NewVectorColumnFrom[uint16](typ, data), nil
	case types.NumUInt32:
		data := make([]uint32, rows)
		for i := range data {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return column.NewVectorColumnFrom[uint32](typ, data), nil
	case types.NumUInt64:
		data := make([]uint64, rows)
		for i := range data {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			data[i] = v
		}
		return column.NewVectorColumnFrom[uint64](typ, data), nil
	case types.NumInt8:
		data := make([]int8, rows)
		for i := range data {
			v, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			data[i] = int8(v)
		}
		return column.NewVectorColumnFrom[int8](typ, data), nil
	case types.NumInt16:
		data := make([]int16, rows)
		for i := range data {
			v, err := r.readUint16LE()
			if err != nil {
				return nil, err
			}
			data[i] = int16(v)
		}
		return column.NewVectorColumnFrom[int16](typ, data), nil
	case types.NumInt32:
		data := make([]int32, rows)
		for i := range data {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			data[i] = int32(v)
		}
		return column.NewVectorColumnFrom[int32](typ, data), nil
	case types.NumInt64:
		data := make([]int64, rows)
		for i := range data {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			data[i] = int64(v)
		}
		return column.NewVectorColumnFrom[int64](typ, data), nil
	case types.NumFloat32:
		data := make([]float32, rows)
		for i := range data {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			data[i] = math.Float32frombits(v)
		}
		return column.NewVectorColumnFrom[float32](typ, data), nil
	case types.NumFloat64:
		data := make([]float64, rows)
		for i := range data {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			data[i] = math.Float64frombits(v)
		}
		return column.NewVectorColumnFrom[float64](typ, data), nil
	default:
		return nil, errs.New(errs.LogicError, errs.CodeIllegalColumn, "wire: unsupported number kind %d", typ.Number)
	}
}
