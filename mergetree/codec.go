package mergetree

import (
	"encoding/binary"
	"math"

	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/types"
)

// EncodeColumnBlock serializes rows [start, start+length) of col into
// the raw (pre-compression) byte layout WriteColumnFile compresses one
// block at a time: numeric columns as a flat little-endian array,
// String as length-prefixed rows. This is the uncompressed payload the
// block cache stores and ColumnFile/zstd wraps on disk.
func EncodeColumnBlock(t *types.Type, col column.Column, start, length int) ([]byte, error) {
	if t.IsString() {
		var buf []byte
		for row := start; row < start+length; row++ {
			s := col.Get(row).String()
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
			buf = append(buf, lenBuf[:]...)
			buf = append(buf, s...)
		}
		return buf, nil
	}
	width := t.Number.Width()
	if width == 0 {
		width = 8
	}
	buf := make([]byte, 0, length*width)
	for row := start; row < start+length; row++ {
		f := col.Get(row)
		var v uint64
		switch {
		case t.Number.Float() && width == 8:
			v = math.Float64bits(f.Float64())
		case t.Number.Float() && width == 4:
			// Field carries float64; narrow on encode, matching the
			// column's own storage width.
			v = uint64(math.Float32bits(float32(f.Float64())))
		case t.Number.Signed():
			v = uint64(f.Int64())
		default:
			v = f.UInt64()
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		buf = append(buf, tmp[:width]...)
	}
	return buf, nil
}

// DecodeColumnBlock is the inverse of EncodeColumnBlock: given the
// declared type and raw bytes for `rows` rows, produces a freshly
// populated Column.
func DecodeColumnBlock(t *types.Type, data []byte, rows int) (column.Column, error) {
	if t.IsString() {
		c := column.NewStringColumn()
		off := 0
		for i := 0; i < rows; i++ {
			if off+4 > len(data) {
				return nil, errs.New(errs.IOError, errs.CodeCorruptedData, "mergetree: truncated string block")
			}
			n := int(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
			if off+n > len(data) {
				return nil, errs.New(errs.IOError, errs.CodeCorruptedData, "mergetree: truncated string row")
			}
			c.AppendString(string(data[off : off+n]))
			off += n
		}
		return c, nil
	}
	width := t.Number.Width()
	if width == 0 {
		width = 8
	}
	if len(data) < rows*width {
		return nil, errs.New(errs.IOError, errs.CodeCorruptedData, "mergetree: truncated numeric block")
	}
	switch t.Number {
	case types.NumUInt8:
		c := column.NewVectorColumn[uint8](t)
		for i := 0; i < rows; i++ {
			c.Append(data[i])
		}
		return c, nil
	case types.NumUInt16:
		c := column.NewVectorColumn[uint16](t)
		for i := 0; i < rows; i++ {
			c.Append(binary.LittleEndian.Uint16(data[i*2:]))
		}
		return c, nil
	case types.NumUInt32:
		c := column.NewVectorColumn[uint32](t)
		for i := 0; i < rows; i++ {
			c.Append(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return c, nil
	case types.NumUInt64:
		c := column.NewVectorColumn[uint64](t)
		for i := 0; i < rows; i++ {
			c.Append(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return c, nil
	case types.NumInt8:
		c := column.NewVectorColumn[int8](t)
		for i := 0; i < rows; i++ {
			c.Append(int8(data[i]))
		}
		return c, nil
	case types.NumInt16:
		c := column.NewVectorColumn[int16](t)
		for i := 0; i < rows; i++ {
			c.Append(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
		return c, nil
	case types.NumInt32:
		c := column.NewVectorColumn[int32](t)
		for i := 0; i < rows; i++ {
			c.Append(int32(binary.LittleEndian.Uint32(data[i*4:])))
		}
		return c, nil
	case types.NumInt64:
		c := column.NewVectorColumn[int64](t)
		for i := 0; i < rows; i++ {
			c.Append(int64(binary.LittleEndian.Uint64(data[i*8:])))
		}
		return c, nil
	case types.NumFloat32:
		c := column.NewVectorColumn[float32](t)
		for i := 0; i < rows; i++ {
			c.Append(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
		return c, nil
	case types.NumFloat64:
		c := column.NewVectorColumn[float64](t)
		for i := 0; i < rows; i++ {
			c.Append(math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])))
		}
		return c, nil
	default:
		return nil, errs.New(errs.LogicError, errs.CodeLogicalError, "mergetree: unsupported numeric kind for %s", t)
	}
}
