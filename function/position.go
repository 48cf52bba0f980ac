package function

import (
	"strings"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/types"
)

// positionFunction implements position/positionUTF8 and their
// case-insensitive variants. The needle must be a constant String —
// otherwise ILLEGAL_COLUMN.
type positionFunction struct {
	caseInsensitive bool
	utf8            bool
}

func (f *positionFunction) Name() string {
	switch {
	case f.caseInsensitive && f.utf8:
		return "positionCaseInsensitiveUTF8"
	case f.caseInsensitive:
		return "positionCaseInsensitive"
	case f.utf8:
		return "positionUTF8"
	default:
		return "position"
	}
}

func (f *positionFunction) ReturnType(argTypes []*types.Type) (*types.Type, error) {
	if len(argTypes) != 2 {
		return nil, errArity(f.Name(), len(argTypes), 2)
	}
	if !argTypes[0].IsString() || !argTypes[1].IsString() {
		return nil, errIllegalType(f.Name(), 0, argTypes[0])
	}
	return types.UInt64, nil
}

func (f *positionFunction) Execute(blk *block.Block, argPositions []int, resultPosition int) error {
	haystackCol := blk.Columns[argPositions[0]].Column.ConvertToFullIfConst()
	needleColRaw := blk.Columns[argPositions[1]].Column

	needleConst, ok := needleColRaw.(*column.ConstColumn)
	if !ok {
		return errIllegalColumn(f.Name(), "needle argument must be a constant String")
	}
	needle := needleConst.Value().String()

	n := haystackCol.Size()
	out := column.NewVectorColumn[uint64](types.UInt64)
	out.Reserve(n)

	for row := 0; row < n; row++ {
		hay := string(rowBytes(haystackCol, row))
		out.Append(f.findPosition(hay, needle))
	}

	blk.Columns[resultPosition].Column = out
	return nil
}

// findPosition returns the 1-based position of needle in hay, 0 if
// absent. For the UTF8 variant the position is a codepoint count: a
// byte whose top two bits are not 0b10 (i.e. not a UTF-8 continuation
// byte) starts a new codepoint, so the counter increments once per
// such byte up to and including the match start.
func (f *positionFunction) findPosition(hay, needle string) uint64 {
	h, ndl := hay, needle
	if f.caseInsensitive {
		h = strings.ToLower(h)
		ndl = strings.ToLower(ndl)
	}
	byteIdx := strings.Index(h, ndl)
	if byteIdx < 0 {
		return 0
	}
	if !f.utf8 {
		return uint64(byteIdx + 1)
	}
	codepoints := uint64(0)
	for i := 0; i <= byteIdx; i++ {
		if h[i]&0xC0 != 0x80 {
			codepoints++
		}
	}
	return codepoints
}
