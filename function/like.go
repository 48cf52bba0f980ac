package function

import (
	"regexp"
	"strings"
	"sync"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/types"
)

// regexCache is the process-wide compiled-pattern cache: one map
// guarded by an RWMutex, and one entry per pattern whose mutex guards
// that pattern's one-time compilation. Each entry holds a single
// *regexp.Regexp that all callers share (stdlib regexp is safe for
// concurrent use); there is no pool of compiled copies.
type regexCache struct {
	mu      sync.RWMutex
	entries map[string]*regexCacheEntry
}

type regexCacheEntry struct {
	mu  sync.Mutex
	re  *regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{entries: map[string]*regexCacheEntry{}}
}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	e, ok := c.entries[pattern]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		e, ok = c.entries[pattern]
		if !ok {
			e = &regexCacheEntry{}
			c.entries[pattern] = e
		}
		c.mu.Unlock()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.re == nil {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		e.re = re
	}
	return e.re, nil
}

var globalRegexCache = newRegexCache()

// LowerLike translates a SQL LIKE pattern into either a plain
// substring (isSubstring=true, regex=="") when the pattern has the form
// "%...%" with no "_" and no escapes, or an anchored regular
// expression otherwise: "%" -> ".*", "_" -> ".", metacharacters
// escaped, anchored with ^...$.
func LowerLike(pattern string) (substring string, isSubstring bool, regex string) {
	if isPlainSubstring(pattern) {
		return pattern[1 : len(pattern)-1], true, ""
	}
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch ch {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteByte('$')
	return "", false, b.String()
}

// isPlainSubstring reports whether pattern is exactly "%body%" with no
// "_" and no backslash escapes in body — the fast path that avoids
// compiling a regex at all.
func isPlainSubstring(pattern string) bool {
	if len(pattern) < 2 || pattern[0] != '%' || pattern[len(pattern)-1] != '%' {
		return false
	}
	body := pattern[1 : len(pattern)-1]
	if strings.ContainsAny(body, "%_\\") {
		return false
	}
	return true
}

type likeFunction struct {
	cache *regexCache
}

func newLikeFunction() *likeFunction { return &likeFunction{cache: globalRegexCache} }

func (f *likeFunction) Name() string { return "like" }

func (f *likeFunction) ReturnType(argTypes []*types.Type) (*types.Type, error) {
	if len(argTypes) != 2 {
		return nil, errArity(f.Name(), len(argTypes), 2)
	}
	if !argTypes[0].IsString() || !argTypes[1].IsString() {
		return nil, errIllegalType(f.Name(), 0, argTypes[0])
	}
	return types.UInt8, nil
}

func (f *likeFunction) Execute(blk *block.Block, argPositions []int, resultPosition int) error {
	haystackCol := blk.Columns[argPositions[0]].Column.ConvertToFullIfConst()
	patternColRaw := blk.Columns[argPositions[1]].Column

	patternConst, ok := patternColRaw.(*column.ConstColumn)
	if !ok {
		return errIllegalColumn(f.Name(), "pattern argument must be a constant String")
	}
	pattern := patternConst.Value().String()

	substr, isSubstring, regex := LowerLike(pattern)

	n := haystackCol.Size()
	out := column.NewVectorColumn[uint8](types.UInt8)
	out.Reserve(n)

	if isSubstring {
		for row := 0; row < n; row++ {
			hay := string(rowBytes(haystackCol, row))
			out.Append(boolToUInt8(strings.Contains(hay, substr)))
		}
		blk.Columns[resultPosition].Column = out
		return nil
	}

	re, err := f.cache.get(regex)
	if err != nil {
		return errIllegalColumn(f.Name(), "invalid LIKE pattern %q: %v", pattern, err)
	}
	for row := 0; row < n; row++ {
		hay := string(rowBytes(haystackCol, row))
		out.Append(boolToUInt8(re.MatchString(hay)))
	}
	blk.Columns[resultPosition].Column = out
	return nil
}
