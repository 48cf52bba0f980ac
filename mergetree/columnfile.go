package mergetree

import (
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/latticedb/lattice/errs"
)

// ColumnFile is one column's compressed on-disk segment: a sequence of
// independently zstd-compressed blocks, one per mark range, opened
// read-only via mmap so the OS page cache — not a Go-side buffer pool
// — absorbs repeated reads of hot parts.
type ColumnFile struct {
	path string

	mu     sync.Mutex
	file   *os.File
	region mmap.MMap

	// blockOffsets[i] is the mmap byte offset of compressed block i;
	// blockOffsets[len] is the end of the file, so block i's compressed
	// span is region[blockOffsets[i]:blockOffsets[i+1]].
	blockOffsets []int64
	decoder      *zstd.Decoder
}

// OpenColumnFile mmaps path read-only and prepares a shared zstd
// decoder. blockOffsets must already be known (recovered from the
// part's footer/index at part-open time).
func OpenColumnFile(path string, blockOffsets []int64) (*ColumnFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.IOError, errs.CodeCannotReadAllData, "mergetree: open column file %s", path)
	}
	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(err, errs.IOError, errs.CodeCannotReadAllData, "mergetree: mmap column file %s", path)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		region.Unmap()
		f.Close()
		return nil, errs.Wrap(err, errs.IOError, errs.CodeCorruptedData, "mergetree: init zstd decoder")
	}
	return &ColumnFile{path: path, file: f, region: region, blockOffsets: blockOffsets, decoder: dec}, nil
}

func (c *ColumnFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoder.Close()
	if err := c.region.Unmap(); err != nil {
		return err
	}
	return c.file.Close()
}

// ReadBlock decompresses block i's raw bytes. Callers typically go
// through a BlockCache rather than calling this directly on a hot
// path.
func (c *ColumnFile) ReadBlock(i int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i+1 >= len(c.blockOffsets) {
		return nil, errs.New(errs.LogicError, errs.CodePositionOutOfBound,
			"mergetree: block %d out of range for %s", i, c.path)
	}
	compressed := c.region[c.blockOffsets[i]:c.blockOffsets[i+1]]
	return c.decoder.DecodeAll(compressed, nil)
}

// WriteColumnFile zstd-compresses each block independently and writes
// them back to back, returning the block offsets a subsequent
// OpenColumnFile call needs.
func WriteColumnFile(path string, blocks [][]byte) ([]int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.IOError, errs.CodeNotEnoughSpace, "mergetree: create column file %s", path)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.IOError, errs.CodeCorruptedData, "mergetree: init zstd encoder")
	}
	defer enc.Close()

	offsets := make([]int64, 0, len(blocks)+1)
	var pos int64
	offsets = append(offsets, pos)
	for _, blk := range blocks {
		compressed := enc.EncodeAll(blk, nil)
		n, err := f.Write(compressed)
		if err != nil {
			return nil, errs.Wrap(err, errs.IOError, errs.CodeNotEnoughSpace, "mergetree: write column file %s", path)
		}
		pos += int64(n)
		offsets = append(offsets, pos)
	}
	return offsets, nil
}

// blockCacheKey identifies one uncompressed block for the shared LRU.
type blockCacheKey struct {
	part   string
	column string
	mark   int
}

// BlockCache is the process-wide uncompressed-block cache: an LRU
// keyed by (part, column, mark), with a per-entry mutex standing in
// for the source's per-entry futex — Go has no user-space futex
// primitive, and a mutex is the idiomatic substitute for "don't let N
// readers all decompress the same block concurrently".
type BlockCache struct {
	lru *lru.Cache[blockCacheKey, *blockCacheEntry]
}

type blockCacheEntry struct {
	mu   sync.Mutex
	data []byte
}

func NewBlockCache(capacity int) (*BlockCache, error) {
	c, err := lru.New[blockCacheKey, *blockCacheEntry](capacity)
	if err != nil {
		return nil, errs.Wrap(err, errs.LogicError, errs.CodeLogicalError, "mergetree: create block cache")
	}
	return &BlockCache{lru: c}, nil
}

// Get returns the decompressed bytes for (part, column, mark), calling
// load() at most once per key even under concurrent callers racing on
// a miss.
func (c *BlockCache) Get(part, column string, mark int, load func() ([]byte, error)) ([]byte, error) {
	key := blockCacheKey{part, column, mark}
	entry, ok := c.lru.Get(key)
	if !ok {
		// PeekOrAdd keeps whichever entry a racing caller stored first,
		// so every caller of this key locks the same entry.
		fresh := &blockCacheEntry{}
		if prev, found, _ := c.lru.PeekOrAdd(key, fresh); found {
			entry = prev
		} else {
			entry = fresh
		}
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.data == nil {
		data, err := load()
		if err != nil {
			return nil, err
		}
		entry.data = data
	}
	return entry.data, nil
}
