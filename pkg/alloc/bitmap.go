package alloc

import (
	"fmt"
	"math/bits"

	. "github.com/weberc2/minfs/pkg/types"
)

const bitsPerByte = 8

// Bitmap is a bit-per-unit map whose storage is always a whole number of
// blocks so that it can be written back block by block. `size` is the number
// of usable bits, which may be smaller than the storage holds; bits at or
// beyond `size` are never returned by a search.
type Bitmap struct {
	bytes []byte
	size  uint64
}

// New returns a bitmap with `size` usable bits.
func New(size uint64) *Bitmap {
	var bm Bitmap
	bm.Reset(size)
	return &bm
}

// Reset discards every bit and resizes the bitmap to `size` usable bits.
func (bm *Bitmap) Reset(size uint64) {
	bm.bytes = make([]byte, storageSize(size))
	bm.size = size
}

func storageSize(bits uint64) Byte {
	blocks := (bits + uint64(BlockBits) - 1) / uint64(BlockBits)
	return Byte(blocks) * BlockSize
}

// Size returns the number of usable bits.
func (bm *Bitmap) Size() uint64 { return bm.size }

// Capacity returns the number of bits the storage can hold.
func (bm *Bitmap) Capacity() uint64 {
	return uint64(len(bm.bytes)) * bitsPerByte
}

// Grow extends the bitmap to `size` usable bits, reallocating the storage to
// the next block multiple if needed. Existing bits are preserved and new bits
// are clear.
func (bm *Bitmap) Grow(size uint64) error {
	if size < bm.size {
		return fmt.Errorf(
			"growing bitmap from `%d` to `%d` bits: %w",
			bm.size,
			size,
			ErrInvalidArgs,
		)
	}
	if need := storageSize(size); need > Byte(len(bm.bytes)) {
		bytes := make([]byte, need)
		copy(bytes, bm.bytes)
		bm.bytes = bytes
	}
	bm.size = size
	return nil
}

// Shrink reduces the number of usable bits to `size` without releasing
// storage. Bits at or beyond `size` are cleared so that a later Grow exposes
// them as free.
func (bm *Bitmap) Shrink(size uint64) error {
	if size > bm.Capacity() {
		return fmt.Errorf(
			"shrinking bitmap of capacity `%d` to `%d` bits: %w",
			bm.Capacity(),
			size,
			ErrInvalidArgs,
		)
	}
	for i := size; i < bm.size; i++ {
		bm.clear(i)
	}
	bm.size = size
	return nil
}

// Get reports whether bit `i` is set.
func (bm *Bitmap) Get(i uint64) bool {
	bm.checkIndex(i)
	return bm.bytes[i/bitsPerByte]&(1<<(i%bitsPerByte)) != 0
}

func (bm *Bitmap) Set(i uint64) {
	bm.checkIndex(i)
	bm.bytes[i/bitsPerByte] |= 1 << (i % bitsPerByte)
}

func (bm *Bitmap) Clear(i uint64) {
	bm.checkIndex(i)
	bm.clear(i)
}

func (bm *Bitmap) clear(i uint64) {
	bm.bytes[i/bitsPerByte] &^= 1 << (i % bitsPerByte)
}

func (bm *Bitmap) checkIndex(i uint64) {
	if i >= bm.size {
		panic(fmt.Sprintf("bit `%d` out of range for bitmap of `%d` bits", i, bm.size))
	}
}

// FindIn returns the first clear bit in [start, end). `end` is clamped to
// the bitmap's size.
func (bm *Bitmap) FindIn(start, end uint64) (uint64, bool) {
	if end > bm.size {
		end = bm.size
	}
	for i := start; i < end; {
		byt := bm.bytes[i/bitsPerByte]
		if byt == 0xff && i%bitsPerByte == 0 {
			i += bitsPerByte
			continue
		}
		if byt&(1<<(i%bitsPerByte)) == 0 {
			return i, true
		}
		i++
	}
	return 0, false
}

// Find returns the first clear bit at or after `hint`, wrapping around to
// search [0, hint) if nothing is free at the end of the bitmap.
func (bm *Bitmap) Find(hint uint64) (uint64, bool) {
	if i, ok := bm.FindIn(hint, bm.size); ok {
		return i, true
	}
	return bm.FindIn(0, hint)
}

// Count returns the number of set bits.
func (bm *Bitmap) Count() uint64 {
	var n uint64
	for i := uint64(0); i < bm.size; {
		if i%bitsPerByte == 0 && i+bitsPerByte <= bm.size {
			n += uint64(bits.OnesCount8(bm.bytes[i/bitsPerByte]))
			i += bitsPerByte
			continue
		}
		if bm.Get(i) {
			n++
		}
		i++
	}
	return n
}

// Blocks returns the number of storage blocks.
func (bm *Bitmap) Blocks() Block {
	return Block(Byte(len(bm.bytes)) / BlockSize)
}

// Block returns the storage of block `rel` of the bitmap. The slice aliases
// the bitmap, so a write-back of it observes later mutations.
func (bm *Bitmap) Block(rel Block) []byte {
	start := Byte(rel) * BlockSize
	return bm.bytes[start : start+BlockSize]
}

// BlockOf returns the storage block holding bit `i`.
func BlockOf(i uint64) Block { return Block(i / uint64(BlockBits)) }
