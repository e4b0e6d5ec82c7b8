package minfs

import (
	"fmt"

	"github.com/weberc2/minfs/pkg/alloc"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// BlockNew allocates a data block, preferring blocks at or after `hint`.
// The search wraps to the start of the bitmap and, failing that, grows the
// data region once and retries over the new blocks.
func (fs *Minfs) BlockNew(txn *writeback.Transaction, hint Block) (Block, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	blocks := alloc.BlockAllocator{Allocator: fs.blocks}
	b, ok := blocks.Find(hint)
	if !ok {
		old := Block(fs.blocks.Size())
		if err := fs.addBlocks(); err != nil {
			return BlockNil, fmt.Errorf("allocating block: %w", err)
		}
		if b, ok = blocks.FindIn(old, Block(fs.blocks.Size())); !ok {
			return BlockNil, fmt.Errorf(
				"allocating block: no free block after growth: %w",
				ErrNoSpace,
			)
		}
	}

	blocks.Set(b)
	fs.sb.AllocBlockCount++
	fs.validateBlock(b)

	rel := alloc.BlockOf(uint64(b))
	txn.Enqueue(fs.blocks, rel, fs.sb.BlockBitmapBlock+rel, 1)
	fs.countUpdate(txn)
	return b, nil
}

// BlockFree releases data block `b`.
func (fs *Minfs) BlockFree(txn *writeback.Transaction, b Block) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.blockFree(txn, b)
	fs.countUpdate(txn)
}

// blockFree expects the mutex to be held and leaves the superblock update to
// the caller.
func (fs *Minfs) blockFree(txn *writeback.Transaction, b Block) {
	fs.validateBlock(b)
	alloc.BlockAllocator{Allocator: fs.blocks}.Clear(b)
	fs.sb.AllocBlockCount--
	fs.pointers.drop(b)

	rel := alloc.BlockOf(uint64(b))
	txn.Enqueue(fs.blocks, rel, fs.sb.BlockBitmapBlock+rel, 1)
}

func (fs *Minfs) validateBlock(b Block) {
	if b == BlockNil || b >= Block(fs.sb.BlockCount) {
		panic(fmt.Sprintf(
			"data block `%d` outside `[1, %d)`",
			b,
			fs.sb.BlockCount,
		))
	}
}
