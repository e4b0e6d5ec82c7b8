package alloc

import . "github.com/weberc2/minfs/pkg/types"

// BlockAllocator maps data-region block numbers directly onto bits. Block
// zero is reserved by the formatter, so BlockNil is never handed out.
type BlockAllocator struct {
	Allocator
}

func (ba BlockAllocator) Find(hint Block) (Block, bool) {
	if b, ok := ba.Allocator.Find(uint64(hint)); ok {
		return Block(b), true
	}
	return BlockNil, false
}

func (ba BlockAllocator) FindIn(start, end Block) (Block, bool) {
	if b, ok := ba.Allocator.FindIn(uint64(start), uint64(end)); ok {
		return Block(b), true
	}
	return BlockNil, false
}

func (ba BlockAllocator) Set(b Block)      { ba.Allocator.Set(uint64(b)) }
func (ba BlockAllocator) Clear(b Block)    { ba.Allocator.Clear(uint64(b)) }
func (ba BlockAllocator) Get(b Block) bool { return ba.Allocator.Get(uint64(b)) }
