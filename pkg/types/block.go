package types

// Block is a block number. Data block numbers are relative to the start of
// the data region; every other block number is absolute on the device.
type Block uint32

// Byte is a size or offset in bytes.
type Byte int64

const (
	BlockSize        Byte  = 8192
	BlockPointerSize Byte  = 4
	BlockBits        Block = Block(BlockSize * 8)

	// PointersPerBlock is the number of block pointers held by one indirect
	// or doubly indirect block.
	PointersPerBlock Block = Block(BlockSize / BlockPointerSize)

	BlockNil Block = 0

	// BlockMax is the largest representable block number.
	BlockMax Block = ^Block(0)
)

// Offsets (in blocks) of each region on a resizable volume. Each region
// starts on its own slice boundary.
const (
	FVMBlockInodeBitmapStart Block = 0x10000
	FVMBlockBlockBitmapStart Block = 0x20000
	FVMBlockInodeStart       Block = 0x30000
	FVMBlockDataStart        Block = 0x40000
)
