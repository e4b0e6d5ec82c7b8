package types

import "github.com/google/uuid"

const (
	Magic0  uint64 = 0x002153466e694d21
	Magic1  uint64 = 0x385000d3d3d3d304
	Version uint32 = 0x00000004

	FlagClean uint32 = 0x0000_0001
	FlagFVM   uint32 = 0x0000_0002

	// SuperblockBlock is the absolute block holding the superblock.
	SuperblockBlock Block = 0
)

// Superblock is the in-memory form of the volume header stored in block
// zero.
type Superblock struct {
	Magic0          uint64
	Magic1          uint64
	Version         uint32
	Flags           uint32
	BlockSize       uint32
	InodeSize       uint32
	BlockCount      uint32
	InodeCount      uint32
	AllocBlockCount uint32
	AllocInodeCount uint32

	InodeBitmapBlock Block
	BlockBitmapBlock Block
	InodeTableBlock  Block
	DataBlock        Block

	// Only meaningful when FlagFVM is set.
	SliceSize         uint64
	VSliceCount       uint64
	InodeBitmapSlices uint32
	BlockBitmapSlices uint32
	InodeTableSlices  uint32
	DataSlices        uint32

	VolumeID uuid.UUID
}

func (sb *Superblock) FVM() bool { return sb.Flags&FlagFVM != 0 }

// BlocksPerSlice is only meaningful on resizable volumes.
func (sb *Superblock) BlocksPerSlice() Block {
	return Block(sb.SliceSize / uint64(BlockSize))
}

// BitmapBlocks returns the number of blocks needed to hold a bitmap of
// `bits` bits.
func BitmapBlocks(bits uint32) Block {
	return Block((uint64(bits) + uint64(BlockBits) - 1) / uint64(BlockBits))
}

// InodeTableBlocks returns the number of blocks needed to hold `inodes`
// inode records.
func InodeTableBlocks(inodes uint32) Block {
	return Block(
		(uint64(inodes) + uint64(InodesPerBlock) - 1) / uint64(InodesPerBlock),
	)
}

func (sb *Superblock) InodeBitmapBlocks() Block {
	return BitmapBlocks(sb.InodeCount)
}

func (sb *Superblock) BlockBitmapBlocks() Block {
	return BitmapBlocks(sb.BlockCount)
}

func (sb *Superblock) InodeTableBlocks() Block {
	return InodeTableBlocks(sb.InodeCount)
}
