package encode

import (
	"github.com/google/uuid"

	. "github.com/weberc2/minfs/pkg/types"
)

// EncodeSuperblock writes `sb` into the first bytes of `b`; the rest of the
// block is zeroed.
func EncodeSuperblock(sb *Superblock, b *[BlockSize]byte) {
	*b = [BlockSize]byte{}
	p := b[:]

	putU64(p, sbMagic0Start, sb.Magic0)
	putU64(p, sbMagic1Start, sb.Magic1)
	putU32(p, sbVersionStart, sb.Version)
	putU32(p, sbFlagsStart, sb.Flags)
	putU32(p, sbBlockSizeStart, sb.BlockSize)
	putU32(p, sbInodeSizeStart, sb.InodeSize)
	putU32(p, sbBlockCountStart, sb.BlockCount)
	putU32(p, sbInodeCountStart, sb.InodeCount)
	putU32(p, sbAllocBlockCountStart, sb.AllocBlockCount)
	putU32(p, sbAllocInodeCountStart, sb.AllocInodeCount)
	putBlock(p, sbInodeBitmapBlockStart, sb.InodeBitmapBlock)
	putBlock(p, sbBlockBitmapBlockStart, sb.BlockBitmapBlock)
	putBlock(p, sbInodeTableBlockStart, sb.InodeTableBlock)
	putBlock(p, sbDataBlockStart, sb.DataBlock)
	putU64(p, sbSliceSizeStart, sb.SliceSize)
	putU64(p, sbVSliceCountStart, sb.VSliceCount)
	putU32(p, sbInodeBitmapSlicesStart, sb.InodeBitmapSlices)
	putU32(p, sbBlockBitmapSlicesStart, sb.BlockBitmapSlices)
	putU32(p, sbInodeTableSlicesStart, sb.InodeTableSlices)
	putU32(p, sbDataSlicesStart, sb.DataSlices)
	copy(p[sbVolumeIDStart:sbVolumeIDEnd], sb.VolumeID[:])
}

// DecodeSuperblock does not validate anything; see `minfs.CheckSuperblock`.
func DecodeSuperblock(sb *Superblock, b *[BlockSize]byte) {
	p := b[:]

	sb.Magic0 = getU64(p, sbMagic0Start)
	sb.Magic1 = getU64(p, sbMagic1Start)
	sb.Version = getU32(p, sbVersionStart)
	sb.Flags = getU32(p, sbFlagsStart)
	sb.BlockSize = getU32(p, sbBlockSizeStart)
	sb.InodeSize = getU32(p, sbInodeSizeStart)
	sb.BlockCount = getU32(p, sbBlockCountStart)
	sb.InodeCount = getU32(p, sbInodeCountStart)
	sb.AllocBlockCount = getU32(p, sbAllocBlockCountStart)
	sb.AllocInodeCount = getU32(p, sbAllocInodeCountStart)
	sb.InodeBitmapBlock = getBlock(p, sbInodeBitmapBlockStart)
	sb.BlockBitmapBlock = getBlock(p, sbBlockBitmapBlockStart)
	sb.InodeTableBlock = getBlock(p, sbInodeTableBlockStart)
	sb.DataBlock = getBlock(p, sbDataBlockStart)
	sb.SliceSize = getU64(p, sbSliceSizeStart)
	sb.VSliceCount = getU64(p, sbVSliceCountStart)
	sb.InodeBitmapSlices = getU32(p, sbInodeBitmapSlicesStart)
	sb.BlockBitmapSlices = getU32(p, sbBlockBitmapSlicesStart)
	sb.InodeTableSlices = getU32(p, sbInodeTableSlicesStart)
	sb.DataSlices = getU32(p, sbDataSlicesStart)
	sb.VolumeID = uuid.UUID{}
	copy(sb.VolumeID[:], p[sbVolumeIDStart:sbVolumeIDEnd])
}

const (
	sbMagic0Start            = 0
	sbMagic1Start            = 8
	sbVersionStart           = 16
	sbFlagsStart             = 20
	sbBlockSizeStart         = 24
	sbInodeSizeStart         = 28
	sbBlockCountStart        = 32
	sbInodeCountStart        = 36
	sbAllocBlockCountStart   = 40
	sbAllocInodeCountStart   = 44
	sbInodeBitmapBlockStart  = 48
	sbBlockBitmapBlockStart  = 52
	sbInodeTableBlockStart   = 56
	sbDataBlockStart         = 60
	sbSliceSizeStart         = 64
	sbVSliceCountStart       = 72
	sbInodeBitmapSlicesStart = 80
	sbBlockBitmapSlicesStart = 84
	sbInodeTableSlicesStart  = 88
	sbDataSlicesStart        = 92
	sbVolumeIDStart          = 96
	sbVolumeIDEnd            = sbVolumeIDStart + 16
)
