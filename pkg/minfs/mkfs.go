package minfs

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/alloc"
	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/io"
	"github.com/weberc2/minfs/pkg/math"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// DefaultInodes is the inode count of a fixed-size layout.
const DefaultInodes uint32 = 32768

// fixed-size layouts align each region to a group of this many blocks
const regionAlign Block = 8

type MkfsOptions struct {
	// Inodes overrides DefaultInodes on fixed-size devices. Resizable
	// volumes derive the inode count from the slice size.
	Inodes uint32

	// VolumeID is generated when zero.
	VolumeID uuid.UUID
}

// Mkfs formats `device`. When `volume` is non-nil the resizable layout is
// used: one slice is allocated for each region, all of which are released
// again if formatting fails.
func Mkfs(device io.Device, volume io.VolumeManager, opts MkfsOptions) (*Superblock, error) {
	sb := Superblock{
		Magic0:    Magic0,
		Magic1:    Magic1,
		Version:   Version,
		Flags:     FlagClean,
		BlockSize: uint32(BlockSize),
		InodeSize: uint32(InodeSize),
		VolumeID:  opts.VolumeID,
	}
	if sb.VolumeID == uuid.Nil {
		sb.VolumeID = uuid.New()
	}

	var err error
	if volume != nil {
		err = layoutResizable(&sb, volume)
	} else {
		inodes := opts.Inodes
		if inodes == 0 {
			inodes = DefaultInodes
		}
		err = layoutFixed(&sb, device.BlockCount(), inodes)
	}
	if err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	DumpSuperblock(&sb)

	if err := writeFilesystem(&sb, device); err != nil {
		freeSlices(&sb, volume)
		return nil, fmt.Errorf("formatting: %w", err)
	}
	log.WithField("volume", sb.VolumeID).Info("formatted")
	return &sb, nil
}

func layoutFixed(sb *Superblock, blocks Block, inodes uint32) error {
	inodeTableBlocks := InodeTableBlocks(inodes)
	inodeBitmapBlocks := BitmapBlocks(inodes)

	nonData := uint64(regionAlign) +
		uint64(math.RoundUp(inodeBitmapBlocks, regionAlign)) +
		uint64(inodeTableBlocks)
	if nonData >= uint64(blocks) {
		return fmt.Errorf(
			"partition of `%d` blocks is too small: %w",
			blocks,
			ErrInvalidArgs,
		)
	}

	dataBlocks := blocks - Block(nonData)
	blockBitmapBlocks := math.RoundUp(BitmapBlocks(uint32(dataBlocks)), regionAlign)
	if dataBlocks <= blockBitmapBlocks+1 {
		return fmt.Errorf(
			"partition of `%d` blocks leaves no room for data: %w",
			blocks,
			ErrInvalidArgs,
		)
	}

	sb.InodeCount = inodes
	sb.BlockCount = uint32(dataBlocks - blockBitmapBlocks)
	sb.InodeBitmapBlock = regionAlign
	sb.BlockBitmapBlock = sb.InodeBitmapBlock + math.RoundUp(inodeBitmapBlocks, regionAlign)
	sb.InodeTableBlock = sb.BlockBitmapBlock + blockBitmapBlocks
	sb.DataBlock = sb.InodeTableBlock + inodeTableBlocks
	return nil
}

func layoutResizable(sb *Superblock, volume io.VolumeManager) error {
	info, err := volume.Query()
	if err != nil {
		return fmt.Errorf("querying volume: %v: %w", err, ErrUnavailable)
	}
	if info.SliceSize == 0 || info.SliceSize%uint64(BlockSize) != 0 {
		return fmt.Errorf(
			"slice size `%d` is not a multiple of the block size: %w",
			info.SliceSize,
			ErrInvalidArgs,
		)
	}
	sb.SliceSize = info.SliceSize
	sb.Flags |= FlagFVM
	bps := sb.BlocksPerSlice()

	slices := []struct {
		name  string
		start Block
		count *uint32
	}{
		{"inode bitmap", FVMBlockInodeBitmapStart, &sb.InodeBitmapSlices},
		{"block bitmap", FVMBlockBlockBitmapStart, &sb.BlockBitmapSlices},
		{"inode table", FVMBlockInodeStart, &sb.InodeTableSlices},
		{"data", FVMBlockDataStart, &sb.DataSlices},
	}
	for _, s := range slices {
		if err := volume.Extend(uint64(s.start/bps), 1); err != nil {
			freeSlices(sb, volume)
			return fmt.Errorf("allocating %s: %v: %w", s.name, err, ErrNoSpace)
		}
		*s.count = 1
	}

	sb.VSliceCount = 1 + uint64(sb.InodeBitmapSlices) +
		uint64(sb.BlockBitmapSlices) + uint64(sb.InodeTableSlices) +
		uint64(sb.DataSlices)
	sb.InodeCount = uint32(uint64(sb.InodeTableSlices) * sb.SliceSize / uint64(InodeSize))
	sb.BlockCount = uint32(uint64(sb.DataSlices) * sb.SliceSize / uint64(BlockSize))
	sb.InodeBitmapBlock = FVMBlockInodeBitmapStart
	sb.BlockBitmapBlock = FVMBlockBlockBitmapStart
	sb.InodeTableBlock = FVMBlockInodeStart
	sb.DataBlock = FVMBlockDataStart
	return nil
}

// freeSlices gives back every slice recorded in `sb`. Failures are logged
// and otherwise ignored.
func freeSlices(sb *Superblock, volume io.VolumeManager) {
	if !sb.FVM() || volume == nil {
		return
	}
	for _, r := range sliceRegions(sb) {
		if r.expected == 0 {
			continue
		}
		offset := uint64(r.start / sb.BlocksPerSlice())
		if err := volume.Shrink(offset, uint64(r.expected)); err != nil {
			log.WithError(err).WithField("region", r.name).Warn("releasing slices")
		}
	}
}

// writeFilesystem writes the bitmaps, a zeroed inode table holding only the
// root directory, the root directory's first block and the superblock.
func writeFilesystem(sb *Superblock, device io.Device) error {
	blocks := alloc.New(math.RoundUp(uint64(sb.BlockCount), uint64(BlockBits)))
	inodes := alloc.New(math.RoundUp(uint64(sb.InodeCount), uint64(BlockBits)))
	if err := blocks.Shrink(uint64(sb.BlockCount)); err != nil {
		return fmt.Errorf("sizing block bitmap: %w", err)
	}
	if err := inodes.Shrink(uint64(sb.InodeCount)); err != nil {
		return fmt.Errorf("sizing inode bitmap: %w", err)
	}

	txn := writeback.NewTransaction()

	const rootDirBlock Block = 1
	dir := make(writeback.Bytes, BlockSize)
	encode.InitDir(dir, InoRoot, InoRoot)
	txn.Enqueue(dir, 0, sb.DataBlock+rootDirBlock, 1)

	// inode zero and data block zero stand for "none"
	inodes.Set(uint64(InoNil))
	inodes.Set(uint64(InoRoot))
	sb.AllocInodeCount++
	blocks.Set(uint64(BlockNil))
	blocks.Set(uint64(rootDirBlock))
	sb.AllocBlockCount++

	txn.Enqueue(blocks, 0, sb.BlockBitmapBlock, blocks.Blocks())
	txn.Enqueue(inodes, 0, sb.InodeBitmapBlock, inodes.Blocks())
	txn.Enqueue(writeback.Zero{}, 0, sb.InodeTableBlock, sb.InodeTableBlocks())

	root := Inode{
		Magic:       FileTypeDir,
		Size:        uint32(BlockSize),
		BlockCount:  1,
		LinkCount:   2,
		DirentCount: 2,
	}
	root.Direct[0] = rootDirBlock
	table := make(writeback.Bytes, BlockSize)
	offset := Byte(InoRoot) * InodeSize
	encode.EncodeInode(&root, (*[InodeSize]byte)(table[offset:offset+InodeSize]))
	txn.Enqueue(table, 0, sb.InodeTableBlock, 1)

	var super [BlockSize]byte
	encode.EncodeSuperblock(sb, &super)
	txn.Enqueue(writeback.Bytes(super[:]), 0, SuperblockBlock, 1)

	if err := (writeback.Synchronous{Device: device}).Commit(txn); err != nil {
		return err
	}
	if err := device.Sync(); err != nil {
		return fmt.Errorf("syncing device: %w", err)
	}
	return nil
}
