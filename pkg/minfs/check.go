package minfs

import (
	"fmt"
	stdmath "math"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
)

// CheckSuperblock validates `sb` against the device it was read from. On a
// resizable volume it also reconciles each region's slice allocation with
// the counts recorded in `sb`.
func CheckSuperblock(sb *Superblock, device io.Device, volume io.VolumeManager) error {
	DumpSuperblock(sb)

	if sb.Magic0 != Magic0 || sb.Magic1 != Magic1 {
		err := ErrBadMagic{Magic0: sb.Magic0, Magic1: sb.Magic1}
		log.WithError(err).Error("bad magic")
		return fmt.Errorf("checking superblock: %w", err)
	}
	if sb.Version != Version {
		err := ErrBadVersion{Found: sb.Version}
		log.WithError(err).Error("unsupported version")
		return fmt.Errorf("checking superblock: %w", err)
	}
	if Byte(sb.BlockSize) != BlockSize || Byte(sb.InodeSize) != InodeSize {
		err := ErrBadGeometry{BlockSize: sb.BlockSize, InodeSize: sb.InodeSize}
		log.WithError(err).Error("unsupported geometry")
		return fmt.Errorf("checking superblock: %w", err)
	}

	if !sb.FVM() {
		return checkFixed(sb, device)
	}
	if err := reconcileSlices(sb, volume); err != nil {
		log.WithError(err).Error("reconciling volume slices")
		return fmt.Errorf("checking superblock: %w", err)
	}
	if err := checkSlices(sb); err != nil {
		log.WithError(err).Error("checking volume slices")
		return fmt.Errorf("checking superblock: %w", err)
	}
	return nil
}

func checkFixed(sb *Superblock, device io.Device) error {
	deviceBlocks := uint64(device.BlockCount())
	if uint64(sb.DataBlock)+uint64(sb.BlockCount) > deviceBlocks {
		log.WithField("deviceBlocks", deviceBlocks).Error("too large for device")
		return fmt.Errorf(
			"checking superblock: data region ends at block `%d` past the "+
				"end of a `%d` block device: %w",
			uint64(sb.DataBlock)+uint64(sb.BlockCount),
			deviceBlocks,
			ErrInvalidArgs,
		)
	}

	regions := []struct {
		name  string
		start Block
		size  Block
		next  Block
	}{
		{"inode bitmap", sb.InodeBitmapBlock, sb.InodeBitmapBlocks(), sb.BlockBitmapBlock},
		{"block bitmap", sb.BlockBitmapBlock, sb.BlockBitmapBlocks(), sb.InodeTableBlock},
		{"inode table", sb.InodeTableBlock, sb.InodeTableBlocks(), sb.DataBlock},
	}
	if sb.InodeBitmapBlock <= SuperblockBlock {
		return fmt.Errorf(
			"checking superblock: inode bitmap overlaps the superblock: %w",
			ErrInvalidArgs,
		)
	}
	for _, r := range regions {
		if uint64(r.start)+uint64(r.size) > uint64(r.next) {
			log.WithField("region", r.name).Error("region collides with its successor")
			return fmt.Errorf(
				"checking superblock: %s at block `%d` of `%d` blocks "+
					"collides with the region at block `%d`: %w",
				r.name,
				r.start,
				r.size,
				r.next,
				ErrInvalidArgs,
			)
		}
	}
	return nil
}

// sliceRegion is one of the four resizable regions, addressed in slices.
type sliceRegion struct {
	name     string
	start    Block
	expected uint32
}

func sliceRegions(sb *Superblock) [4]sliceRegion {
	return [4]sliceRegion{
		{"inode bitmap", FVMBlockInodeBitmapStart, sb.InodeBitmapSlices},
		{"block bitmap", FVMBlockBlockBitmapStart, sb.BlockBitmapSlices},
		{"inode table", FVMBlockInodeStart, sb.InodeTableSlices},
		{"data", FVMBlockDataStart, sb.DataSlices},
	}
}

func reconcileSlices(sb *Superblock, volume io.VolumeManager) error {
	if volume == nil {
		return fmt.Errorf("no volume manager for resizable layout: %w", ErrUnavailable)
	}
	info, err := volume.Query()
	if err != nil {
		return fmt.Errorf("querying volume: %v: %w", err, ErrUnavailable)
	}
	if info.SliceSize != sb.SliceSize {
		return fmt.Errorf(
			"slice size: wanted `%d`; found `%d`: %w",
			sb.SliceSize,
			info.SliceSize,
			ErrBadState,
		)
	}
	if sb.BlocksPerSlice() == 0 {
		return fmt.Errorf("slice size `%d` is smaller than a block: %w", sb.SliceSize, ErrBadState)
	}

	regions := sliceRegions(sb)
	starts := make([]uint64, len(regions))
	for i := range regions {
		starts[i] = uint64(regions[i].start / sb.BlocksPerSlice())
	}
	ranges, err := volume.QuerySlices(starts)
	if err != nil {
		return fmt.Errorf("querying slices: %v: %w", err, ErrUnavailable)
	}
	if len(ranges) != len(starts) {
		return fmt.Errorf(
			"querying slices: wanted `%d` ranges; found `%d`: %w",
			len(starts),
			len(ranges),
			ErrBadState,
		)
	}

	for i, r := range regions {
		expected, actual := uint64(r.expected), ranges[i].Count
		var err error
		switch {
		case !ranges[i].Allocated:
			err = volume.Extend(starts[i], expected)
		case actual < expected:
			err = volume.Extend(starts[i]+actual, expected-actual)
		case actual > expected:
			err = volume.Shrink(starts[i]+expected, actual-expected)
		}
		if err != nil {
			return fmt.Errorf(
				"resizing %s to `%d` slices: %v: %w",
				r.name,
				expected,
				err,
				ErrIODataIntegrity,
			)
		}
	}
	return nil
}

func checkSlices(sb *Superblock) error {
	bps := uint64(sb.BlocksPerSlice())
	regions := []struct {
		name      string
		needed    uint64
		allocated uint64
		start     Block
		next      Block
	}{
		{
			"inode bitmap",
			uint64(sb.InodeBitmapBlocks()),
			uint64(sb.InodeBitmapSlices) * bps,
			sb.InodeBitmapBlock,
			sb.BlockBitmapBlock,
		},
		{
			"block bitmap",
			uint64(sb.BlockBitmapBlocks()),
			uint64(sb.BlockBitmapSlices) * bps,
			sb.BlockBitmapBlock,
			sb.InodeTableBlock,
		},
		{
			"inode table",
			uint64(sb.InodeTableBlocks()),
			uint64(sb.InodeTableSlices) * bps,
			sb.InodeTableBlock,
			sb.DataBlock,
		},
	}
	for _, r := range regions {
		if r.needed > r.allocated {
			return fmt.Errorf(
				"not enough slices for %s: `%d` blocks needed; `%d` allocated: %w",
				r.name,
				r.needed,
				r.allocated,
				ErrInvalidArgs,
			)
		}
		if r.allocated+uint64(r.start) >= uint64(r.next) {
			return fmt.Errorf(
				"%s collides with the region at block `%d`: %w",
				r.name,
				r.next,
				ErrInvalidArgs,
			)
		}
	}

	needed := uint64(sb.BlockCount)
	allocated := uint64(sb.DataSlices) * bps
	if needed > allocated {
		return fmt.Errorf(
			"not enough slices for data: `%d` blocks needed; `%d` allocated: %w",
			needed,
			allocated,
			ErrInvalidArgs,
		)
	}
	if allocated+uint64(sb.DataBlock) > stdmath.MaxUint32 {
		return fmt.Errorf("data blocks overflow block numbers: %w", ErrInvalidArgs)
	}
	if needed <= 1 {
		return fmt.Errorf("not enough data blocks: %w", ErrInvalidArgs)
	}
	return nil
}
