package minfs

import (
	"fmt"
	stdmath "math"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/alloc"
	"github.com/weberc2/minfs/pkg/math"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// growth is a pending one-slice extension of a resizable region. Nothing in
// the filesystem changes until the volume manager has granted the slice.
type growth struct {
	region      string
	vslice      uint64
	bitmap      *alloc.Bitmap
	bitmapBlock Block
	oldCount    uint32
	newCount    uint32

	// apply updates the superblock and any region-specific state once the
	// slice is reserved.
	apply func(txn *writeback.Transaction) error
}

func (fs *Minfs) checkGrowable(region string) error {
	if !fs.sb.FVM() || fs.volume == nil {
		return fmt.Errorf("growing %s: fixed-size layout: %w", region, ErrNoSpace)
	}
	return nil
}

// AddInodes grows the inode table of a resizable volume by one slice.
func (fs *Minfs) AddInodes() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return fs.addInodes()
}

// AddBlocks grows the data region of a resizable volume by one slice.
func (fs *Minfs) AddBlocks() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return fs.addBlocks()
}

// addInodes grows the inode table by one slice. The mutex must be held.
func (fs *Minfs) addInodes() error {
	if err := fs.checkGrowable("inode table"); err != nil {
		return err
	}
	bps := fs.sb.BlocksPerSlice()
	inodesPerSlice := fs.sb.SliceSize / uint64(InodeSize)
	inodes := (uint64(fs.sb.InodeTableSlices) + 1) * inodesPerSlice
	if inodes > stdmath.MaxUint32 {
		return fmt.Errorf("growing inode table: inode count overflows: %w", ErrNoSpace)
	}

	g := growth{
		region:      "inode table",
		vslice:      uint64(FVMBlockInodeStart/bps) + uint64(fs.sb.InodeTableSlices),
		bitmap:      fs.inodes,
		bitmapBlock: fs.sb.InodeBitmapBlock,
		oldCount:    fs.sb.InodeCount,
		newCount:    uint32(inodes),
	}
	g.apply = func(txn *writeback.Transaction) error {
		oldBlocks := InodeTableBlocks(g.oldCount)
		newBlocks := InodeTableBlocks(g.newCount)
		if err := fs.table.Grow(g.newCount); err != nil {
			return fmt.Errorf("%v: %w", err, ErrNoSpace)
		}
		if newBlocks > oldBlocks {
			txn.Enqueue(
				writeback.Zero{},
				0,
				fs.sb.InodeTableBlock+oldBlocks,
				newBlocks-oldBlocks,
			)
		}
		fs.sb.InodeTableSlices++
		fs.sb.InodeCount = g.newCount
		return nil
	}
	return fs.grow(&g)
}

// addBlocks grows the data region by one slice. The mutex must be held.
func (fs *Minfs) addBlocks() error {
	if err := fs.checkGrowable("data region"); err != nil {
		return err
	}
	bps := fs.sb.BlocksPerSlice()
	blocks := (uint64(fs.sb.DataSlices) + 1) * uint64(bps)
	if blocks > stdmath.MaxUint32 {
		return fmt.Errorf("growing data region: block count overflows: %w", ErrNoSpace)
	}

	g := growth{
		region:      "data region",
		vslice:      uint64(FVMBlockDataStart/bps) + uint64(fs.sb.DataSlices),
		bitmap:      fs.blocks,
		bitmapBlock: fs.sb.BlockBitmapBlock,
		oldCount:    fs.sb.BlockCount,
		newCount:    uint32(blocks),
	}
	g.apply = func(*writeback.Transaction) error {
		fs.sb.DataSlices++
		fs.sb.BlockCount = g.newCount
		return nil
	}
	return fs.grow(&g)
}

// grow reserves the slice, resizes the bitmap, applies the region's updates
// and commits everything in a transaction of its own.
func (fs *Minfs) grow(g *growth) error {
	oldBitmapBlocks := BitmapBlocks(g.oldCount)
	newBitmapBlocks := BitmapBlocks(g.newCount)
	if newBitmapBlocks > fs.sb.BlocksPerSlice() {
		log.WithField("region", g.region).Error("growth would outgrow bitmap slice")
		return fmt.Errorf(
			"growing %s: bitmap of `%d` blocks exceeds one slice: %w",
			g.region,
			newBitmapBlocks,
			ErrNoSpace,
		)
	}

	if err := fs.volume.Extend(g.vslice, 1); err != nil {
		log.WithError(err).WithField("region", g.region).Error("extend failed")
		return fmt.Errorf(
			"growing %s: extending slice `%d`: %v: %w",
			g.region,
			g.vslice,
			err,
			ErrNoSpace,
		)
	}

	txn := writeback.NewTransaction()

	// grow before shrinking so the storage stays a block multiple
	if err := g.bitmap.Grow(math.RoundUp(uint64(g.newCount), uint64(BlockBits))); err != nil {
		return fmt.Errorf("growing %s: %v: %w", g.region, err, ErrNoSpace)
	}
	if err := g.bitmap.Shrink(uint64(g.newCount)); err != nil {
		return fmt.Errorf("growing %s: %v: %w", g.region, err, ErrNoSpace)
	}
	if newBitmapBlocks > oldBitmapBlocks {
		txn.Enqueue(
			g.bitmap,
			oldBitmapBlocks,
			g.bitmapBlock+oldBitmapBlocks,
			newBitmapBlocks-oldBitmapBlocks,
		)
	}

	if err := g.apply(txn); err != nil {
		return fmt.Errorf("growing %s: %w", g.region, err)
	}
	fs.sb.VSliceCount++
	fs.countUpdate(txn)

	log.WithFields(log.Fields{
		"region":      g.region,
		"transaction": txn.ID,
		"from":        g.oldCount,
		"to":          g.newCount,
	}).Info("grew region")
	if err := fs.sink.Commit(txn); err != nil {
		return fmt.Errorf("growing %s: %w", g.region, err)
	}
	return nil
}
