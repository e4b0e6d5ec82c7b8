package minfs

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/alloc"
	"github.com/weberc2/minfs/pkg/graph"
	. "github.com/weberc2/minfs/pkg/types"
)

// Check verifies that the bitmaps agree with the superblock counters and
// with the blocks actually referenced by allocated inodes. Every problem
// found is logged and returned.
func (fs *Minfs) Check() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	var problems []error
	report := func(err error) {
		log.WithError(err).Warn("inconsistency")
		problems = append(problems, err)
	}

	// the reserved entry zero is set in each bitmap but not counted
	if set := fs.inodes.Count(); set != uint64(fs.sb.AllocInodeCount)+1 {
		report(fmt.Errorf(
			"inode bitmap: `%d` bits set; superblock counts `%d` inodes",
			set,
			fs.sb.AllocInodeCount,
		))
	}
	if set := fs.blocks.Count(); set != uint64(fs.sb.AllocBlockCount)+1 {
		report(fmt.Errorf(
			"block bitmap: `%d` bits set; superblock counts `%d` blocks",
			set,
			fs.sb.AllocBlockCount,
		))
	}

	// a block is referenced by at most one inode, and only if allocated
	seen := alloc.New(fs.blocks.Size())
	seen.Set(uint64(BlockNil))
	for i := uint64(InoRoot); i < fs.inodes.Size(); i++ {
		if !fs.inodes.Get(i) {
			continue
		}
		ino := Ino(i)
		var inode Inode
		if err := fs.table.Load(ino, &inode); err != nil {
			report(fmt.Errorf("inode `%d`: %w", ino, err))
			continue
		}
		if err := inode.Magic.Validate(); err != nil {
			report(fmt.Errorf("inode `%d`: %w", ino, err))
			continue
		}

		referenced, err := graph.Walk(&inode, fs, func(b Block) {
			switch {
			case uint64(b) >= fs.blocks.Size():
				report(fmt.Errorf("inode `%d`: block `%d` out of range", ino, b))
			case !fs.blocks.Get(uint64(b)):
				report(fmt.Errorf("inode `%d`: block `%d` is not allocated", ino, b))
			case seen.Get(uint64(b)):
				report(fmt.Errorf("inode `%d`: block `%d` is referenced twice", ino, b))
			default:
				seen.Set(uint64(b))
			}
		})
		if err != nil {
			report(fmt.Errorf("inode `%d`: %w", ino, err))
			continue
		}
		if referenced != inode.BlockCount {
			report(fmt.Errorf(
				"inode `%d`: references `%d` blocks; record claims `%d`",
				ino,
				referenced,
				inode.BlockCount,
			))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf(
			"checking filesystem: %w: %w",
			ErrIODataIntegrity,
			errors.Join(problems...),
		)
	}
	return nil
}
