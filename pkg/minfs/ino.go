package minfs

import (
	"fmt"

	"github.com/weberc2/minfs/pkg/alloc"
	"github.com/weberc2/minfs/pkg/graph"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// InoNew allocates an inode number, writes `inode` to it and stages the
// bitmap and superblock. If the inode bitmap is exhausted the inode region
// is grown once and the search is retried over the new inodes.
func (fs *Minfs) InoNew(txn *writeback.Transaction, inode *Inode) (Ino, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	inodes := alloc.InoAllocator{Allocator: fs.inodes}
	ino, ok := inodes.Find(InoNil)
	if !ok {
		old := Ino(fs.inodes.Size())
		if err := fs.addInodes(); err != nil {
			return InoNil, fmt.Errorf("allocating inode: %w", err)
		}
		if ino, ok = inodes.FindIn(old, Ino(fs.inodes.Size())); !ok {
			return InoNil, fmt.Errorf(
				"allocating inode: no free inode after growth: %w",
				ErrNoSpace,
			)
		}
	}

	inodes.Set(ino)
	fs.sb.AllocInodeCount++

	if err := fs.table.Store(txn, ino, inode); err != nil {
		inodes.Clear(ino)
		fs.sb.AllocInodeCount--
		return InoNil, fmt.Errorf("allocating inode `%d`: %w", ino, err)
	}

	rel := alloc.BlockOf(uint64(ino))
	txn.Enqueue(fs.inodes, rel, fs.sb.InodeBitmapBlock+rel, 1)
	fs.countUpdate(txn)
	return ino, nil
}

// InodeSync writes the record for `ino`.
func (fs *Minfs) InodeSync(txn *writeback.Transaction, ino Ino, inode *Inode) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := fs.table.Store(txn, ino, inode); err != nil {
		return fmt.Errorf("syncing inode `%d`: %w", ino, err)
	}
	return nil
}

// InoFree releases the inode of `vn` and every block it references. The
// vnode must already be unlinked. The whole pointer graph is read before
// anything is cleared, so a read failure leaves the inode and its blocks
// allocated.
func (fs *Minfs) InoFree(txn *writeback.Transaction, vn *Vnode) error {
	if !vn.Unlinked() {
		panic(fmt.Sprintf("freeing linked inode `%d`", vn.ino))
	}

	vn.mutex.Lock()
	defer vn.mutex.Unlock()
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	blocks := make([]Block, 0, vn.inode.BlockCount)
	released, err := graph.Release(&vn.inode, fs, func(b Block) {
		blocks = append(blocks, b)
	})
	if err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", vn.ino, err)
	}

	alloc.InoAllocator{Allocator: fs.inodes}.Clear(vn.ino)
	fs.sb.AllocInodeCount--
	rel := alloc.BlockOf(uint64(vn.ino))
	txn.Enqueue(fs.inodes, rel, fs.sb.InodeBitmapBlock+rel, 1)
	for _, b := range blocks {
		fs.blockFree(txn, b)
	}
	fs.countUpdate(txn)

	if released != vn.inode.BlockCount {
		panic(fmt.Sprintf(
			"freeing inode `%d`: released `%d` blocks; inode claims `%d`",
			vn.ino,
			released,
			vn.inode.BlockCount,
		))
	}
	return nil
}
