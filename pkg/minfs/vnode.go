package minfs

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/graph"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// Vnode is the in-memory handle for one inode. At most one live Vnode exists
// per inode number; callers share it through strong references.
type Vnode struct {
	fs  *Minfs
	ino Ino

	refs     atomic.Int32
	unlinked atomic.Bool

	// mutex guards inode.
	mutex sync.Mutex
	inode Inode
}

func newVnode(fs *Minfs, ino Ino, inode *Inode) *Vnode {
	vn := Vnode{fs: fs, ino: ino, inode: *inode}
	vn.refs.Store(1)
	vn.unlinked.Store(inode.LinkCount == 0)
	return &vn
}

func (vn *Vnode) Ino() Ino { return vn.ino }

func (vn *Vnode) Alive() bool { return vn.refs.Load() > 0 }

func (vn *Vnode) Unlinked() bool { return vn.unlinked.Load() }

// TryAcquire takes a strong reference unless the vnode is already being
// torn down.
func (vn *Vnode) TryAcquire() bool {
	for {
		refs := vn.refs.Load()
		if refs <= 0 {
			return false
		}
		if vn.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

// Acquire takes another strong reference. The caller must already hold one.
func (vn *Vnode) Acquire() *Vnode {
	if vn.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("acquiring dead vnode for inode `%d`", vn.ino))
	}
	return vn
}

// Release drops a strong reference. Dropping the last one removes the vnode
// from the cache and, if it is unlinked, frees its inode and blocks.
func (vn *Vnode) Release() error {
	refs := vn.refs.Add(-1)
	if refs > 0 {
		return nil
	}
	if refs < 0 {
		panic(fmt.Sprintf("releasing vnode for inode `%d` too many times", vn.ino))
	}
	return vn.fs.vnodeRelease(vn)
}

// Inode returns a copy of the inode record.
func (vn *Vnode) Inode() Inode {
	vn.mutex.Lock()
	defer vn.mutex.Unlock()
	return vn.inode
}

func (vn *Vnode) Type() FileType {
	vn.mutex.Lock()
	defer vn.mutex.Unlock()
	return vn.inode.Magic
}

func (vn *Vnode) IsDir() bool { return vn.Type() == FileTypeDir }

// AddLink records a new directory entry pointing at the inode.
func (vn *Vnode) AddLink(txn *writeback.Transaction) error {
	vn.mutex.Lock()
	defer vn.mutex.Unlock()
	if vn.Unlinked() {
		return fmt.Errorf("linking inode `%d`: already unlinked: %w", vn.ino, ErrBadState)
	}
	vn.inode.LinkCount++
	if err := vn.fs.InodeSync(txn, vn.ino, &vn.inode); err != nil {
		vn.inode.LinkCount--
		return fmt.Errorf("linking inode `%d`: %w", vn.ino, err)
	}
	return nil
}

// RemoveLink drops one link. Once the count reaches zero the vnode is
// unlinked; its inode is freed when the last reference is released.
func (vn *Vnode) RemoveLink(txn *writeback.Transaction) error {
	vn.mutex.Lock()
	defer vn.mutex.Unlock()
	if vn.inode.LinkCount == 0 {
		return fmt.Errorf("unlinking inode `%d`: no links: %w", vn.ino, ErrBadState)
	}
	vn.inode.LinkCount--
	if vn.inode.IsDir() && vn.inode.LinkCount == 1 {
		// the entry in the directory itself
		vn.inode.LinkCount = 0
	}
	if err := vn.fs.InodeSync(txn, vn.ino, &vn.inode); err != nil {
		return fmt.Errorf("unlinking inode `%d`: %w", vn.ino, err)
	}
	if vn.inode.LinkCount == 0 {
		vn.unlinked.Store(true)
	}
	return nil
}

// BlockAt maps file block `fileBlock` to a data block. When `allocate` is
// set, missing blocks along the path, including the target, are allocated
// and the updated pointers and inode are staged into `txn`. Otherwise a hole
// maps to BlockNil.
func (vn *Vnode) BlockAt(
	txn *writeback.Transaction,
	fileBlock Block,
	allocate bool,
) (mapped Block, err error) {
	loc, err := graph.Locate(fileBlock)
	if err != nil {
		return BlockNil, fmt.Errorf("mapping inode `%d`: %w", vn.ino, err)
	}

	vn.mutex.Lock()
	defer vn.mutex.Unlock()

	dirty := false
	defer func() {
		if dirty {
			if serr := vn.fs.InodeSync(txn, vn.ino, &vn.inode); serr != nil && err == nil {
				err = serr
			}
		}
	}()

	indices := loc.Indices()
	root := loc.Root(&vn.inode)
	if *root == BlockNil {
		if !allocate {
			return BlockNil, nil
		}
		b, err := vn.newBlock(txn, BlockNil, len(indices) > 0)
		if err != nil {
			return BlockNil, fmt.Errorf(
				"mapping inode `%d` block `%d`: %w",
				vn.ino,
				fileBlock,
				err,
			)
		}
		*root = b
		dirty = true
	}

	current := *root
	for depth, index := range indices {
		next, err := vn.fs.readPointer(current, index)
		if err != nil {
			return BlockNil, fmt.Errorf(
				"mapping inode `%d` block `%d`: traversing %s block: %w",
				vn.ino,
				fileBlock,
				loc.Level,
				err,
			)
		}
		if next == BlockNil {
			if !allocate {
				return BlockNil, nil
			}
			pointers := depth < len(indices)-1
			if next, err = vn.newBlock(txn, current, pointers); err != nil {
				return BlockNil, fmt.Errorf(
					"mapping inode `%d` block `%d`: %w",
					vn.ino,
					fileBlock,
					err,
				)
			}
			if err := vn.fs.writePointer(txn, current, index, next); err != nil {
				return BlockNil, fmt.Errorf(
					"mapping inode `%d` block `%d`: %w",
					vn.ino,
					fileBlock,
					err,
				)
			}
			dirty = true
		}
		current = next
	}
	return current, nil
}

// newBlock allocates a block and accounts for it in the inode. Pointer
// blocks are zeroed. The vnode mutex must be held.
func (vn *Vnode) newBlock(
	txn *writeback.Transaction,
	hint Block,
	pointers bool,
) (Block, error) {
	b, err := vn.fs.BlockNew(txn, hint)
	if err != nil {
		return BlockNil, err
	}
	vn.inode.BlockCount++
	if pointers {
		if err := vn.fs.initPointers(txn, b); err != nil {
			return BlockNil, err
		}
	}
	return b, nil
}

func (fs *Minfs) vnodeRelease(vn *Vnode) error {
	fs.vnodes.Release(vn)
	if !vn.Unlinked() {
		return nil
	}

	txn := writeback.NewTransaction()
	if err := fs.InoFree(txn, vn); err != nil {
		return fmt.Errorf("releasing unlinked inode `%d`: %w", vn.ino, err)
	}
	if err := fs.Commit(txn); err != nil {
		return fmt.Errorf("releasing unlinked inode `%d`: %w", vn.ino, err)
	}
	log.WithField("ino", vn.ino).Debug("freed unlinked inode")
	return nil
}
