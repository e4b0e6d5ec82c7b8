package minfs

import (
	"fmt"
	"time"

	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// VnodeNew allocates an inode of type `ft` and returns the only reference
// to its vnode.
func (fs *Minfs) VnodeNew(txn *writeback.Transaction, ft FileType) (*Vnode, error) {
	if err := ft.Validate(); err != nil {
		return nil, fmt.Errorf("creating vnode: %v: %w", err, ErrInvalidArgs)
	}

	now := uint64(time.Now().UnixNano())
	inode := Inode{Magic: ft, LinkCount: 1, CreateTime: now, ModifyTime: now}
	if ft == FileTypeDir {
		// "." and the entry in the parent
		inode.LinkCount = 2
	}

	ino, err := fs.InoNew(txn, &inode)
	if err != nil {
		return nil, fmt.Errorf("creating vnode: %w", err)
	}
	vn := newVnode(fs, ino, &inode)
	fs.vnodes.Insert(vn)
	return vn, nil
}

// VnodeLookup returns a reference to the live vnode for `ino`, if any.
// Vnodes that are being torn down or are unlinked are not returned.
func (fs *Minfs) VnodeLookup(ino Ino) (*Vnode, bool) {
	return fs.vnodes.Lookup(ino)
}

// VnodeGet returns a reference to the vnode for `ino`, loading the inode
// record if it is not cached. An inode that is unlinked but still open is
// reported as ErrNotFound.
func (fs *Minfs) VnodeGet(ino Ino) (*Vnode, error) {
	fs.mutex.Lock()
	inodes := fs.sb.InodeCount
	fs.mutex.Unlock()
	if ino < InoRoot || uint32(ino) >= inodes {
		return nil, fmt.Errorf(
			"getting vnode `%d`: outside `[%d, %d)`: %w",
			ino,
			InoRoot,
			inodes,
			ErrOutOfRange,
		)
	}

	if vn, found := fs.vnodes.Lookup(ino); found {
		return vn, nil
	}

	var inode Inode
	fs.mutex.Lock()
	allocated := fs.inodes.Get(uint64(ino))
	err := fs.table.Load(ino, &inode)
	fs.mutex.Unlock()
	if !allocated {
		return nil, fmt.Errorf("getting vnode `%d`: %w", ino, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting vnode `%d`: %w", ino, err)
	}
	DumpInode(ino, &inode)

	// a concurrent load of the same inode may have won
	vn, _, err := fs.vnodes.GetOrInsert(newVnode(fs, ino, &inode))
	if err != nil {
		return nil, fmt.Errorf("getting vnode `%d`: %w", ino, err)
	}
	return vn, nil
}

// CachedVnodes returns the number of vnodes in the cache.
func (fs *Minfs) CachedVnodes() int { return fs.vnodes.Len() }
