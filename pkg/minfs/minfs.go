// Package minfs implements the allocation and layout core of the minfs
// filesystem: the superblock, the inode and block bitmaps, the inode table,
// the per-inode block graph, growth on resizable volumes and the cache of
// live vnodes.
package minfs

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/minfs/pkg/alloc"
	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/inode/store"
	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

type Options struct {
	// Sync selects the host-side backends: inode records are read and
	// written directly on the device and every transaction is written as
	// soon as it is committed. Otherwise the inode table is kept resident
	// and committed transactions wait for Flush.
	Sync bool
}

// Minfs is a mounted filesystem.
type Minfs struct {
	device io.Device

	// volume is nil on fixed-size devices.
	volume io.VolumeManager

	// mutex guards the superblock, both bitmaps and the inode table.
	// Growth holds it across volume manager calls.
	mutex   sync.Mutex
	sb      Superblock
	sbBlock [BlockSize]byte
	inodes  *alloc.Bitmap
	blocks  *alloc.Bitmap
	table   store.InodeTable

	sink     writeback.Sink
	vnodes   *store.Cache[*Vnode]
	pointers pointerCache
}

// Mount reads and validates the superblock on `device`, loads the bitmaps
// and inode table and returns the filesystem along with a reference to the
// root directory.
func Mount(
	device io.Device,
	volume io.VolumeManager,
	opts Options,
) (*Minfs, *Vnode, error) {
	var block [BlockSize]byte
	if err := device.ReadBlock(SuperblockBlock, block[:]); err != nil {
		log.WithError(err).Error("could not read superblock")
		return nil, nil, fmt.Errorf("mounting: reading superblock: %w", err)
	}
	var sb Superblock
	encode.DecodeSuperblock(&sb, &block)

	fs, err := Create(device, volume, &sb, opts)
	if err != nil {
		log.WithError(err).Error("mount failed")
		return nil, nil, fmt.Errorf("mounting: %w", err)
	}

	root, err := fs.VnodeGet(InoRoot)
	if err != nil {
		log.WithError(err).Error("cannot find root inode")
		return nil, nil, fmt.Errorf("mounting: loading root inode: %w", err)
	}
	if !root.IsDir() {
		return nil, nil, fmt.Errorf(
			"mounting: root inode has type `%s`: %w",
			root.Type(),
			ErrBadState,
		)
	}
	return fs, root, nil
}

// Create validates `sb` against the device and builds the in-memory
// filesystem from it.
func Create(
	device io.Device,
	volume io.VolumeManager,
	sb *Superblock,
	opts Options,
) (*Minfs, error) {
	if err := CheckSuperblock(sb, device, volume); err != nil {
		return nil, err
	}

	fs := Minfs{
		device:   device,
		volume:   volume,
		sb:       *sb,
		vnodes:   store.NewCache[*Vnode](),
		pointers: pointerCache{blocks: make(map[Block][]byte)},
	}

	// block-multiple storage, but nothing past the last real block or inode
	// can be allocated
	fs.blocks = alloc.New(uint64(sb.BlockBitmapBlocks()) * uint64(BlockBits))
	fs.inodes = alloc.New(uint64(sb.InodeBitmapBlocks()) * uint64(BlockBits))
	if err := fs.blocks.Shrink(uint64(sb.BlockCount)); err != nil {
		return nil, fmt.Errorf("sizing block bitmap: %w", err)
	}
	if err := fs.inodes.Shrink(uint64(sb.InodeCount)); err != nil {
		return nil, fmt.Errorf("sizing inode bitmap: %w", err)
	}
	if err := loadBitmap(device, fs.blocks, sb.BlockBitmapBlock); err != nil {
		return nil, fmt.Errorf("loading block bitmap: %w", err)
	}
	if err := loadBitmap(device, fs.inodes, sb.InodeBitmapBlock); err != nil {
		return nil, fmt.Errorf("loading inode bitmap: %w", err)
	}

	if opts.Sync {
		fs.table = store.NewSyncTable(device, sb.InodeTableBlock, sb.InodeCount)
		fs.sink = writeback.Synchronous{Device: device}
	} else {
		table, err := store.LoadMapped(device, sb.InodeTableBlock, sb.InodeCount)
		if err != nil {
			return nil, err
		}
		fs.table = table
		fs.sink = writeback.New(device)
	}
	return &fs, nil
}

func loadBitmap(device io.Device, bm *alloc.Bitmap, start Block) error {
	for b := Block(0); b < bm.Blocks(); b++ {
		if err := device.ReadBlock(start+b, bm.Block(b)); err != nil {
			return fmt.Errorf("reading block `%d`: %w", start+b, err)
		}
	}
	return nil
}

// Superblock returns a snapshot of the in-memory superblock.
func (fs *Minfs) Superblock() Superblock {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return fs.sb
}

// countUpdate serializes the superblock and stages it. The mutex must be
// held.
func (fs *Minfs) countUpdate(txn *writeback.Transaction) {
	encode.EncodeSuperblock(&fs.sb, &fs.sbBlock)
	txn.Enqueue(writeback.Bytes(fs.sbBlock[:]), 0, SuperblockBlock, 1)
}

// CountUpdate stages the superblock with the current allocation counters.
func (fs *Minfs) CountUpdate(txn *writeback.Transaction) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.countUpdate(txn)
}

// Commit hands a transaction to the write-back sink. The sink copies the
// staged blocks out of the bitmaps, inode table, superblock and pointer
// blocks, so the mutex is held while it does.
func (fs *Minfs) Commit(txn *writeback.Transaction) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := fs.sink.Commit(txn); err != nil {
		return fmt.Errorf("committing transaction `%s`: %w", txn.ID, err)
	}
	return nil
}

type flusher interface {
	Flush() error
}

// Sync writes every committed transaction to the device.
func (fs *Minfs) Sync() error {
	if f, ok := fs.sink.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("syncing filesystem: %w", err)
		}
		return nil
	}
	if err := fs.device.Sync(); err != nil {
		return fmt.Errorf("syncing filesystem: %w", err)
	}
	return nil
}

// Shutdown drains pending writes and syncs the device. The filesystem must
// not be used afterwards.
func (fs *Minfs) Shutdown() error {
	if err := fs.Sync(); err != nil {
		log.WithError(err).Error("shutting down")
		return fmt.Errorf("shutting down: %w", err)
	}
	log.WithField("volume", fs.sb.VolumeID).Info("unmounted")
	return nil
}
