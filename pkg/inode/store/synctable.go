package store

import (
	"fmt"

	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

var _ InodeTable = (*SyncTable)(nil)

// SyncTable reads and writes records directly on the device, one inode block
// at a time. Writes bypass the transaction.
type SyncTable struct {
	device io.Device
	start  Block
	inodes uint32
}

func NewSyncTable(device io.Device, start Block, inodes uint32) *SyncTable {
	return &SyncTable{device: device, start: start, inodes: inodes}
}

func (table *SyncTable) Load(ino Ino, out *Inode) error {
	if err := checkIno(ino, table.inodes); err != nil {
		return fmt.Errorf("loading inode: %w", err)
	}
	rel, offset := locate(ino)
	buf := make([]byte, BlockSize)
	if err := table.device.ReadBlock(table.start+rel, buf); err != nil {
		return fmt.Errorf(
			"loading inode `%d`: reading block `%d`: %w",
			ino,
			table.start+rel,
			err,
		)
	}
	encode.DecodeInode(out, record(buf, offset))
	return nil
}

func (table *SyncTable) Store(
	_ *writeback.Transaction,
	ino Ino,
	inode *Inode,
) error {
	if err := checkIno(ino, table.inodes); err != nil {
		return fmt.Errorf("storing inode: %w", err)
	}
	rel, offset := locate(ino)
	abs := table.start + rel
	buf := make([]byte, BlockSize)
	if err := table.device.ReadBlock(abs, buf); err != nil {
		return fmt.Errorf(
			"storing inode `%d`: reading block `%d`: %w",
			ino,
			abs,
			err,
		)
	}
	encode.EncodeInode(inode, record(buf, offset))
	if err := table.device.WriteBlock(abs, buf); err != nil {
		return fmt.Errorf(
			"storing inode `%d`: writing block `%d`: %w",
			ino,
			abs,
			err,
		)
	}
	return nil
}

// Grow only records the new size; the caller zeroes the new blocks on the
// device.
func (table *SyncTable) Grow(inodes uint32) error {
	if inodes < table.inodes {
		return fmt.Errorf(
			"growing inode table from `%d` to `%d` inodes: %w",
			table.inodes,
			inodes,
			ErrInvalidArgs,
		)
	}
	table.inodes = inodes
	return nil
}

func (table *SyncTable) Inodes() uint32 { return table.inodes }
