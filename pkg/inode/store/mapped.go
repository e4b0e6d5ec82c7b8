package store

import (
	"fmt"

	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

var (
	_ InodeTable       = (*MappedTable)(nil)
	_ writeback.Source = (*MappedTable)(nil)
)

// MappedTable keeps the whole inode table resident. Stores modify memory and
// stage the affected block into the transaction.
type MappedTable struct {
	start  Block
	inodes uint32
	data   []byte
}

// LoadMapped reads the table of `inodes` records that begins at absolute
// block `start`.
func LoadMapped(dev io.Device, start Block, inodes uint32) (*MappedTable, error) {
	blocks := InodeTableBlocks(inodes)
	table := MappedTable{
		start:  start,
		inodes: inodes,
		data:   make([]byte, Byte(blocks)*BlockSize),
	}
	for b := Block(0); b < blocks; b++ {
		if err := dev.ReadBlock(start+b, table.Block(b)); err != nil {
			return nil, fmt.Errorf(
				"loading inode table: reading block `%d`: %w",
				start+b,
				err,
			)
		}
	}
	return &table, nil
}

// Block returns table block `rel` from the current buffer. Transactions stage
// the table itself rather than its buffer, which Grow replaces.
func (table *MappedTable) Block(rel Block) []byte {
	return writeback.Bytes(table.data).Block(rel)
}

func (table *MappedTable) Load(ino Ino, out *Inode) error {
	if err := checkIno(ino, table.inodes); err != nil {
		return fmt.Errorf("loading inode: %w", err)
	}
	rel, offset := locate(ino)
	encode.DecodeInode(out, record(table.Block(rel), offset))
	return nil
}

func (table *MappedTable) Store(
	txn *writeback.Transaction,
	ino Ino,
	inode *Inode,
) error {
	if err := checkIno(ino, table.inodes); err != nil {
		return fmt.Errorf("storing inode: %w", err)
	}
	rel, offset := locate(ino)
	encode.EncodeInode(inode, record(table.Block(rel), offset))
	txn.Enqueue(table, rel, table.start+rel, 1)
	return nil
}

func (table *MappedTable) Grow(inodes uint32) error {
	if inodes < table.inodes {
		return fmt.Errorf(
			"growing inode table from `%d` to `%d` inodes: %w",
			table.inodes,
			inodes,
			ErrInvalidArgs,
		)
	}
	if size := Byte(InodeTableBlocks(inodes)) * BlockSize; size > Byte(len(table.data)) {
		data := make([]byte, size)
		copy(data, table.data)
		table.data = data
	}
	table.inodes = inodes
	return nil
}

func (table *MappedTable) Inodes() uint32 { return table.inodes }
