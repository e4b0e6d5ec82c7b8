// Package store holds the inode table backends and the in-memory identity
// cache for objects keyed by inode number.
package store

import (
	"fmt"

	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

// InodeTable reads and writes inode records.
type InodeTable interface {
	Load(ino Ino, out *Inode) error

	// Store writes `inode`, staging the write into `txn` where the backend
	// supports deferred writes.
	Store(txn *writeback.Transaction, ino Ino, inode *Inode) error

	// Grow extends the table to hold `inodes` records. New records are
	// zeroed.
	Grow(inodes uint32) error

	Inodes() uint32
}

func checkIno(ino Ino, inodes uint32) error {
	if uint32(ino) >= inodes {
		return fmt.Errorf(
			"inode `%d` outside table of `%d` inodes: %w",
			ino,
			inodes,
			ErrOutOfRange,
		)
	}
	return nil
}

// locate returns the table-relative block holding `ino` and the record's
// byte offset within that block.
func locate(ino Ino) (Block, Byte) {
	return Block(ino / InodesPerBlock), Byte(ino%InodesPerBlock) * InodeSize
}

func record(block []byte, offset Byte) *[InodeSize]byte {
	return (*[InodeSize]byte)(block[offset : offset+InodeSize])
}
