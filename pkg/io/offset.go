package io

import (
	"fmt"

	. "github.com/weberc2/minfs/pkg/types"
)

// OffsetDevice exposes the blocks of `inner` starting at `offset` as a
// device of its own, e.g. a filesystem image embedded in a larger file.
type OffsetDevice struct {
	inner  Device
	offset Block
}

func NewOffsetDevice(inner Device, offset Block) *OffsetDevice {
	return &OffsetDevice{inner: inner, offset: offset}
}

func (d *OffsetDevice) ReadBlock(block Block, p []byte) error {
	if err := d.inner.ReadBlock(block+d.offset, p); err != nil {
		return fmt.Errorf(
			"reading block `%d` from base offset `%d` (total block `%d`): %w",
			block,
			d.offset,
			block+d.offset,
			err,
		)
	}
	return nil
}

func (d *OffsetDevice) WriteBlock(block Block, p []byte) error {
	if err := d.inner.WriteBlock(block+d.offset, p); err != nil {
		return fmt.Errorf(
			"writing block `%d` from base offset `%d` (total block `%d`): %w",
			block,
			d.offset,
			block+d.offset,
			err,
		)
	}
	return nil
}

func (d *OffsetDevice) BlockCount() Block {
	if n := d.inner.BlockCount(); n > d.offset {
		return n - d.offset
	}
	return 0
}

func (d *OffsetDevice) Sync() error { return d.inner.Sync() }
