package io

import (
	. "github.com/weberc2/minfs/pkg/types"
)

// Device is a block-addressed store. Every buffer passed to ReadBlock or
// WriteBlock is exactly one block long.
type Device interface {
	ReadBlock(block Block, p []byte) error
	WriteBlock(block Block, p []byte) error

	// BlockCount is the number of addressable blocks.
	BlockCount() Block
	Sync() error
}

type VolumeInfo struct {
	SliceSize uint64

	// VSliceCount is the size of the virtual address space in slices.
	VSliceCount uint64

	// AllocatedSlices is the number of slices currently backed by storage.
	AllocatedSlices uint64
}

// SliceRange describes the contiguous run of virtual slices that starts at a
// queried slice and shares its allocation state.
type SliceRange struct {
	Allocated bool
	Count     uint64
}

// VolumeManager is the control plane of a resizable volume. Offsets and
// lengths are in slices.
type VolumeManager interface {
	Query() (VolumeInfo, error)
	QuerySlices(starts []uint64) ([]SliceRange, error)
	Extend(offset, length uint64) error
	Shrink(offset, length uint64) error
}

func checkBuffer(p []byte) {
	if Byte(len(p)) != BlockSize {
		panic("block buffers must be exactly one block long")
	}
}
