// Package fvm implements an in-memory resizable volume: a sparse virtual
// address space carved into fixed-size slices that are backed by storage only
// once they have been explicitly allocated.
package fvm

import (
	"fmt"
	"sync"

	minfsio "github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
)

var (
	_ minfsio.Device        = (*Volume)(nil)
	_ minfsio.VolumeManager = (*Volume)(nil)
)

type Volume struct {
	mutex       sync.Mutex
	sliceSize   uint64
	vsliceCount uint64
	budget      uint64
	slices      map[uint64][]byte
	extends     int
}

// New returns a volume of `vsliceCount` virtual slices of `sliceSize` bytes
// each, of which at most `budget` (slice zero included) may be allocated at
// once.
func New(sliceSize, vsliceCount, budget uint64) (*Volume, error) {
	if sliceSize == 0 || sliceSize%uint64(BlockSize) != 0 {
		return nil, fmt.Errorf(
			"creating volume: slice size `%d` is not a multiple of the "+
				"block size `%d`: %w",
			sliceSize,
			BlockSize,
			ErrInvalidArgs,
		)
	}
	if vsliceCount*(sliceSize/uint64(BlockSize)) > uint64(BlockMax) {
		return nil, fmt.Errorf(
			"creating volume: `%d` slices of `%d` bytes overflow the block "+
				"address space: %w",
			vsliceCount,
			sliceSize,
			ErrInvalidArgs,
		)
	}
	if budget < 1 {
		return nil, fmt.Errorf(
			"creating volume: budget must cover slice zero: %w",
			ErrInvalidArgs,
		)
	}

	// slice zero is allocated along with the partition and holds the
	// superblock
	return &Volume{
		sliceSize:   sliceSize,
		vsliceCount: vsliceCount,
		budget:      budget,
		slices:      map[uint64][]byte{0: make([]byte, sliceSize)},
	}, nil
}

func (v *Volume) blocksPerSlice() Block {
	return Block(v.sliceSize / uint64(BlockSize))
}

func (v *Volume) locate(block Block) ([]byte, error) {
	vslice := uint64(block / v.blocksPerSlice())
	data, found := v.slices[vslice]
	if !found {
		return nil, fmt.Errorf(
			"block `%d` lies in unallocated slice `%d`: %w",
			block,
			vslice,
			ErrOutOfRange,
		)
	}
	offset := Byte(block%v.blocksPerSlice()) * BlockSize
	return data[offset : offset+BlockSize], nil
}

func (v *Volume) ReadBlock(block Block, p []byte) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	data, err := v.locate(block)
	if err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	copy(p, data)
	return nil
}

func (v *Volume) WriteBlock(block Block, p []byte) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	data, err := v.locate(block)
	if err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	copy(data, p)
	return nil
}

func (v *Volume) BlockCount() Block {
	return Block(v.vsliceCount) * v.blocksPerSlice()
}

func (v *Volume) Sync() error { return nil }

func (v *Volume) Query() (minfsio.VolumeInfo, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return minfsio.VolumeInfo{
		SliceSize:       v.sliceSize,
		VSliceCount:     v.vsliceCount,
		AllocatedSlices: uint64(len(v.slices)),
	}, nil
}

func (v *Volume) QuerySlices(starts []uint64) ([]minfsio.SliceRange, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	ranges := make([]minfsio.SliceRange, len(starts))
	for i, start := range starts {
		if start >= v.vsliceCount {
			return nil, fmt.Errorf(
				"querying slice `%d` of `%d`: %w",
				start,
				v.vsliceCount,
				ErrOutOfRange,
			)
		}
		_, allocated := v.slices[start]
		count := uint64(0)
		for s := start; s < v.vsliceCount; s++ {
			if _, found := v.slices[s]; found != allocated {
				break
			}
			count++
		}
		ranges[i] = minfsio.SliceRange{Allocated: allocated, Count: count}
	}
	return ranges, nil
}

func (v *Volume) Extend(offset, length uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.extends++

	if offset+length > v.vsliceCount || offset+length < offset {
		return fmt.Errorf(
			"extending `%d` slices at `%d`: %w",
			length,
			offset,
			ErrOutOfRange,
		)
	}
	for s := offset; s < offset+length; s++ {
		if _, found := v.slices[s]; found {
			return fmt.Errorf(
				"extending `%d` slices at `%d`: slice `%d` already "+
					"allocated: %w",
				length,
				offset,
				s,
				ErrInvalidArgs,
			)
		}
	}
	if uint64(len(v.slices))+length > v.budget {
		return fmt.Errorf(
			"extending `%d` slices at `%d`: `%d` of `%d` slices in use: %w",
			length,
			offset,
			len(v.slices),
			v.budget,
			ErrNoSpace,
		)
	}
	for s := offset; s < offset+length; s++ {
		v.slices[s] = make([]byte, v.sliceSize)
	}
	return nil
}

func (v *Volume) Shrink(offset, length uint64) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if offset == 0 {
		return fmt.Errorf(
			"shrinking `%d` slices at `%d`: slice zero cannot be released: %w",
			length,
			offset,
			ErrInvalidArgs,
		)
	}
	for s := offset; s < offset+length; s++ {
		delete(v.slices, s)
	}
	return nil
}

// Extends reports how many extend requests the volume has received.
func (v *Volume) Extends() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.extends
}

// SetBudget changes the maximum number of allocated slices.
func (v *Volume) SetBudget(budget uint64) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.budget = budget
}
