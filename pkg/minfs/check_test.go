package minfs

import (
	"errors"
	"testing"

	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
)

func TestCheckSuperblockFixed(t *testing.T) {
	dev := io.NewBlocks(fixedBlocks)
	valid, err := Mkfs(dev, nil, MkfsOptions{Inodes: fixedInodes})
	if err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}

	type testCase struct {
		name   string
		mutate func(*Superblock)
		device io.Device
		wanted error
	}

	testCases := []testCase{{
		name:   "valid",
		mutate: func(*Superblock) {},
	}, {
		name:   "bad magic",
		mutate: func(sb *Superblock) { sb.Magic1 = 0 },
		wanted: ErrBadMagic{Magic0: Magic0},
	}, {
		name:   "bad version",
		mutate: func(sb *Superblock) { sb.Version = 3 },
		wanted: ErrBadVersion{Found: 3},
	}, {
		name:   "bad block size",
		mutate: func(sb *Superblock) { sb.BlockSize = 4096 },
		wanted: ErrBadGeometry{BlockSize: 4096, InodeSize: uint32(InodeSize)},
	}, {
		name:   "too large for device",
		mutate: func(*Superblock) {},
		device: io.NewBlocks(fixedBlocks - 1),
		wanted: ErrInvalidArgs,
	}, {
		name:   "overlapping regions",
		mutate: func(sb *Superblock) { sb.DataBlock = sb.InodeTableBlock + 1 },
		wanted: ErrInvalidArgs,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sb := *valid
			tc.mutate(&sb)
			device := tc.device
			if device == nil {
				device = dev
			}
			err := CheckSuperblock(&sb, device, nil)
			if tc.wanted == nil {
				if err != nil {
					t.Fatalf("CheckSuperblock(): unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wanted) {
				t.Fatalf("CheckSuperblock(): wanted `%v`; found `%v`", tc.wanted, err)
			}
			if !errors.Is(err, ErrInvalidArgs) {
				t.Fatalf("CheckSuperblock(): wanted `%v`; found `%v`", ErrInvalidArgs, err)
			}
		})
	}
}

// volumeFake overrides parts of a real volume manager.
type volumeFake struct {
	io.VolumeManager
	queryErr error
	sliceErr error
	truncate bool
}

func (v *volumeFake) Query() (io.VolumeInfo, error) {
	if v.queryErr != nil {
		return io.VolumeInfo{}, v.queryErr
	}
	return v.VolumeManager.Query()
}

func (v *volumeFake) QuerySlices(starts []uint64) ([]io.SliceRange, error) {
	if v.sliceErr != nil {
		return nil, v.sliceErr
	}
	ranges, err := v.VolumeManager.QuerySlices(starts)
	if v.truncate && len(ranges) > 0 {
		ranges = ranges[:len(ranges)-1]
	}
	return ranges, err
}

func TestCheckSuperblockFVM(t *testing.T) {
	type testCase struct {
		name   string
		mutate func(*Superblock)
		volume func(io.VolumeManager) io.VolumeManager
		wanted error
	}

	testCases := []testCase{{
		name: "valid",
	}, {
		name:   "no volume manager",
		volume: func(io.VolumeManager) io.VolumeManager { return nil },
		wanted: ErrUnavailable,
	}, {
		name: "query failure",
		volume: func(vm io.VolumeManager) io.VolumeManager {
			return &volumeFake{VolumeManager: vm, queryErr: errInjected}
		},
		wanted: ErrUnavailable,
	}, {
		name: "slice query failure",
		volume: func(vm io.VolumeManager) io.VolumeManager {
			return &volumeFake{VolumeManager: vm, sliceErr: errInjected}
		},
		wanted: ErrUnavailable,
	}, {
		name:   "slice size mismatch",
		mutate: func(sb *Superblock) { sb.SliceSize *= 2 },
		wanted: ErrBadState,
	}, {
		name: "short slice query response",
		volume: func(vm io.VolumeManager) io.VolumeManager {
			return &volumeFake{VolumeManager: vm, truncate: true}
		},
		wanted: ErrBadState,
	}, {
		name: "region needs more slices than the volume can give",
		mutate: func(sb *Superblock) {
			sb.DataSlices = 3
		},
		wanted: ErrIODataIntegrity,
	}, {
		name:   "not enough data slices",
		mutate: func(sb *Superblock) { sb.BlockCount++ },
		wanted: ErrInvalidArgs,
	}, {
		name:   "not enough data blocks",
		mutate: func(sb *Superblock) { sb.BlockCount = 1 },
		wanted: ErrInvalidArgs,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// one spare slice so that shrinking and extending by one succeed
			vol := newVolume(t, 1)
			valid, err := Mkfs(vol, vol, MkfsOptions{})
			if err != nil {
				t.Fatalf("Mkfs(): unexpected err: %v", err)
			}
			sb := *valid
			if tc.mutate != nil {
				tc.mutate(&sb)
			}
			var vm io.VolumeManager = vol
			if tc.volume != nil {
				vm = tc.volume(vol)
			}

			err = CheckSuperblock(&sb, vol, vm)
			if tc.wanted == nil {
				if err != nil {
					t.Fatalf("CheckSuperblock(): unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wanted) {
				t.Fatalf("CheckSuperblock(): wanted `%v`; found `%v`", tc.wanted, err)
			}
		})
	}
}

func TestCheckSuperblockReconciles(t *testing.T) {
	vol := newVolume(t, 1)
	sb, err := Mkfs(vol, vol, MkfsOptions{})
	if err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}
	bps := uint64(sb.BlocksPerSlice())
	dataSlice := uint64(FVMBlockDataStart) / bps
	inodeTableSlice := uint64(FVMBlockInodeStart) / bps

	// lose the data slice and leak one past the inode table
	if err := vol.Shrink(dataSlice, 1); err != nil {
		t.Fatalf("Shrink(): unexpected err: %v", err)
	}
	if err := vol.Extend(inodeTableSlice+1, 1); err != nil {
		t.Fatalf("Extend(): unexpected err: %v", err)
	}

	if err := CheckSuperblock(sb, vol, vol); err != nil {
		t.Fatalf("CheckSuperblock(): unexpected err: %v", err)
	}

	ranges, err := vol.QuerySlices([]uint64{inodeTableSlice, dataSlice})
	if err != nil {
		t.Fatalf("QuerySlices(): unexpected err: %v", err)
	}
	for i, r := range ranges {
		if !r.Allocated || r.Count != 1 {
			t.Fatalf("range `%d`: wanted `1` allocated slice; found `%+v`", i, r)
		}
	}
}
