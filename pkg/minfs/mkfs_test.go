package minfs

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
)

func TestMkfsFixed(t *testing.T) {
	id := uuid.New()
	dev := io.NewBlocks(fixedBlocks)
	sb, err := Mkfs(dev, nil, MkfsOptions{Inodes: fixedInodes, VolumeID: id})
	if err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}

	wanted := Superblock{
		Magic0:           Magic0,
		Magic1:           Magic1,
		Version:          Version,
		Flags:            FlagClean,
		BlockSize:        uint32(BlockSize),
		InodeSize:        uint32(InodeSize),
		BlockCount:       38,
		InodeCount:       fixedInodes,
		AllocBlockCount:  1,
		AllocInodeCount:  1,
		InodeBitmapBlock: 8,
		BlockBitmapBlock: 16,
		InodeTableBlock:  24,
		DataBlock:        26,
		VolumeID:         id,
	}
	if *sb != wanted {
		t.Fatalf("superblock: wanted `%+v`; found `%+v`", wanted, *sb)
	}

	fs, root, err := Mount(dev, nil, Options{})
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	if fs.Superblock() != wanted {
		t.Fatalf("mounted superblock: wanted `%+v`; found `%+v`", wanted, fs.Superblock())
	}
	if set := fs.inodes.Count(); set != 2 {
		t.Fatalf("inode bits: wanted `2`; found `%d`", set)
	}
	if set := fs.blocks.Count(); set != 2 {
		t.Fatalf("block bits: wanted `2`; found `%d`", set)
	}

	inode := root.Inode()
	if inode.Magic != FileTypeDir ||
		inode.Size != uint32(BlockSize) ||
		inode.BlockCount != 1 ||
		inode.LinkCount != 2 ||
		inode.DirentCount != 2 ||
		inode.Direct[0] != 1 {
		t.Fatalf("root inode: unexpected record `%+v`", inode)
	}

	block := make([]byte, BlockSize)
	if err := dev.ReadBlock(wanted.DataBlock+1, block); err != nil {
		t.Fatalf("reading root directory: %v", err)
	}
	var dot, dotdot encode.DirEntry
	encode.DecodeDirEntry(&dot, block)
	encode.DecodeDirEntry(&dotdot, block[encode.DirEntrySize(1):])
	if dot.Name != "." || dot.Ino != InoRoot {
		t.Fatalf("first entry: wanted `.` -> `1`; found `%s` -> `%d`", dot.Name, dot.Ino)
	}
	if dotdot.Name != ".." || dotdot.Ino != InoRoot || dotdot.RecLen&encode.RecLenLast == 0 {
		t.Fatalf("second entry: wanted last `..` -> `1`; found `%+v`", dotdot)
	}
	checkFS(t, fs)
}

func TestMkfsFVM(t *testing.T) {
	vol := newVolume(t, 0)
	sb, err := Mkfs(vol, vol, MkfsOptions{})
	if err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}
	if !sb.FVM() {
		t.Fatal("flags: wanted resizable layout")
	}
	if sb.InodeCount != uint32(testSliceSize/uint64(InodeSize)) {
		t.Fatalf("inodes: wanted `%d`; found `%d`", testSliceSize/uint64(InodeSize), sb.InodeCount)
	}
	if sb.BlockCount != 4 {
		t.Fatalf("blocks: wanted `4`; found `%d`", sb.BlockCount)
	}
	if sb.VSliceCount != formattedSlices {
		t.Fatalf("vslices: wanted `%d`; found `%d`", formattedSlices, sb.VSliceCount)
	}
	if sb.DataBlock != FVMBlockDataStart || sb.InodeTableBlock != FVMBlockInodeStart {
		t.Fatalf("regions: unexpected layout `%+v`", *sb)
	}

	info, err := vol.Query()
	if err != nil {
		t.Fatalf("Query(): unexpected err: %v", err)
	}
	if info.AllocatedSlices != formattedSlices {
		t.Fatalf("allocated slices: wanted `%d`; found `%d`", formattedSlices, info.AllocatedSlices)
	}

	fs, _, err := Mount(vol, vol, Options{})
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	if set := fs.inodes.Count(); set != 2 {
		t.Fatalf("inode bits: wanted `2`; found `%d`", set)
	}
	if set := fs.blocks.Count(); set != 2 {
		t.Fatalf("block bits: wanted `2`; found `%d`", set)
	}
	checkFS(t, fs)
}

func TestMkfsFVMReleasesSlicesOnFailure(t *testing.T) {
	// room for slice zero and two regions only
	vol := newVolume(t, 0)
	vol.SetBudget(3)
	if _, err := Mkfs(vol, vol, MkfsOptions{}); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("Mkfs(): wanted `%v`; found `%v`", ErrNoSpace, err)
	}
	info, err := vol.Query()
	if err != nil {
		t.Fatalf("Query(): unexpected err: %v", err)
	}
	if info.AllocatedSlices != 1 {
		t.Fatalf("allocated slices: wanted `1`; found `%d`", info.AllocatedSlices)
	}
}

func TestMkfsTooSmall(t *testing.T) {
	for _, blocks := range []Block{1, 18, 20} {
		dev := io.NewBlocks(blocks)
		if _, err := Mkfs(dev, nil, MkfsOptions{Inodes: fixedInodes}); !errors.Is(err, ErrInvalidArgs) {
			t.Fatalf("Mkfs(`%d` blocks): wanted `%v`; found `%v`", blocks, ErrInvalidArgs, err)
		}
	}
}
