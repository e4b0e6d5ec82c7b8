package minfs

import (
	"testing"

	"github.com/weberc2/minfs/pkg/fvm"
	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

const (
	// a fixed-size layout of 64 inodes on 64 blocks: inode bitmap at 8,
	// block bitmap at 16, inode table at 24, 38 data blocks from 26
	fixedBlocks Block  = 64
	fixedInodes uint32 = 64

	testSliceSize = 4 * uint64(BlockSize)

	// slice zero plus one slice for each region
	formattedSlices = 5
)

var testVSlices = uint64(FVMBlockDataStart)/(testSliceSize/uint64(BlockSize)) + 64

func formatFixed(t *testing.T, dev io.Device) {
	t.Helper()
	if _, err := Mkfs(dev, nil, MkfsOptions{Inodes: fixedInodes}); err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}
}

func mountFixed(t *testing.T, opts Options) (*io.Buffer, *Minfs, *Vnode) {
	t.Helper()
	dev := io.NewBlocks(fixedBlocks)
	formatFixed(t, dev)
	fs, root, err := Mount(dev, nil, opts)
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	return dev, fs, root
}

// newVolume returns a resizable volume that can hold the formatted layout
// plus `spare` more slices.
func newVolume(t *testing.T, spare uint64) *fvm.Volume {
	t.Helper()
	vol, err := fvm.New(testSliceSize, testVSlices, formattedSlices+spare)
	if err != nil {
		t.Fatalf("fvm.New(): unexpected err: %v", err)
	}
	return vol
}

func mountFVM(t *testing.T, spare uint64) (*fvm.Volume, *Minfs, *Vnode) {
	t.Helper()
	vol := newVolume(t, spare)
	if _, err := Mkfs(vol, vol, MkfsOptions{}); err != nil {
		t.Fatalf("Mkfs(): unexpected err: %v", err)
	}
	fs, root, err := Mount(vol, vol, Options{})
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	return vol, fs, root
}

func commit(t *testing.T, fs *Minfs, txn *writeback.Transaction) {
	t.Helper()
	if err := fs.Commit(txn); err != nil {
		t.Fatalf("Commit(): unexpected err: %v", err)
	}
}

func newFile(t *testing.T, fs *Minfs) *Vnode {
	t.Helper()
	txn := writeback.NewTransaction()
	vn, err := fs.VnodeNew(txn, FileTypeFile)
	if err != nil {
		t.Fatalf("VnodeNew(): unexpected err: %v", err)
	}
	commit(t, fs, txn)
	return vn
}

func checkFS(t *testing.T, fs *Minfs) {
	t.Helper()
	if err := fs.Check(); err != nil {
		t.Fatalf("Check(): unexpected err: %v", err)
	}
}
