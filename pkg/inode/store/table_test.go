package store

import (
	"errors"
	"testing"

	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

const tableStart Block = 2

func testTable(t *testing.T, table InodeTable, commit func(*writeback.Transaction)) {
	inode := Inode{
		Magic:      FileTypeFile,
		Size:       100,
		BlockCount: 1,
		LinkCount:  1,
		Direct:     [DirectCount]Block{7},
	}

	// the last record of the first block and the first of the second
	for _, ino := range []Ino{InodesPerBlock - 1, InodesPerBlock} {
		txn := writeback.NewTransaction()
		if err := table.Store(txn, ino, &inode); err != nil {
			t.Fatalf("Store(`%d`): unexpected err: %v", ino, err)
		}
		commit(txn)

		var found Inode
		if err := table.Load(ino, &found); err != nil {
			t.Fatalf("Load(`%d`): unexpected err: %v", ino, err)
		}
		if found != inode {
			t.Fatalf("Load(`%d`): wanted `%+v`; found `%+v`", ino, inode, found)
		}
	}

	var neighbor Inode
	if err := table.Load(InodesPerBlock-2, &neighbor); err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if neighbor != (Inode{}) {
		t.Fatalf("neighboring record was modified: %+v", neighbor)
	}

	if err := table.Load(Ino(table.Inodes()), &neighbor); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Load(): out of range: wanted `%v`; found `%v`", ErrOutOfRange, err)
	}

	if err := table.Grow(table.Inodes() + uint32(InodesPerBlock)); err != nil {
		t.Fatalf("Grow(): unexpected err: %v", err)
	}
	if err := table.Load(Ino(table.Inodes()-1), &neighbor); err != nil {
		t.Fatalf("Load(): after grow: unexpected err: %v", err)
	}
	if err := table.Grow(1); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("Grow(): shrinking: wanted `%v`; found `%v`", ErrInvalidArgs, err)
	}
}

func TestMappedTable(t *testing.T) {
	dev := io.NewBlocks(tableStart + 3)
	table, err := LoadMapped(dev, tableStart, 2*uint32(InodesPerBlock))
	if err != nil {
		t.Fatalf("LoadMapped(): unexpected err: %v", err)
	}
	sink := writeback.Synchronous{Device: dev}
	testTable(t, table, func(txn *writeback.Transaction) {
		if len(txn.Entries()) != 1 {
			t.Fatalf("entries: wanted `1`; found `%d`", len(txn.Entries()))
		}
		if err := sink.Commit(txn); err != nil {
			t.Fatalf("Commit(): unexpected err: %v", err)
		}
	})

	// the staged blocks reached the device
	reloaded, err := LoadMapped(dev, tableStart, 2*uint32(InodesPerBlock))
	if err != nil {
		t.Fatalf("LoadMapped(): unexpected err: %v", err)
	}
	var inode Inode
	if err := reloaded.Load(InodesPerBlock, &inode); err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if inode.Direct[0] != 7 {
		t.Fatalf("direct[0]: wanted `7`; found `%d`", inode.Direct[0])
	}
}

func TestSyncTable(t *testing.T) {
	dev := io.NewBlocks(tableStart + 3)
	table := NewSyncTable(dev, tableStart, 2*uint32(InodesPerBlock))
	testTable(t, table, func(txn *writeback.Transaction) {
		if len(txn.Entries()) != 0 {
			t.Fatalf("entries: wanted `0`; found `%d`", len(txn.Entries()))
		}
	})
}

func TestMappedTableStagedAcrossGrow(t *testing.T) {
	dev := io.NewBlocks(tableStart + 3)
	table, err := LoadMapped(dev, tableStart, uint32(InodesPerBlock))
	if err != nil {
		t.Fatalf("LoadMapped(): unexpected err: %v", err)
	}
	sink := writeback.Synchronous{Device: dev}

	first := Inode{Magic: FileTypeFile, LinkCount: 1}
	early := writeback.NewTransaction()
	if err := table.Store(early, 3, &first); err != nil {
		t.Fatalf("Store(`3`): unexpected err: %v", err)
	}

	if err := table.Grow(2 * uint32(InodesPerBlock)); err != nil {
		t.Fatalf("Grow(): unexpected err: %v", err)
	}
	second := Inode{Magic: FileTypeFile, LinkCount: 2}
	late := writeback.NewTransaction()
	if err := table.Store(late, 4, &second); err != nil {
		t.Fatalf("Store(`4`): unexpected err: %v", err)
	}
	if err := sink.Commit(late); err != nil {
		t.Fatalf("Commit(): unexpected err: %v", err)
	}

	// committing the earlier transaction must not write a pre-growth buffer
	if err := sink.Commit(early); err != nil {
		t.Fatalf("Commit(): unexpected err: %v", err)
	}

	reloaded, err := LoadMapped(dev, tableStart, 2*uint32(InodesPerBlock))
	if err != nil {
		t.Fatalf("LoadMapped(): unexpected err: %v", err)
	}
	for _, tc := range []struct {
		ino   Ino
		links uint32
	}{{3, 1}, {4, 2}} {
		var found Inode
		if err := reloaded.Load(tc.ino, &found); err != nil {
			t.Fatalf("Load(`%d`): unexpected err: %v", tc.ino, err)
		}
		if found.LinkCount != tc.links {
			t.Fatalf("inode `%d`: link count: wanted `%d`; found `%d`", tc.ino, tc.links, found.LinkCount)
		}
	}
}
