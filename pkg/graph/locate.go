// Package graph maps file-relative block indices onto an inode's direct,
// indirect and doubly indirect pointers and walks the resulting tree.
package graph

import (
	"fmt"

	. "github.com/weberc2/minfs/pkg/types"
)

type Level int

const (
	LevelDirect Level = iota
	LevelIndirect
	LevelDoubly
	LevelOutOfRange
)

func (level Level) String() string {
	switch level {
	case LevelDirect:
		return "direct"
	case LevelIndirect:
		return "indirect"
	case LevelDoubly:
		return "doubly indirect"
	case LevelOutOfRange:
		return "out of range"
	default:
		panic(fmt.Sprintf("invalid level: %d", level))
	}
}

// direct
// |
//
// indirect
// |____
// | | |
//
// doubly
// |______________
// |____  |____  |____
// | | |  | | |  | | |
const (
	directMax     = Block(DirectCount) - 1
	indirectCount = Block(IndirectCount) * PointersPerBlock
	indirectMax   = indirectCount + directMax
	doublyCount   = Block(DoublyIndirectCount) * PointersPerBlock * PointersPerBlock

	// MaxFileBlocks is the number of blocks addressable by one inode.
	MaxFileBlocks = Block(DirectCount) + indirectCount + doublyCount
)

// Location is the position of a file block in the pointer tree: `Slot` picks
// the inode pointer of the tier and `Path` the pointer index within each
// indirect block beneath it, outermost first.
type Location struct {
	Level Level
	Slot  Block
	Path  [LevelDoubly]Block
}

// Locate maps `fileBlock` to its place in the tree.
func Locate(fileBlock Block) (Location, error) {
	if fileBlock <= directMax {
		return Location{Level: LevelDirect, Slot: fileBlock}, nil
	}

	if fileBlock <= indirectMax {
		base := fileBlock - directMax - 1
		return Location{
			Level: LevelIndirect,
			Slot:  base / PointersPerBlock,
			Path:  [LevelDoubly]Block{base % PointersPerBlock},
		}, nil
	}

	if base := fileBlock - indirectMax - 1; base < doublyCount {
		perSlot := PointersPerBlock * PointersPerBlock
		return Location{
			Level: LevelDoubly,
			Slot:  base / perSlot,
			Path: [LevelDoubly]Block{
				(base % perSlot) / PointersPerBlock,
				base % PointersPerBlock,
			},
		}, nil
	}

	return Location{Level: LevelOutOfRange}, fmt.Errorf(
		"locating file block `%d`: %w",
		fileBlock,
		ErrOutOfRange,
	)
}

// Indices returns the pointer indices to follow beneath the root pointer.
func (loc *Location) Indices() []Block { return loc.Path[:loc.Level] }

// Root returns the inode pointer the location descends from.
func (loc *Location) Root(inode *Inode) *Block {
	switch loc.Level {
	case LevelDirect:
		return &inode.Direct[loc.Slot]
	case LevelIndirect:
		return &inode.Indirect[loc.Slot]
	case LevelDoubly:
		return &inode.Doubly[loc.Slot]
	default:
		panic(fmt.Sprintf("no root pointer for level: %s", loc.Level))
	}
}
