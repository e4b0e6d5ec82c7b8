package graph

import (
	"fmt"

	. "github.com/weberc2/minfs/pkg/types"
)

// PointerReader loads an indirect or doubly indirect block as pointers.
type PointerReader interface {
	ReadPointers(block Block, out *[PointersPerBlock]Block) error
}

// Walk visits every allocated block reachable from `inode`, children before
// the indirect block that points at them. Zero pointers are skipped. It
// returns the number of blocks visited.
func Walk(inode *Inode, reader PointerReader, visit func(Block)) (uint32, error) {
	var visited uint32
	do := func(b Block) {
		visit(b)
		visited++
	}

	for _, b := range inode.Direct {
		if b != BlockNil {
			do(b)
		}
	}

	var pointers [PointersPerBlock]Block
	walkIndirect := func(indirect Block) error {
		if err := reader.ReadPointers(indirect, &pointers); err != nil {
			return fmt.Errorf("reading indirect block `%d`: %w", indirect, err)
		}
		for _, b := range pointers {
			if b != BlockNil {
				do(b)
			}
		}
		do(indirect)
		return nil
	}

	for _, indirect := range inode.Indirect {
		if indirect == BlockNil {
			continue
		}
		if err := walkIndirect(indirect); err != nil {
			return visited, fmt.Errorf("walking indirect tier: %w", err)
		}
	}

	var indirects [PointersPerBlock]Block
	for _, doubly := range inode.Doubly {
		if doubly == BlockNil {
			continue
		}
		if err := reader.ReadPointers(doubly, &indirects); err != nil {
			return visited, fmt.Errorf(
				"walking doubly indirect tier: reading block `%d`: %w",
				doubly,
				err,
			)
		}
		for _, indirect := range indirects {
			if indirect == BlockNil {
				continue
			}
			if err := walkIndirect(indirect); err != nil {
				return visited, fmt.Errorf(
					"walking doubly indirect block `%d`: %w",
					doubly,
					err,
				)
			}
		}
		do(doubly)
	}
	return visited, nil
}

// Release frees every block reachable from `inode`, leaves first, and
// returns the number of blocks freed.
func Release(inode *Inode, reader PointerReader, free func(Block)) (uint32, error) {
	released, err := Walk(inode, reader, free)
	if err != nil {
		return released, fmt.Errorf("releasing block graph: %w", err)
	}
	return released, nil
}
