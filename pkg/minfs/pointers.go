package minfs

import (
	"fmt"
	"sync"

	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/graph"
	. "github.com/weberc2/minfs/pkg/types"
	"github.com/weberc2/minfs/pkg/writeback"
)

var _ graph.PointerReader = (*Minfs)(nil)

// pointerCache holds indirect and doubly indirect blocks in memory so that
// pointer updates staged in uncommitted or unflushed transactions are
// visible to later lookups.
type pointerCache struct {
	mutex  sync.Mutex
	blocks map[Block][]byte
}

func (pc *pointerCache) drop(b Block) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	delete(pc.blocks, b)
}

// pointerBlock returns the cached contents of data block `b`, reading it
// from the device on a miss. A `fresh` block starts zeroed.
func (fs *Minfs) pointerBlock(b Block, fresh bool) ([]byte, error) {
	fs.pointers.mutex.Lock()
	defer fs.pointers.mutex.Unlock()
	if data, found := fs.pointers.blocks[b]; found && !fresh {
		return data, nil
	}
	data := make([]byte, BlockSize)
	if !fresh {
		if err := fs.device.ReadBlock(fs.sb.DataBlock+b, data); err != nil {
			return nil, fmt.Errorf("reading pointer block `%d`: %w", b, err)
		}
	}
	fs.pointers.blocks[b] = data
	return data, nil
}

// ReadPointers loads data block `b` as an array of block pointers.
func (fs *Minfs) ReadPointers(b Block, out *[PointersPerBlock]Block) error {
	data, err := fs.pointerBlock(b, false)
	if err != nil {
		return err
	}
	encode.DecodePointers(data, out[:])
	return nil
}

func (fs *Minfs) readPointer(b, index Block) (Block, error) {
	data, err := fs.pointerBlock(b, false)
	if err != nil {
		return BlockNil, err
	}
	return encode.DecodePointer(data, index), nil
}

func (fs *Minfs) writePointer(
	txn *writeback.Transaction,
	b Block,
	index Block,
	target Block,
) error {
	data, err := fs.pointerBlock(b, false)
	if err != nil {
		return err
	}
	// staged pointer blocks are copied by Commit under the same mutex
	fs.mutex.Lock()
	encode.EncodePointer(data, index, target)
	fs.mutex.Unlock()
	txn.Enqueue(writeback.Bytes(data), 0, fs.sb.DataBlock+b, 1)
	return nil
}

// initPointers zeroes a newly allocated pointer block and stages it.
func (fs *Minfs) initPointers(txn *writeback.Transaction, b Block) error {
	data, err := fs.pointerBlock(b, true)
	if err != nil {
		return err
	}
	txn.Enqueue(writeback.Bytes(data), 0, fs.sb.DataBlock+b, 1)
	return nil
}
