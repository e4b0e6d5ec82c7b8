// Package writeback stages block mutations into transactions and commits them
// to a device, either immediately or through a queue flushed by the caller.
package writeback

import (
	"github.com/google/uuid"
	. "github.com/weberc2/minfs/pkg/types"
)

// Source supplies the bytes of one of its blocks. The returned slice must be
// exactly one block long.
type Source interface {
	Block(rel Block) []byte
}

// Bytes is a Source over a contiguous block-aligned buffer.
type Bytes []byte

func (b Bytes) Block(rel Block) []byte {
	start := Byte(rel) * BlockSize
	return b[start : start+BlockSize]
}

var zeroBlock [BlockSize]byte

// Zero is a Source whose every block is zeroed.
type Zero struct{}

func (Zero) Block(Block) []byte { return zeroBlock[:] }

// Entry copies `Count` blocks of `Source` starting at `Rel` to the device
// starting at absolute block `Abs`.
type Entry struct {
	Source Source
	Rel    Block
	Abs    Block
	Count  Block
}

type Transaction struct {
	ID      uuid.UUID
	entries []Entry
}

func NewTransaction() *Transaction {
	return &Transaction{ID: uuid.New()}
}

// Enqueue stages a write. Enqueueing the same absolute block twice is
// allowed; the later entry wins.
func (txn *Transaction) Enqueue(source Source, rel, abs, count Block) {
	txn.entries = append(
		txn.entries,
		Entry{Source: source, Rel: rel, Abs: abs, Count: count},
	)
}

func (txn *Transaction) Entries() []Entry { return txn.entries }

// Blocks returns the total number of blocks staged.
func (txn *Transaction) Blocks() Block {
	var n Block
	for i := range txn.entries {
		n += txn.entries[i].Count
	}
	return n
}

// Sink accepts committed transactions.
type Sink interface {
	Commit(*Transaction) error
}
