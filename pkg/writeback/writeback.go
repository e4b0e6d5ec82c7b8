package writeback

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/weberc2/minfs/pkg/io"
	. "github.com/weberc2/minfs/pkg/types"
)

var (
	_ Sink = (*Writeback)(nil)
	_ Sink = Synchronous{}
)

// Synchronous writes every entry to the device as soon as it is committed.
type Synchronous struct {
	Device io.Device
}

func (s Synchronous) Commit(txn *Transaction) error {
	for _, e := range txn.entries {
		for i := Block(0); i < e.Count; i++ {
			if err := s.Device.WriteBlock(e.Abs+i, e.Source.Block(e.Rel+i)); err != nil {
				return fmt.Errorf(
					"committing transaction `%s`: writing block `%d`: %w",
					txn.ID,
					e.Abs+i,
					err,
				)
			}
		}
	}
	return nil
}

type pending struct {
	id     string
	blocks map[Block][]byte
}

// Writeback snapshots committed transactions and holds them until Flush.
type Writeback struct {
	Device io.Device

	mutex sync.Mutex
	queue []pending
}

func New(device io.Device) *Writeback {
	return &Writeback{Device: device}
}

// Commit copies the staged blocks so that later in-memory mutations do not
// leak into this transaction.
func (wb *Writeback) Commit(txn *Transaction) error {
	p := pending{id: txn.ID.String(), blocks: make(map[Block][]byte)}
	for _, e := range txn.entries {
		for i := Block(0); i < e.Count; i++ {
			buf := make([]byte, BlockSize)
			copy(buf, e.Source.Block(e.Rel+i))
			p.blocks[e.Abs+i] = buf
		}
	}

	wb.mutex.Lock()
	wb.queue = append(wb.queue, p)
	wb.mutex.Unlock()
	return nil
}

// Pending returns the number of transactions waiting to be flushed.
func (wb *Writeback) Pending() int {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	return len(wb.queue)
}

// Flush writes queued transactions in commit order. The blocks of a single
// transaction are distinct and are written concurrently.
func (wb *Writeback) Flush() error {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()

	for len(wb.queue) > 0 {
		p := wb.queue[0]
		var group errgroup.Group
		for abs, data := range p.blocks {
			abs, data := abs, data
			group.Go(func() error {
				if err := wb.Device.WriteBlock(abs, data); err != nil {
					return fmt.Errorf("writing block `%d`: %w", abs, err)
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return fmt.Errorf("flushing transaction `%s`: %w", p.id, err)
		}
		log.WithFields(log.Fields{
			"transaction": p.id,
			"blocks":      len(p.blocks),
		}).Debug("flushed transaction")
		wb.queue = wb.queue[1:]
	}

	if err := wb.Device.Sync(); err != nil {
		return fmt.Errorf("flushing writeback: syncing device: %w", err)
	}
	return nil
}
