package io

import (
	"fmt"
	"sync"

	. "github.com/weberc2/minfs/pkg/types"
)

// Buffer is a Device backed by a byte slice.
type Buffer struct {
	mutex sync.RWMutex
	data  []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewBlocks allocates a zeroed Buffer of `blocks` blocks.
func NewBlocks(blocks Block) *Buffer {
	return NewBuffer(make([]byte, Byte(blocks)*BlockSize))
}

func (b *Buffer) ReadBlock(block Block, p []byte) error {
	checkBuffer(p)
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if block >= b.blockCount() {
		return fmt.Errorf(
			"reading block `%d` from buffer of `%d` blocks: %w",
			block,
			b.blockCount(),
			ErrOutOfRange,
		)
	}
	offset := Byte(block) * BlockSize
	copy(p, b.data[offset:offset+BlockSize])
	return nil
}

func (b *Buffer) WriteBlock(block Block, p []byte) error {
	checkBuffer(p)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if block >= b.blockCount() {
		return fmt.Errorf(
			"writing block `%d` to buffer of `%d` blocks: %w",
			block,
			b.blockCount(),
			ErrOutOfRange,
		)
	}
	offset := Byte(block) * BlockSize
	copy(b.data[offset:offset+BlockSize], p)
	return nil
}

func (b *Buffer) BlockCount() Block {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.blockCount()
}

func (b *Buffer) blockCount() Block { return Block(Byte(len(b.data)) / BlockSize) }

func (b *Buffer) Sync() error { return nil }

// Bytes exposes the underlying storage.
func (b *Buffer) Bytes() []byte { return b.data }
