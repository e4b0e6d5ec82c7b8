package store

import (
	"fmt"
	"sync"

	. "github.com/weberc2/minfs/pkg/types"
)

// Entry is a reference-counted in-memory object identified by its inode
// number.
type Entry interface {
	comparable
	Ino() Ino

	// Alive reports whether any strong reference is held.
	Alive() bool

	// TryAcquire takes a strong reference unless the count already dropped
	// to zero.
	TryAcquire() bool

	Unlinked() bool
}

// Cache maps inode numbers to at most one live entry. It never holds strong
// references itself; entries remove themselves with Release when their last
// reference is dropped.
type Cache[T Entry] struct {
	mutex   sync.Mutex
	entries map[Ino]T
}

func NewCache[T Entry]() *Cache[T] {
	return &Cache[T]{entries: make(map[Ino]T)}
}

// lookup expects the mutex to be held.
func (c *Cache[T]) lookup(ino Ino) (T, bool) {
	var zero T
	e, found := c.entries[ino]
	if !found {
		return zero, false
	}
	if e.Unlinked() {
		return zero, false
	}
	if !e.TryAcquire() {
		// dying; its Release will find the slot already gone
		delete(c.entries, ino)
		return zero, false
	}
	return e, true
}

// Lookup returns a strong reference to the live entry for `ino`. Entries that
// are dying or unlinked are reported as missing.
func (c *Cache[T]) Lookup(ino Ino) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lookup(ino)
}

// Insert adds `e`, which must already hold a strong reference. Inserting over
// a live entry, linked or not, is a programming error.
func (c *Cache[T]) Insert(e T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if old, found := c.entries[e.Ino()]; found && old.Alive() {
		panic(fmt.Sprintf("inserting duplicate entry for inode `%d`", e.Ino()))
	}
	c.entries[e.Ino()] = e
}

// GetOrInsert returns the live entry for `e.Ino()` if another caller won the
// race to load it, and otherwise inserts `e`. The boolean is true when `e`
// was inserted. A live entry is never replaced: if it is unlinked, nothing is
// inserted and ErrNotFound is returned.
func (c *Cache[T]) GetOrInsert(e T) (T, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var zero T
	if old, found := c.entries[e.Ino()]; found && old.Alive() {
		if old.Unlinked() {
			return zero, false, fmt.Errorf(
				"inode `%d` is unlinked: %w",
				e.Ino(),
				ErrNotFound,
			)
		}
		if old.TryAcquire() {
			return old, false, nil
		}
	}
	c.entries[e.Ino()] = e
	return e, true, nil
}

// Release removes `e` if it is still the entry for its inode number. A newer
// entry under the same number is left alone.
func (c *Cache[T]) Release(e T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if cur, found := c.entries[e.Ino()]; found && cur == e {
		delete(c.entries, e.Ino())
	}
}

func (c *Cache[T]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
