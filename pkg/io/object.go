package io

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	. "github.com/weberc2/minfs/pkg/types"
)

type ObjectStore interface {
	PutObject(bucket, key string, data io.ReadSeeker) error
	GetObject(bucket, key string) (io.ReadCloser, error)
}

type ObjectNotFoundErr struct {
	Bucket string
	Key    string
}

func (err *ObjectNotFoundErr) Error() string {
	return fmt.Sprintf("object not found: %s/%s", err.Bucket, err.Key)
}

func (err *ObjectNotFoundErr) Unwrap() error { return ErrNotFound }

// ObjectDevice stores each block as its own object under `Prefix`. Blocks
// that were never written read back as zeroes.
type ObjectDevice struct {
	Store  ObjectStore
	Bucket string
	Prefix string
	Blocks Block

	// Each block is written whole, but the object store may not order
	// concurrent puts to one key.
	mutex sync.Mutex
}

func (d *ObjectDevice) key(block Block) string {
	return fmt.Sprintf("%s%08x", d.Prefix, uint32(block))
}

func (d *ObjectDevice) ReadBlock(block Block, p []byte) error {
	checkBuffer(p)
	if block >= d.Blocks {
		return fmt.Errorf("reading block `%d`: %w", block, ErrOutOfRange)
	}

	body, err := d.Store.GetObject(d.Bucket, d.key(block))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			for i := range p {
				p[i] = 0
			}
			return nil
		}
		return fmt.Errorf("reading block `%d`: %w", block, err)
	}
	defer body.Close()

	if _, err := io.ReadFull(body, p); err != nil {
		return fmt.Errorf(
			"reading block `%d` from object `%s`: %w",
			block,
			d.key(block),
			err,
		)
	}
	return nil
}

func (d *ObjectDevice) WriteBlock(block Block, p []byte) error {
	checkBuffer(p)
	if block >= d.Blocks {
		return fmt.Errorf("writing block `%d`: %w", block, ErrOutOfRange)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	data := make([]byte, len(p))
	copy(data, p)
	if err := d.Store.PutObject(
		d.Bucket,
		d.key(block),
		bytes.NewReader(data),
	); err != nil {
		return fmt.Errorf("writing block `%d`: %w", block, err)
	}
	return nil
}

func (d *ObjectDevice) BlockCount() Block { return d.Blocks }

// Sync is a no-op: every put is durable once it returns.
func (d *ObjectDevice) Sync() error { return nil }
