package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/minfs/pkg/types"
)

// File is a Device backed by a regular file or a host block device.
type File struct {
	file   *os.File
	blocks Block
}

// OpenFile opens `path` read-write. If `blocks` is non-zero the file is
// truncated (or extended) to hold exactly that many blocks; otherwise the
// block count is derived from the file's current size.
func OpenFile(path string, blocks Block) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening device `%s`: %w", path, err)
	}

	if blocks != 0 {
		if err := f.Truncate(int64(Byte(blocks) * BlockSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf(
				"opening device `%s`: truncating to `%d` blocks: %w",
				path,
				blocks,
				err,
			)
		}
		return &File{file: f, blocks: blocks}, nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening device `%s`: %w", path, err)
	}
	return &File{file: f, blocks: Block(Byte(info.Size()) / BlockSize)}, nil
}

func (f *File) ReadBlock(block Block, p []byte) error {
	checkBuffer(p)
	if block >= f.blocks {
		return fmt.Errorf(
			"reading block `%d` from `%s`: %w",
			block,
			f.file.Name(),
			ErrOutOfRange,
		)
	}
	if _, err := f.file.ReadAt(p, int64(Byte(block)*BlockSize)); err != nil {
		return fmt.Errorf(
			"reading block `%d` from `%s`: %w",
			block,
			f.file.Name(),
			err,
		)
	}
	return nil
}

func (f *File) WriteBlock(block Block, p []byte) error {
	checkBuffer(p)
	if block >= f.blocks {
		return fmt.Errorf(
			"writing block `%d` to `%s`: %w",
			block,
			f.file.Name(),
			ErrOutOfRange,
		)
	}
	if _, err := f.file.WriteAt(p, int64(Byte(block)*BlockSize)); err != nil {
		return fmt.Errorf(
			"writing block `%d` to `%s`: %w",
			block,
			f.file.Name(),
			err,
		)
	}
	return nil
}

func (f *File) BlockCount() Block { return f.blocks }

func (f *File) Sync() error {
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing `%s`: %w", f.file.Name(), err)
	}
	return nil
}

func (f *File) Close() error { return f.file.Close() }
