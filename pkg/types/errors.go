package types

import "fmt"

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	ErrInvalidArgs     ConstError = "invalid arguments"
	ErrNoSpace         ConstError = "no space"
	ErrUnavailable     ConstError = "unavailable"
	ErrBadState        ConstError = "bad state"
	ErrIODataIntegrity ConstError = "io data integrity"
	ErrNoMemory        ConstError = "no memory"
	ErrOutOfRange      ConstError = "out of range"
	ErrNotFound        ConstError = "not found"
)

type ErrBadMagic struct {
	Magic0 uint64
	Magic1 uint64
}

func (err ErrBadMagic) Error() string {
	return fmt.Sprintf(
		"bad magic: wanted `%#016x`/`%#016x`; found `%#016x`/`%#016x`",
		Magic0,
		Magic1,
		err.Magic0,
		err.Magic1,
	)
}

func (err ErrBadMagic) Unwrap() error { return ErrInvalidArgs }

type ErrBadVersion struct {
	Found uint32
}

func (err ErrBadVersion) Error() string {
	return fmt.Sprintf(
		"fs version `%08x` does not match driver version `%08x`",
		err.Found,
		Version,
	)
}

func (err ErrBadVersion) Unwrap() error { return ErrInvalidArgs }

// ErrBadGeometry is returned when the superblock's block size or inode size
// differs from the sizes this package is built for.
type ErrBadGeometry struct {
	BlockSize uint32
	InodeSize uint32
}

func (err ErrBadGeometry) Error() string {
	return fmt.Sprintf(
		"block size / inode size `%d`/`%d` unsupported",
		err.BlockSize,
		err.InodeSize,
	)
}

func (err ErrBadGeometry) Unwrap() error { return ErrInvalidArgs }
