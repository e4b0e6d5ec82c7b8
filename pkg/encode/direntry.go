package encode

import (
	stdmath "math"

	"github.com/weberc2/minfs/pkg/math"
	. "github.com/weberc2/minfs/pkg/types"
)

const (
	// DirEntryHeaderSize is the fixed part of a directory entry: ino,
	// reclen, namelen and type.
	DirEntryHeaderSize Byte = 10

	// RecLenLast marks the final entry of a directory block.
	RecLenLast uint32 = 0x8000_0000
)

type DirEntry struct {
	Ino    Ino
	RecLen uint32
	Type   uint8
	Name   string
}

// DirEntrySize returns the 4-byte aligned size of an entry whose name is
// `nameLen` bytes long.
func DirEntrySize(nameLen uint8) Byte {
	return math.RoundUp(DirEntryHeaderSize+Byte(nameLen), 4)
}

// EncodeDirEntry writes `entry` at the start of `p` and returns the number of
// bytes its header and name occupy.
func EncodeDirEntry(entry *DirEntry, p []byte) Byte {
	nameLen := math.Min(len(entry.Name), stdmath.MaxUint8)
	putIno(p, dirEntryInoStart, entry.Ino)
	putU32(p, dirEntryRecLenStart, entry.RecLen)
	putU8(p, dirEntryNameLenStart, uint8(nameLen))
	putU8(p, dirEntryTypeStart, entry.Type)
	copy(p[DirEntryHeaderSize:], entry.Name[:nameLen])
	return DirEntryHeaderSize + Byte(nameLen)
}

func DecodeDirEntry(entry *DirEntry, p []byte) {
	entry.Ino = getIno(p, dirEntryInoStart)
	entry.RecLen = getU32(p, dirEntryRecLenStart)
	entry.Type = getU8(p, dirEntryTypeStart)
	nameLen := Byte(getU8(p, dirEntryNameLenStart))
	entry.Name = string(p[DirEntryHeaderSize : DirEntryHeaderSize+nameLen])
}

// InitDir writes the "." and ".." entries of a fresh directory into `p`.
func InitDir(p []byte, self, parent Ino) {
	dot := DirEntrySize(1)
	EncodeDirEntry(&DirEntry{
		Ino:    self,
		RecLen: uint32(dot),
		Type:   FileTypeDir.DirentType(),
		Name:   ".",
	}, p)
	EncodeDirEntry(&DirEntry{
		Ino:    parent,
		RecLen: uint32(DirEntrySize(2)) | RecLenLast,
		Type:   FileTypeDir.DirentType(),
		Name:   "..",
	}, p[dot:])
}

const (
	dirEntryInoStart     = 0
	dirEntryRecLenStart  = 4
	dirEntryNameLenStart = 8
	dirEntryTypeStart    = 9
)
