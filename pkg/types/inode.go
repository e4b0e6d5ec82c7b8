package types

import "fmt"

// Ino is an inode number.
type Ino uint32

const (
	InodeSize Byte = 256

	// InodesPerBlock is the number of inode records packed into one block of
	// the inode table.
	InodesPerBlock Ino = Ino(BlockSize / InodeSize)

	DirectCount         = 16
	IndirectCount       = 31
	DoublyIndirectCount = 1

	InoNil  Ino = 0
	InoRoot Ino = 1
)

type Inode struct {
	Magic       FileType
	Size        uint32
	BlockCount  uint32
	LinkCount   uint32
	CreateTime  uint64
	ModifyTime  uint64
	SeqNum      uint32
	GenNum      uint32
	DirentCount uint32
	Reserved    [5]uint32
	Direct      [DirectCount]Block
	Indirect    [IndirectCount]Block
	Doubly      [DoublyIndirectCount]Block
}

func (inode *Inode) IsDir() bool { return inode.Magic == FileTypeDir }

// FileType is the type tag stored in the first word of every inode record.
type FileType uint32

const (
	typeFile FileType = 8
	typeDir  FileType = 4

	fileTypeMagic FileType = 0xAA6f6e00

	FileTypeInvalid FileType = 0
	FileTypeFile    FileType = fileTypeMagic | typeFile
	FileTypeDir     FileType = fileTypeMagic | typeDir
)

// DirentType returns the short type tag used in directory entries.
func (ft FileType) DirentType() uint8 { return uint8(ft &^ fileTypeMagic) }

func (ft FileType) String() string {
	switch ft {
	case FileTypeInvalid:
		return "Invalid"
	case FileTypeFile:
		return "File"
	case FileTypeDir:
		return "Dir"
	default:
		return fmt.Sprintf("FileType(%#08x)", uint32(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) Validate() error {
	if ft != FileTypeFile && ft != FileTypeDir {
		return fmt.Errorf(
			"validating file type `%#08x`: %w",
			uint32(ft),
			InvalidFileTypeErr,
		)
	}
	return nil
}

const (
	InvalidFileTypeErr ConstError = "invalid file type"
)
