package encode

import (
	. "github.com/weberc2/minfs/pkg/types"
)

func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	putU32(p, inodeMagicStart, uint32(inode.Magic))
	putU32(p, inodeSizeStart, inode.Size)
	putU32(p, inodeBlockCountStart, inode.BlockCount)
	putU32(p, inodeLinkCountStart, inode.LinkCount)
	putU64(p, inodeCreateTimeStart, inode.CreateTime)
	putU64(p, inodeModifyTimeStart, inode.ModifyTime)
	putU32(p, inodeSeqNumStart, inode.SeqNum)
	putU32(p, inodeGenNumStart, inode.GenNum)
	putU32(p, inodeDirentCountStart, inode.DirentCount)
	for i := range inode.Reserved {
		putU32(p, inodeReservedStart+Byte(i)*4, inode.Reserved[i])
	}
	for i := range inode.Direct {
		putBlock(p, inodeDirectStart+Byte(i)*BlockPointerSize, inode.Direct[i])
	}
	for i := range inode.Indirect {
		putBlock(
			p,
			inodeIndirectStart+Byte(i)*BlockPointerSize,
			inode.Indirect[i],
		)
	}
	for i := range inode.Doubly {
		putBlock(p, inodeDoublyStart+Byte(i)*BlockPointerSize, inode.Doubly[i])
	}
}

func DecodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	inode.Magic = FileType(getU32(p, inodeMagicStart))
	inode.Size = getU32(p, inodeSizeStart)
	inode.BlockCount = getU32(p, inodeBlockCountStart)
	inode.LinkCount = getU32(p, inodeLinkCountStart)
	inode.CreateTime = getU64(p, inodeCreateTimeStart)
	inode.ModifyTime = getU64(p, inodeModifyTimeStart)
	inode.SeqNum = getU32(p, inodeSeqNumStart)
	inode.GenNum = getU32(p, inodeGenNumStart)
	inode.DirentCount = getU32(p, inodeDirentCountStart)
	for i := range inode.Reserved {
		inode.Reserved[i] = getU32(p, inodeReservedStart+Byte(i)*4)
	}
	for i := range inode.Direct {
		inode.Direct[i] = getBlock(p, inodeDirectStart+Byte(i)*BlockPointerSize)
	}
	for i := range inode.Indirect {
		inode.Indirect[i] = getBlock(
			p,
			inodeIndirectStart+Byte(i)*BlockPointerSize,
		)
	}
	for i := range inode.Doubly {
		inode.Doubly[i] = getBlock(p, inodeDoublyStart+Byte(i)*BlockPointerSize)
	}
}

const (
	inodeMagicStart = 0
	inodeMagicSize  = 4
	inodeMagicEnd   = inodeMagicStart + inodeMagicSize

	inodeSizeStart = inodeMagicEnd
	inodeSizeSize  = 4
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeBlockCountStart = inodeSizeEnd
	inodeBlockCountSize  = 4
	inodeBlockCountEnd   = inodeBlockCountStart + inodeBlockCountSize

	inodeLinkCountStart = inodeBlockCountEnd
	inodeLinkCountSize  = 4
	inodeLinkCountEnd   = inodeLinkCountStart + inodeLinkCountSize

	inodeCreateTimeStart = inodeLinkCountEnd
	inodeCreateTimeSize  = 8
	inodeCreateTimeEnd   = inodeCreateTimeStart + inodeCreateTimeSize

	inodeModifyTimeStart = inodeCreateTimeEnd
	inodeModifyTimeSize  = 8
	inodeModifyTimeEnd   = inodeModifyTimeStart + inodeModifyTimeSize

	inodeSeqNumStart = inodeModifyTimeEnd
	inodeSeqNumSize  = 4
	inodeSeqNumEnd   = inodeSeqNumStart + inodeSeqNumSize

	inodeGenNumStart = inodeSeqNumEnd
	inodeGenNumSize  = 4
	inodeGenNumEnd   = inodeGenNumStart + inodeGenNumSize

	inodeDirentCountStart = inodeGenNumEnd
	inodeDirentCountSize  = 4
	inodeDirentCountEnd   = inodeDirentCountStart + inodeDirentCountSize

	inodeReservedStart = inodeDirentCountEnd
	inodeReservedSize  = 5 * 4
	inodeReservedEnd   = inodeReservedStart + inodeReservedSize

	inodeDirectStart = inodeReservedEnd
	inodeDirectSize  = DirectCount * BlockPointerSize
	inodeDirectEnd   = inodeDirectStart + inodeDirectSize

	inodeIndirectStart = inodeDirectEnd
	inodeIndirectSize  = IndirectCount * BlockPointerSize
	inodeIndirectEnd   = inodeIndirectStart + inodeIndirectSize

	inodeDoublyStart = inodeIndirectEnd
	inodeDoublySize  = DoublyIndirectCount * BlockPointerSize
	inodeDoublyEnd   = inodeDoublyStart + inodeDoublySize
)

// the record must fill its slot in the inode table exactly
var _ [InodeSize - inodeDoublyEnd]struct{}
var _ [inodeDoublyEnd - InodeSize]struct{}
