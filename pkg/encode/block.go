package encode

import (
	. "github.com/weberc2/minfs/pkg/types"
)

// EncodePointers writes `pointers` into the indirect block `p`. Slots past
// `len(pointers)` are zeroed.
func EncodePointers(pointers []Block, p []byte) {
	for i := Byte(0); i < Byte(PointersPerBlock); i++ {
		var b Block
		if i < Byte(len(pointers)) {
			b = pointers[i]
		}
		putBlock(p, i*BlockPointerSize, b)
	}
}

// DecodePointers reads every pointer slot of the indirect block `p` into
// `out`, which must hold `PointersPerBlock` entries.
func DecodePointers(p []byte, out []Block) {
	for i := range out {
		out[i] = getBlock(p, Byte(i)*BlockPointerSize)
	}
}

func EncodePointer(p []byte, index Block, b Block) {
	putBlock(p, Byte(index)*BlockPointerSize, b)
}

func DecodePointer(p []byte, index Block) Block {
	return getBlock(p, Byte(index)*BlockPointerSize)
}
