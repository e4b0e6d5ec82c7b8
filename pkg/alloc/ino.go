package alloc

import . "github.com/weberc2/minfs/pkg/types"

// InoAllocator maps inode numbers directly onto bits. Inode zero is never
// handed out because the formatter reserves its bit.
type InoAllocator struct {
	Allocator
}

func (ia InoAllocator) Find(hint Ino) (Ino, bool) {
	if ino, ok := ia.Allocator.Find(uint64(hint)); ok {
		return Ino(ino), true
	}
	return InoNil, false
}

func (ia InoAllocator) FindIn(start, end Ino) (Ino, bool) {
	if ino, ok := ia.Allocator.FindIn(uint64(start), uint64(end)); ok {
		return Ino(ino), true
	}
	return InoNil, false
}

func (ia InoAllocator) Set(ino Ino)      { ia.Allocator.Set(uint64(ino)) }
func (ia InoAllocator) Clear(ino Ino)    { ia.Allocator.Clear(uint64(ino)) }
func (ia InoAllocator) Get(ino Ino) bool { return ia.Allocator.Get(uint64(ino)) }
