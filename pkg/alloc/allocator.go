package alloc

// Allocator hands out and takes back numbered units. Exhaustion is reported
// through Find's boolean; growing the pool is the caller's business.
type Allocator interface {
	Find(hint uint64) (uint64, bool)
	FindIn(start, end uint64) (uint64, bool)
	Set(uint64)
	Clear(uint64)
	Get(uint64) bool
}

var _ Allocator = (*Bitmap)(nil)
