package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/weberc2/minfs/pkg/types"
)

type fakeEntry struct {
	ino      Ino
	refs     atomic.Int32
	unlinked bool
}

func newFakeEntry(ino Ino) *fakeEntry {
	e := &fakeEntry{ino: ino}
	e.refs.Store(1)
	return e
}

func (e *fakeEntry) Ino() Ino       { return e.ino }
func (e *fakeEntry) Alive() bool    { return e.refs.Load() > 0 }
func (e *fakeEntry) Unlinked() bool { return e.unlinked }

func (e *fakeEntry) TryAcquire() bool {
	for {
		refs := e.refs.Load()
		if refs == 0 {
			return false
		}
		if e.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

func (e *fakeEntry) release(c *Cache[*fakeEntry]) {
	if e.refs.Add(-1) == 0 {
		c.Release(e)
	}
}

func TestCache_LookupWhenEmpty(t *testing.T) {
	c := NewCache[*fakeEntry]()
	if _, found := c.Lookup(1); found {
		t.Fatal("empty cache: looking up ino `1`: expected `false`; found `true`")
	}
}

func TestCache(t *testing.T) {
	type testCase struct {
		name     string
		refs     int32
		unlinked bool
		found    bool
		wantLen  int
	}

	testCases := []testCase{{
		name:    "live",
		refs:    1,
		found:   true,
		wantLen: 1,
	}, {
		name:    "dead entries are erased",
		refs:    0,
		found:   false,
		wantLen: 0,
	}, {
		name:     "unlinked entries are hidden",
		refs:     1,
		unlinked: true,
		found:    false,
		wantLen:  1,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCache[*fakeEntry]()
			e := newFakeEntry(5)
			c.Insert(e)
			e.refs.Store(tc.refs)
			e.unlinked = tc.unlinked

			found, ok := c.Lookup(5)
			if ok != tc.found {
				t.Fatalf("Lookup(): wanted `%t`; found `%t`", tc.found, ok)
			}
			if ok {
				if found != e {
					t.Fatal("Lookup(): returned a different entry")
				}
				if refs := e.refs.Load(); refs != tc.refs+1 {
					t.Fatalf("refs: wanted `%d`; found `%d`", tc.refs+1, refs)
				}
			}
			if c.Len() != tc.wantLen {
				t.Fatalf("len: wanted `%d`; found `%d`", tc.wantLen, c.Len())
			}
		})
	}
}

func TestCache_InsertDuplicatePanics(t *testing.T) {
	c := NewCache[*fakeEntry]()
	c.Insert(newFakeEntry(3))
	defer func() {
		if recover() == nil {
			t.Fatal("Insert(): wanted panic on duplicate; found none")
		}
	}()
	c.Insert(newFakeEntry(3))
}

func TestCache_InsertOverUnlinkedPanics(t *testing.T) {
	c := NewCache[*fakeEntry]()
	e := newFakeEntry(3)
	c.Insert(e)
	e.unlinked = true
	defer func() {
		if recover() == nil {
			t.Fatal("Insert(): wanted panic over a live unlinked entry; found none")
		}
	}()
	c.Insert(newFakeEntry(3))
}

func TestCache_GetOrInsertKeepsUnlinked(t *testing.T) {
	c := NewCache[*fakeEntry]()
	e := newFakeEntry(4)
	c.Insert(e)
	e.unlinked = true

	_, inserted, err := c.GetOrInsert(newFakeEntry(4))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetOrInsert(): wanted `%v`; found `%v`", ErrNotFound, err)
	}
	if inserted {
		t.Fatal("GetOrInsert(): replaced a live unlinked entry")
	}
	if refs := e.refs.Load(); refs != 1 {
		t.Fatalf("refs: wanted `1`; found `%d`", refs)
	}

	// once the last reference is gone the slot may be reused
	e.release(c)
	replacement := newFakeEntry(4)
	found, inserted, err := c.GetOrInsert(replacement)
	if err != nil {
		t.Fatalf("GetOrInsert(): unexpected err: %v", err)
	}
	if !inserted || found != replacement {
		t.Fatal("GetOrInsert(): wanted the replacement to be inserted")
	}
}

func TestCache_ReleaseByIdentity(t *testing.T) {
	c := NewCache[*fakeEntry]()
	old := newFakeEntry(3)
	c.Insert(old)
	old.refs.Store(0)

	// a dead entry may be replaced before its Release arrives
	replacement := newFakeEntry(3)
	c.Insert(replacement)
	c.Release(old)

	found, ok := c.Lookup(3)
	if !ok || found != replacement {
		t.Fatal("Release(): stale release erased the replacement entry")
	}
}

func TestCache_GetOrInsertConcurrent(t *testing.T) {
	const workers = 32
	c := NewCache[*fakeEntry]()
	results := make([]*fakeEntry, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if e, found := c.Lookup(9); found {
				results[i] = e
				return
			}
			e, _, err := c.GetOrInsert(newFakeEntry(9))
			if err != nil {
				t.Errorf("GetOrInsert(): unexpected err: %v", err)
			}
			results[i] = e
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker `%d`: wanted the same entry as worker `0`", i)
		}
	}
	if refs := results[0].refs.Load(); refs != workers {
		t.Fatalf("refs: wanted `%d`; found `%d`", workers, refs)
	}

	for i := 0; i < workers; i++ {
		results[i].release(c)
	}
	if c.Len() != 0 {
		t.Fatalf("len: wanted `0`; found `%d`", c.Len())
	}
}
