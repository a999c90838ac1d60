// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pmem

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"code.hybscloud.com/pmem/persist"
	"golang.org/x/sys/unix"
)

// Pool is one opened, memory-mapped allocator instance. A Pool must not
// be copied after first use; noCopy makes go vet flag that mistake.
type Pool struct {
	noCopy  noCopy
	f       *os.File
	backend persist.Backend
	data    []byte
	size    int64

	// allocMu is the pool-wide lock taken around Reserve, Free, and the
	// coalesce pass (Design Note "Concurrency guarantee strength",
	// option (b)). OnActive/Activate/OnFree do not take it: those
	// operate on a clump already owned by the calling goroutine by
	// contract, the same disjoint-ownership argument the source
	// library relies on without enforcing it.
	allocMu sync.Mutex
}

// Init opens the pool at path, creating it if it does not exist.
//
// If path exists, its on-disk size is used and size is ignored. If it
// does not exist, size must be at least MinPoolSize; Init creates the
// file, reserves size bytes with a contiguous allocation (not a sparse
// truncate), writes the initial single FREE clump spanning the whole
// clump region, and writes the pool header.
//
// Either way, Init then maps the file through the backend selected by
// the most recent call to persist.SelectPersistenceMode (persist.Open),
// runs the recovery scan, and coalesces adjacent free clumps before
// returning.
func Init(path string, size int64) (*Pool, error) {
	existed := true
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if os.IsNotExist(err) {
		existed = false
		if size < MinPoolSize {
			return nil, fmt.Errorf("%w: pool size %d below minimum %d", ErrInvalidArgument, size, MinPoolSize)
		}
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIoFailure, path, err)
	}

	if existed {
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: stat %s: %v", ErrIoFailure, path, err)
		}
		size = st.Size()
	} else {
		if err := bootstrap(f, size); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, err
		}
	}

	backend := persist.Open(persist.SelectedMode())
	data, err := backend.Map(f, size)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: map %s: %v", ErrIoFailure, path, err)
	}

	p := &Pool{f: f, backend: backend, data: data, size: size}

	if existed {
		p.checkSignature()
	}

	p.recover()
	p.coalesce()

	return p, nil
}

// bootstrap creates the on-media layout for a brand-new pool file: it
// reserves size bytes with Fallocate (step 3 of the bootstrap requires
// actually reserving space, not just extending the apparent length the
// way os.Truncate would), writes the single initial FREE clump, and
// writes the pool header.
func bootstrap(f *os.File, size int64) error {
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		return fmt.Errorf("%w: fallocate: %v", ErrIoFailure, err)
	}

	lastClumpOffset := (size &^ (ClumpAlign - 1)) - clumpHeaderSize
	span := uint64(lastClumpOffset - ClumpRegionOffset)

	buf := make([]byte, clumpHeaderSize)
	c := clumpAt(buf, 0)
	c.SizeAndState = sizeAndState(span, Free)
	if _, err := f.WriteAt(buf, ClumpRegionOffset); err != nil {
		return fmt.Errorf("%w: write initial clump: %v", ErrIoFailure, err)
	}

	hdrBuf := make([]byte, HeaderSize)
	copy(hdrBuf[:16], signature)
	hdr := (*poolHeader)(unsafe.Pointer(unsafe.SliceData(hdrBuf)))
	hdr.TotalSize = uint64(size)
	if _, err := f.WriteAt(hdrBuf, HeaderOffset); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrIoFailure, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", ErrIoFailure, err)
	}
	return nil
}

// checkSignature verifies the pool header signature on an existing
// pool. Per the Open Question in the source ("recovery case 1 ... pool
// file isn't even fully set up"), a missing or garbled signature on an
// existing file is Corruption, which is fatal: it panics rather than
// returning an error, matching the policy in ERROR HANDLING DESIGN that
// the in-memory state machine has no safe next step once corruption is
// detected. Check is the one operation in this package that reports
// corruption instead of panicking on it.
func (p *Pool) checkSignature() {
	got := string(p.data[HeaderOffset : HeaderOffset+16])
	if got != signature {
		corrupt("bad pool signature")
	}
}

// StaticArea returns the pool's 4 KiB client-owned scratch region.
// Callers are responsible for calling Persist on the region (via the
// pool's backend) after mutating it; the allocator never interprets
// its contents.
func (p *Pool) StaticArea() []byte {
	return p.data[StaticAreaOffset : StaticAreaOffset+StaticAreaSize]
}

// Persist makes region, a sub-slice of the pool's mapped bytes,
// durable through the pool's selected backend.
func (p *Pool) Persist(region []byte) {
	p.backend.Persist(region)
}

// Close unmaps the pool and closes the underlying file.
func (p *Pool) Close() error {
	if err := p.backend.Unmap(p.data); err != nil {
		_ = p.f.Close()
		return fmt.Errorf("%w: unmap: %v", ErrIoFailure, err)
	}
	if err := p.f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrIoFailure, err)
	}
	return nil
}

// clump returns the clump header at off.
func (p *Pool) clump(off Offset) *clump {
	return clumpAt(p.data, off)
}

// persistClump persists exactly the 64-byte header at off.
func (p *Pool) persistClump(off Offset) {
	p.backend.Persist(p.data[off : off+clumpHeaderSize])
}

// At returns the n mapped bytes starting at off, for callers (such as
// the stress package's mailbox grid) that keep raw persistent data
// inside a reservation rather than another clump-managed structure. The
// returned slice aliases the pool's mapped memory directly; callers
// must call Persist on it (or a sub-slice) themselves.
func (p *Pool) At(off Offset, n int) []byte {
	return p.data[off : off+Offset(n)]
}
