// Package lockedmem backs safeptr.ArrayBox[byte] with memguard buffers:
// the pages are mlocked so they never reach swap, fenced by guard pages,
// and wiped when the owning handle frees them.
//
// Only the owning ArrayBox releases a buffer. Aliases made with Copy read
// and write the same locked pages and must not outlive the owner.
package lockedmem

import (
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/rawbytedev/safeptr"
	"go.uber.org/zap"
)

var ErrAllocFailed = errors.New("lockedmem: failed to allocate locked buffer")

// limit is swapped in tests.
var limit = mlockLimit

// Allocator hands out locked byte regions. The zero value is ready to use.
type Allocator struct{}

var _ safeptr.Allocator[byte] = Allocator{}

// Alloc returns a locked, writable region of n bytes. memguard has no
// zero-sized buffers, so n == 0 yields an empty heap region.
//
// A request the mlock limit cannot cover is refused with ErrAllocFailed
// instead of being handed to memguard, which panics and purges every other
// locked buffer when mlock fails.
func (Allocator) Alloc(n int) (safeptr.Region[byte], error) {
	if n < 0 {
		return nil, fmt.Errorf("lockedmem: negative size %d", n)
	}
	if n == 0 {
		return safeptr.NewHeapRegion([]byte{}), nil
	}
	if ok, lim := Sufficient(n); !ok {
		return nil, fmt.Errorf("%w: %d bytes exceeds mlock limit of %d", ErrAllocFailed, n, lim)
	}
	buf, err := newBuffer(n)
	if err != nil {
		return nil, err
	}
	buf.Melt()
	return &region{buf: buf}, nil
}

func newBuffer(n int) (buf *memguard.LockedBuffer, err error) {
	defer func() {
		if p := recover(); p != nil {
			buf, err = nil, fmt.Errorf("%w: %d bytes: %v", ErrAllocFailed, n, p)
		}
	}()
	buf = memguard.NewBuffer(n)
	if buf == nil || !buf.IsAlive() {
		return nil, fmt.Errorf("%w: %d bytes", ErrAllocFailed, n)
	}
	return buf, nil
}

type region struct {
	buf *memguard.LockedBuffer
}

// Slice returns nil once the buffer was destroyed, by Free or by Purge.
func (r *region) Slice() []byte { return r.buf.Bytes() }

// Free wipes and unlocks the buffer. Destroy is idempotent in memguard.
func (r *region) Free() { r.buf.Destroy() }

func (r *region) Alive() bool { return r.buf.IsAlive() }

// NewArray allocates an n-byte locked ArrayBox. It fails with
// ErrAllocFailed, and logs a warning, when the process mlock limit is too
// small for n bytes.
func NewArray(n int, opts safeptr.Options) (*safeptr.ArrayBox[byte], error) {
	if opts.Logger != nil && n > 0 {
		if ok, lim := Sufficient(n); !ok {
			opts.Logger.Warn("lockedmem: mlock limit below requested size, refusing",
				zap.Int("requested_bytes", n),
				zap.Int("locked_bytes", pageRound(n)),
				zap.Int64("limit_bytes", lim),
			)
		}
	}
	return safeptr.NewArrayBoxWithAllocator[byte](n, Allocator{}, opts)
}

// Sufficient reports whether the mlock limit covers an n-byte buffer, along
// with the limit itself (-1 when unlimited or unknown). memguard locks whole
// pages, so n is rounded up to the page size.
func Sufficient(n int) (bool, int64) {
	lim, err := limit()
	if err != nil || lim < 0 {
		return true, -1
	}
	return int64(pageRound(n)) <= lim, lim
}

func pageRound(n int) int {
	page := os.Getpagesize()
	return (n + page - 1) / page * page
}

// Purge wipes and destroys every locked buffer in the process. Locked
// ArrayBox handles report Released afterwards.
func Purge() {
	memguard.Purge()
}
