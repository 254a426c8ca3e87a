package safeptr

import (
	"fmt"
	"slices"

	"github.com/rawbytedev/safeptr/internal/common"
	"go.uber.org/zap"
)

// block is the allocation behind one or more ArrayBox handles.
// initialized is array-wide: the first write to any index sets it.
type block[T any] struct {
	region      Region[T]
	data        []T
	initialized bool
	released    bool
}

// gone reports whether the storage can no longer be touched. A region that
// died underneath the block is marked released so every handle sees it.
func (b *block[T]) gone() bool {
	if b == nil {
		return false
	}
	if !b.released && !b.region.Alive() {
		b.data = nil
		b.initialized = false
		b.released = true
	}
	return b.released
}

// ArrayBox owns a fixed-length run of value slots obtained from an
// Allocator. Reads fail until some element was written; the flag is
// array-wide, so after writing index 0 a read of index 2 returns the zero
// value. Every indexed access is bounds checked.
//
// Ownership follows Box: Copy yields aliases that never release the
// storage, Move empties the source. The zero value is an empty,
// zero-length handle. ArrayBox is not safe for concurrent use.
type ArrayBox[T any] struct {
	blk      *block[T]
	length   int
	aliasing bool
	alloc    Allocator[T]
	log      *zap.Logger
}

// NewArrayBox allocates n zero-valued elements on the heap.
func NewArrayBox[T any](n int) (*ArrayBox[T], error) {
	return NewArrayBoxWithAllocator[T](n, nil, Options{})
}

// NewArrayBoxWithAllocator allocates n elements from alloc. A nil alloc
// means HeapAllocator.
func NewArrayBoxWithAllocator[T any](n int, alloc Allocator[T], opts Options) (*ArrayBox[T], error) {
	if !common.ValidLength(n) {
		return nil, invalidSize("create", n)
	}
	a := &ArrayBox[T]{alloc: alloc, log: opts.logger()}
	blk, err := a.newBlock(n)
	if err != nil {
		return nil, err
	}
	a.install(blk, n)
	return a, nil
}

func (a *ArrayBox[T]) logger() *zap.Logger {
	if a.log == nil {
		return nopLogger
	}
	return a.log
}

func (a *ArrayBox[T]) allocator() Allocator[T] {
	if a.alloc == nil {
		return HeapAllocator[T]{}
	}
	return a.alloc
}

func (a *ArrayBox[T]) newBlock(n int) (*block[T], error) {
	r, err := a.allocator().Alloc(n)
	if err != nil {
		return nil, fmt.Errorf("safeptr: allocate %d elements: %w", n, err)
	}
	data := r.Slice()
	if len(data) < n {
		r.Free()
		return nil, fmt.Errorf("safeptr: allocator returned %d elements, want %d", len(data), n)
	}
	return &block[T]{region: r, data: data[:n]}, nil
}

func (a *ArrayBox[T]) install(blk *block[T], n int) {
	a.blk = blk
	a.length = n
	a.aliasing = false
	a.logger().Debug("safeptr: allocated",
		zap.String("container", "array"),
		zap.Int("length", n),
		zap.Int("size", common.SpanSize[T](n)),
	)
}

// check validates an indexed access against the handle's storage.
func (a *ArrayBox[T]) check(op string, i int) error {
	if a.blk.gone() {
		return released(op)
	}
	if !common.InBounds(i, a.length) {
		return outOfBounds(op, i)
	}
	return nil
}

// Write stores v at i and marks the whole array initialized. A rejected
// index leaves the array untouched.
func (a *ArrayBox[T]) Write(i int, v T) error {
	if err := a.check("write", i); err != nil {
		return err
	}
	a.blk.data[i] = v
	a.blk.initialized = true
	return nil
}

// Read returns the element at i. UninitializedAccess takes precedence over
// the bounds check.
func (a *ArrayBox[T]) Read(i int) (T, error) {
	var zero T
	if a.blk.gone() {
		return zero, released("read")
	}
	if a.blk == nil || !a.blk.initialized {
		return zero, uninitializedArray("read")
	}
	if !common.InBounds(i, a.length) {
		return zero, outOfBounds("read", i)
	}
	return a.blk.data[i], nil
}

// At returns a pointer to element i and marks the array initialized,
// the indexed counterpart of Box.AccessMut.
func (a *ArrayBox[T]) At(i int) (*T, error) {
	if err := a.check("at", i); err != nil {
		return nil, err
	}
	a.blk.initialized = true
	return &a.blk.data[i], nil
}

// Reset replaces the storage with n fresh elements and clears the
// initialized flag. The handle owns the new storage even if it was an
// alias. A negative n fails with InvalidSize before anything changes.
func (a *ArrayBox[T]) Reset(n int) error {
	if !common.ValidLength(n) {
		return invalidSize("reset", n)
	}
	blk, err := a.newBlock(n)
	if err != nil {
		return err
	}
	a.Free()
	a.install(blk, n)
	return nil
}

// Free drops the storage, releasing it when the handle owns it, and sets
// the length to 0. Free on an empty handle is a no-op.
func (a *ArrayBox[T]) Free() {
	if a.blk == nil {
		return
	}
	if !a.aliasing {
		a.release()
	}
	a.blk = nil
	a.length = 0
	a.aliasing = false
}

func (a *ArrayBox[T]) release() {
	blk := a.blk
	if blk.released {
		return
	}
	blk.region.Free()
	blk.data = nil
	blk.initialized = false
	blk.released = true
	a.logger().Debug("safeptr: released",
		zap.String("container", "array"),
		zap.Int("length", a.length),
	)
}

// Copy returns an alias over the same storage and length. The alias never
// releases the storage.
func (a *ArrayBox[T]) Copy() *ArrayBox[T] {
	alias := &ArrayBox[T]{
		blk:      a.blk,
		length:   a.length,
		aliasing: a.blk != nil,
		alloc:    a.alloc,
		log:      a.log,
	}
	a.logger().Debug("safeptr: aliased",
		zap.String("container", "array"),
		zap.Int("length", a.length),
	)
	return alias
}

// Move hands storage, length, initialization state and the aliasing flag
// to a new handle. a is left empty with length 0.
func (a *ArrayBox[T]) Move() *ArrayBox[T] {
	dst := &ArrayBox[T]{alloc: a.alloc, log: a.log}
	a.TransferTo(dst)
	return dst
}

// TransferTo moves a's storage into dst, releasing the storage dst owned
// before. When both already share storage, dst keeps ownership if either
// side held it.
func (a *ArrayBox[T]) TransferTo(dst *ArrayBox[T]) {
	if dst == a {
		return
	}
	if dst.blk != nil && dst.blk == a.blk {
		dst.aliasing = dst.aliasing && a.aliasing
	} else {
		dst.Free()
		dst.blk = a.blk
		dst.aliasing = a.aliasing
	}
	dst.length = a.length
	a.blk = nil
	a.length = 0
	a.aliasing = false
	a.logger().Debug("safeptr: moved",
		zap.String("container", "array"),
		zap.Int("length", dst.length),
		zap.Bool("aliasing", dst.aliasing),
	)
}

// values returns the elements as Read would see them.
func (a *ArrayBox[T]) values(op string) ([]T, error) {
	if a.blk.gone() {
		return nil, released(op)
	}
	if a.length == 0 {
		return nil, nil
	}
	if !a.blk.initialized {
		return nil, uninitializedArray(op)
	}
	return a.blk.data[:a.length], nil
}

// EqualFunc compares the elements with vs pairwise. The elements are
// compared as stored, without an initialization check.
func (a *ArrayBox[T]) EqualFunc(vs []T, eq func(x, y T) bool) (bool, error) {
	if a.blk.gone() {
		return false, released("equal")
	}
	return slices.EqualFunc(a.Raw(), vs, eq), nil
}

// EqualArray reports whether a holds exactly vs.
func EqualArray[T comparable](a *ArrayBox[T], vs []T) (bool, error) {
	return a.EqualFunc(vs, func(x, y T) bool { return x == y })
}

// EqualArrays compares by value. other is read like Read does, so a
// non-empty, never-written other yields UninitializedAccess.
func EqualArrays[T comparable](a, other *ArrayBox[T]) (bool, error) {
	vs, err := other.values("equal")
	if err != nil {
		return false, err
	}
	return EqualArray(a, vs)
}

// Len is the element count, 0 once moved-from or freed.
func (a *ArrayBox[T]) Len() int { return a.length }

// Size is the byte width of the elements.
func (a *ArrayBox[T]) Size() int { return common.SpanSize[T](a.length) }

func (a *ArrayBox[T]) Initialized() bool {
	return a.blk != nil && a.blk.initialized
}

func (a *ArrayBox[T]) Aliasing() bool { return a.aliasing }

func (a *ArrayBox[T]) Empty() bool { return a.blk == nil }

func (a *ArrayBox[T]) Ownership() Ownership {
	switch {
	case a.blk == nil:
		return OwnershipEmpty
	case a.aliasing:
		return OwnershipAlias
	default:
		return OwnershipOwner
	}
}

// Raw exposes the elements without checks; nil when the handle is empty or
// the storage was released. A zero-length allocation is non-nil.
func (a *ArrayBox[T]) Raw() []T {
	if a.blk == nil || a.blk.gone() {
		return nil
	}
	return a.blk.data[:a.length]
}
