package safeptr

// Region is one live allocation handed out by an Allocator.
// Slice must keep returning the same backing array until Free is called.
// Alive reports false once the backing memory is gone, whether through
// Free or through the allocator tearing it down on its own.
type Region[T any] interface {
	Slice() []T
	Free()
	Alive() bool
}

// Allocator hands out regions of n contiguous T values.
type Allocator[T any] interface {
	Alloc(n int) (Region[T], error)
}

// HeapAllocator allocates on the Go heap. Free zeroes the region and drops it.
type HeapAllocator[T any] struct{}

func (HeapAllocator[T]) Alloc(n int) (Region[T], error) {
	return NewHeapRegion(make([]T, n)), nil
}

// NewHeapRegion adopts data as a heap region.
func NewHeapRegion[T any](data []T) Region[T] {
	return &heapRegion[T]{data: data}
}

type heapRegion[T any] struct {
	data []T
}

func (r *heapRegion[T]) Slice() []T { return r.data }

// Alive is always true: heap memory is never unmapped under a live slice.
func (r *heapRegion[T]) Alive() bool { return true }

func (r *heapRegion[T]) Free() {
	clear(r.data)
	r.data = nil
}
