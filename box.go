package safeptr

import (
	"github.com/rawbytedev/safeptr/internal/common"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop()

// cell is the single allocation behind one or more Box handles.
// The initialization flag lives here so every handle sharing the
// allocation observes writes made through any of them.
type cell[T any] struct {
	val         T
	initialized bool
	released    bool
}

// Box owns one value slot and refuses reads until the slot was written.
//
// Copy hands out aliases that share the slot but never release it; Move
// hands the slot to a new handle and leaves the source empty. The owner
// must outlive its aliases: an alias used after the owner's Free or Reset
// fails with Released.
//
// The zero value is an empty handle; the first Write or AccessMut
// allocates a fresh slot that the handle owns. Box is not safe for
// concurrent use.
type Box[T any] struct {
	slot     *cell[T]
	aliasing bool
	log      *zap.Logger
}

// NewBox returns an owning Box with a fresh zero-valued, uninitialized slot.
func NewBox[T any]() *Box[T] {
	return NewBoxWithOptions[T](Options{})
}

func NewBoxWithOptions[T any](opts Options) *Box[T] {
	b := &Box[T]{log: opts.logger()}
	b.allocate()
	return b
}

func (b *Box[T]) logger() *zap.Logger {
	if b.log == nil {
		return nopLogger
	}
	return b.log
}

func (b *Box[T]) allocate() {
	b.slot = &cell[T]{}
	b.aliasing = false
	b.logger().Debug("safeptr: allocated",
		zap.String("container", "box"),
		zap.Int("size", common.SizeOf[T]()),
	)
}

// writable returns the slot for a write, allocating one for an empty handle.
func (b *Box[T]) writable(op string) (*cell[T], error) {
	if b.slot == nil {
		b.allocate()
	}
	if b.slot.released {
		return nil, released(op)
	}
	return b.slot, nil
}

// Write stores v and marks the slot initialized.
func (b *Box[T]) Write(v T) error {
	c, err := b.writable("write")
	if err != nil {
		return err
	}
	c.val = v
	c.initialized = true
	return nil
}

// Read returns the stored value. It fails with UninitializedAccess until
// a Write or AccessMut happened, including on an empty handle.
func (b *Box[T]) Read() (T, error) {
	var zero T
	if b.slot != nil && b.slot.released {
		return zero, released("read")
	}
	if b.slot == nil || !b.slot.initialized {
		return zero, uninitializedValue("read")
	}
	return b.slot.val, nil
}

// AccessMut returns a pointer into the slot. Obtaining it counts as
// initializing the slot, whether or not anything is assigned through it.
// The pointer stays valid until the owner releases the slot.
func (b *Box[T]) AccessMut() (*T, error) {
	c, err := b.writable("access_mut")
	if err != nil {
		return nil, err
	}
	c.initialized = true
	return &c.val, nil
}

// Free drops the handle's slot, releasing it when the handle owns it.
// Aliases only forget the slot. Free on an empty handle is a no-op.
func (b *Box[T]) Free() {
	if b.slot == nil {
		return
	}
	if !b.aliasing {
		b.release()
	}
	b.slot = nil
	b.aliasing = false
}

// Reset releases an owned slot and leaves the handle empty until the next write.
func (b *Box[T]) Reset() {
	b.Free()
}

func (b *Box[T]) release() {
	c := b.slot
	if c.released {
		return
	}
	var zero T
	c.val = zero
	c.initialized = false
	c.released = true
	b.logger().Debug("safeptr: released", zap.String("container", "box"))
}

// Copy returns an alias that reads and writes the same slot. The alias
// never releases the slot. Copying an empty handle yields an empty handle.
func (b *Box[T]) Copy() *Box[T] {
	alias := &Box[T]{slot: b.slot, aliasing: b.slot != nil, log: b.log}
	b.logger().Debug("safeptr: aliased",
		zap.String("container", "box"),
		zap.Bool("empty", b.slot == nil),
	)
	return alias
}

// Move hands the slot, its initialization state and the aliasing flag to a
// new handle. b is left empty.
func (b *Box[T]) Move() *Box[T] {
	dst := &Box[T]{log: b.log}
	b.TransferTo(dst)
	return dst
}

// TransferTo moves b's slot into dst, releasing the slot dst owned before.
// When both handles already share a slot, dst keeps ownership if either
// side held it. b is left empty.
func (b *Box[T]) TransferTo(dst *Box[T]) {
	if dst == b {
		return
	}
	if dst.slot != nil && dst.slot == b.slot {
		dst.aliasing = dst.aliasing && b.aliasing
	} else {
		dst.Free()
		dst.slot = b.slot
		dst.aliasing = b.aliasing
	}
	b.slot = nil
	b.aliasing = false
	b.logger().Debug("safeptr: moved",
		zap.String("container", "box"),
		zap.Bool("aliasing", dst.aliasing),
	)
}

// EqualFunc compares the stored value with v using eq. The stored value is
// compared as is, without an initialization check.
func (b *Box[T]) EqualFunc(v T, eq func(x, y T) bool) (bool, error) {
	if b.slot == nil {
		return false, uninitializedValue("equal")
	}
	if b.slot.released {
		return false, released("equal")
	}
	return eq(b.slot.val, v), nil
}

// Equal reports whether b holds v.
func Equal[T comparable](b *Box[T], v T) (bool, error) {
	return b.EqualFunc(v, func(x, y T) bool { return x == y })
}

// EqualBox compares by value. other is read through Read, so an
// uninitialized other yields UninitializedAccess.
func EqualBox[T comparable](b, other *Box[T]) (bool, error) {
	v, err := other.Read()
	if err != nil {
		return false, err
	}
	return Equal(b, v)
}

// Initialized reports whether the slot has been written or mutably accessed.
func (b *Box[T]) Initialized() bool {
	return b.slot != nil && b.slot.initialized
}

// Aliasing reports whether the handle shares a slot it does not own.
func (b *Box[T]) Aliasing() bool { return b.aliasing }

// Empty reports whether the handle holds no slot.
func (b *Box[T]) Empty() bool { return b.slot == nil }

func (b *Box[T]) Ownership() Ownership {
	switch {
	case b.slot == nil:
		return OwnershipEmpty
	case b.aliasing:
		return OwnershipAlias
	default:
		return OwnershipOwner
	}
}

// Raw exposes the slot without any checks. It is nil for an empty handle
// and for an alias whose owner released the slot.
func (b *Box[T]) Raw() *T {
	if b.slot == nil || b.slot.released {
		return nil
	}
	return &b.slot.val
}

// Size is the byte width of the held value, 0 for an empty handle.
func (b *Box[T]) Size() int {
	if b.slot == nil {
		return 0
	}
	return common.SizeOf[T]()
}
