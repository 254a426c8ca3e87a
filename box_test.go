package safeptr

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBoxBasic(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(10))
	v, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, 10, v)

	p, err := b.AccessMut()
	require.NoError(t, err)
	*p = 15
	v, err = b.Read()
	require.NoError(t, err)
	require.Equal(t, 15, v)
}

func TestBoxFreshIsUninitialized(t *testing.T) {
	b := NewBox[string]()
	require.False(t, b.Initialized())
	require.Equal(t, OwnershipOwner, b.Ownership())
	_, err := b.Read()
	require.ErrorIs(t, err, ErrUninitialized)
	require.Equal(t, UninitializedAccess, KindOf(err))
	require.EqualError(t, err, "attempting to access an uninitialized value is forbidden")
}

func TestBoxAccessMutMarksInitialized(t *testing.T) {
	b := NewBox[int]()
	_, err := b.AccessMut()
	require.NoError(t, err)
	require.True(t, b.Initialized())
	v, err := b.Read()
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestBoxRoundTrip(t *testing.T) {
	b := NewBox[int64]()
	condition := func(v int64) bool {
		require.NoError(t, b.Write(v))
		got, err := b.Read()
		require.NoError(t, err)
		return got == v
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))

	s := NewBox[[]string]()
	list := func(v []string) bool {
		require.NoError(t, s.Write(v))
		got, err := s.Read()
		require.NoError(t, err)
		return assert.ObjectsAreEqual(v, got)
	}
	require.NoError(t, quick.Check(list, &quick.Config{}))
}

func TestBoxCopyAliases(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(42))
	alias := b.Copy()
	require.True(t, alias.Aliasing())
	require.Equal(t, OwnershipAlias, alias.Ownership())
	require.Same(t, b.Raw(), alias.Raw())

	require.NoError(t, alias.Write(666))
	v, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, 666, v)

	require.NoError(t, b.Write(7))
	v, err = alias.Read()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestBoxCopyBeforeWrite(t *testing.T) {
	b := NewBox[int]()
	alias := b.Copy()
	p, err := b.AccessMut()
	require.NoError(t, err)
	*p = 42
	v, err := alias.Read()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestBoxAliasFreeKeepsStorage(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(3))
	alias := b.Copy()
	alias.Free()
	require.True(t, alias.Empty())
	v, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestBoxOwnerFreeInvalidatesAliases(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(3))
	alias := b.Copy()
	b.Free()

	_, err := alias.Read()
	require.ErrorIs(t, err, ErrReleased)
	require.ErrorIs(t, alias.Write(1), ErrReleased)
	_, err = alias.AccessMut()
	require.ErrorIs(t, err, ErrReleased)
	require.Nil(t, alias.Raw())
}

func TestBoxMove(t *testing.T) {
	b := NewBoxWithOptions[int](Options{Logger: zaptest.NewLogger(t)})
	p, err := b.AccessMut()
	require.NoError(t, err)
	*p = 123

	moved := b.Move()
	v, err := moved.Read()
	require.NoError(t, err)
	require.Equal(t, 123, v)
	require.Equal(t, OwnershipOwner, moved.Ownership())

	require.Nil(t, b.Raw())
	require.True(t, b.Empty())
	require.False(t, b.Initialized())
	require.Zero(t, b.Size())
	_, err = b.Read()
	require.ErrorIs(t, err, ErrUninitialized)

	// a fresh write gives the source a new slot of its own
	require.NoError(t, b.Write(9))
	require.NotSame(t, b.Raw(), moved.Raw())
	v, err = moved.Read()
	require.NoError(t, err)
	require.Equal(t, 123, v)
}

func TestBoxMoveKeepsAliasing(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(1))
	alias := b.Copy()
	moved := alias.Move()
	require.True(t, moved.Aliasing())
	require.False(t, alias.Aliasing())
	moved.Free()
	v, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestBoxTransferReleasesDestination(t *testing.T) {
	src := NewBox[int]()
	require.NoError(t, src.Write(5))
	dst := NewBox[int]()
	require.NoError(t, dst.Write(9))
	dstAlias := dst.Copy()

	src.TransferTo(dst)
	v, err := dst.Read()
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.True(t, src.Empty())

	_, err = dstAlias.Read()
	require.ErrorIs(t, err, ErrReleased)
}

func TestBoxTransferSharedSlot(t *testing.T) {
	owner := NewBox[int]()
	require.NoError(t, owner.Write(5))
	alias := owner.Copy()

	alias.TransferTo(owner)
	require.Equal(t, OwnershipOwner, owner.Ownership())
	require.True(t, alias.Empty())
	v, err := owner.Read()
	require.NoError(t, err)
	require.Equal(t, 5, v)

	other := owner.Copy()
	owner.TransferTo(other)
	require.Equal(t, OwnershipOwner, other.Ownership())
	require.True(t, owner.Empty())

	owner.TransferTo(owner)
	require.True(t, owner.Empty())
}

func TestBoxReset(t *testing.T) {
	b := NewBox[int64]()
	require.NoError(t, b.Write(4))
	require.Equal(t, 8, b.Size())
	b.Reset()
	require.True(t, b.Empty())
	require.False(t, b.Initialized())
	_, err := b.Read()
	require.ErrorIs(t, err, ErrUninitialized)

	b.Reset()
	require.NoError(t, b.Write(2))
	v, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
}

func TestBoxZeroValue(t *testing.T) {
	var b Box[float64]
	require.Equal(t, OwnershipEmpty, b.Ownership())
	_, err := b.Read()
	require.ErrorIs(t, err, ErrUninitialized)
	require.NoError(t, b.Write(1.5))
	require.Equal(t, OwnershipOwner, b.Ownership())
	alias := b.Copy()
	require.True(t, alias.Aliasing())
}

func TestBoxEquality(t *testing.T) {
	b := NewBox[int]()
	require.NoError(t, b.Write(10))
	eq, err := Equal(b, 10)
	require.NoError(t, err)
	require.True(t, eq)
	eq, err = Equal(b, 11)
	require.NoError(t, err)
	require.False(t, eq)

	other := NewBox[int]()
	_, err = EqualBox(b, other)
	require.ErrorIs(t, err, ErrUninitialized)

	require.NoError(t, other.Write(10))
	eq, err = EqualBox(b, other)
	require.NoError(t, err)
	require.True(t, eq)

	// compared by value, not identity
	alias := b.Copy()
	eq, err = EqualBox(other, alias)
	require.NoError(t, err)
	require.True(t, eq)

	type point struct{ X, Y []int }
	p := NewBox[point]()
	require.NoError(t, p.Write(point{X: []int{1}, Y: []int{2}}))
	eq, err = p.EqualFunc(point{X: []int{1}, Y: []int{2}}, func(a, b point) bool {
		return assert.ObjectsAreEqual(a, b)
	})
	require.NoError(t, err)
	require.True(t, eq)

	_ = b.Move()
	_, err = Equal(b, 10)
	require.ErrorIs(t, err, ErrUninitialized)
}

func TestBoxEqualUninitializedSelf(t *testing.T) {
	b := NewBox[int]()
	eq, err := Equal(b, 0)
	require.NoError(t, err)
	require.True(t, eq)
}
