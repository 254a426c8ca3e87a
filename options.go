package safeptr

import "go.uber.org/zap"

// Options configures a container at construction. The zero value is usable.
type Options struct {
	// Logger receives debug events for allocation, release and ownership
	// changes. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Ownership describes how a handle relates to its storage.
type Ownership uint8

const (
	// OwnershipEmpty: no storage (moved-from, reset or freed).
	OwnershipEmpty Ownership = iota
	// OwnershipOwner: the handle releases the storage.
	OwnershipOwner
	// OwnershipAlias: the handle shares storage it must never release.
	OwnershipAlias
)

func (o Ownership) String() string {
	switch o {
	case OwnershipEmpty:
		return "empty"
	case OwnershipOwner:
		return "owner"
	case OwnershipAlias:
		return "alias"
	default:
		return "?"
	}
}
