package safeptr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed container operation.
type Kind uint8

const (
	// KindUnknown is reported by KindOf for errors that did not come from this package.
	KindUnknown Kind = iota
	// UninitializedAccess: a read happened before any write.
	UninitializedAccess
	// OutOfBounds: an index fell outside [0, length).
	OutOfBounds
	// InvalidSize: a negative element count was requested.
	InvalidSize
	// Released: an alias touched storage its owner already released.
	Released
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	UninitializedAccess: "uninitialized_access",
	OutOfBounds:         "out_of_bounds",
	InvalidSize:         "invalid_size",
	Released:            "released",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("safeptr: unknown error kind %q", s)
}

const (
	msgUninitializedValue = "attempting to access an uninitialized value is forbidden"
	msgUninitializedArray = "attempting to access an uninitialized array is forbidden"
	msgInvalidIndex       = "invalid index"
	msgInvalidSize        = "invalid array size"
	msgReleased           = "storage was released by its owner"
)

// Error is returned by every fallible Box and ArrayBox operation.
// Error() yields the stable message only. Op names the operation and Index
// holds the offending index or length where one applies.
type Error struct {
	Kind  Kind
	Op    string
	Index int
	msg   string
}

func (e *Error) Error() string { return e.msg }

// Is matches any *Error of the same Kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUninitialized = &Error{Kind: UninitializedAccess, msg: msgUninitializedValue}
	ErrOutOfBounds   = &Error{Kind: OutOfBounds, msg: msgInvalidIndex}
	ErrInvalidSize   = &Error{Kind: InvalidSize, msg: msgInvalidSize}
	ErrReleased      = &Error{Kind: Released, msg: msgReleased}
)

// KindOf extracts the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func uninitializedValue(op string) error {
	return &Error{Kind: UninitializedAccess, Op: op, msg: msgUninitializedValue}
}

func uninitializedArray(op string) error {
	return &Error{Kind: UninitializedAccess, Op: op, msg: msgUninitializedArray}
}

func outOfBounds(op string, i int) error {
	return &Error{Kind: OutOfBounds, Op: op, Index: i, msg: msgInvalidIndex}
}

func invalidSize(op string, n int) error {
	return &Error{Kind: InvalidSize, Op: op, Index: n, msg: msgInvalidSize}
}

func released(op string) error {
	return &Error{Kind: Released, Op: op, msg: msgReleased}
}
