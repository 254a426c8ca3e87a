package common

import "unsafe"

// SizeOf returns the byte width of one T.
func SizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// SpanSize returns the byte width of n contiguous T values, or 0 for n <= 0.
func SpanSize[T any](n int) int {
	if n <= 0 {
		return 0
	}
	return SizeOf[T]() * n
}

// InBounds reports whether i addresses one of n elements.
func InBounds(i, n int) bool {
	return i >= 0 && i < n
}

// ValidLength reports whether n is usable as an element count.
func ValidLength(n int) bool {
	return n >= 0
}
