// Package safeptr provides owning containers that refuse to hand out a
// value before it was written and that track which handle may release
// the storage.
//
// Box holds one value, ArrayBox a fixed-length run of values. Copy on
// either returns an alias sharing the storage; Move transfers it and
// empties the source. Only the owning handle releases storage, so the
// owner has to outlive its aliases. Nothing here is safe for concurrent use.
package safeptr
