// Package ir holds the value model used to record and compare machine
// states outside of their Go types.
//
// States of every registered machine convert to an IRValue, so traces from
// different machines share one representation, one canonical JSON encoding
// and one digest.
//
// Key design constraints:
//   - NO float types: numbers are int64, so encodings are exact
//   - NO null: absent values are omitted, never encoded
//   - ir imports nothing internal
package ir
