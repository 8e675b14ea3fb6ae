// Package ir provides the value model for compiled animation output.
//
// Frame deltas are Objects keyed by node name, whose values are Objects keyed
// by attribute name. This package imports nothing internal; every other
// package builds on it.
//
// Key constraints:
//   - NO floats anywhere: interpolation rounds to the pixel grid before a
//     value enters the IR
//   - NO null: absent attributes are simply not present in a delta
//   - Canonical JSON only on the output path (MarshalCanonical)
package ir
