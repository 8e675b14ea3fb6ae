// Package scene models scene nodes: typed geometry over a closed set of kinds
// (rect, ellipse, polygon, text, group) plus visual style.
//
// Shapes and styles are declarations built from attr.Timeline fields.
// Sampling a shape and style at a frame yields a State: an immutable,
// ordered attribute list that the compiler diffs and interpolates.
//
// STATE LAYOUT:
//
// Geometry attributes have a fixed order per kind:
//   - rect:    x, y, width, height
//   - ellipse: cx, cy, rx, ry
//   - polygon: points (flattened x,y pairs)
//   - text:    x, y, text
//   - group:   none (children carry the geometry)
//
// Style attributes are optional and emitted only when declared:
// fill, stroke, strokeWidth, fontSize.
//
// Two states of the same kind always have aligned geometry. A misalignment
// means a bug upstream and panics with *InvariantError rather than emitting
// a wrong delta.
package scene
