// Package join recombines independently resolved components into rows.
//
// Two algorithms are provided:
//
//   - Clamped (instance-level) join: pairs every primary element with the
//     next secondary element, holding the last secondary value once the
//     secondary runs out, or a caller supplied default if it never produced
//     one. Used to stretch a per-entity color over every point.
//   - Range (time-level) join: pairs every primary item with the most recent
//     secondary item at or before it by (time, RowID). Yields an invalid
//     Optional when no secondary item has been seen yet, so "never set" is
//     distinguishable from "set to a default".
//
// Both joins are lazy and cost amortised O(1) per primary element.
package join
