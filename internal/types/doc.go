// Package types provides the data model shared by every strata package.
//
// This package contains value types only. All other internal packages
// import types; types imports nothing internal. This keeps the data model
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Entity paths are NFC normalised before hashing so that visually
//     identical paths always land in the same index table
//   - Row ids are UUIDv7 and totally ordered by their bytes; they break
//     ties between rows logged at the same time
//   - Cells are a sealed union over a fixed set of column types, never
//     an opaque interface{} payload
//   - A missing component value is an explicit nil cell, never a missing row
package types
