// Package ir provides the request and result types shared by every bimbridge
// package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Element references are opaque int64 identifiers owned by the host
//   - Action kinds form a closed enumeration; unknown values are rejected
//     at the wire boundary by ParseActionKind
//   - All JSON tags use camelCase to match the tool wire format
//   - Lengths on the wire are millimeters, angles are degrees
package ir
