// Package host is an in-memory reference implementation of the document
// host that bimbridge drives.
//
// The host owns a Document (elements, parameters, views, levels, rooms)
// and a Loop, the single goroutine allowed to touch it. Callers hand work
// to the loop with Post; everything else in this package assumes it runs
// on that goroutine and does no locking of its own.
//
// Mutations happen inside a Transaction. Each mutation registers an undo
// step, so RollBack restores the document exactly. At commit, installed
// FailurePreprocessors may discard posted warnings; error-severity
// messages that survive preprocessing roll the transaction back.
//
// Lengths are internal units (feet) and angles are radians throughout.
package host
