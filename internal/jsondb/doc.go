// Package jsondb provides a single-document JSON file store guarded by an
// advisory file lock.
//
// # Overview
//
// [File] holds one JSON document on disk. [File.Load] reads it fully; a
// missing file is not an error and yields the zero document. [File.Save]
// rewrites the whole document through a temporary file in the same directory,
// fsyncs it and renames it over the target, so readers only ever observe a
// complete document.
//
// # Concurrency: Advisory Locking
//
// [Lock] serializes writers across goroutines and processes using flock(2) on
// a dedicated lock file (LockFileEx on Windows). The lock file has no content.
// [Lock.WithWriteLock] polls for the lock until the configured timeout or the
// context expires, then fails with [ErrLockTimeout]. Readers never take the
// lock; they may observe a document that is about to be replaced.
//
// # Schema
//
// [Columns] derives column descriptions from a struct type using JSON Schema
// reflection, for display and documentation purposes.
package jsondb
