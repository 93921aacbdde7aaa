// Package cache implements a key/value cache storage backend that keeps
// its entries in a relational table but serves the hot path through the
// indexed-access protocol (package hs) instead of SQL, hitting the storage
// engine's primary-key lookup path directly.
//
// A Driver owns two protocol channels: a read channel whose handle
// projects only the value column, and a write channel whose handle
// projects key and value (delete+insert batches must supply the key).
// The split is construction-time: the read side simply has no handle that
// could mutate anything.
//
// Verb mapping:
//
//   - Fetch: equality point lookup on the read handle. A miss is a normal
//     outcome, reported as found == false, never as an error.
//   - Store: an atomic two-step batch on the write handle - unconditional
//     delete of the key, then insert of the new row. The batch executes
//     under one server-side lock acquisition, which is what gives this
//     upsert emulation its atomicity despite the protocol having no native
//     upsert verb (and without taking a full-table lock on ordinary
//     writes). If the insert step fails after the delete, the entry is
//     left absent and the distinct RetCPartialStore error is returned; the
//     batch is not rolled back.
//   - Remove: point delete on the write handle, idempotent on misses.
//   - Clear and Keys: bulk paths through the relational collaborator
//     (database/sql) - the protocol has no bulk-delete or scan verb.
//   - Namespaces: unsupported, always fails.
//
// Bootstrap runs once at construction: the schema name is resolved, the
// table is created idempotently, and both handles are opened. Any failure
// there is fatal and the driver never becomes ready.
//
// Values are opaque byte strings; key normalization, serialization and
// expiration policy belong to the enclosing cache framework.
package cache
