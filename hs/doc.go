// Package hs implements the client side of the indexed-access protocol
// spoken by the storage engine's HandlerSocket-style endpoint. It bypasses
// SQL parsing entirely: a caller opens a numbered index handle bound to a
// (table, index, column-list) triple and then issues direct operations
// against that handle.
//
// The package focuses on:
//   - Channel management: one network connection per Client, one in-flight
//     operation at a time, no internal queuing or pipelining
//   - Handle lifecycle: handles are opened exactly once per channel and
//     live for the lifetime of the Client
//   - Single and batched execution with per-operation status decoding
//
// Key Components:
//
//   - Client: owns the channel. Dial establishes it, OpenIndex binds a
//     handle, ExecuteSingle and ExecuteMulti issue operations. ExecuteMulti
//     submits all operations in one write so the server applies them
//     sequentially under a single lock acquisition.
//
//   - Op / Mod: the description of one operation. The operator is a key
//     comparator (equality for point lookups) or the insert marker; an
//     optional Mod turns a find into an in-place update or delete.
//
//   - Result: the tagged decode of one response. A zero status with row
//     data is a hit, a non-zero status without payload is a soft miss
//     (NotFound), and a non-zero status with a message is surfaced as a
//     per-operation *Error so batches can distinguish expected misses from
//     genuine failures.
//
//   - HandleAllocator: an explicit, atomic source of handle IDs for
//     callers that coordinate several handles on one channel. Handle IDs
//     are caller-assigned; the server only rejects a reopen.
//
// The wire format is line oriented: TAB-separated tokens terminated by LF,
// with bytes below 0x10 escaped so arbitrary binary values survive the
// framing. See wire.go for the exact encoding.
package hs
