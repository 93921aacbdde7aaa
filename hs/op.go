package hs

import (
	"strconv"
)

// --------------------------------------------------------------------------
// Operation Description
// --------------------------------------------------------------------------

// Operators understood by the server. OpEqual is the only comparator this
// module uses (primary-key point lookups); OpInsert marks an insert.
const (
	OpEqual  = "="
	OpInsert = "+"
)

// Mod actions for destructive find variants
const (
	ModDelete byte = 'D'
	ModUpdate byte = 'U'
)

// Mod selects a destructive modification applied to the rows matched by a
// find: ModDelete removes them, ModUpdate overwrites the projected columns
// with Args in column order.
type Mod struct {
	Action byte
	Args   [][]byte
}

// Op describes one operation against a previously opened index handle.
//
// For finds (and find-backed mods) Key is the key tuple the Operator is
// applied to, and Limit/Offset bound the result set. For inserts
// (Operator == OpInsert) Key holds the new row's column values and
// Limit/Offset are not transmitted.
type Op struct {
	Handle   int
	Operator string
	Key      [][]byte
	Limit    int
	Offset   int
	Mod      *Mod
}

// appendRequest appends the wire tokens for op to tokens.
func (op Op) appendRequest(tokens [][]byte) [][]byte {
	tokens = append(tokens,
		[]byte(strconv.Itoa(op.Handle)),
		[]byte(op.Operator),
		[]byte(strconv.Itoa(len(op.Key))),
	)
	tokens = append(tokens, op.Key...)
	if op.Operator == OpInsert {
		return tokens
	}
	tokens = append(tokens,
		[]byte(strconv.Itoa(op.Limit)),
		[]byte(strconv.Itoa(op.Offset)),
	)
	if op.Mod != nil {
		tokens = append(tokens, []byte{op.Mod.Action})
		tokens = append(tokens, op.Mod.Args...)
	}
	return tokens
}

// --------------------------------------------------------------------------
// Result Decoding
// --------------------------------------------------------------------------

// Result is the tagged decode of one response line.
//
// Status 0 means the operation succeeded: finds carry the matched rows in
// Rows (projected column values, in projection order), mods carry the
// modified-row count, inserts carry nothing. A non-zero status without
// payload is a soft miss (no row matched); Found reports false. A non-zero
// status with a server message never reaches a Result - it is returned as
// a per-operation *Error instead.
type Result struct {
	Status int
	Rows   [][][]byte
	// Err holds the per-operation error inside a batch. ExecuteSingle
	// promotes it to the call's error return.
	Err *Error
}

// Found reports whether the operation matched (or inserted) a row.
func (r Result) Found() bool {
	return r.Err == nil && r.Status == 0
}

// Modified returns the row count reported by a D/U modification.
// It returns 0 for misses and non-mod results.
func (r Result) Modified() int {
	if !r.Found() || len(r.Rows) != 1 || len(r.Rows[0]) != 1 {
		return 0
	}
	n, err := strconv.Atoi(string(r.Rows[0][0]))
	if err != nil {
		return 0
	}
	return n
}

// decodeResult interprets one response token list as a Result.
func decodeResult(tokens [][]byte) (Result, error) {
	if len(tokens) < 2 {
		return Result{}, newError(KindProtocol, "short response: %d tokens", len(tokens))
	}
	status, err := strconv.Atoi(string(tokens[0]))
	if err != nil {
		return Result{}, wrapError(KindProtocol, err, "malformed status token")
	}
	numCols, err := strconv.Atoi(string(tokens[1]))
	if err != nil {
		return Result{}, wrapError(KindProtocol, err, "malformed column-count token")
	}
	data := tokens[2:]

	if status != 0 {
		// Non-zero without payload is the server's "no row matched".
		if len(data) == 0 {
			return Result{Status: status}, nil
		}
		msg := string(data[0])
		return Result{Status: status, Err: newError(KindProtocol, "server error (status %d): %s", status, msg)}, nil
	}

	if numCols <= 0 || len(data) == 0 {
		return Result{Status: 0}, nil
	}
	if len(data)%numCols != 0 {
		return Result{}, newError(KindProtocol, "row data not a multiple of %d columns: %d tokens", numCols, len(data))
	}
	rows := make([][][]byte, 0, len(data)/numCols)
	for i := 0; i < len(data); i += numCols {
		rows = append(rows, data[i:i+numCols])
	}
	return Result{Status: 0, Rows: rows}, nil
}
