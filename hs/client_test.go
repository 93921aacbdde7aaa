package hs_test

import (
	"bytes"
	"database/sql"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hscache-io/hscache/hs"
	"github.com/hscache-io/hscache/hs/hstest"

	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

// newTestDB opens a fresh in-memory sqlite database
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:hsclient%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestServer starts an hstest server over a database holding one cache table
func newTestServer(t *testing.T) (*hstest.Server, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	if _, err := db.Exec("CREATE TABLE `chi_test` (`key` VARCHAR(600), `value` TEXT, PRIMARY KEY(`key`))"); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	srv, err := hstest.NewServer(db)
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, db
}

// newTestClient dials the test server
func newTestClient(t *testing.T, srv *hstest.Server) *hs.Client {
	t.Helper()
	client, err := hs.Dial(srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDialConnectionError(t *testing.T) {
	// Grab a port that is guaranteed to be closed
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := hs.Dial(addr); !hs.IsKind(err, hs.KindConnection) {
		t.Errorf("expected a connection error, got %v", err)
	}
}

func TestOpenIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv)

	if err := client.OpenIndex(1, "main", "chi_test", "PRIMARY", []string{"key", "value"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	t.Run("rebinding a handle is rejected locally", func(t *testing.T) {
		err := client.OpenIndex(1, "main", "chi_test", "PRIMARY", []string{"value"})
		if !hs.IsKind(err, hs.KindHandleOpen) {
			t.Errorf("expected a handle-open error, got %v", err)
		}
	})

	t.Run("unknown table is rejected by the server", func(t *testing.T) {
		err := client.OpenIndex(2, "main", "no_such_table", "PRIMARY", []string{"value"})
		if !hs.IsKind(err, hs.KindHandleOpen) {
			t.Errorf("expected a handle-open error, got %v", err)
		}
	})

	t.Run("unknown column is rejected by the server", func(t *testing.T) {
		err := client.OpenIndex(3, "main", "chi_test", "PRIMARY", []string{"no_such_column"})
		if !hs.IsKind(err, hs.KindHandleOpen) {
			t.Errorf("expected a handle-open error, got %v", err)
		}
	})

	t.Run("a failed open does not burn the handle", func(t *testing.T) {
		if err := client.OpenIndex(2, "main", "chi_test", "PRIMARY", []string{"key"}); err != nil {
			t.Errorf("reusing handle 2 after a rejected open failed: %v", err)
		}
	})
}

func TestExecuteSingle(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv)

	const handle = 1
	if err := client.OpenIndex(handle, "main", "chi_test", "PRIMARY", []string{"key", "value"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	findOp := func(key string) hs.Op {
		return hs.Op{Handle: handle, Operator: hs.OpEqual, Key: [][]byte{[]byte(key)}, Limit: 1}
	}

	t.Run("insert then find", func(t *testing.T) {
		_, err := client.ExecuteSingle(hs.Op{
			Handle:   handle,
			Operator: hs.OpInsert,
			Key:      [][]byte{[]byte("a"), []byte("alpha")},
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		res, err := client.ExecuteSingle(findOp("a"))
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if !res.Found() || len(res.Rows) != 1 {
			t.Fatalf("expected one row, got %+v", res)
		}
		if string(res.Rows[0][0]) != "a" || string(res.Rows[0][1]) != "alpha" {
			t.Errorf("unexpected row: %q %q", res.Rows[0][0], res.Rows[0][1])
		}
	})

	t.Run("find miss is not an error", func(t *testing.T) {
		res, err := client.ExecuteSingle(findOp("missing"))
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if res.Found() {
			t.Errorf("expected a miss, got %+v", res)
		}
	})

	t.Run("duplicate insert is a protocol error", func(t *testing.T) {
		_, err := client.ExecuteSingle(hs.Op{
			Handle:   handle,
			Operator: hs.OpInsert,
			Key:      [][]byte{[]byte("a"), []byte("again")},
		})
		if !hs.IsKind(err, hs.KindProtocol) {
			t.Errorf("expected a protocol error, got %v", err)
		}
	})

	t.Run("update in place", func(t *testing.T) {
		op := findOp("a")
		op.Mod = &hs.Mod{Action: hs.ModUpdate, Args: [][]byte{[]byte("a"), []byte("beta")}}
		res, err := client.ExecuteSingle(op)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if res.Modified() != 1 {
			t.Errorf("expected 1 modified row, got %d", res.Modified())
		}

		check, err := client.ExecuteSingle(findOp("a"))
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if string(check.Rows[0][1]) != "beta" {
			t.Errorf("expected updated value, got %q", check.Rows[0][1])
		}
	})

	t.Run("delete hit and miss", func(t *testing.T) {
		op := findOp("a")
		op.Mod = &hs.Mod{Action: hs.ModDelete}
		res, err := client.ExecuteSingle(op)
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if res.Modified() != 1 {
			t.Errorf("expected 1 deleted row, got %d", res.Modified())
		}

		again, err := client.ExecuteSingle(op)
		if err != nil {
			t.Fatalf("second delete failed: %v", err)
		}
		if again.Found() {
			t.Errorf("expected a miss on second delete, got %+v", again)
		}
	})

	t.Run("unbound handle is rejected locally", func(t *testing.T) {
		_, err := client.ExecuteSingle(hs.Op{Handle: 42, Operator: hs.OpEqual, Key: [][]byte{[]byte("a")}, Limit: 1})
		if !hs.IsKind(err, hs.KindProtocol) {
			t.Errorf("expected a protocol error, got %v", err)
		}
	})
}

func TestExecuteSingleNullValue(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv)

	if err := client.OpenIndex(1, "main", "chi_test", "PRIMARY", []string{"key", "value"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	_, err := client.ExecuteSingle(hs.Op{
		Handle:   1,
		Operator: hs.OpInsert,
		Key:      [][]byte{[]byte("n"), nil},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	res, err := client.ExecuteSingle(hs.Op{Handle: 1, Operator: hs.OpEqual, Key: [][]byte{[]byte("n")}, Limit: 1})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !res.Found() {
		t.Fatalf("expected a hit, got %+v", res)
	}
	if res.Rows[0][1] != nil {
		t.Errorf("expected NULL value to decode to nil, got %v", res.Rows[0][1])
	}
}

func TestExecuteMulti(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv)

	const handle = 7
	if err := client.OpenIndex(handle, "main", "chi_test", "PRIMARY", []string{"key", "value"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	deleteThenInsert := func(key, value string) []hs.Op {
		return []hs.Op{
			{Handle: handle, Operator: hs.OpEqual, Key: [][]byte{[]byte(key)}, Limit: 1, Mod: &hs.Mod{Action: hs.ModDelete}},
			{Handle: handle, Operator: hs.OpInsert, Key: [][]byte{[]byte(key), []byte(value)}},
		}
	}

	// First round: the delete step misses, the insert succeeds
	results, err := client.ExecuteMulti(deleteThenInsert("k", "v1"))
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Found() {
		t.Errorf("expected the delete step to miss, got %+v", results[0])
	}
	if results[0].Err != nil {
		t.Errorf("a delete miss must not be an error, got %v", results[0].Err)
	}
	if !results[1].Found() {
		t.Errorf("expected the insert step to succeed, got %+v", results[1])
	}

	// Second round: the delete step hits
	results, err = client.ExecuteMulti(deleteThenInsert("k", "v2"))
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if results[0].Modified() != 1 {
		t.Errorf("expected the delete step to remove 1 row, got %+v", results[0])
	}
	if !results[1].Found() {
		t.Errorf("expected the insert step to succeed, got %+v", results[1])
	}

	res, err := client.ExecuteSingle(hs.Op{Handle: handle, Operator: hs.OpEqual, Key: [][]byte{[]byte("k")}, Limit: 1})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !bytes.Equal(res.Rows[0][1], []byte("v2")) {
		t.Errorf("expected v2 after two rounds, got %q", res.Rows[0][1])
	}
}

func TestClientClosed(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv)

	if err := client.OpenIndex(1, "main", "chi_test", "PRIMARY", []string{"value"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := client.ExecuteSingle(hs.Op{Handle: 1, Operator: hs.OpEqual, Key: [][]byte{[]byte("a")}, Limit: 1})
	if !hs.IsKind(err, hs.KindConnection) {
		t.Errorf("expected a connection error after close, got %v", err)
	}
}

func TestHandleAllocator(t *testing.T) {
	alloc := hs.NewHandleAllocator(1)

	const workers = 8
	const perWorker = 100

	var mu sync.Mutex
	seen := make(map[int]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := alloc.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("handle id %d handed out twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if !seen[1] {
		t.Errorf("expected the first id to be 1")
	}
	if len(seen) != workers*perWorker {
		t.Errorf("expected %d distinct ids, got %d", workers*perWorker, len(seen))
	}
}
