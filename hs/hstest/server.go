// Package hstest provides an in-process indexed-access server for tests.
//
// The server speaks the same wire protocol as the real endpoint but
// executes every operation against a caller-supplied database/sql handle,
// so the protocol path and the relational path of a test observe the same
// table. It is written for sqlite (the PRIMARY index is resolved through
// PRAGMA table_info) and is not meant for production use.
package hstest

import (
	"bufio"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hscache-io/hscache/hs"
	"github.com/hscache-io/hscache/lib/logging"
)

var Logger = logging.GetLogger("hstest")

// Server is a loopback indexed-access endpoint backed by a SQL database.
// All operations across all connections execute under one store-wide lock;
// the lines of a batched request are executed in one lock acquisition, the
// same guarantee the real server gives.
type Server struct {
	db *sql.DB
	ln net.Listener

	storeMu sync.Mutex // the server's lock scope for batches

	connMu sync.Mutex
	conns  []net.Conn
	closed bool

	wg sync.WaitGroup
}

// NewServer starts a server on a random loopback port.
func NewServer(db *sql.DB) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %v", err)
	}
	s := &Server{db: db, ln: ln}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the endpoint the server listens on (host:port).
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener and tears down all open connections.
func (s *Server) Close() error {
	s.connMu.Lock()
	s.closed = true
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
	s.connMu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// binding records what a handle was opened against on one connection
type binding struct {
	table   string
	keyCol  string
	columns []string
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.connMu.Lock()
		if s.closed {
			s.connMu.Unlock()
			conn.Close()
			return
		}
		s.conns = append(s.conns, conn)
		s.connMu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection serves one channel. Handles are scoped to the channel,
// and requests are answered strictly in arrival order (the protocol has no
// request IDs).
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	handles := make(map[int]binding)

	for {
		// Block for the first request, then drain whatever else is already
		// buffered: those lines form one batch and run under one lock
		// acquisition. Grouping relies on the client writing a batch in one
		// flush and the loopback socket delivering it in one segment; a
		// fragmented batch would split into separate lock scopes here.
		first, err := hs.ReadLine(r)
		if err != nil {
			return
		}
		group := [][][]byte{first}
		for r.Buffered() > 0 {
			next, err := hs.ReadLine(r)
			if err != nil {
				return
			}
			group = append(group, next)
		}

		s.storeMu.Lock()
		responses := make([][][]byte, len(group))
		for i, req := range group {
			responses[i] = s.handleRequest(handles, req)
		}
		s.storeMu.Unlock()

		for _, resp := range responses {
			if _, err := w.Write(hs.EncodeLine(resp)); err != nil {
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Request Dispatch
// --------------------------------------------------------------------------

// Response lines follow the protocol contract: "0 <numcols> [data...]" on
// success, "1 0" for a soft miss, "<status> 1 <msg>" for errors.
func respOK(tokens ...[]byte) [][]byte {
	resp := [][]byte{[]byte("0"), []byte(strconv.Itoa(maxInt(len(tokens), 1)))}
	return append(resp, tokens...)
}

func respFound(numCols int, data [][]byte) [][]byte {
	resp := [][]byte{[]byte("0"), []byte(strconv.Itoa(numCols))}
	return append(resp, data...)
}

func respMiss() [][]byte {
	return [][]byte{[]byte("1"), []byte("0")}
}

func respError(msg string) [][]byte {
	return [][]byte{[]byte("2"), []byte("1"), []byte(msg)}
}

func (s *Server) handleRequest(handles map[int]binding, req [][]byte) [][]byte {
	if len(req) == 0 {
		return respError("empty request")
	}
	if string(req[0]) == "P" {
		return s.handleOpen(handles, req)
	}
	return s.handleOp(handles, req)
}

// handleOpen binds a handle: P <id> <db> <table> <index> <cols>
func (s *Server) handleOpen(handles map[int]binding, req [][]byte) [][]byte {
	if len(req) != 6 {
		return respError("open: want 6 tokens")
	}
	id, err := strconv.Atoi(string(req[1]))
	if err != nil {
		return respError("open: bad handle id")
	}
	table := string(req[3])
	index := string(req[4])
	columns := strings.Split(string(req[5]), ",")

	if _, ok := handles[id]; ok {
		return respError(fmt.Sprintf("open: handle %d already bound", id))
	}
	if index != "PRIMARY" {
		return respError(fmt.Sprintf("open: unknown index %s", index))
	}

	keyCol, tableCols, err := s.describeTable(table)
	if err != nil {
		return respError(err.Error())
	}
	for _, col := range columns {
		if _, ok := tableCols[col]; !ok {
			return respError(fmt.Sprintf("open: unknown column %s in %s", col, table))
		}
	}

	handles[id] = binding{table: table, keyCol: keyCol, columns: columns}
	Logger.Debugf("bound handle %d to %s (key %s) projecting %s", id, table, keyCol, strings.Join(columns, ","))
	return respOK()
}

// handleOp executes a single operation line:
// <id> <operator> <n> <v1>..<vn> [<limit> <offset> [<mod> <args...>]]
func (s *Server) handleOp(handles map[int]binding, req [][]byte) [][]byte {
	if len(req) < 3 {
		return respError("op: short request")
	}
	id, err := strconv.Atoi(string(req[0]))
	if err != nil {
		return respError("op: bad handle id")
	}
	b, ok := handles[id]
	if !ok {
		return respError(fmt.Sprintf("op: handle %d not bound", id))
	}
	operator := string(req[1])
	n, err := strconv.Atoi(string(req[2]))
	if err != nil || n < 0 || len(req) < 3+n {
		return respError("op: bad value count")
	}
	values := req[3 : 3+n]
	rest := req[3+n:]

	switch operator {
	case hs.OpInsert:
		return s.doInsert(b, values)
	case hs.OpEqual:
		// fallthrough to the find path below
	default:
		return respError(fmt.Sprintf("op: unsupported operator %s", operator))
	}

	if len(values) != 1 {
		return respError("op: composite key tuples are not supported")
	}
	if len(rest) < 2 {
		return respError("op: missing limit/offset")
	}
	limit, err1 := strconv.Atoi(string(rest[0]))
	offset, err2 := strconv.Atoi(string(rest[1]))
	if err1 != nil || err2 != nil {
		return respError("op: bad limit/offset")
	}
	key := values[0]
	mod := rest[2:]

	if len(mod) == 0 {
		return s.doFind(b, key, limit, offset)
	}
	if len(mod[0]) != 1 {
		return respError(fmt.Sprintf("op: unsupported modification %s", mod[0]))
	}
	switch mod[0][0] {
	case hs.ModDelete:
		return s.doDelete(b, key)
	case hs.ModUpdate:
		return s.doUpdate(b, key, mod[1:])
	default:
		return respError(fmt.Sprintf("op: unsupported modification %s", mod[0]))
	}
}

// --------------------------------------------------------------------------
// SQL Execution
// --------------------------------------------------------------------------

func (s *Server) doFind(b binding, key []byte, limit, offset int) [][]byte {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT ? OFFSET ?",
		quoteAll(b.columns), quote(b.table), quote(b.keyCol))
	rows, err := s.db.Query(query, sqlArg(key), limit, offset)
	if err != nil {
		return respError(fmt.Sprintf("find: %v", err))
	}
	defer rows.Close()

	var data [][]byte
	for rows.Next() {
		cells := make([]*[]byte, len(b.columns))
		dest := make([]interface{}, len(b.columns))
		for i := range cells {
			cells[i] = new([]byte)
			dest[i] = cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return respError(fmt.Sprintf("find: %v", err))
		}
		for _, cell := range cells {
			data = append(data, *cell)
		}
	}
	if err := rows.Err(); err != nil {
		return respError(fmt.Sprintf("find: %v", err))
	}
	if len(data) == 0 {
		return respMiss()
	}
	return respFound(len(b.columns), data)
}

func (s *Server) doInsert(b binding, values [][]byte) [][]byte {
	if len(values) != len(b.columns) {
		return respError(fmt.Sprintf("insert: want %d values, got %d", len(b.columns), len(values)))
	}
	args := make([]interface{}, len(values))
	marks := make([]string, len(values))
	for i, v := range values {
		args[i] = sqlArg(v)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(b.table), quoteAll(b.columns), strings.Join(marks, ", "))
	if _, err := s.db.Exec(query, args...); err != nil {
		return respError(fmt.Sprintf("insert: %v", err))
	}
	return respOK()
}

func (s *Server) doDelete(b binding, key []byte) [][]byte {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(b.table), quote(b.keyCol))
	res, err := s.db.Exec(query, sqlArg(key))
	if err != nil {
		return respError(fmt.Sprintf("delete: %v", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return respError(fmt.Sprintf("delete: %v", err))
	}
	if affected == 0 {
		return respMiss()
	}
	return respOK([]byte(strconv.FormatInt(affected, 10)))
}

func (s *Server) doUpdate(b binding, key []byte, args [][]byte) [][]byte {
	if len(args) != len(b.columns) {
		return respError(fmt.Sprintf("update: want %d values, got %d", len(b.columns), len(args)))
	}
	sets := make([]string, len(b.columns))
	sqlArgs := make([]interface{}, 0, len(args)+1)
	for i, col := range b.columns {
		sets[i] = fmt.Sprintf("%s = ?", quote(col))
		sqlArgs = append(sqlArgs, sqlArg(args[i]))
	}
	sqlArgs = append(sqlArgs, sqlArg(key))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quote(b.table), strings.Join(sets, ", "), quote(b.keyCol))
	res, err := s.db.Exec(query, sqlArgs...)
	if err != nil {
		return respError(fmt.Sprintf("update: %v", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return respError(fmt.Sprintf("update: %v", err))
	}
	if affected == 0 {
		return respMiss()
	}
	return respOK([]byte(strconv.FormatInt(affected, 10)))
}

// describeTable resolves the primary-key column and the column set of a
// table through sqlite's table_info pragma.
func (s *Server) describeTable(table string) (string, map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return "", nil, fmt.Errorf("open: describe %s: %v", table, err)
	}
	defer rows.Close()

	keyCol := ""
	cols := make(map[string]bool)
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return "", nil, fmt.Errorf("open: describe %s: %v", table, err)
		}
		cols[name] = true
		if pk == 1 {
			keyCol = name
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("open: describe %s: %v", table, err)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("open: unknown table %s", table)
	}
	if keyCol == "" {
		return "", nil, fmt.Errorf("open: table %s has no primary key", table)
	}
	return keyCol, cols, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// sqlArg maps a wire token to a SQL argument. The NULL token maps to NULL,
// everything else is stored as text.
func sqlArg(v []byte) interface{} {
	if v == nil {
		return nil
	}
	return string(v)
}

func quote(name string) string {
	return "`" + name + "`"
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
