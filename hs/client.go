package hs

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hscache-io/hscache/lib/logging"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logging.GetLogger("hs")

// --------------------------------------------------------------------------
// Dial Options
// --------------------------------------------------------------------------

// Option configures a Client at dial time
type Option func(*dialConfig)

type dialConfig struct {
	dialTimeout time.Duration
	noDelay     bool
}

// WithDialTimeout bounds the time spent establishing the channel.
// Zero (the default) means the OS default.
func WithDialTimeout(d time.Duration) Option {
	return func(c *dialConfig) { c.dialTimeout = d }
}

// WithNoDelay controls TCP_NODELAY on the channel (enabled by default,
// point operations are latency bound).
func WithNoDelay(enabled bool) Option {
	return func(c *dialConfig) { c.noDelay = enabled }
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// boundIndex records what a handle was opened against
type boundIndex struct {
	database string
	table    string
	index    string
	columns  []string
}

// Client owns one channel to the indexed-access endpoint. Every call
// blocks until the server responds; the internal mutex keeps at most one
// exchange in flight per channel. There are no timeouts, retries or
// pipelining at this layer - callers wanting timeouts impose them at the
// transport (see WithDialTimeout for connect-time bounds).
type Client struct {
	endpoint string
	conn     net.Conn
	r        *bufio.Reader
	w        *bufio.Writer

	mu      sync.Mutex // serializes exchanges on the channel
	closed  bool
	handles *xsync.MapOf[int, boundIndex]
}

// Dial establishes a channel to the indexed-access endpoint
// (e.g. "localhost:9998"). Failure yields a KindConnection error.
func Dial(endpoint string, opts ...Option) (*Client, error) {
	cfg := dialConfig{noDelay: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, err := net.DialTimeout("tcp", endpoint, cfg.dialTimeout)
	if err != nil {
		return nil, wrapError(KindConnection, err, "failed to connect to %s", endpoint)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(cfg.noDelay); err != nil {
			conn.Close()
			return nil, wrapError(KindConnection, err, "failed to configure connection to %s", endpoint)
		}
	}

	Logger.Debugf("connected to %s", endpoint)

	return &Client{
		endpoint: endpoint,
		conn:     conn,
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
		handles:  xsync.NewMapOf[int, boundIndex](),
	}, nil
}

// Endpoint returns the endpoint this client is connected to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close closes the channel. Operations issued afterwards fail with a
// KindConnection error. Handles die with the channel and are never reopened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Handle Lifecycle
// --------------------------------------------------------------------------

// OpenIndex binds handle to the table's named index, projecting columns in
// the given order. A handle must be opened exactly once per channel before
// use; rebinding an already-bound handle is a caller error. Server
// rejection (unknown table, index or column) and local rebinding both
// yield a KindHandleOpen error.
func (c *Client) OpenIndex(handle int, database, table, index string, columns []string) error {
	bound := boundIndex{database: database, table: table, index: index, columns: columns}
	if prev, loaded := c.handles.LoadOrStore(handle, bound); loaded {
		return newError(KindHandleOpen, "handle %d already bound to %s.%s", handle, prev.database, prev.table)
	}

	tokens := [][]byte{
		[]byte("P"),
		[]byte(strconv.Itoa(handle)),
		[]byte(database),
		[]byte(table),
		[]byte(index),
		[]byte(strings.Join(columns, ",")),
	}

	res, err := c.exchange([][][]byte{tokens})
	if err != nil {
		c.handles.Delete(handle)
		return err
	}
	if res[0].Err != nil || res[0].Status != 0 {
		c.handles.Delete(handle)
		msg := "open rejected by server"
		if res[0].Err != nil {
			msg = res[0].Err.Msg
		}
		return newError(KindHandleOpen, "open index %d on %s.%s: %s", handle, database, table, msg)
	}

	Logger.Debugf("opened index handle %d on %s.%s (%s) projecting %s",
		handle, database, table, index, strings.Join(columns, ","))
	return nil
}

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

// ExecuteSingle issues one operation against its bound handle and decodes
// the response. A soft miss (no row matched) is returned as a Result with
// Found() == false, not as an error; genuine server errors surface as
// KindProtocol errors carrying the server's error text.
func (c *Client) ExecuteSingle(op Op) (Result, error) {
	if err := c.checkHandle(op.Handle); err != nil {
		return Result{}, err
	}
	res, err := c.exchange([][][]byte{op.appendRequest(nil)})
	if err != nil {
		return Result{}, err
	}
	if res[0].Err != nil {
		return Result{}, res[0].Err
	}
	return res[0], nil
}

// ExecuteMulti submits ops as one atomic unit: all request lines go out in
// a single write, the server applies them sequentially under one lock
// acquisition, and one Result per op comes back in submission order.
// Per-operation failures are reported in Result.Err so callers can tell an
// expected miss in one step from a failure in another; only transport
// failures abort the whole batch.
//
// Partial application is possible and is not rolled back by this layer.
func (c *Client) ExecuteMulti(ops []Op) ([]Result, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	requests := make([][][]byte, len(ops))
	for i, op := range ops {
		if err := c.checkHandle(op.Handle); err != nil {
			return nil, err
		}
		requests[i] = op.appendRequest(nil)
	}
	return c.exchange(requests)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// checkHandle verifies the handle was opened on this channel.
func (c *Client) checkHandle(handle int) error {
	if _, ok := c.handles.Load(handle); !ok {
		return newError(KindProtocol, "handle %d not bound on this channel", handle)
	}
	return nil
}

// exchange writes all request lines in one flush and reads one response
// line per request. It holds the channel mutex for the whole round trip:
// the protocol has no request IDs, so responses are matched to requests
// purely by order.
func (c *Client) exchange(requests [][][]byte) ([]Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, newError(KindConnection, "channel to %s is closed", c.endpoint)
	}

	for _, tokens := range requests {
		if _, err := c.w.Write(EncodeLine(tokens)); err != nil {
			return nil, wrapError(KindConnection, err, "write to %s failed", c.endpoint)
		}
	}
	if err := c.w.Flush(); err != nil {
		return nil, wrapError(KindConnection, err, "write to %s failed", c.endpoint)
	}

	results := make([]Result, len(requests))
	for i := range requests {
		tokens, err := ReadLine(c.r)
		if err != nil {
			return nil, wrapError(KindConnection, err, "read from %s failed", c.endpoint)
		}
		res, err := decodeResult(tokens)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}
