package cache

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/hscache-io/hscache/hs"
	"github.com/hscache-io/hscache/lib/logging"
)

var Logger = logging.GetLogger("cache")

// --------------------------------------------------------------------------
// Driver Lifecycle
// --------------------------------------------------------------------------

// Driver states. Bootstrapping runs exactly once inside New; a driver that
// fails bootstrap never reaches stateReady.
const (
	stateUninitialized int32 = iota
	stateBootstrapping
	stateReady
	stateClosed
)

// Driver maps the cache verbs onto the indexed-access protocol. It owns
// two long-lived channels: the read channel's handle projects only the
// value column, the write channel's handle projects key and value.
//
// Each channel carries one operation at a time (serialized by its client);
// cross-verb atomicity is only what the server's batch lock provides.
type Driver struct {
	cfg   Config
	conns ConnSource
	table string

	read  *hs.Client
	write *hs.Client

	state atomic.Int32
}

// New bootstraps a driver: it resolves the schema name, creates the table
// idempotently, and opens the read and write handles on their channels.
// Any failure is fatal - partially opened channels are closed and the
// error is returned immediately (connection and handle-open failures keep
// their *hs.Error kind, relational failures surface as RetCSchemaError).
func New(cfg Config, conns ConnSource) (*Driver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if conns == nil {
		return nil, NewError(RetCSchemaError, "a relational connection source is required")
	}

	d := &Driver{
		cfg:   cfg,
		conns: conns,
		table: cfg.Table(),
	}
	d.state.Store(stateBootstrapping)

	if err := d.bootstrapSchema(); err != nil {
		return nil, err
	}
	if err := d.openChannels(); err != nil {
		return nil, err
	}

	d.state.Store(stateReady)
	Logger.Infof("driver ready: table %s, read %s handle %d, write %s handle %d",
		d.table, d.cfg.readEndpoint(), d.cfg.ReadIndexID, d.cfg.writeEndpoint(), d.cfg.WriteIndexID)
	return d, nil
}

// bootstrapSchema resolves the schema name and creates the table.
func (d *Driver) bootstrapSchema() error {
	db, err := d.conns()
	if err != nil {
		return wrapError(RetCSchemaError, err, "failed to acquire relational connection")
	}

	if d.cfg.Database == "" {
		var name sql.NullString
		if err := db.QueryRow("SELECT DATABASE()").Scan(&name); err != nil {
			return wrapError(RetCSchemaError, err, "failed to resolve schema name")
		}
		if !name.Valid || name.String == "" {
			return NewError(RetCSchemaError, "no schema selected on the relational connection")
		}
		d.cfg.Database = name.String
	}

	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` (`key` VARCHAR(600), `value` TEXT, PRIMARY KEY(`key`))",
		d.table)
	if _, err := db.Exec(ddl); err != nil {
		return wrapError(RetCSchemaError, err, "failed to create table %s", d.table)
	}
	return nil
}

// openChannels dials both channels and opens their handles. The read
// handle projects value only; the write handle projects key and value
// because delete+insert batches must supply the key.
func (d *Driver) openChannels() error {
	read, err := hs.Dial(d.cfg.readEndpoint())
	if err != nil {
		return err
	}
	if err := read.OpenIndex(d.cfg.ReadIndexID, d.cfg.Database, d.table, "PRIMARY", []string{"value"}); err != nil {
		read.Close()
		return err
	}

	write, err := hs.Dial(d.cfg.writeEndpoint())
	if err != nil {
		read.Close()
		return err
	}
	if err := write.OpenIndex(d.cfg.WriteIndexID, d.cfg.Database, d.table, "PRIMARY", []string{"key", "value"}); err != nil {
		read.Close()
		write.Close()
		return err
	}

	d.read = read
	d.write = write
	return nil
}

// Table returns the table name the driver operates on.
func (d *Driver) Table() string {
	return d.table
}

// Close closes both channels. Verbs issued afterwards fail with
// RetCClosed. Closing twice is a no-op.
func (d *Driver) Close() error {
	if !d.state.CompareAndSwap(stateReady, stateClosed) {
		return nil
	}
	readErr := d.read.Close()
	writeErr := d.write.Close()
	if readErr != nil {
		return readErr
	}
	return writeErr
}

// requireReady guards every verb.
func (d *Driver) requireReady() error {
	if d.state.Load() != stateReady {
		return NewError(RetCClosed, "driver is not ready")
	}
	return nil
}

// --------------------------------------------------------------------------
// Cache Verbs
// --------------------------------------------------------------------------

// Fetch returns the value stored under key. A miss is a normal outcome:
// found reports false and err is nil. Errors are transport or protocol
// failures only.
func (d *Driver) Fetch(key string) (value []byte, found bool, err error) {
	if err := d.requireReady(); err != nil {
		return nil, false, err
	}
	res, err := d.read.ExecuteSingle(hs.Op{
		Handle:   d.cfg.ReadIndexID,
		Operator: hs.OpEqual,
		Key:      [][]byte{[]byte(key)},
		Limit:    1,
	})
	if err != nil {
		verbFailures.Inc()
		return nil, false, wrapError(RetCProtocolError, err, "fetch %q", key)
	}
	// Some endpoints report a find miss as status 0 with no row tokens
	// rather than a non-zero status; both shapes are a miss here.
	if !res.Found() || len(res.Rows) == 0 {
		fetchMisses.Inc()
		return nil, false, nil
	}
	fetchHits.Inc()
	// Exactly one row by the primary-key uniqueness invariant, projecting
	// the value column only.
	return res.Rows[0][0], true, nil
}

// Store writes value under key, replacing any previous entry. It executes
// an atomic two-step batch on the write channel: delete the key (a miss
// there is expected and tolerated), then insert the new row. Deleting
// first guarantees the insert never conflicts on the unique key and the
// row ends up with exactly the new value.
//
// If the insert step fails after the delete was applied, the entry is
// left absent and the returned error carries RetCPartialStore; this layer
// performs no rollback. Callers may retry the insert path by calling
// Store again.
func (d *Driver) Store(key string, value []byte) error {
	if err := d.requireReady(); err != nil {
		return err
	}
	keyTok := []byte(key)
	results, err := d.write.ExecuteMulti([]hs.Op{
		{
			Handle:   d.cfg.WriteIndexID,
			Operator: hs.OpEqual,
			Key:      [][]byte{keyTok},
			Limit:    1,
			Mod:      &hs.Mod{Action: hs.ModDelete},
		},
		{
			Handle:   d.cfg.WriteIndexID,
			Operator: hs.OpInsert,
			Key:      [][]byte{keyTok, value},
		},
	})
	if err != nil {
		verbFailures.Inc()
		return wrapError(RetCProtocolError, err, "store %q", key)
	}
	if delRes := results[0]; delRes.Err != nil {
		verbFailures.Inc()
		return wrapError(RetCProtocolError, delRes.Err, "store %q: delete step", key)
	}
	if insRes := results[1]; !insRes.Found() {
		verbFailures.Inc()
		cause := error(insRes.Err)
		if insRes.Err == nil {
			cause = fmt.Errorf("insert rejected with status %d", insRes.Status)
		}
		return wrapError(RetCPartialStore, cause, "store %q: entry deleted but insert failed", key)
	}
	storeOps.Inc()
	return nil
}

// Remove deletes the entry under key. Removing an absent key is not an
// error (idempotent).
func (d *Driver) Remove(key string) error {
	if err := d.requireReady(); err != nil {
		return err
	}
	_, err := d.write.ExecuteSingle(hs.Op{
		Handle:   d.cfg.WriteIndexID,
		Operator: hs.OpEqual,
		Key:      [][]byte{[]byte(key)},
		Limit:    1,
		Mod:      &hs.Mod{Action: hs.ModDelete},
	})
	if err != nil {
		verbFailures.Inc()
		return wrapError(RetCProtocolError, err, "remove %q", key)
	}
	removeOps.Inc()
	return nil
}

// Clear deletes every entry in the namespace through the relational
// collaborator; the indexed protocol has no bulk-delete verb. Fully
// synchronous - no partial-completion signal beyond the statement's
// success or failure.
func (d *Driver) Clear() error {
	if err := d.requireReady(); err != nil {
		return err
	}
	db, err := d.conns()
	if err != nil {
		return wrapError(RetCSchemaError, err, "failed to acquire relational connection")
	}
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM `%s`", d.table)); err != nil {
		verbFailures.Inc()
		return wrapError(RetCSchemaError, err, "failed to clear table %s", d.table)
	}
	clearOps.Inc()
	return nil
}

// Keys returns the distinct keys of the namespace as one materialized
// slice, via the relational collaborator (the driver uses no scan verb on
// the indexed protocol).
func (d *Driver) Keys() ([]string, error) {
	if err := d.requireReady(); err != nil {
		return nil, err
	}
	db, err := d.conns()
	if err != nil {
		return nil, wrapError(RetCSchemaError, err, "failed to acquire relational connection")
	}
	rows, err := db.Query(fmt.Sprintf("SELECT DISTINCT `key` FROM `%s`", d.table))
	if err != nil {
		return nil, wrapError(RetCSchemaError, err, "failed to enumerate keys of %s", d.table)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, wrapError(RetCSchemaError, err, "failed to enumerate keys of %s", d.table)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(RetCSchemaError, err, "failed to enumerate keys of %s", d.table)
	}
	return keys, nil
}

// Namespaces is not supported: the driver knows its own namespace only.
func (d *Driver) Namespaces() ([]string, error) {
	return nil, NewError(RetCUnsupportedOperation, "namespace enumeration is not supported")
}
