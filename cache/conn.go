package cache

import "database/sql"

// --------------------------------------------------------------------------
// Relational Collaborator Access
// --------------------------------------------------------------------------

// ConnSource is the call-each-time accessor for the relational
// collaborator. The driver invokes it on every bootstrap and bulk
// operation (Clear, Keys), never caching the returned handle, so sources
// whose connections expire and are regenerated between calls work without
// any driver-side coordination.
type ConnSource func() (*sql.DB, error)

// StaticConn adapts a raw database handle into a ConnSource that returns
// the same instance on every call.
func StaticConn(db *sql.DB) ConnSource {
	return func() (*sql.DB, error) {
		return db, nil
	}
}

// DBProvider is the shape of pooled-connection wrappers that expose their
// current handle through an accessor.
type DBProvider interface {
	DB() (*sql.DB, error)
}

// ProviderConn adapts a pooled-connection wrapper into a ConnSource by
// delegating to its accessor on every call.
func ProviderConn(p DBProvider) ConnSource {
	return p.DB
}
