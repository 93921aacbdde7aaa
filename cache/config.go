package cache

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Driver Configuration
// --------------------------------------------------------------------------

// Defaults applied by New for zero-valued fields.
const (
	DefaultHost         = "localhost"
	DefaultReadPort     = 9998
	DefaultWritePort    = 9999
	DefaultReadIndexID  = 1
	DefaultWriteIndexID = 1
	DefaultTablePrefix  = "chi_"
)

// Config holds all construction-time parameters of a Driver. It is
// resolved once in New; changing it afterwards has no effect.
type Config struct {
	// Host of the indexed-access endpoint.
	Host string
	// ReadPort and WritePort are the ports of the read-only and
	// write-capable endpoints.
	ReadPort  int
	WritePort int

	// ReadIndexID and WriteIndexID are the caller-assigned handle IDs
	// opened on the read and write channels. They must not collide with
	// other handles the caller manages on the same channel; use an
	// hs.HandleAllocator when several owners share a channel.
	ReadIndexID  int
	WriteIndexID int

	// TablePrefix is prepended to Namespace to form the table name.
	// The zero value selects DefaultTablePrefix; set NoPrefix to use the
	// namespace as the literal table name.
	TablePrefix string
	// Namespace names the cache namespace. Required.
	Namespace string

	// Database is the schema the table lives in. When empty it is
	// resolved at bootstrap via SELECT DATABASE() through the relational
	// collaborator.
	Database string
}

// NoPrefix selects an empty table prefix, making the namespace the
// literal table name (the zero value of TablePrefix means "use default").
const NoPrefix = "\x00"

// withDefaults returns a copy of c with defaults applied.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.ReadPort == 0 {
		c.ReadPort = DefaultReadPort
	}
	if c.WritePort == 0 {
		c.WritePort = DefaultWritePort
	}
	if c.ReadIndexID == 0 {
		c.ReadIndexID = DefaultReadIndexID
	}
	if c.WriteIndexID == 0 {
		c.WriteIndexID = DefaultWriteIndexID
	}
	switch c.TablePrefix {
	case "":
		c.TablePrefix = DefaultTablePrefix
	case NoPrefix:
		c.TablePrefix = ""
	}
	return c
}

// validate checks the resolved configuration.
func (c Config) validate() error {
	if c.Namespace == "" {
		return NewError(RetCSchemaError, "namespace is required")
	}
	return nil
}

// Table returns the table name the driver operates on.
func (c Config) Table() string {
	return c.TablePrefix + c.Namespace
}

// readEndpoint returns the host:port of the read channel.
func (c Config) readEndpoint() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ReadPort))
}

// writeEndpoint returns the host:port of the write channel.
func (c Config) writeEndpoint() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.WritePort))
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Indexed Access")
	addField("Read Endpoint", c.readEndpoint())
	addField("Write Endpoint", c.writeEndpoint())
	addField("Read Handle", strconv.Itoa(c.ReadIndexID))
	addField("Write Handle", strconv.Itoa(c.WriteIndexID))

	addSection("Table")
	addField("Namespace", c.Namespace)
	addField("Table Name", c.Table())
	if c.Database != "" {
		addField("Database", c.Database)
	} else {
		addField("Database", "(resolved at bootstrap)")
	}

	return sb.String()
}
