package util

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/hscache-io/hscache/cache"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/go-sql-driver/mysql"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupDriverFlags adds the common driver flags to a command
func SetupDriverFlags(cmd *cobra.Command) {
	key := "host"
	cmd.PersistentFlags().String(key, cache.DefaultHost, WrapString("Host of the indexed-access endpoint"))

	key = "read-port"
	cmd.PersistentFlags().Int(key, cache.DefaultReadPort, WrapString("Port of the read-only endpoint"))

	key = "write-port"
	cmd.PersistentFlags().Int(key, cache.DefaultWritePort, WrapString("Port of the write-capable endpoint"))

	key = "read-index-id"
	cmd.PersistentFlags().Int(key, cache.DefaultReadIndexID, WrapString("Handle ID to open on the read channel"))

	key = "write-index-id"
	cmd.PersistentFlags().Int(key, cache.DefaultWriteIndexID, WrapString("Handle ID to open on the write channel"))

	key = "table-prefix"
	cmd.PersistentFlags().String(key, cache.DefaultTablePrefix, WrapString("Prefix combined with the namespace to form the table name. Pass an empty string to use the namespace as the literal table name"))

	key = "namespace"
	cmd.PersistentFlags().String(key, "", WrapString("Cache namespace (required)"))

	key = "database"
	cmd.PersistentFlags().String(key, "", WrapString("Schema the cache table lives in. When empty it is resolved via SELECT DATABASE() on the relational connection"))

	key = "dsn"
	cmd.PersistentFlags().String(key, "", WrapString("MySQL DSN of the relational connection used for bootstrap and bulk operations (e.g. user:pass@tcp(localhost:3306)/db)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hscache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetDriverConfig reads the driver configuration from viper
func GetDriverConfig() cache.Config {
	prefix := viper.GetString("table-prefix")
	if prefix == "" {
		prefix = cache.NoPrefix
	}
	return cache.Config{
		Host:         viper.GetString("host"),
		ReadPort:     viper.GetInt("read-port"),
		WritePort:    viper.GetInt("write-port"),
		ReadIndexID:  viper.GetInt("read-index-id"),
		WriteIndexID: viper.GetInt("write-index-id"),
		TablePrefix:  prefix,
		Namespace:    viper.GetString("namespace"),
		Database:     viper.GetString("database"),
	}
}

// GetConnSource builds the relational connection source from the
// configured DSN. The source opens the handle lazily and re-opens it when
// the previous one stops responding, so long-running commands tolerate
// connections that expire between calls.
func GetConnSource() (cache.ConnSource, error) {
	dsn := viper.GetString("dsn")
	if dsn == "" {
		return nil, fmt.Errorf("a relational DSN is required (--dsn or HSCACHE_DSN)")
	}

	var mu sync.Mutex
	var db *sql.DB
	return func() (*sql.DB, error) {
		mu.Lock()
		defer mu.Unlock()

		if db != nil {
			if err := db.Ping(); err == nil {
				return db, nil
			}
			_ = db.Close()
			db = nil
		}

		fresh, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, err
		}
		if err := fresh.Ping(); err != nil {
			_ = fresh.Close()
			return nil, err
		}
		db = fresh
		return db, nil
	}, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
