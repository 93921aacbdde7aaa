package cmd

import (
	"fmt"
	"os"

	cachecmd "github.com/hscache-io/hscache/cmd/cache"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hscache",
		Short: "relational-backed cache over the indexed-access protocol",
		Long: fmt.Sprintf(`hscache (v%s)

A key/value cache storage backend that keeps entries in a relational
table but serves point lookups, inserts and deletes through the storage
engine's indexed-access endpoint, bypassing SQL parsing on the hot path.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hscache",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hscache v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(cachecmd.CacheCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
