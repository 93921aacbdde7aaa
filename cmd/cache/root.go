package cache

import (
	"github.com/hscache-io/hscache/cache"
	"github.com/hscache-io/hscache/cmd/util"
	"github.com/spf13/cobra"
)

var (
	driver *cache.Driver

	// CacheCommands represents the cache command group
	CacheCommands = &cobra.Command{
		Use:                "cache",
		Short:              "Perform cache operations against the indexed-access endpoint",
		PersistentPreRunE:  setupDriver,
		PersistentPostRunE: teardownDriver,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common driver flags to the cache command
	util.SetupDriverFlags(CacheCommands)

	// Add subcommands
	CacheCommands.AddCommand(getCmd)
	CacheCommands.AddCommand(setCmd)
	CacheCommands.AddCommand(delCmd)
	CacheCommands.AddCommand(clearCmd)
	CacheCommands.AddCommand(keysCmd)
	CacheCommands.AddCommand(namespacesCmd)
}

// setupDriver bootstraps the cache driver
func setupDriver(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Build the relational connection source
	conns, err := util.GetConnSource()
	if err != nil {
		return err
	}

	// Bootstrap the driver (creates the table and opens both handles)
	driver, err = cache.New(util.GetDriverConfig(), conns)
	return err
}

// teardownDriver closes the driver's channels
func teardownDriver(_ *cobra.Command, _ []string) error {
	if driver == nil {
		return nil
	}
	return driver.Close()
}
