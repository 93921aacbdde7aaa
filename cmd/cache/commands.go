package cache

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Fetch the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := driver.Fetch(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(miss)")
				return nil
			}
			_, err = os.Stdout.Write(append(value, '\n'))
			return err
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Store the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := driver.Store(args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("stored successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Remove the entry for a key (no error if absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := driver.Remove(args[0]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := driver.Clear(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "List the distinct keys of the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := driver.Keys()
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	namespacesCmd = &cobra.Command{
		Use:   "namespaces",
		Short: "List cache namespaces (unsupported by this driver)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := driver.Namespaces()
			return err
		},
	}
)
