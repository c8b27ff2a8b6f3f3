package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deletes all stored products.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		cleared, err := store.Clear(cmd.Context())
		if err != nil || !cleared {
			fmt.Fprintln(cmd.OutOrStdout(), "Failed to clear database.")
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database cleared successfully.")
		return nil
	},
}
