package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Flush the registry mapping to its backing file",
		Long: `The sync command forces the shared registry's mapped pages out to the
backing file. Mostly useful before copying the file aside for offline
inspection; attached processes always see current state regardless.

Example:
  surfctl sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}
	return cmd
}

func runSync() error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Sync(); err != nil {
		return err
	}
	printInfo("Synced %s\n", reg.Path())
	return nil
}
