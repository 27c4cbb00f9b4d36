package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kosmproject/surfkit/surface/registry"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose      bool
	quiet        bool
	jsonOut      bool
	registryDir  string
	registryName string
)

var rootCmd = &cobra.Command{
	Use:   "surfctl",
	Short: "Inspect the shared surface registry",
	Long: `surfctl is a diagnostic tool for the machine-wide surface registry.
It attaches to the shared registry table read-only style (attach, never
create) and reports registered surfaces, their geometry and use counts.`,
	Version: "0.1.0",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&registryDir, "dir", "", "Registry directory (defaults to the system shared-memory dir)")
	rootCmd.PersistentFlags().
		StringVar(&registryName, "name", registry.DefaultName, "Registry file name")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRegistry attaches to the shared registry under the tool's own team
// identity. Attaching creates the table if it does not exist yet, which for
// a diagnostic tool just yields an empty listing.
func openRegistry() (*registry.Registry, error) {
	reg, err := registry.Open(registry.Config{
		Dir:  registryDir,
		Name: registryName,
		Team: int64(os.Getpid()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach registry: %w", err)
	}
	return reg, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
