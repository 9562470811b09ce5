// Command studyctl runs operational tasks against the marketplace database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studyctl",
	Short: "Operational tooling for the study abroad API",
	Long: `studyctl runs maintenance tasks outside the HTTP server.

Available commands:
  translate    - Translate every active program into the configured locales
  create-admin - Create a super admin account`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
