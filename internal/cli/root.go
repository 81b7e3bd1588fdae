// Package cli provides the tatctl operator commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tatctl",
	Short: "Operate campus-support turn-around-time tooling",
	Long: `tatctl runs escalation sweeps against the configured database and
previews business-calendar deadlines.`,
	SilenceUsage: true,
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
