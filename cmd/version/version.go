// Package version provides the version command.
package version

import (
	"github.com/spf13/cobra"

	"github.com/wasmserve/wasmserve/cmd"
)

func init() {
	cmd.Root.AddCommand(Command)
}

// Command definition for cobra
var Command = &cobra.Command{
	Use:   "version",
	Short: `Show the version number.`,
	Long: `Show the wasmserve version number, the go version and the build
target OS and architecture.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 0, command, args)
		cmd.ShowVersion()
	},
}
