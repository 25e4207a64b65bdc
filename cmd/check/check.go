// Package check implements the check command.
package check

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasmserve/wasmserve/cmd"
	"github.com/wasmserve/wasmserve/lib/exitcode"
	"github.com/wasmserve/wasmserve/lib/wasm"
)

func init() {
	cmd.Root.AddCommand(Command)
}

// Command definition for cobra
var Command = &cobra.Command{
	Use:   "check [dir]",
	Short: `Validate the WebAssembly modules under a directory.`,
	Long: `wasmserve check compiles every .wasm file found under the given
directory (default ".") and reports the ones that do not load.
Component-model binaries are recognized by their header and accepted
without compiling.

The exit status is 0 if all modules are valid and non-zero otherwise,
so the command can gate a build or CI step.
`,
	RunE: func(command *cobra.Command, args []string) error {
		cmd.CheckArgs(0, 1, command, args)
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		results, err := wasm.Scan(context.Background(), root)
		if err != nil {
			return err
		}
		bad := 0
		for _, result := range results {
			if result.Err != nil {
				bad++
				logrus.Errorf("%s: %v", result.Path, result.Err)
				continue
			}
			logrus.Debugf("%s: OK", result.Path)
		}
		fmt.Printf("%d modules checked, %d invalid\n", len(results), bad)
		if bad > 0 {
			os.Exit(exitcode.CheckFailed)
		}
		return nil
	},
}
