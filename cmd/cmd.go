// Package cmd implements the wasmserve command line interface.
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wasmserve/wasmserve/lib/exitcode"
	"github.com/wasmserve/wasmserve/lib/log"
)

// Version of wasmserve
const Version = "v0.2.0"

// Root is the main wasmserve command
var Root = &cobra.Command{
	Use:   "wasmserve",
	Short: "Serve a directory over HTTP for browser-based WebAssembly testing.",
	Long: `Wasmserve is a small web server for testing WebAssembly modules in a
browser. It serves a local directory as static files, marks every
response with the cross-origin isolation headers that SharedArrayBuffer
and friends require, and always serves .wasm files with the
application/wasm content type so streaming instantiation works.

See "wasmserve serve --help" for the server options.
`,
	PersistentPreRunE: func(command *cobra.Command, args []string) error {
		return log.InitLogging()
	},
}

var version bool

func init() {
	Root.Run = runRoot
	Root.Flags().BoolVarP(&version, "version", "V", false, "Print the version number")
	log.AddFlags(Root.PersistentFlags())
}

// runRoot implements the main wasmserve command with no subcommands
func runRoot(command *cobra.Command, args []string) {
	if version {
		ShowVersion()
		os.Exit(exitcode.Success)
	}
	_ = command.Usage()
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Command not found %q\n", args[0])
	}
	os.Exit(exitcode.UsageError)
}

// ShowVersion prints the version to stdout
func ShowVersion() {
	fmt.Printf("wasmserve %s\n", Version)
	fmt.Printf("- os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("- go/version: %s\n", runtime.Version())
}

// CheckArgs checks there are enough arguments and prints a message if not
func CheckArgs(minArgs, maxArgs int, cmd *cobra.Command, args []string) {
	if len(args) < minArgs {
		_ = cmd.Usage()
		fmt.Fprintf(os.Stderr, "Command %s needs %d arguments minimum: you provided %d non flag arguments: %q\n", cmd.Name(), minArgs, len(args), args)
		os.Exit(exitcode.UsageError)
	} else if len(args) > maxArgs {
		_ = cmd.Usage()
		fmt.Fprintf(os.Stderr, "Command %s needs %d arguments maximum: you provided %d non flag arguments: %q\n", cmd.Name(), maxArgs, len(args), args)
		os.Exit(exitcode.UsageError)
	}
}

// Main runs wasmserve, exiting with a non-zero status on error
func Main() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(exitcode.FatalError)
	}
}
