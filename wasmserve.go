// Serve a local directory over HTTP for browser-based WebAssembly testing
package main

import (
	"github.com/wasmserve/wasmserve/cmd"

	// Register the subcommands
	_ "github.com/wasmserve/wasmserve/cmd/check"
	_ "github.com/wasmserve/wasmserve/cmd/serve"
	_ "github.com/wasmserve/wasmserve/cmd/version"
)

func main() {
	cmd.Main()
}
