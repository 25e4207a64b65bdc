// Package wasm validates WebAssembly binaries before they are served.
//
// A test server that silently hands the browser a truncated or corrupt
// module wastes debugging time on the wrong side of the wire, so the
// serve --check flag and the check command compile every .wasm file
// found under the root and report the ones that do not load.
package wasm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}

// ErrNotWasm is returned when a file does not start with the wasm magic.
var ErrNotWasm = errors.New("not a WebAssembly binary")

// IsComponent reports whether the binary is a component-model binary
// rather than a core module. Core modules encode version 1 in the
// version word; components use the upper half as a layer field.
func IsComponent(b []byte) bool {
	if len(b) < 8 || !bytes.Equal(b[:4], magic) {
		return false
	}
	return binary.LittleEndian.Uint32(b[4:8]) > 1
}

// Validate checks that the file at path holds a loadable WebAssembly
// binary. Core modules are compiled with wazero; component-model
// binaries are accepted on the header alone since they cannot be
// compiled as core modules.
func Validate(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) < 8 || !bytes.Equal(b[:4], magic) {
		return ErrNotWasm
	}
	if IsComponent(b) {
		return nil
	}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer func() {
		_ = r.Close(ctx)
	}()

	if _, err := r.CompileModule(ctx, b); err != nil {
		return fmt.Errorf("compile module: %w", err)
	}
	return nil
}

// Result is the outcome of validating one file.
type Result struct {
	Path string // path relative to the scanned root
	Err  error  // nil if the module is valid
}

// Scan validates every .wasm file under root and returns one Result per
// file found.
func Scan(ctx context.Context, root string) ([]Result, error) {
	var results []Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wasm") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		results = append(results, Result{
			Path: rel,
			Err:  Validate(ctx, path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", root, err)
	}
	return results, nil
}
