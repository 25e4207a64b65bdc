package serve

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// defaultContentType is used when nothing better can be determined
const defaultContentType = "application/octet-stream"

// DefaultOverrides is the content type override table every server starts
// with. Overrides win over the standard extension table.
var DefaultOverrides = map[string]string{
	".wasm": "application/wasm",
}

// ContentTypes decides the Content-Type for served files.
//
// Lookup order: override table (case-insensitive extension), standard
// extension table, content sniffing, then application/octet-stream.
type ContentTypes struct {
	overrides map[string]string // lowercased extension -> content type
}

// NewContentTypes makes a ContentTypes with the default overrides plus
// any extra ones. The .wasm entry cannot be replaced.
func NewContentTypes(extra map[string]string) *ContentTypes {
	ct := &ContentTypes{
		overrides: map[string]string{},
	}
	for ext, value := range extra {
		ct.overrides[strings.ToLower(ext)] = value
	}
	for ext, value := range DefaultOverrides {
		ct.overrides[ext] = value
	}
	return ct
}

// ParseOverride parses an "ext=type" override as given on the command line
func ParseOverride(s string) (ext, value string, err error) {
	ext, value, found := strings.Cut(s, "=")
	if !found || ext == "" || value == "" {
		return "", "", fmt.Errorf("invalid content type override %q: need ext=type", s)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext), value, nil
}

// Lookup returns the Content-Type to serve the file at path with
func (ct *ContentTypes) Lookup(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if value, ok := ct.overrides[ext]; ok {
		return value
	}
	if value := mime.TypeByExtension(ext); value != "" {
		return value
	}
	if detected, err := mimetype.DetectFile(path); err == nil {
		return detected.String()
	}
	return defaultContentType
}
