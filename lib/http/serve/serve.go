// Package serve deals with serving files from a root directory over HTTP.
package serve

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Handler serves files from a root directory.
//
// The root is resolved to an absolute path when the Handler is created so
// serving does not depend on the process working directory. Requests that
// resolve outside the root are never served.
type Handler struct {
	root  string // absolute path of the directory being served
	types *ContentTypes
}

// NewHandler creates a Handler serving from root with the given content
// type policy.
func NewHandler(root string, types *ContentTypes) (*Handler, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory %q: %w", root, err)
	}
	fi, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to find root directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}
	if types == nil {
		types = NewContentTypes(nil)
	}
	return &Handler{
		root:  absRoot,
		types: types,
	}, nil
}

// Root returns the absolute path of the directory being served.
func (h *Handler) Root() string {
	return h.root
}

// Error returns an http.StatusInternalServerError and logs the error
func Error(what interface{}, w http.ResponseWriter, text string, err error) {
	logrus.Errorf("%v: %s: %v", what, text, err)
	http.Error(w, text+".", http.StatusInternalServerError)
}

// resolve maps a decoded URL path to a file path under the root. It
// returns an empty string if the path cannot name a file under the root.
func (h *Handler) resolve(urlPath string) string {
	cleaned := path.Clean("/" + urlPath)
	filePath := filepath.Join(h.root, filepath.FromSlash(cleaned))
	// Clean on a rooted path removes any "..", but check the invariant
	// anyway rather than trust it.
	if filePath != h.root && !strings.HasPrefix(filePath, h.root+string(filepath.Separator)) {
		return ""
	}
	return filePath
}

// ServeHTTP reads incoming requests and serves files under the root
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	urlPath := r.URL.Path
	if strings.ContainsRune(urlPath, 0) {
		logrus.Infof("%s: %q: Bad request path", r.RemoteAddr, urlPath)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	filePath := h.resolve(urlPath)
	if filePath == "" {
		logrus.Infof("%s: %q: Path outside root", r.RemoteAddr, urlPath)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	fi, err := os.Stat(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("%s: %q: File not found", r.RemoteAddr, urlPath)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	} else if err != nil {
		Error(urlPath, w, "Failed to find file", err)
		return
	}

	if fi.IsDir() {
		h.serveDir(w, r, filePath)
		return
	}
	h.serveFile(w, r, filePath, fi)
}

// serveDir applies the default document policy to a directory: serve
// index.html if present, else 404. Directory listings are not generated.
func (h *Handler) serveDir(w http.ResponseWriter, r *http.Request, dirPath string) {
	indexPath := filepath.Join(dirPath, "index.html")
	fi, err := os.Stat(indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("%s: %q: Directory has no index.html", r.RemoteAddr, r.URL.Path)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	} else if err != nil {
		Error(r.URL.Path, w, "Failed to find index.html", err)
		return
	}
	if !strings.HasSuffix(r.URL.Path, "/") {
		// Redirect so relative links in the index resolve correctly
		http.Redirect(w, r, path.Clean(r.URL.Path)+"/", http.StatusMovedPermanently)
		return
	}
	h.serveFile(w, r, indexPath, fi)
}

// serveFile serves a single file with the configured content type policy
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, filePath string, fi os.FileInfo) {
	if !fi.Mode().IsRegular() {
		logrus.Infof("%s: %q: Not a file", r.RemoteAddr, r.URL.Path)
		http.Error(w, "Not a file", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", h.types.Lookup(filePath))

	in, err := os.Open(filePath)
	if err != nil {
		Error(r.URL.Path, w, "Failed to open file", err)
		return
	}
	defer func() {
		if err := in.Close(); err != nil {
			logrus.Errorf("%s: Failed to close file: %v", filePath, err)
		}
	}()

	// ServeContent sets Content-Length and handles HEAD
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), in)
}
