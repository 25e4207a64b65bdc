package serve

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	demoHTML      = "<html><body>demo page</body></html>"
	subIndexHTML  = "<html><body>sub index</body></html>"
	minimalModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	secretText    = "out of root secret"
)

// newTestHandler makes a Handler on a populated test tree. The returned
// root has a sibling file secret.txt which must never be served.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.Mkdir(root, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte(secretText), 0666))

	require.NoError(t, os.WriteFile(filepath.Join(root, "demo.html"), []byte(demoHTML), 0666))
	require.NoError(t, os.WriteFile(filepath.Join(root, "module.wasm"), minimalModule, 0666))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0777))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "index.html"), []byte(subIndexHTML), 0666))
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0777))

	h, err := NewHandler(root, nil)
	require.NoError(t, err)
	return h
}

func get(h *Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewHandler(t *testing.T) {
	_, err := NewHandler("/definitely/not/here", nil)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0666))
	_, err = NewHandler(file, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	h, err := NewHandler(".", nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(h.Root()))
}

func TestServeFile(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "GET", "/demo.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, demoHTML, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestServeWasm(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "GET", "/module.wasm")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, minimalModule, rec.Body.Bytes())
	assert.Equal(t, "application/wasm", rec.Header().Get("Content-Type"))
}

func TestHead(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "HEAD", "/demo.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "GET", "/missing.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	for _, method := range []string{"POST", "PUT", "DELETE", "OPTIONS"} {
		rec := get(h, method, "/demo.html")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}

func TestPathTraversal(t *testing.T) {
	h := newTestHandler(t)
	for _, target := range []string{
		"/../secret.txt",
		"/../../etc/passwd",
		"/sub/../../secret.txt",
		"/./../secret.txt",
	} {
		rec := get(h, "GET", target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.NotContains(t, rec.Body.String(), secretText, target)
	}
}

func TestBadPath(t *testing.T) {
	h := newTestHandler(t)
	rec := get(h, "GET", "/bad%00path")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDirIndex(t *testing.T) {
	h := newTestHandler(t)

	rec := get(h, "GET", "/sub/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, subIndexHTML, rec.Body.String())

	// No trailing slash redirects so relative links work
	rec = get(h, "GET", "/sub")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/sub/", rec.Header().Get("Location"))

	// Directory without an index.html is not listed
	rec = get(h, "GET", "/empty/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Root has no index.html either
	rec = get(h, "GET", "/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdempotent(t *testing.T) {
	h := newTestHandler(t)
	first := get(h, "GET", "/demo.html")
	second := get(h, "GET", "/demo.html")
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
