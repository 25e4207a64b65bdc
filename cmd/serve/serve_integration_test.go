package serve

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libhttp "github.com/wasmserve/wasmserve/lib/http"
	"github.com/wasmserve/wasmserve/lib/http/serve"
)

var minimalModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// startServer runs a server on a test tree the way the serve command
// wires it up, with the permissive profile.
func startServer(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo.html"), []byte("<html><body>demo</body></html>"), 0666))
	require.NoError(t, os.WriteFile(filepath.Join(root, "module.wasm"), minimalModule, 0666))

	headers, err := profileHeaders("permissive")
	require.NoError(t, err)
	handler, err := serve.NewHandler(root, serve.NewContentTypes(nil))
	require.NoError(t, err)

	cfg := libhttp.DefaultCfg()
	cfg.ListenAddr = []string{"127.0.0.1:0"}
	s, err := libhttp.NewServer(context.Background(),
		libhttp.WithConfig(cfg),
		libhttp.WithHeaders(headers),
	)
	require.NoError(t, err)
	s.Router().Handle("/*", handler)
	s.Serve()
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown())
	})

	urls := s.URLs()
	require.Len(t, urls, 1)
	return urls[0]
}

func TestServeDemoPage(t *testing.T) {
	url := startServer(t)

	resp, err := http.Get(url + "demo.html")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html><body>demo</body></html>", string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, "same-origin", resp.Header.Get("Cross-Origin-Opener-Policy"))
	assert.Equal(t, "require-corp", resp.Header.Get("Cross-Origin-Embedder-Policy"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServeModule(t *testing.T) {
	url := startServer(t)

	resp, err := http.Get(url + "module.wasm")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, minimalModule, body)
	assert.Equal(t, "application/wasm", resp.Header.Get("Content-Type"))
}

func TestServePreflight(t *testing.T) {
	url := startServer(t)

	req, err := http.NewRequest("OPTIONS", url+"anything", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "same-origin", resp.Header.Get("Cross-Origin-Opener-Policy"))
}
