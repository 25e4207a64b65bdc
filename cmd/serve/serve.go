// Package serve implements the serve command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"github.com/wasmserve/wasmserve/cmd"
	libhttp "github.com/wasmserve/wasmserve/lib/http"
	"github.com/wasmserve/wasmserve/lib/http/serve"
	"github.com/wasmserve/wasmserve/lib/wasm"
)

// Default listen addresses for the two profiles
const (
	isolatedAddr   = ":8000"
	permissiveAddr = ":8080"
)

// isolationHeaders enable cross-origin isolation in the browser, which
// SharedArrayBuffer and high resolution timers require. Both profiles
// send them on every response.
var isolationHeaders = []libhttp.Header{
	{Name: "Cross-Origin-Opener-Policy", Value: "same-origin"},
	{Name: "Cross-Origin-Embedder-Policy", Value: "require-corp"},
}

// corsHeaders additionally allow any origin to fetch the served files
var corsHeaders = []libhttp.Header{
	{Name: "Access-Control-Allow-Origin", Value: "*"},
	{Name: "Access-Control-Allow-Methods", Value: "GET, POST, OPTIONS"},
	{Name: "Access-Control-Allow-Headers", Value: "*"},
}

// Command line flags
var (
	profileName   = "isolated"
	extraHeaders  []string
	mimeOverrides []string
	openBrowser   = false
	checkWasm     = false
	metricsOn     = false
	httpCfg       = libhttp.DefaultCfg()
)

func init() {
	cmd.Root.AddCommand(Command)
	flagSet := Command.Flags()
	httpCfg.AddFlags(flagSet)
	flagSet.StringVarP(&profileName, "profile", "", profileName, "Header profile to serve with: isolated|permissive")
	flagSet.StringArrayVarP(&extraHeaders, "header", "", nil, `Add a response header ("Name: Value", repeatable)`)
	flagSet.StringArrayVarP(&mimeOverrides, "mime", "", nil, `Add a content type override ("ext=type", repeatable)`)
	flagSet.BoolVarP(&openBrowser, "open", "", openBrowser, "Open the served URL in the default browser")
	flagSet.BoolVarP(&checkWasm, "check", "", checkWasm, "Validate wasm modules under the root before serving")
	flagSet.BoolVarP(&metricsOn, "metrics", "", metricsOn, "Serve Prometheus metrics on /metrics")
}

// profileHeaders returns the unconditional header set for the named profile
func profileHeaders(name string) ([]libhttp.Header, error) {
	switch name {
	case "isolated":
		return isolationHeaders, nil
	case "permissive":
		return append(append([]libhttp.Header{}, corsHeaders...), isolationHeaders...), nil
	}
	return nil, fmt.Errorf("unknown profile %q: use isolated or permissive", name)
}

// parseHeader parses a "Name: Value" flag argument
func parseHeader(s string) (libhttp.Header, error) {
	name, value, found := strings.Cut(s, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !found || name == "" {
		return libhttp.Header{}, fmt.Errorf("invalid header %q: need \"Name: Value\"", s)
	}
	return libhttp.Header{Name: name, Value: value}, nil
}

// buildHeaders assembles the profile headers followed by the --header
// flags in the order given
func buildHeaders() ([]libhttp.Header, error) {
	headers, err := profileHeaders(profileName)
	if err != nil {
		return nil, err
	}
	for _, s := range extraHeaders {
		header, err := parseHeader(s)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}
	return headers, nil
}

// buildContentTypes assembles the content type policy from the --mime flags
func buildContentTypes() (*serve.ContentTypes, error) {
	extra := map[string]string{}
	for _, s := range mimeOverrides {
		ext, value, err := serve.ParseOverride(s)
		if err != nil {
			return nil, err
		}
		extra[ext] = value
	}
	return serve.NewContentTypes(extra), nil
}

// checkModules validates the wasm modules under root, logging a warning
// for each one that does not load. Failures do not stop the server.
func checkModules(ctx context.Context, root string) {
	results, err := wasm.Scan(ctx, root)
	if err != nil {
		logrus.Errorf("wasm check: %v", err)
		return
	}
	bad := 0
	for _, result := range results {
		if result.Err != nil {
			bad++
			logrus.Warnf("wasm check: %s: %v", result.Path, result.Err)
		}
	}
	logrus.Infof("wasm check: %d modules, %d invalid", len(results), bad)
}

// Command definition for cobra
var Command = &cobra.Command{
	Use:   "serve [dir]",
	Short: `Serve a directory over HTTP for WebAssembly testing.`,
	Long: `wasmserve serve runs a web server on the given directory (default ".")
until interrupted. Every response carries the cross-origin isolation
headers

    Cross-Origin-Opener-Policy: same-origin
    Cross-Origin-Embedder-Policy: require-corp

and files ending in .wasm are served as application/wasm regardless of
what the extension table says.

Two header profiles are available with --profile. The default
"isolated" profile sends only the isolation headers and listens on
:8000. The "permissive" profile additionally allows any origin
(Access-Control-Allow-Origin: *), answers OPTIONS preflight requests
with 204, and listens on :8080 unless --addr is given.

Use --header to append further response headers after the profile's
own, in the order given; repeated names are sent as separate lines.
Use --mime to add content type overrides, eg --mime map=application/json.

A request for a directory serves its index.html if present and answers
404 otherwise; no directory listing is generated.
`,
	RunE: func(command *cobra.Command, args []string) error {
		cmd.CheckArgs(0, 1, command, args)
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		headers, err := buildHeaders()
		if err != nil {
			return err
		}
		if profileName == "permissive" && !command.Flags().Changed("addr") {
			httpCfg.ListenAddr = []string{permissiveAddr}
		}
		types, err := buildContentTypes()
		if err != nil {
			return err
		}
		handler, err := serve.NewHandler(root, types)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if checkWasm {
			checkModules(ctx, handler.Root())
		}

		options := []libhttp.Option{
			libhttp.WithConfig(httpCfg),
			libhttp.WithHeaders(headers),
		}
		if metricsOn {
			options = append(options, libhttp.WithMetrics(libhttp.NewMetrics("wasmserve")))
		}
		s, err := libhttp.NewServer(ctx, options...)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		s.Router().Handle("/*", handler)

		s.Serve()
		for _, url := range s.URLs() {
			logrus.Infof("Serving %s on %s", handler.Root(), url)
		}
		if openBrowser {
			if err := open.Start(s.URLs()[0]); err != nil {
				logrus.Errorf("Failed to open browser: %v", err)
			}
		}

		// Run until interrupted, then drain in-flight responses
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()
		logrus.Infof("Signal received, shutting down")
		return s.Shutdown()
	},
}
