// Package http provides the serving core for wasmserve.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Middleware function signature required by chi.Router.Use()
type Middleware func(http.Handler) http.Handler

// Header is a single response header line. The same name may appear more
// than once; each occurrence is sent as a separate line.
type Header struct {
	Name  string
	Value string
}

// Config contains options for the http Server
type Config struct {
	ListenAddr         []string      // Addresses to listen on
	ServerReadTimeout  time.Duration // Timeout for server reading data
	ServerWriteTimeout time.Duration // Timeout for server writing data
	MaxHeaderBytes     int           // Maximum size of request header
}

// AddFlags adds flags for the Config
func (cfg *Config) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringArrayVarP(&cfg.ListenAddr, "addr", "", cfg.ListenAddr, "IPaddress:Port or :Port to bind server to")
	flagSet.DurationVarP(&cfg.ServerReadTimeout, "server-read-timeout", "", cfg.ServerReadTimeout, "Timeout for server reading data")
	flagSet.DurationVarP(&cfg.ServerWriteTimeout, "server-write-timeout", "", cfg.ServerWriteTimeout, "Timeout for server writing data")
	flagSet.IntVarP(&cfg.MaxHeaderBytes, "max-header-bytes", "", cfg.MaxHeaderBytes, "Maximum size of request header")
}

// DefaultCfg is the default values used for Config
func DefaultCfg() Config {
	return Config{
		ListenAddr:         []string{":8000"},
		ServerReadTimeout:  1 * time.Hour,
		ServerWriteTimeout: 1 * time.Hour,
		MaxHeaderBytes:     4096,
	}
}

type instance struct {
	url        string
	listener   net.Listener
	httpServer *http.Server
}

func (s instance) serve(wg *sync.WaitGroup) {
	defer wg.Done()
	err := s.httpServer.Serve(s.listener)
	if err != http.ErrServerClosed && err != nil {
		logrus.Errorf("%s: unexpected error: %s", s.listener.Addr(), err.Error())
	}
}

// Server contains info about the running http server
type Server struct {
	wg        sync.WaitGroup
	mux       chi.Router
	instances []instance
	cfg       Config
	headers   []Header
	metrics   *Metrics
}

// Option allows customizing the server
type Option func(*Server)

// WithConfig option applies the Config to the server, overriding defaults
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithHeaders option sets the headers added to every response, in order
func WithHeaders(headers []Header) Option {
	return func(s *Server) {
		s.headers = headers
	}
}

// WithMetrics option exposes the metrics on /metrics
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// For a given listener construct an instance. The url string ends up in
// the `url` field of the `instance`.
func newInstance(ctx context.Context, s *Server, listener net.Listener, url string) *instance {
	return &instance{
		url:      url,
		listener: listener,
		httpServer: &http.Server{
			Handler:           s.mux,
			ReadTimeout:       s.cfg.ServerReadTimeout,
			WriteTimeout:      s.cfg.ServerWriteTimeout,
			MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
			ReadHeaderTimeout: 10 * time.Second, // time to send the headers
			IdleTimeout:       60 * time.Second, // time to keep idle connections open
			BaseContext:       func(net.Listener) context.Context { return ctx },
		},
	}
}

// NewServer instantiates a new http server using provided listeners and options
//
// It binds all the configured listen addresses; a bind failure is returned
// to the caller and is expected to be fatal.
func NewServer(ctx context.Context, options ...Option) (*Server, error) {
	s := &Server{
		mux: chi.NewRouter(),
		cfg: DefaultCfg(),
	}

	for _, opt := range options {
		opt(s)
	}

	// Build base router
	s.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	s.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	s.mux.Use(MiddlewareHeaders(s.headers))
	if HasCORS(s.headers) {
		s.mux.Use(MiddlewarePreflight())
	}
	s.mux.Use(MiddlewareLog(s.metrics))

	if s.metrics != nil {
		s.mux.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Process all listeners specified in the config
	for _, addr := range s.cfg.ListenAddr {
		addr = strings.TrimPrefix(addr, "http://")
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %q: %w", addr, err)
		}
		s.instances = append(s.instances, *newInstance(ctx, s, listener, fmt.Sprintf("http://%s/", listener.Addr().String())))
	}

	return s, nil
}

// Serve starts the HTTP server on each listener
func (s *Server) Serve() {
	s.wg.Add(len(s.instances))
	for _, ii := range s.instances {
		go ii.serve(&s.wg)
	}
}

// Wait blocks while the server is serving requests
func (s *Server) Wait() {
	s.wg.Wait()
}

// Router returns the server base router
func (s *Server) Router() chi.Router {
	return s.mux
}

// Time to wait to Shutdown an HTTP server
const gracefulShutdownTime = 10 * time.Second

// Shutdown stops accepting new connections and gracefully shuts down the
// server, letting in-flight responses finish within the grace period.
func (s *Server) Shutdown() error {
	for _, ii := range s.instances {
		expiry := time.Now().Add(gracefulShutdownTime)
		ctx, cancel := context.WithDeadline(context.Background(), expiry)
		if err := ii.httpServer.Shutdown(ctx); err != nil {
			logrus.Errorf("error shutting down server: %s", err)
		}
		cancel()
	}
	s.wg.Wait()
	return nil
}

// URLs returns all configured URLs
func (s *Server) URLs() []string {
	var out []string
	for _, ii := range s.instances {
		out = append(out, ii.url)
	}
	return out
}
