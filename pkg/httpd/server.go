// Package httpd runs HTTP handlers on tcp and unix socket listeners, with a graceful shutdown
// on SIGINT, SIGTERM or when the serving context is cancelled.
package httpd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-openapi/runtime/flagext"
	"github.com/go-openapi/swag"
	"github.com/oneconcern/contentstore/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

const (
	// SchemeHTTP serves on a tcp listener
	SchemeHTTP = "http"

	// SchemeUnix serves on a unix domain socket
	SchemeUnix = "unix"
)

// ErrUnsupportedScheme is returned when a listener scheme is neither http nor unix
var ErrUnsupportedScheme = errors.New("unsupported listener scheme")

// Config of the listeners
type Config struct {
	Schemes        []string
	CleanupTimeout time.Duration
	MaxHeaderSize  flagext.ByteSize

	SocketPath string

	Host         string
	Port         int
	ListenLimit  int
	KeepAlive    time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig listens on localhost, on the port set by the PORT environment variable or a random port
func DefaultConfig() Config {
	return Config{
		Schemes:        []string{SchemeHTTP},
		CleanupTimeout: 10 * time.Second,
		MaxHeaderSize:  flagext.ByteSize(1000000),
		SocketPath:     "/var/run/casctl.sock",
		Host:           stringEnvOverride("localhost", "HOST"),
		Port:           intEnvOverride(0, "PORT"),
		KeepAlive:      3 * time.Minute,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// RegisterFlags to the specified pflag set
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringSliceVar(&c.Schemes, "scheme", c.Schemes, "the listeners to enable (http, unix), this can be repeated")
	fs.DurationVar(&c.CleanupTimeout, "cleanup-timeout", c.CleanupTimeout, "grace period for which to wait before shutting down the server")
	fs.Var(&c.MaxHeaderSize, "max-header-size", "controls the maximum number of bytes the server will read parsing the request header's keys and values, including the request line. It does not limit the size of the request body")

	fs.StringVar(&c.SocketPath, "socket-path", c.SocketPath, "the unix socket to listen on")

	fs.StringVar(&c.Host, "host", c.Host, "the IP to listen on")
	fs.IntVar(&c.Port, "port", c.Port, "the port to listen on for insecure connections, defaults to a random value")
	fs.IntVar(&c.ListenLimit, "listen-limit", c.ListenLimit, "limit the number of outstanding requests")
	fs.DurationVar(&c.KeepAlive, "keep-alive", c.KeepAlive, "sets the TCP keep-alive timeouts on accepted connections. It prunes dead TCP connections ( e.g. closing laptop mid-download)")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "maximum duration before timing out read of the request")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "maximum duration before timing out write of the response")
}

func stringEnvOverride(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func intEnvOverride(def int, keys ...string) int {
	for _, k := range keys {
		if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
			return v
		}
	}
	return def
}

// Option for the server
type Option func(*Server)

// WithConfig sets the listeners configuration
func WithConfig(c Config) Option {
	return func(s *Server) {
		s.cfg = c
	}
}

// HandlesRequestsWith handles the http requests to the server
func HandlesRequestsWith(h http.Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// Logger for the server lifecycle
func Logger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}

// OnShutdown runs the provided functions after all listeners are successfully shut down
func OnShutdown(handlers ...func()) Option {
	return func(s *Server) {
		s.onShutdown = append(s.onShutdown, handlers...)
	}
}

type listener struct {
	net.Listener
	scheme string
}

func (l listener) String() string {
	return l.scheme + "://" + l.Addr().String()
}

// Server serves a handler until shut down
type Server struct {
	cfg        Config
	handler    http.Handler
	l          *zap.Logger
	onShutdown []func()

	listeners    []listener
	shutdown     chan struct{}
	shuttingDown atomic.Bool
}

// New creates a server, but does not listen yet
func New(opts ...Option) *Server {
	s := &Server{
		cfg:      DefaultConfig(),
		handler:  http.NotFoundHandler(),
		l:        zap.NewNop(),
		shutdown: make(chan struct{}),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

func (s *Server) hasScheme(scheme string) bool {
	for _, v := range s.cfg.Schemes {
		if v == scheme {
			return true
		}
	}
	return false
}

// Listen creates the listeners for the server
func (s *Server) Listen() error {
	if len(s.listeners) > 0 {
		return nil
	}
	for _, scheme := range s.cfg.Schemes {
		if scheme != SchemeHTTP && scheme != SchemeUnix {
			return ErrUnsupportedScheme.Wrapf("%q", scheme)
		}
	}

	if s.hasScheme(SchemeUnix) {
		l, err := net.Listen("unix", s.cfg.SocketPath)
		if err != nil {
			return err
		}
		s.listeners = append(s.listeners, listener{Listener: l, scheme: SchemeUnix})
	}

	if s.hasScheme(SchemeHTTP) {
		l, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
		if err != nil {
			s.closeListeners()
			return err
		}
		h, p, err := swag.SplitHostPort(l.Addr().String())
		if err != nil {
			_ = l.Close()
			s.closeListeners()
			return err
		}
		s.cfg.Host = h
		s.cfg.Port = p
		if s.cfg.ListenLimit > 0 {
			l = netutil.LimitListener(l, s.cfg.ListenLimit)
		}
		s.listeners = append(s.listeners, listener{Listener: l, scheme: SchemeHTTP})
	}
	return nil
}

func (s *Server) closeListeners() {
	for _, l := range s.listeners {
		_ = l.Close()
	}
	s.listeners = nil
}

// Addr is the address of the http listener, once listening
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) newHTTPServer(scheme string) *http.Server {
	srv := &http.Server{
		Handler:        s.handler,
		MaxHeaderBytes: int(s.cfg.MaxHeaderSize),
	}
	if scheme == SchemeHTTP {
		srv.ReadTimeout = s.cfg.ReadTimeout
		srv.WriteTimeout = s.cfg.WriteTimeout
		srv.SetKeepAlivesEnabled(int64(s.cfg.KeepAlive) > 0)
	}
	if int64(s.cfg.CleanupTimeout) > 0 {
		srv.IdleTimeout = s.cfg.CleanupTimeout
	}
	return srv
}

// Serve until the context is cancelled, an interrupt signal is received or Shutdown is called
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	if len(s.listeners) == 0 {
		return ErrUnsupportedScheme.Wrapf("no listener enabled")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	servers := make([]*http.Server, 0, len(s.listeners))
	for _, l := range s.listeners {
		l := l
		srv := s.newHTTPServer(l.scheme)
		servers = append(servers, srv)

		g.Go(func() error {
			s.l.Info("Serving", zap.Stringer("at", l))
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving at %v: %w", l, err)
			}
			s.l.Info("Stopped serving", zap.Stringer("at", l))
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.shutdown:
		}
		s.l.Info("Shutting down...")
		return s.shutdownAll(servers)
	})

	err := g.Wait()
	s.listeners = nil
	return err
}

func (s *Server) shutdownAll(servers []*http.Server) error {
	timeout := s.cfg.CleanupTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	for _, srv := range servers {
		err = multierr.Append(err, srv.Shutdown(ctx))
	}
	if err != nil {
		s.l.Warn("HTTP server shutdown", zap.Error(err))
		return err
	}
	for _, run := range s.onShutdown {
		run()
	}
	return nil
}

// Shutdown the server
func (s *Server) Shutdown() {
	if s.shuttingDown.CompareAndSwap(false, true) {
		close(s.shutdown)
	}
}
