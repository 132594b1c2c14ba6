// Package remote exposes a content provider over HTTP, and implements a provider calling it.
//
// The wire contract is:
//
//	GET    /v1/content/{id}   content bytes, 404 when absent
//	HEAD   /v1/content/{id}   200 when present, 404 when absent
//	PUT    /v1/content        stores the request body, replies with a msgpack PutResponse
//	DELETE /v1/content/{id}   204, or 405 when the provider cannot remove content
//	PUT    /v1/chunks         streams the request body in chunks, replies with a msgpack PutChunksResponse
//	GET    /v1/chunks/{id}    streams chunked content
//	GET    /metrics           prometheus metrics
//
// Errors carry their kind in the X-Content-Error header.
package remote

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/opentracing-contrib/go-stdlib/nethttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	// ContentPath is the root of the content endpoints
	ContentPath = "/v1/content"

	// ChunksPath is the root of the chunked content endpoints
	ChunksPath = "/v1/chunks"

	// MetricsPath is the prometheus endpoint
	MetricsPath = "/metrics"

	contentType = "application/octet-stream"
	msgpackType = "application/msgpack"
)

// PutResponse is the reply to a put request
type PutResponse struct {
	ID      string `msgpack:"id"`
	Existed bool   `msgpack:"existed"`
}

// PutChunksResponse is the reply to a chunked put request
type PutChunksResponse struct {
	ID   string `msgpack:"id"`
	Size uint64 `msgpack:"size"`
}

// Server serves a provider over HTTP
type Server struct {
	p        provider.Provider
	chunker  *provider.Chunker
	o        options
	handler  http.Handler
	requests *prometheus.HistogramVec
}

// NewServer builds the HTTP handler for a provider
func NewServer(p provider.Provider, opts ...Option) *Server {
	s := &Server{
		p: p,
		o: applyOptions(opts),
	}
	s.chunker = provider.NewChunker(p, provider.ChunkSize(s.o.chunkSize), provider.Logger(s.o.l))
	if s.o.registry == nil {
		s.o.registry = prometheus.NewRegistry()
	}
	s.requests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contentstore",
		Subsystem: "remote",
		Name:      "request_duration_seconds",
		Help:      "Duration of the requests served by the remote content server",
	}, []string{"route", "method", "code"})
	if err := s.o.registry.Register(s.requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.requests = are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}

	router := mux.NewRouter()
	router.Handle(ContentPath+"/{id}", s.instrument("get", s.get)).Methods(http.MethodGet)
	router.Handle(ContentPath+"/{id}", s.instrument("exists", s.exists)).Methods(http.MethodHead)
	router.Handle(ContentPath+"/{id}", s.instrument("unwrite", s.unwrite)).Methods(http.MethodDelete)
	router.Handle(ContentPath, s.instrument("put", s.put)).Methods(http.MethodPut)
	router.Handle(ChunksPath+"/{id}", s.instrument("get-chunks", s.getChunks)).Methods(http.MethodGet)
	router.Handle(ChunksPath, s.instrument("put-chunks", s.putChunks)).Methods(http.MethodPut)
	router.Handle(MetricsPath, promhttp.HandlerFor(s.o.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.handler = nethttp.Middleware(s.o.tracer, router, nethttp.OperationNameFunc(func(r *http.Request) string {
		return "remote.server." + r.Method
	}))
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(h, w, r)
		s.requests.WithLabelValues(route, r.Method, strconv.Itoa(m.Code)).Observe(m.Duration.Seconds())
		s.o.l.Debug("remote request",
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("code", m.Code),
			zap.Int64("written", m.Written),
			zap.Duration("duration", m.Duration),
		)
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	k := kindOfError(err)
	if k.code >= http.StatusInternalServerError {
		s.o.l.Warn("remote request failed", zap.Error(err))
	}
	w.Header().Set(headerErrorKind, k.name)
	http.Error(w, err.Error(), k.code)
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request) (identifier.Identifier, bool) {
	id, err := identifier.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return identifier.Identifier{}, false
	}
	return id, true
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	data, err := s.p.Read(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.o.l.Warn("remote response interrupted", zap.Stringer("id", id), zap.Error(err))
	}
}

// streamWriter sends the response headers on the first write
type streamWriter struct {
	w       http.ResponseWriter
	size    uint64
	started bool
}

func (sw *streamWriter) start() {
	if sw.started {
		return
	}
	sw.started = true
	sw.w.Header().Set("Content-Type", contentType)
	sw.w.Header().Set("Content-Length", strconv.FormatUint(sw.size, 10))
	sw.w.WriteHeader(http.StatusOK)
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	sw.start()
	return sw.w.Write(p)
}

func (s *Server) getChunks(w http.ResponseWriter, r *http.Request) {
	id, err := provider.ParseChunkIdentifier(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}

	sw := &streamWriter{w: w, size: id.DataSize()}
	if _, err := s.chunker.ReadTo(r.Context(), sw, id); err != nil {
		if !sw.started {
			s.fail(w, err)
			return
		}
		// the client sees a truncated body
		s.o.l.Warn("remote chunked response interrupted", zap.Stringer("id", id), zap.Error(err))
		return
	}
	sw.start()
}

func (s *Server) putChunks(w http.ResponseWriter, r *http.Request) {
	id, err := s.chunker.WriteFrom(r.Context(), r.Body)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := msgpack.Marshal(PutChunksResponse{ID: id.String(), Size: id.DataSize()})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", msgpackType)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	found, err := s.p.Exists(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		w.Header().Set(headerErrorKind, "not-found")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if r.ContentLength > 0 && r.ContentLength <= s.o.maxPutSize {
		buf.Grow(int(r.ContentLength))
	}
	_, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, s.o.maxPutSize))
	data := buf.Bytes()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.Header().Set(headerErrorKind, "invalid")
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		s.fail(w, status.ErrIO.Wrap(err))
		return
	}

	var existed bool
	if expected, err := identifier.NewWithAlgorithm(s.o.alg, data); err == nil {
		existed, _ = s.p.Exists(r.Context(), expected)
	}

	id, err := s.p.Write(r.Context(), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := msgpack.Marshal(PutResponse{ID: id.String(), Existed: existed})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", msgpackType)
	if existed {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	_, _ = w.Write(body)
}

func (s *Server) unwrite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r)
	if !ok {
		return
	}
	if err := provider.Unwrite(r.Context(), s.p, id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
