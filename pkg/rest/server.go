package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nickvanderzwet/tabserve/pkg/httputil"
	"github.com/nickvanderzwet/tabserve/pkg/httputil/middleware"
	"github.com/nickvanderzwet/tabserve/pkg/metrics"
	"github.com/nickvanderzwet/tabserve/pkg/schema"
	"go.uber.org/zap"
)

// reservedRoutes are path segments the server itself owns. A table with one
// of these names stays in the manifest but gets no row endpoint.
var reservedRoutes = map[string]struct{}{
	"tables": {},
	"health": {},
}

// ServerOpts configures a Server. The zero value serves at the root path
// with default CORS and a production logger.
type ServerOpts struct {
	BaseURL string
	Version string
	Logger  *zap.Logger
	CORS    *middleware.CORSOptions
}

// Server registers one row endpoint per bound table next to the catalog,
// health and index endpoints, and executes queries per request through the
// shared Source.
type Server struct {
	src     schema.Source
	catalog Catalog
	router  *httputil.Router
	logger  *zap.Logger
	version string
}

func NewServer(src schema.Source, catalog Catalog, opts *ServerOpts) *Server {
	if opts == nil {
		opts = &ServerOpts{}
	}
	logger := opts.Logger
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		src:     src,
		catalog: catalog,
		router:  httputil.NewRouter(),
		logger:  logger,
		version: version,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.LoggerWithOptions(&middleware.LoggerOptions{Logger: logger}))
	s.router.Use(middleware.CORSWithOptions(opts.CORS))

	reg := s.router
	if opts.BaseURL != "" {
		reg = s.router.Group(strings.TrimSuffix(opts.BaseURL, "/"))
	}
	s.registerRoutes(reg)

	metrics.TablesServed.Set(float64(catalog.Len()))

	return s
}

func (s *Server) registerRoutes(r *httputil.Router) {
	r.Handle("GET /{$}", http.HandlerFunc(s.handleIndex))
	r.Handle("/{$}", http.HandlerFunc(s.handleMethodNotAllowed))
	r.Handle("GET /health", http.HandlerFunc(s.handleHealth))
	r.Handle("/health", http.HandlerFunc(s.handleMethodNotAllowed))
	r.Handle("GET /tables", http.HandlerFunc(s.handleTables))
	r.Handle("/tables", http.HandlerFunc(s.handleMethodNotAllowed))
	r.Handle("GET /tables/{table}", http.HandlerFunc(s.handleTableDetail))
	r.Handle("/tables/{table}", http.HandlerFunc(s.handleMethodNotAllowed))

	for _, b := range s.catalog.Bindings() {
		name := b.Table.Name
		if _, reserved := reservedRoutes[name]; reserved {
			s.logger.Warn("table name collides with a service route, no row endpoint registered",
				zap.String("table", name))
			continue
		}
		if strings.ContainsAny(name, "{}*") {
			s.logger.Warn("table name is not routable, no row endpoint registered",
				zap.String("table", name))
			continue
		}

		binding := b
		r.Handle("GET /"+name, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.handleTableRows(w, req, binding)
		}))
		r.Handle("/"+name, http.HandlerFunc(s.handleMethodNotAllowed))
	}

	// Everything else, any method: uniform JSON 404. Unknown and excluded
	// tables are indistinguishable here.
	r.Handle("/", http.HandlerFunc(s.handleNotFound))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"name":    "tabserve",
		"version": s.version,
		"tables":  s.catalog.Len(),
		"catalog": "/tables",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.src.Ping(r.Context()); err != nil {
		s.logger.Error("health ping failed", zap.Error(err))
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"database": "connected",
		"tables":   s.catalog.Len(),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, s.catalog.Manifest())
}

func (s *Server) handleTableDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")
	detail, ok := s.catalog.Detail(name)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "Table "+name+" not found")
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request, b Binding) {
	start := time.Now()
	name := b.Table.Name

	rows, err := s.src.SelectAll(r.Context(), b.Table)
	if err != nil {
		s.logger.Error("query failed", zap.String("table", name), zap.Error(err))
		metrics.QueryErrors.WithLabelValues(name).Inc()
		s.observe(name, http.StatusInternalServerError, start)
		httputil.Error(w, http.StatusInternalServerError, "Database query error")
		return
	}

	records, violations := MarshalRows(b.Record, rows)
	if violations > 0 {
		s.logger.Warn("null values in required fields",
			zap.String("table", name),
			zap.Int("values", violations))
	}

	s.observe(name, http.StatusOK, start)
	httputil.JSON(w, http.StatusOK, records)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.Error(w, http.StatusNotFound, "Resource not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (s *Server) observe(table string, status int, start time.Time) {
	metrics.TableRequests.WithLabelValues(table, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
}

// Handler exposes the server's routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// Start serves on the given address until the listener fails or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("server starting", zap.String("addr", addr), zap.Int("tables", s.catalog.Len()))
	return s.router.ListenAndServe(addr)
}

// Shutdown gracefully shuts down the HTTP server. The database source is
// not closed; the owner closes it.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}
