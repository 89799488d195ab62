package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/weightgate/weightgate/internal/logx"
	"github.com/weightgate/weightgate/internal/metrics"
	"github.com/weightgate/weightgate/lib/counters"
	"github.com/weightgate/weightgate/lib/datafiles"
	"github.com/weightgate/weightgate/lib/overlay"
	"github.com/weightgate/weightgate/lib/scheduler"
)

var log = logx.GetLogger("httpapi")

// Server is the HTTP front end over the counter store, datafile repository
// and scheduler.
type Server struct {
	store       counters.Store
	datafiles   *datafiles.Repository
	scheduler   *scheduler.Scheduler
	variantsKey string

	httpServer *http.Server
}

// New constructs a Server listening on addr. scheduler may be nil, in
// which case /recalculate reports 503.
func New(addr string, store counters.Store, repo *datafiles.Repository, sched *scheduler.Scheduler) *Server {
	s := &Server{
		store:       store,
		datafiles:   repo,
		scheduler:   sched,
		variantsKey: repo.VariantsKey,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /datafile/{path...}", s.handleGetDatafile)
	mux.HandleFunc("POST /expose", s.handleExpose)
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /recalculate", s.handleRecalculate)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: loggerMiddleware(mux),
	}
	return s
}

// ListenAndServe starts the server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	log.Infof("starting HTTP server on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting up to the context's
// deadline for in-flight handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// overlayLookup builds the overlay.Lookup closure for one datafile request,
// reading each variant's stored weight from the counter store.
func (s *Server) overlayLookup(ctx context.Context, df string) overlay.Lookup {
	return func(featureKey, variantValue string) (float64, bool) {
		rec, found, err := s.store.GetCounters(ctx, df, featureKey, variantValue)
		if err != nil || !found || !rec.HasWeight {
			return 0, false
		}
		return rec.Weight, true
	}
}
