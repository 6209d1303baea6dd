package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, handlers *Handlers) *Server {
	if handlers.staticFS == nil {
		subFS, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("web: failed to sub static fs: %v", err)
		}
		handlers.staticFS = subFS
	}
	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/session", s.handlers.HandleState)
	mux.HandleFunc("POST /api/session/configure", s.handlers.HandleConfigure)
	mux.HandleFunc("POST /api/session/start", s.handlers.HandleStart)
	mux.HandleFunc("POST /api/session/capture", s.handlers.HandleCapture)
	mux.HandleFunc("POST /api/session/filter", s.handlers.HandleFilter)
	mux.HandleFunc("POST /api/session/stop", s.handlers.HandleStop)
	mux.HandleFunc("POST /api/session/reset", s.handlers.HandleReset)
	mux.HandleFunc("GET /api/filters", s.handlers.HandleFilters)
	mux.HandleFunc("GET /api/photos", s.handlers.HandlePhotos)
	mux.HandleFunc("GET /api/photos/{id}", s.handlers.HandlePhoto)
	mux.HandleFunc("POST /api/export", s.handlers.HandleExport)
	mux.HandleFunc("GET /download/{name}", s.handlers.HandleDownload)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	if s.handlers.Preview != nil {
		mux.HandleFunc("GET /ws/preview", s.handlers.Preview.Handle)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
