package resultapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/detbench/pkg/resultdb"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

// Server serves stored benchmark runs over HTTP, read-only
type Server struct {
	Log               logs.Log
	DB                *resultdb.ResultDB
	requestsPerMinute int
	httpRouter        *httprouter.Router
	httpServer        *http.Server
	signalIn          chan os.Signal
}

// Default limit on requests per minute from a single IP, to each of the /api/runs endpoints
const DefaultRequestsPerMinute = 120

// NewServer creates the HTTP routes.
// If requestsPerMinute is zero or negative, there is no rate limit.
func NewServer(logger logs.Log, db *resultdb.ResultDB, requestsPerMinute int) *Server {
	s := &Server{
		Log:               logger,
		DB:                db,
		requestsPerMinute: requestsPerMinute,
	}
	s.setupHttpRoutes()
	return s
}

// Handler exposes the router, so that tests can drive it with httptest
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// port example: ":8081"
// Returns nil after Shutdown.
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. Shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Closing HTTP server")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
	}
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Log.Errorf("Error shutting down HTTP server: %v", err)
	}
}
