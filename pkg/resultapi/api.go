package resultapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyclopcam/detbench/pkg/bench"
	"github.com/cyclopcam/detbench/pkg/resultdb"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	unlimited := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Each route gets its own limiter, keyed by client IP
	ratelimited := func(method, route string, handle httprouter.Handle) {
		if s.requestsPerMinute <= 0 {
			unlimited(method, route, handle)
			return
		}
		limited := httprate.Limit(s.requestsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	unlimited("GET", "/api/ping", s.httpPing)
	ratelimited("GET", "/api/runs", s.httpListRuns)
	ratelimited("GET", "/api/runs/:id", s.httpGetRun)
	ratelimited("GET", "/api/runs/:id/report", s.httpGetRunReport)

	s.httpRouter = router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	ping := &pingJSON{
		Time: time.Now().Unix(),
	}
	www.SendJSON(w, ping)
}

func (s *Server) httpListRuns(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	runs, err := s.DB.ListRuns()
	www.Check(err)
	www.SendJSON(w, runs)
}

func (s *Server) getRun(params httprouter.Params) *resultdb.Run {
	id := www.ParseID(params.ByName("id"))
	run, err := s.DB.GetRun(id)
	if errors.Is(err, resultdb.ErrNotFound) {
		www.PanicNotFound()
	}
	www.Check(err)
	return run
}

func (s *Server) httpGetRun(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.getRun(params))
}

// Sends the same table that the CLI prints after a run
func (s *Server) httpGetRunReport(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	run := s.getRun(params)
	results := []bench.Result{}
	for _, br := range run.BatchResults {
		results = append(results, br.ToBenchResult())
	}
	w.Header().Set("Content-Type", "text/plain")
	www.Check(bench.WriteReport(w, results))
}
