// Package server is the local development server: it serves a generated
// point cloud with its statistics and drives the simulation clock.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ChicagoDave/casemap/internal/logger"
	"github.com/ChicagoDave/casemap/internal/metrics"
	"github.com/ChicagoDave/casemap/internal/source"
	"github.com/ChicagoDave/casemap/pkg/bus"
	"github.com/ChicagoDave/casemap/pkg/clock"
	"github.com/ChicagoDave/casemap/pkg/pipeline"
	"github.com/ChicagoDave/casemap/pkg/points"
	"github.com/ChicagoDave/casemap/pkg/region"
	"github.com/ChicagoDave/casemap/pkg/scene"
	"github.com/ChicagoDave/casemap/pkg/stats"
	"github.com/ChicagoDave/casemap/pkg/validation"
)

// dateLayout is the calendar format accepted by POST /api/clock.
const dateLayout = "2006-01-02"

// Snapshot is the output of one generation run as exposed by the server.
type Snapshot struct {
	Inputs   *source.Inputs
	Result   *pipeline.Result
	Cloud    *scene.Cloud
	Report   *validation.Report
	Settings points.Settings
}

// Server is the local development server.
type Server struct {
	snap   *Snapshot
	clock  *clock.Clock
	bus    *bus.Bus
	hub    *Hub
	port   int
	log    *slog.Logger
	router *mux.Router
}

// New creates a server for snap. The clock must publish on b.
func New(snap *Snapshot, c *clock.Clock, b *bus.Bus, port int, log *slog.Logger) *Server {
	if log == nil {
		log = logger.L()
	}
	s := &Server{
		snap:  snap,
		clock: c,
		bus:   b,
		hub:   NewHub(log),
		port:  port,
		log:   log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logger.AccessMiddleware(s.log))

	r.HandleFunc("/api/points", s.handlePoints).Methods(http.MethodGet)
	r.HandleFunc("/api/points.bin", s.handlePointsBinary).Methods(http.MethodGet)
	r.HandleFunc("/api/regions", s.handleRegions).Methods(http.MethodGet)
	r.HandleFunc("/api/regions/{name}", s.handleRegion).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/validation", s.handleValidation).Methods(http.MethodGet)
	r.HandleFunc("/api/clock", s.handleClock).Methods(http.MethodGet)
	r.HandleFunc("/api/clock", s.handleClockUpdate).Methods(http.MethodPost)
	r.HandleFunc("/ws/time", s.handleTimeSocket)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	return r
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves HTTP and forwards clock events to websocket clients until ctx
// is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	gauge := bus.Subscribe(s.bus, clock.TopicTimeChanged, func(ev clock.TimeChanged) {
		metrics.ClockTime.Set(ev.Time)
	})
	defer gauge.Unsubscribe()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx, s.bus)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server_starting", "addr", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("server_stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>casemap</title></head>
<body style="margin:0;background:#111;color:#fff;font-family:system-ui;display:flex;align-items:center;justify-content:center;height:100vh">
<div style="text-align:center">
<h1>casemap</h1>
<p>Point buffers: <code>/api/points</code>, <code>/api/points.bin</code>. Clock: <code>/ws/time</code>.</p>
</div>
</body></html>`)
}

func (s *Server) handlePoints(w http.ResponseWriter, _ *http.Request) {
	if s.snap.Cloud == nil {
		writeError(w, http.StatusServiceUnavailable, "no point cloud generated")
		return
	}
	writeJSON(w, http.StatusOK, s.snap.Cloud)
}

func (s *Server) handlePointsBinary(w http.ResponseWriter, _ *http.Request) {
	if s.snap.Cloud == nil {
		writeError(w, http.StatusServiceUnavailable, "no point cloud generated")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := s.snap.Cloud.WriteTo(w); err != nil {
		s.log.Warn("points_write_failed", "err", err)
	}
}

// regionView is one region of a run with its state counts at a time.
type regionView struct {
	Key         region.Key         `json:"key"`
	Offset      int                `json:"offset"`
	Points      int                `json:"points"`
	Diagnostics points.Diagnostics `json:"diagnostics"`
	Counts      points.Counts      `json:"counts"`
}

func (s *Server) regionViews(t float64, match func(region.Key) bool) []regionView {
	views := []regionView{}
	if s.snap.Result == nil {
		return views
	}
	for _, rr := range s.snap.Result.Regions {
		if match != nil && !match(rr.Key) {
			continue
		}
		v := regionView{
			Key:         rr.Key,
			Offset:      rr.Offset,
			Points:      len(rr.Events),
			Diagnostics: rr.Diagnostics,
		}
		if b := s.snap.Result.Buffers; b != nil {
			v.Counts = b.CountRange(rr.Offset, rr.Offset+len(rr.Events), t, s.snap.Settings)
		}
		views = append(views, v)
	}
	return views
}

// timeParam returns the t query parameter, or the clock time if absent.
func (s *Server) timeParam(r *http.Request) (float64, error) {
	v := r.URL.Query().Get("t")
	if v == "" {
		return s.clock.Time(), nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid t %q", v)
	}
	return t, nil
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	t, err := s.timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time":    t,
		"regions": s.regionViews(t, nil),
	})
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	t, err := s.timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views := s.regionViews(t, func(k region.Key) bool { return k.Matches(name) })
	if len(views) == 0 {
		writeError(w, http.StatusNotFound, "unknown region "+name)
		return
	}
	var findings []validation.Result
	if s.snap.Report != nil {
		for _, v := range views {
			findings = append(findings, s.snap.Report.ForRegion(v.Key.String())...)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time":     t,
		"regions":  views,
		"findings": findings,
	})
}

// summary is the chart panel payload.
type summary struct {
	Time   float64       `json:"time"`
	Chart  stats.Chart   `json:"chart"`
	Counts points.Counts `json:"counts"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("region")
	t, err := s.timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := summary{Time: t}
	if in := s.snap.Inputs; in != nil {
		out.Chart = stats.NewChart(in.Confirmed, in.Deaths, filter)
	}
	var match func(region.Key) bool
	if filter != "" {
		match = func(k region.Key) bool { return k.Matches(filter) }
	}
	for _, v := range s.regionViews(t, match) {
		out.Counts.Add(v.Counts)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	report := s.snap.Report
	if report == nil {
		report = validation.NewReport()
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleClock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.clock.State())
}

// clockRequest changes playback. Time takes precedence over Date.
type clockRequest struct {
	Paused *bool    `json:"paused"`
	Time   *float64 `json:"time"`
	Date   string   `json:"date"`
}

func (s *Server) handleClockUpdate(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	switch {
	case req.Time != nil:
		s.clock.Seek(*req.Time)
	case req.Date != "":
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date "+req.Date)
			return
		}
		if err := s.clock.SetDate(d); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}
	if req.Paused != nil {
		s.clock.SetPaused(*req.Paused)
	}
	writeJSON(w, http.StatusOK, s.clock.State())
}

func (s *Server) handleTimeSocket(w http.ResponseWriter, r *http.Request) {
	st := s.clock.State()
	hello, err := json.Marshal(clock.TimeChanged{Time: st.Time, Date: st.Date})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.ServeWS(w, r, hello)
}
