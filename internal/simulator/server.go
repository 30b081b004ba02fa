package simulator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
)

// Server exposes a Controller over the same HTTP surface as the real device.
type Server struct {
	log        *slog.Logger
	address    string
	server     *http.Server
	controller *Controller
}

func NewServer(log *slog.Logger, address string, controller *Controller) *Server {
	return &Server{
		log:        log,
		address:    address,
		controller: controller,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/open", s.handleOpen)
	r.Post("/close", s.handleClose)
	r.Post("/timed", s.handleTimed)
	r.Get("/state", s.handleState)
	r.Get("/status", s.handleStatus)
	r.Post("/irrigation_setup", s.handleIrrigationSetup)
	r.Post("/auto", s.handleAuto)

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting controller simulator", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("simulator server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.controller.Open()
	writeText(w, http.StatusOK, "Solenoid opened")
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.controller.Close()
	writeText(w, http.StatusOK, "Solenoid closed")
}

func (s *Server) handleTimed(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.Atoi(r.URL.Query().Get("time"))
	if err != nil || seconds <= 0 {
		writeText(w, http.StatusBadRequest, "Invalid time parameter")
		return
	}

	s.controller.OpenFor(time.Duration(seconds) * time.Second)
	writeText(w, http.StatusOK, "Solenoid opened for "+strconv.Itoa(seconds)+" seconds")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, s.controller.State())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.controller.Status())
}

func (s *Server) handleIrrigationSetup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form")
		return
	}

	lower, errMin := strconv.ParseFloat(r.PostForm.Get("min"), 64)
	upper, errMax := strconv.ParseFloat(r.PostForm.Get("max"), 64)
	if errMin != nil || errMax != nil {
		writeText(w, http.StatusBadRequest, "Missing or invalid min/max")
		return
	}
	if lower < 0 || upper > 100 || lower >= upper {
		writeText(w, http.StatusBadRequest, "Thresholds must satisfy 0 <= min < max <= 100")
		return
	}

	s.controller.SetThresholds(lower, upper)

	if enable := r.PostForm.Get("enable"); enable != "" {
		enabled, err := strconv.ParseBool(enable)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Invalid enable parameter")
			return
		}
		s.controller.SetAuto(enabled)
	}

	writeText(w, http.StatusOK, "Irrigation setup updated")
}

func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form")
		return
	}

	enabled, err := strconv.ParseBool(r.PostForm.Get("enable"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Missing or invalid enable parameter")
		return
	}

	s.controller.SetAuto(enabled)
	if enabled {
		writeText(w, http.StatusOK, "Auto irrigation enabled")
		return
	}
	writeText(w, http.StatusOK, "Auto irrigation disabled")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
