// Package api serves the learning engine over a local HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/gating"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
	"github.com/p-n-ai/pai-learn/internal/learning"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/report"
)

// Server holds the HTTP handlers.
type Server struct {
	engine *learning.Engine
	tick   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithTick sets the live quiz countdown interval.
func WithTick(d time.Duration) Option {
	return func(s *Server) {
		s.tick = d
	}
}

// NewServer creates the API server.
func NewServer(engine *learning.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, tick: time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /v1/checkin", s.handleCheckIn)
	mux.HandleFunc("POST /v1/certificates", s.handleCertificate)

	mux.HandleFunc("GET /v1/quizzes", s.handleQuizzes)
	mux.HandleFunc("POST /v1/quizzes/{id}/submit", s.handleSubmitQuiz)
	mux.HandleFunc("GET /v1/quizzes/{id}/live", s.handleLiveQuiz)

	mux.HandleFunc("GET /v1/topics/{subject}/{topicId}", s.handleTopic)
	mux.HandleFunc("GET /v1/topics/{subject}/{topicId}/lessons/{lessonId}", s.handleLesson)
	mux.HandleFunc("POST /v1/topics/{subject}/{topicId}/lessons/{lessonId}/complete", s.handleCompleteLesson)

	mux.HandleFunc("GET /v1/report.xlsx", s.handleReport)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if hc, ok := s.engine.Store().(kvstore.HealthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hc.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Dashboard(r.Context()))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.CheckIn(r.Context()))
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.EarnCertificate(r.Context()))
}

func (s *Server) handleQuizzes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"quizzes": s.engine.QuizList(r.Context()),
		"stats":   s.engine.Quizzes().Stats(r.Context()),
	})
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Answers map[int]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.SubmitQuiz(r.Context(), id, req.Answers)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Topic(r.Context(), r.PathValue("subject"), r.PathValue("topicId"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathInt(w, r, "lessonId")
	if !ok {
		return
	}
	l, err := s.engine.Lesson(r.Context(), r.PathValue("subject"), r.PathValue("topicId"), lessonID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathInt(w, r, "lessonId")
	if !ok {
		return
	}
	var req struct {
		Minutes float64 `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.engine.CompleteLesson(r.Context(), r.PathValue("subject"), r.PathValue("topicId"), lessonID, req.Minutes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, s.engine.Report(r.Context())); err != nil {
		slog.Error("failed to build report", "error", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrQuizNotFound),
		errors.Is(err, catalog.ErrTopicNotFound),
		errors.Is(err, learning.ErrLessonNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gating.ErrLessonLocked),
		errors.Is(err, quiz.ErrQuizLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, quiz.ErrAttemptClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
