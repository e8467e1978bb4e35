// Package api implements the minimal HTTP control surface of spec.md
// §6: run_preview, run_process, list_sessions, get_session_messages,
// set_flag, clear_flag, submit_feedback, trigger_retrain, promote_model,
// and get_analytics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/controller"
	"github.com/sentryd/sentryd/internal/feedback"
	"github.com/sentryd/sentryd/internal/overrides"
	"github.com/sentryd/sentryd/internal/scheduler"
	"github.com/sentryd/sentryd/internal/store"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level —
// typically a client disconnecting mid-response, not actionable but
// worth tracking.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the control surface's HTTP server.
type Server struct {
	address    string
	port       int
	store      *store.Store
	controller *controller.Controller
	feedback   *feedback.Service
	overrides  *overrides.Engine
	global     config.ClassifierConfig
	accounts   map[string]config.AccountConfig
	dial       scheduler.Dialer
	logger     *slog.Logger
	server     *http.Server
}

// New builds a Server over the already-constructed processing
// components. accounts is keyed by config.AccountConfig.Name.
func New(address string, port int, s *store.Store, ctrl *controller.Controller, fb *feedback.Service, ov *overrides.Engine, global config.ClassifierConfig, accounts map[string]config.AccountConfig, dial scheduler.Dialer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address: address, port: port, store: s, controller: ctrl,
		feedback: fb, overrides: ov, global: global, accounts: accounts,
		dial: dial, logger: logger,
	}
}

// Start begins serving HTTP requests. Blocks until the server stops or
// errors; callers typically run it in its own goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /v1/accounts/{account}/preview", s.handleRunPreview)
	mux.HandleFunc("POST /v1/accounts/{account}/process", s.handleRunProcess)
	mux.HandleFunc("GET /v1/accounts/{account}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}/messages", s.handleSessionMessages)

	mux.HandleFunc("POST /v1/flags", s.handleSetFlag)
	mux.HandleFunc("DELETE /v1/flags/{messageId}", s.handleClearFlag)

	mux.HandleFunc("POST /v1/feedback", s.handleSubmitFeedback)
	mux.HandleFunc("POST /v1/models/retrain", s.handleTriggerRetrain)
	mux.HandleFunc("POST /v1/models/{uuid}/promote", s.handlePromoteModel)

	mux.HandleFunc("GET /v1/analytics", s.handleAnalytics)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // run_process over a large mailbox can run long
	}

	s.logger.Info("starting control surface", "address", s.address, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	writeJSON(w, map[string]any{"error": message}, s.logger)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) (config.AccountConfig, bool) {
	name := r.PathValue("account")
	account, ok := s.accounts[name]
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "unknown account: "+name)
		return config.AccountConfig{}, false
	}
	return account, true
}

func (s *Server) runAccount(w http.ResponseWriter, r *http.Request, mode store.SessionMode) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}

	accountID, err := s.store.UpsertAccount(account.Email, account.Name, account.Provider)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "resolve account: "+err.Error())
		return
	}

	client := s.dial(account)
	sess, err := s.controller.Run(r.Context(), client, accountID, account, s.global, mode)
	if err != nil {
		s.logger.Error("run failed", "account", account.Name, "mode", mode, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleRunPreview(w http.ResponseWriter, r *http.Request) {
	s.runAccount(w, r, store.ModePreview)
}

func (s *Server) handleRunProcess(w http.ResponseWriter, r *http.Request) {
	s.runAccount(w, r, store.ModeProcess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}
	accountID, err := s.store.UpsertAccount(account.Email, account.Name, account.Provider)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "resolve account: "+err.Error())
		return
	}

	limit := parseIntParam(r, "limit", 20)
	sessions, err := s.store.ListSessions(accountID, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "list sessions: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"sessions": sessions, "count": len(sessions)}, s.logger)
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session id")
		return
	}
	offset := parseIntParam(r, "offset", 0)
	limit := parseIntParam(r, "limit", 50)

	messages, err := s.store.ListSessionMessages(id, offset, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "list session messages: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"messages": messages, "count": len(messages)}, s.logger)
}

type setFlagRequest struct {
	MessageID string `json:"message_id"`
	FlagType  string `json:"flag_type"`
	Reason    string `json:"reason"`
	Account   string `json:"account"`
}

func (s *Server) handleSetFlag(w http.ResponseWriter, r *http.Request) {
	var req setFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := s.accounts[req.Account]
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "unknown account: "+req.Account)
		return
	}
	accountID, err := s.store.UpsertAccount(account.Email, account.Name, account.Provider)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "resolve account: "+err.Error())
		return
	}

	if err := s.overrides.Set(req.MessageID, store.FlagType(req.FlagType), req.Reason, accountID); err != nil {
		s.errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleClearFlag(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("messageId")
	flagType := r.URL.Query().Get("flag_type")
	if flagType == "" {
		s.errorResponse(w, http.StatusBadRequest, "flag_type query parameter required")
		return
	}
	if err := s.overrides.Clear(messageID, store.FlagType(flagType)); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

type submitFeedbackRequest struct {
	ProcessedMessageID int64   `json:"processed_message_id"`
	OriginalCategory   string  `json:"original_category"`
	CorrectedCategory  string  `json:"corrected_category"`
	ConfidenceRating   float64 `json:"confidence_rating"`
	Comment            string  `json:"comment"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.feedback.Submit(req.ProcessedMessageID, req.OriginalCategory, req.CorrectedCategory, req.ConfidenceRating, req.Comment)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"id": id}, s.logger)
}

func (s *Server) handleTriggerRetrain(w http.ResponseWriter, r *http.Request) {
	result, err := s.feedback.Retrain()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, result, s.logger)
}

func (s *Server) handlePromoteModel(w http.ResponseWriter, r *http.Request) {
	uuid := r.PathValue("uuid")
	if err := s.feedback.Promote(uuid); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "live_model": uuid}, s.logger)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "scheduler.sweep_duration_seconds"
	}
	avg, err := s.store.AverageMetric(metric)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	samples, err := s.store.RecentMetrics(metric, parseIntParam(r, "limit", 20))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"metric": metric, "average": avg, "samples": samples}, s.logger)
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
