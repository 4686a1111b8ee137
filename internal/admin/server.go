package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/service"
)

// Server is the operator HTTP API: payment history, user moderation,
// delegated admin limits, manual credits and broadcasts.
type Server struct {
	addr       string
	username   string
	password   string
	log        *slog.Logger
	ledger     *service.LedgerService
	generation *service.GenerationService
	bot        *tgbotapi.BotAPI
	router     *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, ledger *service.LedgerService, generation *service.GenerationService, bot *tgbotapi.BotAPI) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:       addr,
		username:   username,
		password:   password,
		log:        log,
		ledger:     ledger,
		generation: generation,
		bot:        bot,
		router:     r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/stats", s.handleStats)
		protected.Get("/payments", s.handleListPayments)
		protected.Post("/broadcast", s.handleBroadcast)
		protected.Route("/users/{id}", func(r chi.Router) {
			r.Post("/block", s.handleBlock)
			r.Post("/unblock", s.handleUnblock)
			r.Post("/credit", s.handleCredit)
		})
		protected.Put("/admins/{id}/limit", s.handleSetLimit)
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payCount, payTotal, err := s.ledger.PaymentTotals(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	genCount, genTotal, err := s.generation.GenerationTotals(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	userIDs, err := s.ledger.ListUserIDs(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"users":             len(userIDs),
		"payments":          payCount,
		"payments_total":    payTotal,
		"generations":       genCount,
		"generations_total": genTotal,
	})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			s.badRequest(w, fmt.Errorf("limit must be 1..500"))
			return
		}
		limit = parsed
	}
	payments, err := s.ledger.RecentPayments(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.ledger.Block(r.Context(), id); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "blocked": true})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.ledger.Unblock(r.Context(), id); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "blocked": false})
}

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("invalid json"))
		return
	}
	if !req.Amount.IsPositive() {
		s.badRequest(w, fmt.Errorf("amount must be positive"))
		return
	}
	if err := s.ledger.Credit(r.Context(), id, req.Amount); err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("manual credit", "user", id, "amount", req.Amount, "reason", req.Reason)
	balance, err := s.ledger.Balance(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "balance": balance})
}

type limitRequest struct {
	Limit decimal.Decimal `json:"limit"`
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("invalid json"))
		return
	}
	if req.Limit.IsNegative() {
		s.badRequest(w, fmt.Errorf("limit must not be negative"))
		return
	}
	if err := s.ledger.SetAdminLimit(r.Context(), id, req.Limit); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "limit": req.Limit})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("invalid json"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.badRequest(w, fmt.Errorf("message required"))
		return
	}

	ids, err := s.ledger.ListUserIDs(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	count := 0
	for _, id := range ids {
		msg := tgbotapi.NewMessage(id, req.Message)
		if _, err := s.bot.Send(msg); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			continue
		}
		count++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  count,
		"total": len(ids),
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "err", err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}
