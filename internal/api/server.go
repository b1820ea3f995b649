package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zpressley/fbp-auction/internal/auction"
	"github.com/zpressley/fbp-auction/internal/config"
)

// Server exposes the auction engine over HTTP for the web portal and
// the operator CLI. All business rules live in the engine; handlers
// only translate requests and map rejections to status codes.
type Server struct {
	cfg     config.ServerConfig
	log     *slog.Logger
	auction *auction.Service
	mux     *chi.Mux
}

func New(cfg config.ServerConfig, logger *slog.Logger, svc *auction.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		auction: svc,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/auction/phase", s.handlePhase)
		r.Get("/auction/week", s.handleWeek)
		r.Post("/auction/bids", s.handlePlaceBid)
		r.Post("/auction/decisions", s.handleRecordDecision)
		r.Get("/teams/{team}/wizbucks", s.handleWallet)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/auction/resolve", s.handleResolve)
		})
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("X-Admin-Key"))
		if key == "" || key != s.cfg.AdminKey {
			writeError(w, http.StatusUnauthorized, "missing or invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestTime honors an explicit ?at=RFC3339 override so schedules can
// be exercised deterministically; everything else uses the wall clock.
func requestTime(r *http.Request) (time.Time, error) {
	at := strings.TrimSpace(r.URL.Query().Get("at"))
	if at == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, at)
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	phase, err := s.auction.CurrentPhase(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phase": phase})
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	week, err := s.auction.WeekSnapshot(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Team       string `json:"team"`
		ProspectID string `json:"prospect_id"`
		Amount     int    `json:"amount"`
		Kind       string `json:"kind"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	bid, phase, err := s.auction.PlaceBid(r.Context(), auction.BidInput{
		Team:       in.Team,
		ProspectID: in.ProspectID,
		Amount:     in.Amount,
		Kind:       auction.BidKind(in.Kind),
		Now:        now,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bid": bid, "phase": phase})
}

func (s *Server) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Team       string `json:"team"`
		ProspectID string `json:"prospect_id"`
		Decision   string `json:"decision"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	record, err := s.auction.RecordDecision(r.Context(), auction.DecisionInput{
		Team:       in.Team,
		ProspectID: in.ProspectID,
		Decision:   in.Decision,
		Source:     "web",
		Now:        now,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"decision": record})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	balance, committed, err := s.auction.Wallet(r.Context(), team, now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team":      strings.ToUpper(team),
		"balance":   balance,
		"committed": committed,
		"available": balance - committed,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	now, err := requestTime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid at timestamp")
		return
	}
	summary, err := s.auction.ResolveWeek(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auction.ErrUnknownTeam), errors.Is(err, auction.ErrProspectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case auction.IsRejection(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auction.ErrWeekBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
