// Package httpapi exposes sessions and calibration runs over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/session"
)

// Variants is the read side of the catalog. *catalog.Catalog implements it.
type Variants interface {
	Keys() []string
	Get(key string) (catalog.Entry, error)
	Simulate(key string, trials int, tier string, o game.Overrides) (engine.Report, error)
}

// Server handles HTTP requests.
type Server struct {
	Variants Variants
	Sessions *session.Registry
	Logger   zerolog.Logger
}

func New(v Variants, sessions *session.Registry, log zerolog.Logger) *Server {
	return &Server{Variants: v, Sessions: sessions, Logger: log}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/variants", s.handleListVariants)
		r.Get("/variants/{variant}", s.handleVariant)
		r.Post("/variants/{variant}/simulate", s.handleSimulate)

		r.Route("/players/{player}/variants/{variant}", func(r chi.Router) {
			r.Post("/play", s.handlePlay)
			r.Post("/draw", s.handleDraw)
			r.Get("/pending", s.handlePending)
			r.Post("/commit", s.handleCommit)
			r.Post("/abandon", s.handleAbandon)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleClearHistory)
			r.Get("/cooldown", s.handleCooldown)
			r.Delete("/cooldown", s.handleResetCooldown)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// VariantView describes a loaded variant.
type VariantView struct {
	Key      string           `json:"key"`
	Kind     string           `json:"kind"`
	Profile  string           `json:"profile,omitempty"`
	Lock     string           `json:"lock"`
	Outcomes []engine.Outcome `json:"outcomes"`
	Tiers    []engine.Tier    `json:"tiers"`
}

func view(e catalog.Entry) VariantView {
	return VariantView{
		Key:      e.Variant.Key(),
		Kind:     e.Variant.Kind(),
		Profile:  e.Params.Profile,
		Lock:     e.Params.Lock.String(),
		Outcomes: e.Variant.Outcomes(),
		Tiers:    e.Variant.Tiers(),
	}
}

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	out := []VariantView{}
	for _, k := range s.Variants.Keys() {
		e, err := s.Variants.Get(k)
		if err != nil {
			continue // removed by a concurrent reload
		}
		out = append(out, view(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	e, err := s.Variants.Get(chi.URLParam(r, "variant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(e))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Session(r.Context(), chi.URLParam(r, "player"), chi.URLParam(r, "variant"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Play(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDraw starts a staged draw. ?tier= forces a tier.
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var (
		p   *session.Pending
		err error
	)
	if tier, forced := r.URL.Query()["tier"]; forced {
		p, err = sess.DrawTier(r.Context(), tier[0])
	} else {
		p, err = sess.Draw(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Result())
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p, ok := sess.Pending()
	if !ok {
		s.writeError(w, r, session.ErrNoPendingDraw)
		return
	}
	writeJSON(w, http.StatusOK, p.Result())
}

type settleRequest struct {
	ID string `json:"id"`
}

// drawID reads the optional {"id": ...} body; absent means the pending draw.
func drawID(r *http.Request) (uuid.UUID, error) {
	if r.ContentLength == 0 {
		return uuid.Nil, nil
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errValidation, err)
	}
	if req.ID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id: %v", errValidation, err)
	}
	return id, nil
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	s.settle(w, r, (*session.Session).Commit)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.settle(w, r, (*session.Session).Abandon)
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request, op func(*session.Session, context.Context, uuid.UUID) (session.Result, error)) {
	id, err := drawID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := op(sess, r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: n must be a non-negative integer", errValidation))
			return
		}
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.History(n))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.ClearHistory(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CooldownView is the gate state with a localized countdown.
type CooldownView struct {
	Locked      bool      `json:"locked"`
	RemainingMS int64     `json:"remaining_ms"`
	Countdown   string    `json:"countdown,omitempty"`
	LockMS      int64     `json:"lock_ms"`
	LastPlay    time.Time `json:"last_play,omitzero"`
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Cooldown(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := CooldownView{
		Locked:      st.Locked,
		RemainingMS: st.Remaining.Milliseconds(),
		LockMS:      st.Lock.Milliseconds(),
		LastPlay:    st.LastPlay,
	}
	if st.Locked {
		v.Countdown = cooldown.Countdown(langOf(r), st.Remaining)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResetCooldown(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.ResetCooldown(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SimulateRequest configures a calibration run.
type SimulateRequest struct {
	Trials      int     `json:"trials"`
	Tier        string  `json:"tier,omitempty"`
	Seed        *uint64 `json:"seed,omitempty"`
	Entropy     *string `json:"entropy,omitempty"`
	MaxAttempts *int    `json:"max_attempts,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errValidation, err))
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	o := game.Overrides{Seed: req.Seed, Entropy: req.Entropy, MaxAttempts: req.MaxAttempts}
	rep, err := s.Variants.Simulate(chi.URLParam(r, "variant"), req.Trials, req.Tier, o)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// validate rejects overrides that would otherwise surface as a
// configuration error.
func (req SimulateRequest) validate() error {
	if req.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive", errValidation)
	}
	if req.Entropy != nil {
		switch *req.Entropy {
		case engine.EntropyCrypto, engine.EntropyFast:
		case engine.EntropySeeded:
			if req.Seed == nil {
				return fmt.Errorf("%w: seeded entropy needs a seed", errValidation)
			}
		default:
			return fmt.Errorf("%w: unknown entropy %q", errValidation, *req.Entropy)
		}
	}
	if req.MaxAttempts != nil && *req.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive", errValidation)
	}
	return nil
}
