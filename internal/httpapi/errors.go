package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/session"
)

// Error types reported in APIError.Type.
const (
	ErrTypeLocked     = "locked"
	ErrTypeConflict   = "conflict"
	ErrTypeIllegal    = "illegal_attempt"
	ErrTypeNotFound   = "not_found"
	ErrTypeValidation = "validation"
	ErrTypeInternal   = "internal"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	RemainingMS int64  `json:"remaining_ms,omitempty"`
	Countdown   string `json:"countdown,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// classify maps an error to a status and body.
func classify(err error, lang language.Tag) (int, APIError) {
	var locked *cooldown.LockedError
	switch {
	case errors.As(err, &locked):
		return http.StatusTooManyRequests, APIError{
			Type:        ErrTypeLocked,
			Message:     err.Error(),
			RemainingMS: locked.Remaining.Milliseconds(),
			Countdown:   cooldown.Countdown(lang, locked.Remaining),
		}
	case errors.Is(err, session.ErrDrawInFlight), errors.Is(err, session.ErrNoPendingDraw):
		return http.StatusConflict, APIError{Type: ErrTypeConflict, Message: err.Error()}
	case errors.Is(err, engine.ErrIllegalAttempt):
		return http.StatusUnprocessableEntity, APIError{Type: ErrTypeIllegal, Message: err.Error()}
	case errors.Is(err, catalog.ErrUnknownVariant):
		return http.StatusNotFound, APIError{Type: ErrTypeNotFound, Message: err.Error()}
	case errors.Is(err, errValidation), errors.Is(err, session.ErrNoPlayer):
		return http.StatusBadRequest, APIError{Type: ErrTypeValidation, Message: err.Error()}
	}
	return http.StatusInternalServerError, APIError{Type: ErrTypeInternal, Message: "internal error"}
}

var errValidation = errors.New("invalid request")

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err, langOf(r))
	body.RequestID = middleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		s.Logger.Error().Err(err).Str("request_id", body.RequestID).Str("path", r.URL.Path).Msg("request failed")
	}
	if body.RemainingMS > 0 {
		secs := (time.Duration(body.RemainingMS)*time.Millisecond + time.Second - 1) / time.Second
		w.Header().Set("Retry-After", strconv.FormatInt(int64(secs), 10))
	}
	writeJSON(w, status, body)
}

// langOf picks the response language from ?lang= or Accept-Language.
func langOf(r *http.Request) language.Tag {
	if v := r.URL.Query().Get("lang"); v != "" {
		return cooldown.ParseLang(v)
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}
