package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/logging"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint and the page footer.
const Version = "1.0.0"

// HandlerConfig carries the request-level settings from config.
type HandlerConfig struct {
	CookieName     string
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store   session.Store
	builder *report.Builder
	cfg     HandlerConfig
	page    *pageRenderer
	now     func() time.Time
	log     *logrus.Entry
}

// NewHandlers creates a new Handlers instance
func NewHandlers(store session.Store, builder *report.Builder, cfg HandlerConfig) *Handlers {
	if cfg.CookieName == "" {
		cfg.CookieName = "convdash_session"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handlers{
		store:   store,
		builder: builder,
		cfg:     cfg,
		page:    newPageRenderer(builder),
		now:     time.Now,
		log:     logging.For("api"),
	}
}

// loadSession returns the caller's session, starting a new one when none
// exists or it has expired. The cookie is re-issued on every request so its
// lifetime follows the store's sliding TTL.
func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request) (*session.State, error) {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil && c.Value != "" {
		st, err := h.store.Load(r.Context(), c.Value)
		if err == nil {
			h.setCookie(w, st.ID)
			return st, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}

	now := h.now()
	st := session.New(report.DefaultCampaign(now, h.builder.Options().DateFormat), now)
	if err := h.store.Save(r.Context(), st); err != nil {
		return nil, err
	}
	h.setCookie(w, st.ID)
	h.log.WithField("session", st.ID).Debug("session started")
	return st, nil
}

func (h *Handlers) setCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.SessionTTL > 0 {
		c.MaxAge = int(h.cfg.SessionTTL.Seconds())
	}
	http.SetCookie(w, c)
}

// saveSession persists a derived snapshot.
func (h *Handlers) saveSession(w http.ResponseWriter, r *http.Request, st *session.State) bool {
	if err := h.store.Save(r.Context(), st); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

// fail answers with a sanitized 500 in the format the caller asked for.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg := safeErrorMessage(http.StatusInternalServerError, err)
	if wantsJSON(r) {
		respondSafeError(w, r, http.StatusInternalServerError, err, msg)
		return
	}
	respondSafeHTTPError(w, r, http.StatusInternalServerError, err, msg)
}

// finish ends a form post: JSON clients get the fresh analysis, browsers are
// redirected back to the page.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, st *session.State) {
	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	a, err := analyze(st, h.builder, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
