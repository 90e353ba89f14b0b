package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/ingest"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
	"github.com/sirupsen/logrus"
)

// campaignDateLayout is the layout of <input type="date"> values.
const campaignDateLayout = "2006-01-02"

// HandlePage renders the dashboard.
//
//	GET /
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadSession(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()
	a, err := analyze(st, h.builder, now)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Render(w, st, a, now); err != nil {
		h.log.WithError(err).Error("render page")
	}
}

// HandleUpload stores one spreadsheet in the session. A file that cannot be
// read replaces the slot with an inline error; the other slot is untouched.
//
//	POST /upload/{slot}   multipart field "file"
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	slot, ok := session.ParseSlot(chi.URLParam(r, "slot"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown upload slot")
		return
	}

	st, err := h.loadSession(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	upload, err := h.readUpload(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.WithFields(logrus.Fields{
		"session": st.ID,
		"slot":    slot,
		"file":    upload.Filename,
		"failed":  upload.Error != "",
	}).Info("upload received")

	next := st.WithUpload(slot, upload, h.now())
	if !h.saveSession(w, r, next) {
		return
	}
	h.finish(w, r, next)
}

// readUpload parses the multipart body. Only a missing file field is a
// request error; anything wrong with the file itself becomes Upload.Error.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (session.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return session.Upload{
				Filename: "upload",
				Error:    fmt.Sprintf("file exceeds the %d MB upload limit", h.cfg.MaxUploadBytes>>20),
			}, nil
		}
		return session.Upload{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return session.Upload{}, errors.New("file field is required")
	}
	defer file.Close()

	tbl, err := ingest.Read(header.Filename, file)
	if err != nil {
		return session.Upload{Filename: header.Filename, Error: err.Error()}, nil
	}
	return session.Upload{Filename: header.Filename, Table: tbl}, nil
}

// HandleCampaign updates the display-only campaign metadata. An empty name
// or an unparsable date keeps the previous value.
//
//	POST /campaign   name, date (YYYY-MM-DD)
func (h *Handlers) HandleCampaign(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadSession(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form")
		return
	}

	c := st.Campaign
	if name := strings.TrimSpace(r.PostForm.Get("name")); name != "" {
		c.Name = name
	}
	if d, err := time.Parse(campaignDateLayout, strings.TrimSpace(r.PostForm.Get("date"))); err == nil {
		c.Date = d
	}

	next := st.WithCampaign(c, h.now())
	if !h.saveSession(w, r, next) {
		return
	}
	h.finish(w, r, next)
}

// HandleReset drops the session with both uploads and starts a fresh one
// that keeps the campaign metadata.
//
//	POST /reset
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadSession(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), st.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	next := session.New(st.Campaign, h.now())
	if !h.saveSession(w, r, next) {
		return
	}
	h.setCookie(w, next.ID)
	h.log.WithFields(logrus.Fields{
		"session":  st.ID,
		"replaced": next.ID,
	}).Info("session reset")
	h.finish(w, r, next)
}

// HandleAnalysis returns the dashboard model, or 409 with the inline
// messages while either upload is missing or unusable.
//
//	GET /api/analysis
func (h *Handlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	st, err := h.loadSession(w, r)
	if err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, safeErrorMessage(http.StatusInternalServerError, err))
		return
	}

	a, err := analyze(st, h.builder, h.now())
	if err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, safeErrorMessage(http.StatusInternalServerError, err))
		return
	}
	if !a.Available() {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "analysis not available",
			"messages":  a.Messages(),
			"opens":     a.Opens,
			"purchases": a.Purchases,
		})
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// HandleExport streams one detail view as a CSV attachment. Exports are
// never truncated.
//
//	GET /export/{view}
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	key, err := report.ParseViewKey(chi.URLParam(r, "view"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	st, err := h.loadSession(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	a, err := analyze(st, h.builder, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !a.Available() {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    "analysis not available",
			"messages": a.Messages(),
		})
		return
	}

	view, _ := a.Dashboard.View(key)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, view.Filename))
	if err := report.WriteCSV(w, view); err != nil {
		h.log.WithError(err).WithField("view", key).Error("write export")
	}
}
