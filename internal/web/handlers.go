package web

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/brand"
	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
	"github.com/hpungsan/mailsort/internal/present"
	"github.com/hpungsan/mailsort/internal/session"
)

// maxUploadBytes bounds multipart bodies (email attachments and logos).
const maxUploadBytes = email.MaxAttachmentBytes + 1<<20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	machine  *session.Machine
	brands   *brand.Manager
	renderer *Renderer
	log      zerolog.Logger
}

// HandleIndex handles GET /: the classifier page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, IndexPageData{})
}

// HandleClassify handles POST /classify: submit pasted text or an attached file.
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && err != http.ErrNotMultipart {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	req, attachment, err := classifyRequest(r)
	if err != nil {
		h.respond(w, r, err, IndexPageData{})
		return
	}

	// The submission belongs to the session, not to this request: a closed
	// tab must not cancel it. The client's own deadline still applies.
	_, err = h.machine.Submit(context.WithoutCancel(r.Context()), req)
	h.respond(w, r, err, IndexPageData{Attachment: attachment})
}

// classifyRequest builds the submission from the form. A non-empty file wins
// over pasted text; dropped files must be .pdf or .txt.
func classifyRequest(r *http.Request) (email.Request, *Attachment, error) {
	file, hdr, err := r.FormFile("email_file")
	if err == nil {
		defer file.Close()
		if hdr.Size > 0 {
			if r.FormValue("source") == "drop" && !email.ValidateDrop(hdr.Filename) {
				return email.Request{}, nil, errors.NewValidation(email.DropMessage)
			}
			payload, err := io.ReadAll(file)
			if err != nil {
				return email.Request{}, nil, errors.NewInvalidRequest("could not read the attached file")
			}
			att := &Attachment{Name: hdr.Filename, Size: present.FileSize(hdr.Size)}
			return email.NewFileRequest(hdr.Filename, payload, ""), att, nil
		}
	}
	return email.NewTextRequest(r.FormValue("email_text"), ""), nil, nil
}

// HandleLanguage handles POST /lang/{lang}: switch the reply language.
func (h *Handlers) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	_, err := h.machine.SetLanguage(r.Context(), r.PathValue("lang"))
	h.respond(w, r, err, IndexPageData{})
}

// HandleClear handles POST /clear: drop the current result and override.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.machine.Clear()
	h.redirectHome(w, r)
}

// HandleBrandName handles POST /brand/name.
func (h *Handlers) HandleBrandName(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if _, err := h.brands.Rename(r.Context(), r.FormValue("name")); err != nil {
		h.respond(w, r, err, IndexPageData{})
		return
	}
	h.redirectHome(w, r)
}

// HandleLogoUpload handles POST /brand/logo: stage a logo and ask for consent.
func (h *Handlers) HandleLogoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	file, hdr, err := r.FormFile("logo")
	if err != nil {
		h.respond(w, r, errors.NewInvalidRequest("choose an image file"), IndexPageData{})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, brand.MaxLogoBytes+1))
	if err != nil {
		h.respond(w, r, errors.NewInvalidRequest("could not read the logo file"), IndexPageData{})
		return
	}

	pending, err := h.brands.StageLogo(hdr.Header.Get("Content-Type"), data)
	if err != nil {
		h.respond(w, r, err, IndexPageData{})
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"pending": pending})
		return
	}
	h.renderIndex(w, r, http.StatusOK, IndexPageData{})
}

// HandleLogoApply handles POST /brand/logo/apply: requires consent=true.
func (h *Handlers) HandleLogoApply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	consent := r.FormValue("consent")
	if _, err := h.brands.ApplyLogo(r.Context(), consent == "true" || consent == "on"); err != nil {
		h.respond(w, r, err, IndexPageData{})
		return
	}
	h.redirectHome(w, r)
}

// HandleLogoCancel handles POST /brand/logo/cancel.
func (h *Handlers) HandleLogoCancel(w http.ResponseWriter, r *http.Request) {
	h.brands.CancelLogo()
	h.redirectHome(w, r)
}

// HandleLogoReset handles POST /brand/logo/reset.
func (h *Handlers) HandleLogoReset(w http.ResponseWriter, r *http.Request) {
	h.brands.ResetLogo(r.Context())
	h.redirectHome(w, r)
}

// respond renders the page after an action. err, if any, is shown as a
// notice banner with its status code.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, err error, data IndexPageData) {
	status := http.StatusOK
	if err != nil {
		appErr := errors.As(err)
		status = appErr.Status
		data.Notice = appErr.Message
		data.NoticeCode = string(appErr.Code)
		if appErr.Code == errors.ErrInternal {
			h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
	}

	if wantsJSON(r) {
		body := map[string]any{"session": h.machine.Snapshot(), "brand": h.brands.Current()}
		if err != nil {
			appErr := errors.As(err)
			body["error"] = map[string]any{
				"code":    string(appErr.Code),
				"message": appErr.Message,
				"status":  appErr.Status,
			}
		}
		renderJSON(w, status, body)
		return
	}

	h.renderIndex(w, r, status, data)
}

// renderIndex fills the page from the machine and brand snapshots.
func (h *Handlers) renderIndex(w http.ResponseWriter, r *http.Request, status int, data IndexPageData) {
	snap := h.machine.Snapshot()
	b := h.brands.Current()

	data.PageData = PageData{
		Title:   b.Title(),
		Version: h.renderer.version,
		Brand:   b,
	}
	data.Snap = snap
	if snap.Current != nil && snap.Current.ReplyText != "" {
		data.ReplyHTML = renderMarkdown(snap.Current.ReplyText)
	}
	if data.Notice == "" {
		data.Notice = snap.Notice
		if snap.Notice != "" {
			data.NoticeCode = string(errors.ErrLanguageUnavailable)
		}
	}
	if data.Notice == "" && snap.State == session.Failed {
		data.Notice = snap.Error
		data.NoticeCode = snap.ErrorCode
	}
	if p := h.brands.Pending(); p != nil {
		data.Pending = p
		data.PendingKB = present.FileSize(int64(p.Size))
	}

	h.renderer.renderPageStatus(w, r, status, "index", data)
}

// redirectHome finishes a state-changing request.
func (h *Handlers) redirectHome(w http.ResponseWriter, r *http.Request) {
	// HTMX request: redirect via HX-Redirect header
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"session": h.machine.Snapshot(),
			"brand":   h.brands.Current(),
		})
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LangClass marks the active language toggle.
func (d IndexPageData) LangClass(l string) string {
	active := d.Snap.Override
	if d.Snap.Current != nil {
		active = d.Snap.Current.Lang
	}
	if active == l {
		return "lang-btn active"
	}
	return "lang-btn"
}

// Features returns the explanation's top signals as one line.
func (d IndexPageData) Features() string {
	if d.Snap.Current == nil || len(d.Snap.Current.View.Features) == 0 {
		return present.NoFeaturesText
	}
	return strings.Join(d.Snap.Current.View.Features, ", ")
}
