package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"jobportal/internal/config"
	"jobportal/internal/domain"
	"jobportal/internal/events"
	"jobportal/internal/logger"
	"jobportal/internal/state"
	"jobportal/internal/validate"
	"jobportal/internal/view"
)

type JobsHandler struct {
	Store     *state.Store
	Renderer  *view.Renderer
	CfgVal    *atomic.Value // stores config.Config
	Validator *atomic.Pointer[validate.Validator]
}

func (h JobsHandler) cfg() config.Config {
	return h.CfgVal.Load().(config.Config)
}

func (h JobsHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	// Render buffers, so a failure here has not written anything yet.
	rw := &deferredWriter{ResponseWriter: w, status: status}
	if err := h.Renderer.Render(rw, page, data); err != nil {
		l := logger.Component("http")
		l.Error().Err(err).Str("request_id", events.RequestIDFrom(r.Context())).Str("page", page).Msg("render failed")
		WriteError(w, r, http.StatusInternalServerError, "render_failed", "could not render page")
	}
}

// deferredWriter sends the status with the first body write.
type deferredWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (d *deferredWriter) Write(b []byte) (int, error) {
	if !d.wrote {
		d.wrote = true
		d.ResponseWriter.WriteHeader(d.status)
	}
	return d.ResponseWriter.Write(b)
}

func (h JobsHandler) listPage(r *http.Request, confirm int64) view.ListPage {
	expand, _ := strconv.ParseInt(r.URL.Query().Get("expand"), 10, 64)
	return view.NewListPage(h.Store.Snapshot(), h.Store.Cards(), view.ListOptions{
		TruncateAt: h.cfg().Display.TruncateAt,
		Expand:     expand,
		Confirm:    confirm,
	})
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageList, h.listPage(r, 0))
}

func (h JobsHandler) New(w http.ResponseWriter, r *http.Request) {
	f := view.NewForm(h.Validator.Load(), domain.Draft{})
	h.render(w, r, http.StatusOK, view.PageForm, f.Page())
}

func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_form", "invalid form body")
		return
	}
	d := domain.Draft{
		Title:       r.PostForm.Get("title"),
		Company:     r.PostForm.Get("company"),
		Description: r.PostForm.Get("description"),
		Location:    r.PostForm.Get("location"),
		Salary:      r.PostForm.Get("salary"),
	}

	f := view.NewForm(h.Validator.Load(), d)
	_, err := f.Submit(r.Context(), h.Store)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, view.ErrInvalid):
		h.render(w, r, http.StatusUnprocessableEntity, view.PageForm, f.Page())
	default:
		h.render(w, r, http.StatusBadGateway, view.PageForm, f.Page())
	}
}

func (h JobsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, false)
}

func (h JobsHandler) detail(w http.ResponseWriter, r *http.Request, confirm bool) {
	id, ok := pathID(r)
	if !ok {
		h.render(w, r, http.StatusNotFound, view.PageDetail, view.DetailPage{Error: state.MsgNotFound, NotFound: true})
		return
	}

	d := view.NewDetail(h.Store)
	if !d.Load(r.Context(), id) {
		// client went away mid-fetch
		return
	}
	p := d.Page(h.Store.Cards(), confirm)

	status := http.StatusOK
	switch {
	case p.NotFound:
		status = http.StatusNotFound
	case p.Error != "":
		status = http.StatusBadGateway
	}
	h.render(w, r, status, view.PageDetail, p)
}

// ConfirmDelete opens the confirmation dialog over the page it came from.
func (h JobsHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.confirmDelete(w, r, http.StatusOK)
}

func (h JobsHandler) confirmDelete(w http.ResponseWriter, r *http.Request, status int) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	// A card already deleting stays deleting; the dialog shows it disabled.
	_ = h.Store.Cards().Confirm(id)

	if origin(r) == "detail" {
		h.detail(w, r, true)
		return
	}

	p := h.listPage(r, id)
	if p.Modal == nil {
		// job is gone from the list
		h.Store.Cards().Cancel(id)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, status, view.PageList, p)
}

func (h JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	prompt := "/jobs/" + strconv.FormatInt(id, 10) + "/delete?from=" + origin(r)

	err := h.Store.ConfirmDelete(r.Context(), id)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, state.ErrDeleteInProgress):
		h.confirmDelete(w, r, http.StatusConflict)
	default:
		// The card is back in confirming with the message for the dialog.
		http.Redirect(w, r, prompt, http.StatusSeeOther)
	}
}

func (h JobsHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.Store.Cards().Cancel(id)
	if origin(r) == "detail" {
		http.Redirect(w, r, "/jobs/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Refresh reloads the job list, then sends the browser to next.
func (h JobsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.FetchJobs(r.Context()); err != nil {
		l := logger.Component("http")
		l.Debug().Err(err).Str("request_id", events.RequestIDFrom(r.Context())).Msg("refresh failed")
	}
	http.Redirect(w, r, localPath(r.URL.Query().Get("next")), http.StatusSeeOther)
}
