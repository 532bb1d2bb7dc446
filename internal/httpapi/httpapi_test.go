package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"jobportal/internal/config"
	"jobportal/internal/domain"
	"jobportal/internal/events"
	"jobportal/internal/jobsapi"
	"jobportal/internal/metrics"
	"jobportal/internal/state"
	"jobportal/internal/validate"
	"jobportal/internal/view"

	"github.com/PuerkitoBio/goquery"
	dto "github.com/prometheus/client_model/go"
)

// backend is an in-memory /api/jobs server that records every call.
type backend struct {
	mu         sync.Mutex
	jobs       []domain.Job
	calls      []string
	failCreate bool
	failDelete bool
	nextID     int64
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)

	if r.URL.Path == "/api/jobs" {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(b.jobs)
		case http.MethodPost:
			if b.failCreate {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			var in domain.NewJob
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			b.nextID++
			j := domain.Job{ID: b.nextID, Title: in.Title, Company: in.Company, Description: in.Description, Location: in.Location, Salary: in.Salary}
			b.jobs = append(b.jobs, j)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(j)
		}
		return
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	for i, j := range b.jobs {
		if j.ID != id {
			continue
		}
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(j)
		case http.MethodDelete:
			if b.failDelete {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			b.jobs = append(b.jobs[:i], b.jobs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}
	http.NotFound(w, r)
}

func (b *backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *backend) reset() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

func (b *backend) set(f func(b *backend)) {
	b.mu.Lock()
	f(b)
	b.mu.Unlock()
}

type env struct {
	be      *backend
	store   *state.Store
	handler http.Handler
	cfgPath string
	cfgVal  *atomic.Value
}

func newEnv(t *testing.T) *env {
	t.Helper()
	be := &backend{
		jobs: []domain.Job{
			{ID: 7, Title: "Backend Engineer", Company: "Acme", Description: "Go services"},
			{ID: 2, Title: "Designer", Company: "Initech", Description: "Figma"},
			{ID: 5, Title: "QA Lead", Company: "Globex"},
		},
		nextID: 100,
	}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	api, err := jobsapi.New(jobsapi.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	hub := events.NewHub()
	st := state.New(api, hub)
	t.Cleanup(st.Close)

	r, err := view.NewRenderer("Test Portal")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	var v atomic.Pointer[validate.Validator]
	v.Store(validate.New(cfg.Rules()))

	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	mux := NewMux(Deps{
		Store:       st,
		Renderer:    r,
		Hub:         hub,
		CfgVal:      &cfgVal,
		Validator:   &v,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
		OnConfig: func(c config.Config) {
			if api, err := jobsapi.New(jobsapi.Options{BaseURL: c.Backend.BaseURL}); err == nil {
				st.SetBackend(api)
			}
			r.SetSite(c.Display.SiteTitle)
			v.Store(validate.New(c.Rules()))
		},
	})

	if err := st.FetchJobs(context.Background()); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	be.reset()
	return &env{be: be, store: st, handler: Handler(mux), cfgPath: cfgPath, cfgVal: &cfgVal}
}

func (e *env) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func doc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return d
}

func equalCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("backend calls = %v, want %v", got, want)
	}
}

func TestListShowsEveryJob(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	d := doc(t, rec)
	if n := d.Find("article.card").Length(); n != 3 {
		t.Fatalf("cards = %d, want 3", n)
	}
	if first, _ := d.Find("article.card").First().Attr("data-id"); first != "7" {
		t.Fatalf("first card = %q", first)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	if len(e.be.Calls()) != 0 {
		t.Fatalf("list view hit the backend: %v", e.be.Calls())
	}
}

func TestJobsRedirectsToList(t *testing.T) {
	e := newEnv(t)
	for _, p := range []string{"/jobs", "/jobs/"} {
		rec := e.do(t, http.MethodGet, p, nil)
		if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/" {
			t.Fatalf("%s -> %d %q", p, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/jobs/refresh", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "POST" {
		t.Fatalf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestNewFormRenders(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/jobs/new", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if doc(t, rec).Find("form#job-form").Length() != 1 {
		t.Fatal("form missing")
	}
}

func TestCreateInvalidSendsNothing(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/jobs", url.Values{"title": {"Go"}, "company": {"Acme"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	d := doc(t, rec)
	if got := strings.TrimSpace(d.Find("#form-error").Text()); !strings.Contains(got, "Title") {
		t.Fatalf("error = %q", got)
	}
	if v, _ := d.Find("#title").Attr("value"); v != "Go" {
		t.Fatalf("title not retained: %q", v)
	}
	equalCalls(t, e.be.Calls())
}

func TestCreatePostsThenRefreshes(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/jobs", url.Values{
		"title":   {"Platform Engineer"},
		"company": {"Hooli"},
		"salary":  {"120,000"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("create -> %d %q", rec.Code, rec.Header().Get("Location"))
	}
	equalCalls(t, e.be.Calls(), "POST /api/jobs", "GET /api/jobs")

	snap := e.store.Snapshot()
	if len(snap.Jobs) != 4 || snap.Jobs[3].Title != "Platform Engineer" {
		t.Fatalf("jobs = %+v", snap.Jobs)
	}
	if s := snap.Jobs[3].Salary; s == nil || *s != 120000 {
		t.Fatalf("salary = %v", s)
	}
}

func TestCreateBackendFailure(t *testing.T) {
	e := newEnv(t)
	e.be.set(func(b *backend) { b.failCreate = true })

	rec := e.do(t, http.MethodPost, "/jobs", url.Values{"title": {"Platform Engineer"}, "company": {"Hooli"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(doc(t, rec).Find("#form-error").Text()); got != state.MsgCreateFailed {
		t.Fatalf("error = %q", got)
	}
}

func TestDeleteFlow(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/jobs/7/delete?from=list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("prompt status = %d", rec.Code)
	}
	if id, _ := doc(t, rec).Find("#confirm-modal").Attr("data-id"); id != "7" {
		t.Fatalf("modal id = %q", id)
	}

	rec = e.do(t, http.MethodPost, "/jobs/7/delete?from=list", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("delete -> %d %q", rec.Code, rec.Header().Get("Location"))
	}
	equalCalls(t, e.be.Calls(), "DELETE /api/jobs/7", "GET /api/jobs")

	if n := len(e.store.Snapshot().Jobs); n != 2 {
		t.Fatalf("jobs after delete = %d", n)
	}
	if st := e.store.Cards().Get(7).State; st != state.CardIdle {
		t.Fatalf("card state = %v", st)
	}
}

func TestDeleteWithoutConfirmation(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/jobs/7/delete", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/jobs/7/delete?from=list" {
		t.Fatalf("delete -> %d %q", rec.Code, rec.Header().Get("Location"))
	}
	equalCalls(t, e.be.Calls())
}

func TestDeleteFailureShowsErrorInDialog(t *testing.T) {
	e := newEnv(t)
	e.be.set(func(b *backend) { b.failDelete = true })

	e.do(t, http.MethodGet, "/jobs/7/delete?from=list", nil)
	rec := e.do(t, http.MethodPost, "/jobs/7/delete?from=list", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, rec.Header().Get("Location"), nil)
	d := doc(t, rec)
	if got := d.Find("#modal-error").Text(); got != state.MsgDeleteFailed {
		t.Fatalf("modal error = %q", got)
	}
	if d.Find("article.card").Length() != 3 {
		t.Fatal("job removed before backend confirmed")
	}
}

func TestCancelDelete(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodGet, "/jobs/7/delete?from=detail", nil)
	rec := e.do(t, http.MethodPost, "/jobs/7/delete/cancel?from=detail", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/jobs/7" {
		t.Fatalf("cancel -> %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if st := e.store.Cards().Get(7).State; st != state.CardIdle {
		t.Fatalf("card state = %v", st)
	}
}

func TestDetail(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/jobs/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := doc(t, rec).Find("#job-detail .title").Text(); got != "Designer" {
		t.Fatalf("title = %q", got)
	}
	equalCalls(t, e.be.Calls(), "GET /api/jobs/2")
}

func TestDetailNotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/jobs/404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := doc(t, rec).Find("#detail-error .error").Text(); got != state.MsgNotFound {
		t.Fatalf("message = %q", got)
	}
}

func TestRefreshRedirectsLocally(t *testing.T) {
	e := newEnv(t)
	cases := map[string]string{
		"/jobs/refresh?next=/":              "/",
		"/jobs/refresh?next=/jobs/new":      "/jobs/new",
		"/jobs/refresh?next=//evil.example": "/",
		"/jobs/refresh?next=https://x.y":    "/",
		"/jobs/refresh":                     "/",
	}
	for target, want := range cases {
		rec := e.do(t, http.MethodPost, target, nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != want {
			t.Errorf("%s -> %d %q, want %q", target, rec.Code, rec.Header().Get("Location"), want)
		}
	}
	for _, c := range e.be.Calls() {
		if c != "GET /api/jobs" {
			t.Fatalf("unexpected call %q", c)
		}
	}
}

func TestConfigGetAndPut(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/config", nil)
	var got config.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Display.SiteTitle != "Mini Job Portal" {
		t.Fatalf("site title = %q", got.Display.SiteTitle)
	}

	other := &backend{jobs: []domain.Job{{ID: 40, Title: "Moved Role", Company: "Elsewhere"}}, nextID: 41}
	otherSrv := httptest.NewServer(other)
	defer otherSrv.Close()

	got.Display.SiteTitle = "  Portal  "
	got.Backend.BaseURL = otherSrv.URL
	got.Validation.TitleMin = 12
	b, _ := json.Marshal(got)
	req := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(b))
	out := httptest.NewRecorder()
	e.handler.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", out.Code, out.Body.String())
	}
	if cur := e.cfgVal.Load().(config.Config); cur.Display.SiteTitle != "Portal" {
		t.Fatalf("stored title = %q", cur.Display.SiteTitle)
	}

	// the running server picks up the new values
	if err := e.store.FetchJobs(context.Background()); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, e.be.Calls())
	d := doc(t, e.do(t, http.MethodGet, "/", nil))
	if got := d.Find("title").Text(); got != "Portal" {
		t.Fatalf("page title = %q", got)
	}
	if d.Find("article.card").Length() != 1 || !strings.Contains(d.Find("article.card").Text(), "Moved Role") {
		t.Fatalf("list not served from new backend: %q", d.Find("main").Text())
	}

	rec = e.do(t, http.MethodPost, "/jobs", url.Values{"title": {"Short"}, "company": {"Acme"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create with short title status = %d", rec.Code)
	}
	equalCalls(t, other.Calls(), "GET /api/jobs")
}

func TestConfigPutRejectsStartupKeys(t *testing.T) {
	e := newEnv(t)
	cfg := config.Default()
	cfg.App.Port = 9999
	b, _ := json.Marshal(cfg)

	req := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var vr config.Validation
	if err := json.NewDecoder(rec.Body).Decode(&vr); err != nil {
		t.Fatal(err)
	}
	if len(vr.Errors) != 1 || !strings.HasPrefix(vr.Errors[0], "app.port ") {
		t.Fatalf("errors = %v", vr.Errors)
	}
	if cur := e.cfgVal.Load().(config.Config); cur.App.Port != config.Default().App.Port {
		t.Fatalf("port changed to %d", cur.App.Port)
	}
}

func TestConfigPutRejectsInvalid(t *testing.T) {
	e := newEnv(t)
	cfg := config.Default()
	cfg.App.Port = 0
	b, _ := json.Marshal(cfg)

	req := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var vr config.Validation
	if err := json.NewDecoder(rec.Body).Decode(&vr); err != nil || len(vr.Errors) == 0 {
		t.Fatalf("validation = %+v, %v", vr, err)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/health", nil)
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["ok"] != true || body["jobs"] != float64(3) || body["subscribers"] != float64(0) {
		t.Fatalf("health = %v", body)
	}
}

func TestRecoverWritesEnvelope(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID, Recover)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var e APIError
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}
	if e.Error.Code != "internal_error" || e.Error.RequestID != "req-1" {
		t.Fatalf("envelope = %+v", e)
	}
}

func TestPanicsAreCounted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Handler(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	var m dto.Metric
	if err := metrics.HTTPRequestsTotal.WithLabelValues("GET /boom", "GET", "500").Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("counted %v panics", got)
	}
}
