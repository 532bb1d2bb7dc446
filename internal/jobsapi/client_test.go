package jobsapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobportal/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://nope"} {
		if _, err := New(Options{BaseURL: raw}); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestListPreservesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"id":3,"title":"c"},{"id":1,"title":"a"},{"id":2,"title":"b"}]`)
	})

	jobs, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []int64
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("order not preserved: %v", ids)
	}
}

func TestListEmptyArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	jobs, err := c.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if jobs == nil || len(jobs) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", jobs)
	}
}

func TestListNon2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.List(context.Background())
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("want 500 StatusError, got %v", err)
	}
	if IsTransport(err) {
		t.Fatal("status error reported as transport error")
	}
}

func TestGetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetServerErrorIsNotNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Get(context.Background(), 1)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("want generic error, got %v", err)
	}
}

func TestCreateSendsJSONBody(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{"id":9,"title":"Backend Engineer","company":"Acme"}`)
	})

	j, err := c.Create(context.Background(), domain.Draft{
		Title:   "Backend Engineer",
		Company: "Acme",
		Salary:  "6000000",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.ID != 9 {
		t.Fatalf("id = %d", j.ID)
	}
	if got["salary"] != float64(6000000) {
		t.Fatalf("salary = %v", got["salary"])
	}
	if _, ok := got["location"]; ok {
		t.Fatal("empty location should be omitted")
	}
}

func TestCreateAcceptsNonJSONAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created")
	})
	if _, err := c.Create(context.Background(), domain.Draft{Title: "abc", Company: "xy"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestDelete(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = io.WriteString(w, "Job deleted with ID: 7")
	})
	if err := c.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if method != http.MethodDelete || path != "/api/jobs/7" {
		t.Fatalf("got %s %s", method, path)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.List(context.Background())
	if err == nil || !IsTransport(err) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestHostLimiterDisabled(t *testing.T) {
	if NewHostLimiter(0, 5) != nil {
		t.Fatal("zero rate should disable limiting")
	}
	var hl *HostLimiter
	if err := hl.WaitURL(context.Background(), "http://x"); err != nil {
		t.Fatal(err)
	}
}

func TestHostLimiterHonorsContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := hl.WaitURL(ctx, "http://backend/api/jobs"); err != nil {
		t.Fatalf("first token should be free: %v", err)
	}
	cancel()
	if err := hl.WaitURL(ctx, "http://backend/api/jobs"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
