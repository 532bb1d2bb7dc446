// Package view renders the list, detail and form pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names accepted by Render.
const (
	PageList   = "list"
	PageDetail = "detail"
	PageForm   = "form"
)

var funcs = template.FuncMap{
	"salary": formatSalary,
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Local().Format("Jan 2, 2006")
	},
}

type layout struct {
	Site string
	Live bool
	Page any
}

type Renderer struct {
	site  atomic.Pointer[string]
	pages map[string]*template.Template
}

func NewRenderer(siteTitle string) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	r.SetSite(siteTitle)
	for _, name := range []string{PageList, PageDetail, PageForm} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/modal.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// SetSite changes the title shown in the page header and browser tab.
func (r *Renderer) SetSite(title string) {
	r.site.Store(&title)
}

// Render writes the page. Output is buffered so a template error never
// leaves a half-written page.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	err := t.ExecuteTemplate(&buf, "layout", layout{
		Site: *r.site.Load(),
		Live: page == PageList,
		Page: data,
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// formatSalary groups thousands: 1200000 -> 1,200,000.
func formatSalary(p *int64) string {
	if p == nil {
		return ""
	}
	s := strconv.FormatInt(*p, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
