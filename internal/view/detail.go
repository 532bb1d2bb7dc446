package view

import (
	"context"

	"jobportal/internal/domain"
	"jobportal/internal/state"
)

// JobLoader fetches a single job. state.Store satisfies it.
type JobLoader interface {
	FetchJobDetails(ctx context.Context, id int64) (domain.Job, error)
}

type DetailPage struct {
	Job      *domain.Job
	Error    string
	NotFound bool
	Deleting bool
	Modal    *Modal
}

// Detail is the state of one detail page. Load fetches at most once per id.
type Detail struct {
	loader JobLoader
	id     int64
	loaded bool
	page   DetailPage
}

func NewDetail(loader JobLoader) *Detail {
	return &Detail{loader: loader}
}

// Load fetches id unless it is already loaded. It reports false when ctx
// ended while the fetch was running; the result is then discarded.
func (d *Detail) Load(ctx context.Context, id int64) bool {
	if d.loaded && d.id == id {
		return true
	}
	j, err := d.loader.FetchJobDetails(ctx, id)
	if ctx.Err() != nil {
		return false
	}

	d.id, d.loaded = id, true
	d.page = DetailPage{}
	if err != nil {
		d.page.Error = state.Message(err)
		d.page.NotFound = d.page.Error == state.MsgNotFound
		return true
	}
	d.page.Job = &j
	return true
}

// Page returns the loaded page with the card state of the job applied.
func (d *Detail) Page(cards *state.Cards, confirm bool) DetailPage {
	p := d.page
	if p.Job == nil {
		return p
	}
	c := cards.Get(p.Job.ID)
	p.Deleting = c.State == state.CardDeleting
	if confirm && c.State != state.CardIdle {
		p.Modal = NewModal(*p.Job, c, "detail")
	}
	return p
}
