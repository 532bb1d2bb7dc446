package view

import (
	"strconv"

	"jobportal/internal/domain"
	"jobportal/internal/state"
)

// CardView is one job card on the list page.
type CardView struct {
	Job       domain.Job
	Summary   string
	Truncated bool
	Expanded  bool
	ToggleURL string
	State     string
	Deleting  bool
}

// Modal is the delete confirmation dialog.
type Modal struct {
	JobID    int64
	Title    string
	From     string
	Deleting bool
	Err      string
}

type ListPage struct {
	Cards   []CardView
	Loading bool
	Error   string
	Modal   *Modal
}

// ListOptions carry the per-request parts of the list page.
type ListOptions struct {
	TruncateAt int
	Expand     int64 // id whose description is shown in full, 0 for none
	Confirm    int64 // id whose delete modal is open, 0 for none
}

// NewListPage builds the list page from a store snapshot. Cards keep
// backend order.
func NewListPage(snap state.Snapshot, cards *state.Cards, opts ListOptions) ListPage {
	p := ListPage{
		Cards:   make([]CardView, 0, len(snap.Jobs)),
		Loading: snap.Loading,
		Error:   snap.Error,
	}
	for _, j := range snap.Jobs {
		c := cards.Get(j.ID)
		cv := CardView{
			Job:      j,
			State:    c.State.String(),
			Deleting: c.State == state.CardDeleting,
			Expanded: opts.Expand == j.ID,
		}
		cv.Summary, cv.Truncated = Truncate(j.Description, opts.TruncateAt)
		if cv.Expanded {
			cv.Summary = j.Description
		}
		if cv.Truncated {
			cv.ToggleURL = "/"
			if !cv.Expanded {
				cv.ToggleURL = "/?expand=" + strconv.FormatInt(j.ID, 10)
			}
		}
		p.Cards = append(p.Cards, cv)

		if opts.Confirm == j.ID && c.State != state.CardIdle {
			p.Modal = NewModal(j, c, "list")
		}
	}
	return p
}

func NewModal(j domain.Job, c state.Card, from string) *Modal {
	return &Modal{
		JobID:    j.ID,
		Title:    j.Title,
		From:     from,
		Deleting: c.State == state.CardDeleting,
		Err:      c.Err,
	}
}

// Truncate cuts s to n characters and appends an ellipsis. n <= 0 keeps s whole.
func Truncate(s string, n int) (string, bool) {
	if n <= 0 {
		return s, false
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]) + "...", true
}
