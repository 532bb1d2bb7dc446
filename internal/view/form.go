package view

import (
	"context"
	"errors"

	"jobportal/internal/domain"
	"jobportal/internal/state"
	"jobportal/internal/validate"
)

// Creator registers a validated draft. state.Store satisfies it.
type Creator interface {
	CreateJob(ctx context.Context, d domain.Draft) (domain.Job, error)
}

type FormPage struct {
	Draft domain.Draft
	Error string
	Rules validate.Rules
}

// Submit outcomes.
var (
	ErrInvalid      = errors.New("invalid job")
	ErrCreateFailed = errors.New("job creation failed")
)

// Form is the new-job form. Input survives a failed submit.
type Form struct {
	v     *validate.Validator
	draft domain.Draft
	err   string
}

func NewForm(v *validate.Validator, d domain.Draft) *Form {
	return &Form{v: v, draft: d}
}

// Submit validates and creates the job. Nothing is sent when validation
// fails. The returned error wraps ErrInvalid or ErrCreateFailed.
func (f *Form) Submit(ctx context.Context, c Creator) (domain.Job, error) {
	f.err = ""
	if err := f.v.Draft(f.draft); err != nil {
		f.err = err.Error()
		return domain.Job{}, errors.Join(ErrInvalid, err)
	}
	j, err := c.CreateJob(ctx, f.draft)
	if err != nil {
		f.err = state.Message(err)
		return domain.Job{}, errors.Join(ErrCreateFailed, err)
	}
	return j, nil
}

func (f *Form) Page() FormPage {
	return FormPage{Draft: f.draft, Error: f.err, Rules: f.v.Rules()}
}
