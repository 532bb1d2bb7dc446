// Package validate checks new-job form input before it is sent.
package validate

import (
	"fmt"
	"strings"

	"jobportal/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Rules are the length bounds for a new job. Lengths count characters.
type Rules struct {
	TitleMin         int
	TitleMax         int
	CompanyMin       int
	CompanyMax       int
	DescriptionMax   int
	LocationRequired bool
	LocationMax      int
}

func DefaultRules() Rules {
	return Rules{
		TitleMin:       3,
		TitleMax:       100,
		CompanyMin:     2,
		CompanyMax:     50,
		DescriptionMax: 200,
		LocationMax:    100,
	}
}

// Error is a single validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

type Validator struct {
	rules Rules
	v     *validator.Validate
}

func New(rules Rules) *Validator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{rules: rules, v: v}
}

func (v *Validator) Rules() Rules { return v.rules }

type check struct {
	field string
	value string
	tag   string
	msg   string
}

// Draft validates d and returns the first failing rule as *Error, or nil.
func (v *Validator) Draft(d domain.Draft) error {
	r := v.rules

	checks := []check{
		{
			field: "title",
			value: d.Title,
			tag:   fmt.Sprintf("notblank,min=%d,max=%d", r.TitleMin, r.TitleMax),
			msg:   fmt.Sprintf("Title is required and must be %d-%d characters.", r.TitleMin, r.TitleMax),
		},
		{
			field: "company",
			value: d.Company,
			tag:   fmt.Sprintf("notblank,min=%d,max=%d", r.CompanyMin, r.CompanyMax),
			msg:   fmt.Sprintf("Company is required and must be %d-%d characters.", r.CompanyMin, r.CompanyMax),
		},
		{
			field: "description",
			value: d.Description,
			tag:   fmt.Sprintf("max=%d", r.DescriptionMax),
			msg:   fmt.Sprintf("Description must be at most %d characters.", r.DescriptionMax),
		},
	}
	if r.LocationRequired {
		checks = append(checks, check{
			field: "location",
			value: d.Location,
			tag:   fmt.Sprintf("notblank,max=%d", r.LocationMax),
			msg:   fmt.Sprintf("Location is required and must be at most %d characters.", r.LocationMax),
		})
	} else if r.LocationMax > 0 {
		checks = append(checks, check{
			field: "location",
			value: d.Location,
			tag:   fmt.Sprintf("max=%d", r.LocationMax),
			msg:   fmt.Sprintf("Location must be at most %d characters.", r.LocationMax),
		})
	}

	for _, c := range checks {
		if err := v.v.Var(c.value, c.tag); err != nil {
			return &Error{Field: c.field, Message: c.msg}
		}
	}
	return nil
}
