package domain

import (
	"strconv"
	"strings"
	"time"
)

// Job is a listing as exchanged with the backend.
type Job struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Description string     `json:"description"`
	Location    string     `json:"location,omitempty"`
	Salary      *int64     `json:"salary,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Draft holds the raw form input for a new job. Salary stays text until
// the request body is built.
type Draft struct {
	Title       string
	Company     string
	Description string
	Location    string
	Salary      string
}

// NewJob is the POST body for job creation.
type NewJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Salary      *int64 `json:"salary,omitempty"`
}

// Body converts the draft into the request body. An empty or unparsable
// salary is dropped.
func (d Draft) Body() NewJob {
	return NewJob{
		Title:       d.Title,
		Company:     d.Company,
		Description: d.Description,
		Location:    strings.TrimSpace(d.Location),
		Salary:      ParseSalary(d.Salary),
	}
}

// ParseSalary returns nil for blank, non-numeric or negative input.
func ParseSalary(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
