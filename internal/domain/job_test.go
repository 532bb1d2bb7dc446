package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSalary(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		nil  bool
	}{
		{in: "", nil: true},
		{in: "   ", nil: true},
		{in: "abc", nil: true},
		{in: "12.5", nil: true},
		{in: "-3", nil: true},
		{in: "4000000", want: 4000000},
		{in: " 350000 ", want: 350000},
		{in: "5,000,000", want: 5000000},
	}
	for _, c := range cases {
		got := ParseSalary(c.in)
		if c.nil {
			if got != nil {
				t.Errorf("ParseSalary(%q) = %d, want nil", c.in, *got)
			}
			continue
		}
		if got == nil || *got != c.want {
			t.Errorf("ParseSalary(%q) = %v, want %d", c.in, got, c.want)
		}
	}
}

func TestDraftBodyOmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(Draft{Title: "Go Engineer", Company: "Acme", Salary: "n/a"}.Body())
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "salary") || strings.Contains(s, "location") {
		t.Fatalf("expected salary and location to be omitted, got %s", s)
	}
	if !strings.Contains(s, `"description":""`) {
		t.Fatalf("description should always be sent, got %s", s)
	}
}
