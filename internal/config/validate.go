package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg with the problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.App.Host = strings.TrimSpace(out.App.Host)
	out.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(out.Backend.BaseURL), "/")
	out.Logging.Level = strings.ToLower(strings.TrimSpace(out.Logging.Level))
	out.Display.SiteTitle = strings.TrimSpace(out.Display.SiteTitle)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.App.Host != "" && out.App.Host != "127.0.0.1" && out.App.Host != "localhost" && out.App.Host != "::1" {
		res.addWarn("app.host %q exposes the portal beyond this machine.", out.App.Host)
	}

	// backend
	if u, err := url.Parse(out.Backend.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.addErr("backend.base_url must be an http(s) URL, got %q", out.Backend.BaseURL)
	} else if u.Path != "" {
		res.addWarn("backend.base_url has a path (%q); requests go to <base_url>/api/jobs.", u.Path)
	}
	if out.Backend.TimeoutSeconds < 0 {
		res.addErr("backend.timeout_seconds must be >= 0")
	} else if out.Backend.TimeoutSeconds == 0 {
		res.addWarn("backend.timeout_seconds is 0; a hung backend keeps views loading indefinitely.")
	}
	if out.Backend.RateLimitPerSec < 0 {
		res.addErr("backend.rate_limit_per_sec must be >= 0")
	}
	if out.Backend.RateLimitPerSec > 0 && out.Backend.Burst < 1 {
		res.addErr("backend.burst must be >= 1 when rate limiting is enabled")
	}

	// validation bounds
	checkRange := func(name string, lo, hi int) {
		if lo < 1 {
			res.addErr("validation.%s_min must be >= 1", name)
		}
		if hi < lo {
			res.addErr("validation.%s_max must be >= validation.%s_min", name, name)
		}
	}
	checkRange("title", out.Validation.TitleMin, out.Validation.TitleMax)
	checkRange("company", out.Validation.CompanyMin, out.Validation.CompanyMax)
	if out.Validation.DescriptionMax < 0 {
		res.addErr("validation.description_max must be >= 0")
	}
	if out.Validation.LocationMax < 0 {
		res.addErr("validation.location_max must be >= 0")
	}
	if out.Validation.LocationRequired && out.Validation.LocationMax == 0 {
		res.addErr("validation.location_max must be > 0 when location_required=true")
	}

	// display
	if out.Display.TruncateAt < 0 {
		res.addErr("display.truncate_at must be >= 0")
	}
	if out.Display.SiteTitle == "" {
		res.addWarn("display.site_title is empty.")
	}

	// refresh
	if out.Refresh.IntervalSeconds < 0 {
		res.addErr("refresh.interval_seconds must be >= 0")
	} else if out.Refresh.IntervalSeconds > 0 && out.Refresh.IntervalSeconds < 5 {
		res.addWarn("refresh.interval_seconds is very low (%d) and may overload the backend.", out.Refresh.IntervalSeconds)
	}

	switch out.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		res.addErr("logging.level must be one of trace, debug, info, warn, error")
	}

	return out, res
}

// NormalizeForReload validates next as a replacement for the running config
// cur. Keys that are only read at startup must keep their current value.
func NormalizeForReload(cur, next Config) (Config, Validation) {
	out, res := NormalizeAndValidate(next)
	const restart = "%s cannot change while the portal is running; edit the config file and restart"
	if out.App.Host != cur.App.Host {
		res.addErr(restart, "app.host")
	}
	if out.App.Port != cur.App.Port {
		res.addErr(restart, "app.port")
	}
	if out.Tracing.Enabled != cur.Tracing.Enabled {
		res.addErr(restart, "tracing.enabled")
	}
	return out, res
}
