// Package calendar decides whether a date is a skip-day: a weekend or
// holiday on which no automated attendance action should fire. Verdicts are
// per country, with Chinese-style workday swaps that turn specific weekend
// dates back into working days.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuleSet is the holiday calendar for one country. Maps are keyed by
// yyyy-mm-dd and valued with the holiday or swap name.
type RuleSet struct {
	Country      string
	National     map[string]string
	WorkdaySwaps map[string]string
}

// Resolver answers skip-day queries for a configured set of countries plus
// a user-defined custom holiday list.
type Resolver struct {
	rules  map[string]RuleSet
	custom map[string]string // yyyy-mm-dd -> name
}

// NewResolver builds a resolver with the built-in country rule sets plus
// any extra ones. Custom holidays skip regardless of country selection.
func NewResolver(custom map[string]string, extra ...RuleSet) *Resolver {
	r := &Resolver{
		rules:  map[string]RuleSet{},
		custom: map[string]string{},
	}
	for _, rs := range builtinRuleSets() {
		r.rules[strings.ToUpper(rs.Country)] = rs
	}
	for _, rs := range extra {
		r.rules[strings.ToUpper(rs.Country)] = rs
	}
	for d, name := range custom {
		r.custom[d] = name
	}
	return r
}

// IsSkipDay reports whether date is a skip-day under the given countries.
func (r *Resolver) IsSkipDay(date time.Time, countries []string) bool {
	skip, _ := r.Explain(date, countries)
	return skip
}

// Explain returns the skip verdict together with a human-readable reason,
// used for skip log entries and the calendar API.
//
// The result is the OR of each country's independent verdict: a weekend is
// a skip-day for a country unless that exact date is in the country's
// workday swaps, and a swap only cancels the weekend default under its own
// country's rules. A national holiday of any requested country skips, as
// does any custom holiday.
func (r *Resolver) Explain(date time.Time, countries []string) (bool, string) {
	key := date.Format("2006-01-02")

	if name, ok := r.custom[key]; ok {
		return true, fmt.Sprintf("custom holiday: %s", name)
	}

	weekend := isWeekend(date)
	for _, c := range countries {
		// Country codes arrive in whatever case configuration used.
		rs, ok := r.rules[strings.ToUpper(c)]
		if !ok {
			// Unknown country: only the weekend default applies.
			if weekend {
				return true, fmt.Sprintf("weekend (%s)", c)
			}
			continue
		}
		if name, ok := rs.National[key]; ok {
			return true, fmt.Sprintf("%s holiday: %s", c, name)
		}
		if weekend {
			if _, swapped := rs.WorkdaySwaps[key]; !swapped {
				return true, fmt.Sprintf("weekend (%s)", c)
			}
			// Swap makes the weekend a working day for this country.
		}
	}
	return false, ""
}

// Countries returns the country codes the resolver has rules for, sorted.
func (r *Resolver) Countries() []string {
	out := make([]string, 0, len(r.rules))
	for c := range r.rules {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
