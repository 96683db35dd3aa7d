// Package timeparse turns free-form phrases like "tomorrow 9am" or
// "31-12 23:59" into absolute instants, and splits a command tail into its
// time expression and caption.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// clockPattern matches an explicit clock time anywhere in the input. Its
// absence is what triggers the default time-of-day rule.
var clockPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)

var (
	clockToken    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	meridiemToken = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)$`)
	numericDate   = regexp.MustCompile(`^(\d{1,4})([-/.])(\d{1,2})(?:([-/.])(\d{2,4}))?$`)
	ordinalToken  = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)$`)
	bareNumber    = regexp.MustCompile(`^\d{1,4}$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Parser interprets time expressions as wall-clock time in a display
// timezone and converts them to UTC instants. Ambiguous numeric dates are
// read day-first (03/04 is 3 April).
type Parser struct {
	loc         *time.Location
	defaultHour int
}

// New returns a Parser for the given display timezone. defaultHour is the
// hour applied to expressions that carry a date but no time of day.
func New(loc *time.Location, defaultHour int) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, defaultHour: defaultHour}
}

// Location returns the display timezone the parser interprets input in.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// expression is the accumulated meaning of the consumed tokens.
type expression struct {
	day, month, year  int
	dayOffset         int
	hasOffset         bool
	weekday           time.Weekday
	hasWeekday        bool
	nextWeek          bool
	hour, minute, sec int
	hasTime           bool
}

func (e *expression) hasDate() bool {
	return e.day != 0 || e.month != 0 || e.year != 0 || e.hasOffset || e.hasWeekday
}

// Parse converts text into the absolute instant it denotes relative to now.
// It returns ok=false when the text is not a time expression at all; that is
// a control-flow signal for the splitter, not an error. Instants in the past
// are returned as-is; rejecting them is the caller's policy.
func (p *Parser) Parse(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	// Timezone-aware input converts directly, no wall-clock interpretation.
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), true
	}

	expr, ok := p.consume(strings.Fields(strings.ToLower(text)))
	if !ok {
		return time.Time{}, false
	}
	if !expr.hasDate() && !expr.hasTime {
		return time.Time{}, false
	}

	nowLocal := now.In(p.loc)
	year, month, day := nowLocal.Date()

	switch {
	case expr.hasOffset:
		year, month, day = nowLocal.AddDate(0, 0, expr.dayOffset).Date()
	case expr.hasWeekday:
		delta := (int(expr.weekday) - int(nowLocal.Weekday()) + 7) % 7
		if expr.nextWeek && delta == 0 {
			delta = 7
		}
		year, month, day = nowLocal.AddDate(0, 0, delta).Date()
	default:
		if expr.year != 0 {
			year = expr.year
		}
		if expr.month != 0 {
			month = time.Month(expr.month)
		}
		if expr.day != 0 {
			day = expr.day
		}
	}

	hour, minute, sec := expr.hour, expr.minute, expr.sec
	if !expr.hasTime && !clockPattern.MatchString(text) {
		// "tomorrow" means tomorrow at the default hour, not midnight.
		hour, minute, sec = p.defaultHour, 0, 0
	}

	// time.Date applies the UTC offset in effect on the parsed local date,
	// which keeps DST transitions correct even when now is on the other
	// side of one.
	local := time.Date(year, month, day, hour, minute, sec, 0, p.loc)
	if local.Day() != day || local.Month() != month || local.Year() != year {
		// Normalization moved the date: the day did not exist (31-02).
		return time.Time{}, false
	}
	return local.UTC(), true
}

// consume walks the tokens, requiring every one of them to contribute to the
// expression. A token that matches nothing rejects the whole text.
func (p *Parser) consume(tokens []string) (expression, bool) {
	var e expression
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "today", tok == "tonight":
			if !e.setOffset(0) {
				return e, false
			}
		case tok == "tomorrow":
			if !e.setOffset(1) {
				return e, false
			}
		case tok == "yesterday":
			if !e.setOffset(-1) {
				return e, false
			}
		case tok == "next":
			if i+1 >= len(tokens) {
				return e, false
			}
			wd, isWeekday := weekdays[tokens[i+1]]
			if !isWeekday || !e.setWeekday(wd) {
				return e, false
			}
			e.nextWeek = true
			i++
		case tok == "at":
			// Connector between date and time, only meaningful before one.
			if e.hasTime {
				return e, false
			}
		case tok == "noon":
			if !e.setTime(12, 0, 0) {
				return e, false
			}
		case tok == "midnight":
			if !e.setTime(0, 0, 0) {
				return e, false
			}
		default:
			if wd, isWeekday := weekdays[tok]; isWeekday {
				if !e.setWeekday(wd) {
					return e, false
				}
				continue
			}
			if m, isMonth := months[tok]; isMonth {
				if e.month != 0 {
					return e, false
				}
				e.month = int(m)
				continue
			}
			if consumed, ok := p.consumeNumeric(&e, tokens, i); ok {
				i += consumed - 1
				continue
			}
			return e, false
		}
	}
	return e, true
}

// consumeNumeric handles clock times, meridiem forms, numeric dates, ordinal
// days, years, and bare day numbers. It returns how many tokens it consumed.
func (p *Parser) consumeNumeric(e *expression, tokens []string, i int) (int, bool) {
	tok := tokens[i]

	if m := clockToken.FindStringSubmatch(tok); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		if hour > 23 || minute > 59 || sec > 59 {
			return 0, false
		}
		return 1, e.setTime(hour, minute, sec)
	}

	if m := meridiemToken.FindStringSubmatch(tok); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		hour, ok := applyMeridiem(hour, m[3])
		if !ok || minute > 59 {
			return 0, false
		}
		return 1, e.setTime(hour, minute, 0)
	}

	if m := numericDate.FindStringSubmatch(tok); m != nil {
		if m[4] != "" && m[2] != m[4] {
			return 0, false
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[3])
		if len(m[1]) == 4 {
			// Year-first ISO ordering: 2025-12-31.
			if m[5] == "" {
				return 0, false
			}
			day, _ := strconv.Atoi(m[5])
			return 1, e.setDate(day, second, first)
		}
		year := 0
		if m[5] != "" {
			year, _ = strconv.Atoi(m[5])
			if year < 100 {
				year += 2000
			}
		}
		// Day-first locale: 03/04 is 3 April.
		return 1, e.setDate(first, second, year)
	}

	if m := ordinalToken.FindStringSubmatch(tok); m != nil {
		day, _ := strconv.Atoi(m[1])
		return 1, e.setDay(day)
	}

	if bareNumber.MatchString(tok) {
		n, _ := strconv.Atoi(tok)
		if i+1 < len(tokens) && (tokens[i+1] == "am" || tokens[i+1] == "pm") {
			hour, ok := applyMeridiem(n, tokens[i+1])
			if !ok {
				return 0, false
			}
			return 2, e.setTime(hour, 0, 0)
		}
		if len(tok) == 4 && n >= 1970 {
			if e.year != 0 {
				return 0, false
			}
			e.year = n
			return 1, true
		}
		return 1, e.setDay(n)
	}

	return 0, false
}

func applyMeridiem(hour int, meridiem string) (int, bool) {
	if hour < 1 || hour > 12 {
		return 0, false
	}
	if hour == 12 {
		hour = 0
	}
	if meridiem == "pm" {
		hour += 12
	}
	return hour, true
}

func (e *expression) setOffset(days int) bool {
	if e.hasOffset || e.hasWeekday || e.day != 0 || e.month != 0 || e.year != 0 {
		return false
	}
	e.dayOffset = days
	e.hasOffset = true
	return true
}

func (e *expression) setWeekday(wd time.Weekday) bool {
	if e.hasOffset || e.hasWeekday || e.day != 0 || e.month != 0 || e.year != 0 {
		return false
	}
	e.weekday = wd
	e.hasWeekday = true
	return true
}

func (e *expression) setTime(hour, minute, sec int) bool {
	if e.hasTime {
		return false
	}
	e.hour, e.minute, e.sec = hour, minute, sec
	e.hasTime = true
	return true
}

func (e *expression) setDay(day int) bool {
	if day < 1 || day > 31 || e.day != 0 || e.hasOffset || e.hasWeekday {
		return false
	}
	e.day = day
	return true
}

func (e *expression) setDate(day, month, year int) bool {
	if e.hasOffset || e.hasWeekday || e.day != 0 || e.month != 0 {
		return false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return false
	}
	if year != 0 {
		if e.year != 0 {
			return false
		}
		e.year = year
	}
	e.day = day
	e.month = month
	return true
}
