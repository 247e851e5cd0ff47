// Package ident generates the human-readable identifiers written to the
// store. Every generator is a pure function of a time and, for check-ins,
// the IDs already present; Generator only supplies the clock.
package ident

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Strategy selects the run ID format.
type Strategy string

const (
	// StrategyMinute yields RUN-YYMMDD-HHMM. Two runs in the same minute
	// share an ID.
	StrategyMinute Strategy = "minute"
	// StrategySecondProperty yields RUN-YYMMDD-HHMMSS-<PROP>.
	StrategySecondProperty Strategy = "second_property"
)

// ParseStrategy accepts "" as StrategyMinute.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyMinute:
		return StrategyMinute, nil
	case StrategySecondProperty:
		return StrategySecondProperty, nil
	}
	return "", fmt.Errorf("ident: unknown run id strategy %q", s)
}

const checkedAtLayout = "2006-01-02 15:04"

// RunID formats a run identifier for t.
func RunID(t time.Time, s Strategy, propertyID string) string {
	if s == StrategySecondProperty {
		id := "RUN-" + t.Format("060102-150405")
		if p := propertyTag(propertyID); p != "" {
			id += "-" + p
		}
		return id
	}
	return "RUN-" + t.Format("060102-1504")
}

func propertyTag(propertyID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(propertyID) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EntryID is the ID of the i-th (zero-based) log entry of a run.
func EntryID(runID string, i int) string {
	return runID + "-" + strconv.Itoa(i)
}

// CheckedAt formats t at minute precision.
func CheckedAt(t time.Time) string {
	return t.Format(checkedAtLayout)
}

// CheckInPrefix is CI-YYMMDD for the date of t.
func CheckInPrefix(t time.Time) string {
	return "CI-" + t.Format("060102")
}

// NextCheckInID returns the next ID of the day of t given the IDs already
// stored: the largest trailing number among IDs with the day's prefix, plus
// one. IDs with a different prefix or without a numeric suffix are ignored.
func NextCheckInID(t time.Time, existing []string) string {
	prefix := CheckInPrefix(t)
	seq := 1
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, ok := trailingNumber(id)
		if ok && n+1 > seq {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, seq)
}

// trailingNumber parses the digits after the last "-".
func trailingNumber(id string) (int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	digits := id[i+1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Generator binds the pure functions to a clock, time zone and run ID
// strategy.
type Generator struct {
	now      func() time.Time
	loc      *time.Location
	strategy Strategy
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLocation sets the zone used for every formatted timestamp.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

// WithStrategy sets the run ID strategy.
func WithStrategy(s Strategy) Option {
	return func(g *Generator) { g.strategy = s }
}

// NewGenerator defaults to time.Now, the process zone and StrategyMinute.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now, loc: time.Local, strategy: StrategyMinute}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Now is the current time in the generator's zone.
func (g *Generator) Now() time.Time {
	return g.now().In(g.loc)
}

// RunID generates a run ID for propertyID at t.
func (g *Generator) RunID(t time.Time, propertyID string) string {
	return RunID(t.In(g.loc), g.strategy, propertyID)
}

// CheckedAt formats t in the generator's zone.
func (g *Generator) CheckedAt(t time.Time) string {
	return CheckedAt(t.In(g.loc))
}

// NextCheckInID is NextCheckInID at the current time.
func (g *Generator) NextCheckInID(existing []string) string {
	return NextCheckInID(g.Now(), existing)
}

// LoadLocation resolves an IANA zone name; "" means the process zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
