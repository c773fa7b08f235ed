package scheduling

import (
	"math/rand"
	"time"
)

const (
	DefaultMinGap    = 15 * time.Minute
	DefaultMaxGap    = 20 * time.Minute
	DefaultStartHour = 9
	DefaultEndHour   = 18
)

// Generator spaces sends by a random gap and, when BusinessHours is set,
// keeps each send inside [StartHour, EndHour) of the recipient's local day.
// A Generator is not safe for concurrent use; Rand is shared state.
type Generator struct {
	MinGap        time.Duration
	MaxGap        time.Duration
	BusinessHours bool
	StartHour     int
	EndHour       int
	Rand          *rand.Rand
}

// NewGenerator returns a Generator with the 15-20 minute gap and 9-18
// business window.
func NewGenerator(r *rand.Rand) *Generator {
	return &Generator{
		MinGap:        DefaultMinGap,
		MaxGap:        DefaultMaxGap,
		BusinessHours: true,
		StartHour:     DefaultStartHour,
		EndHour:       DefaultEndHour,
		Rand:          r,
	}
}

// BuildScheduledTimes returns one UTC send instant per entry of timezones,
// strictly increasing from now. Timezones are IANA names; the timezone only
// affects business-hour placement, never the stored instant.
func (g *Generator) BuildScheduledTimes(now time.Time, timezones []string) []time.Time {
	out := make([]time.Time, 0, len(timezones))
	locs := map[string]*time.Location{}
	cursor := now
	for _, tz := range timezones {
		candidate := cursor.Add(g.gap())
		if g.BusinessHours {
			loc, ok := locs[tz]
			if !ok {
				loc = LoadLocation(tz)
				locs[tz] = loc
			}
			candidate = g.withinBusinessHours(candidate, loc)
		}
		out = append(out, candidate.UTC())
		cursor = candidate
	}
	return out
}

func (g *Generator) gap() time.Duration {
	lo, hi := g.MinGap, g.MaxGap
	if lo <= 0 {
		lo = DefaultMinGap
	}
	if hi < lo {
		hi = lo
	}
	if hi == lo || g.Rand == nil {
		return lo
	}
	return lo + time.Duration(g.Rand.Int63n(int64(hi-lo)+1))
}

// withinBusinessHours rolls t forward to the next StartHour:00 local when it
// falls outside the window.
func (g *Generator) withinBusinessHours(t time.Time, loc *time.Location) time.Time {
	startHour, endHour := g.StartHour, g.EndHour
	if startHour == 0 && endHour == 0 {
		startHour, endHour = DefaultStartHour, DefaultEndHour
	}
	local := t.In(loc)
	y, m, d := local.Date()
	open := time.Date(y, m, d, startHour, 0, 0, 0, loc)
	closing := time.Date(y, m, d, endHour, 0, 0, 0, loc)
	switch {
	case local.Before(open):
		return open
	case !local.Before(closing):
		return time.Date(y, m, d+1, startHour, 0, 0, 0, loc)
	default:
		return t
	}
}

// InBusinessHours reports whether t falls inside the generator's window in loc.
func (g *Generator) InBusinessHours(t time.Time, loc *time.Location) bool {
	return g.withinBusinessHours(t, loc).Equal(t)
}
