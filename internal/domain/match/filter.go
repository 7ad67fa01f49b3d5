package match

import (
	"fmt"
	"strings"
)

// TimeBucket groups kickoff times into coarse parts of the day.
type TimeBucket string

const (
	TimeAll       TimeBucket = "all"
	TimeMorning   TimeBucket = "morning"
	TimeAfternoon TimeBucket = "afternoon"
	TimeNight     TimeBucket = "night"
)

const (
	morningEndsAt   = 12
	afternoonEndsAt = 20
)

// TimeBuckets lists the buckets in display order.
var TimeBuckets = []TimeBucket{TimeAll, TimeMorning, TimeAfternoon, TimeNight}

var bucketLabels = map[TimeBucket]string{
	TimeAll:       "Todos",
	TimeMorning:   "Mañana",
	TimeAfternoon: "Tarde",
	TimeNight:     "Noche",
}

// Label returns the Spanish label used by the dashboard.
func (b TimeBucket) Label() string {
	if label, ok := bucketLabels[b]; ok {
		return label
	}
	return string(b)
}

func (b TimeBucket) Valid() bool {
	_, ok := bucketLabels[b]
	return ok
}

// ParseTimeBucket accepts a bucket name. An empty value means all.
func ParseTimeBucket(raw string) (TimeBucket, error) {
	value := TimeBucket(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return TimeAll, nil
	}
	if !value.Valid() {
		return "", fmt.Errorf("unknown time bucket %q", raw)
	}
	return value, nil
}

// BucketOf classifies a kickoff time by the hour before the first colon.
// Times that carry no hour classify as all, which a specific bucket filter
// never matches.
func BucketOf(kickoff string) TimeBucket {
	if kickoff == PlaceholderNA {
		return TimeAll
	}

	hourText, _, _ := strings.Cut(kickoff, ":")
	hour, ok := parseIntPrefix(hourText)
	if !ok {
		return TimeAll
	}

	switch {
	case hour < morningEndsAt:
		return TimeMorning
	case hour < afternoonEndsAt:
		return TimeAfternoon
	default:
		return TimeNight
	}
}

// Selection is the user's current filter choice. No leagues means every league.
type Selection struct {
	Leagues []string
	Time    TimeBucket
}

func (s Selection) matches(m Match) bool {
	return s.matchesLeague(m.League) && s.matchesTime(m.Time)
}

func (s Selection) matchesLeague(league string) bool {
	return len(s.Leagues) == 0 || s.Contains(league)
}

func (s Selection) matchesTime(kickoff string) bool {
	if s.Time == "" || s.Time == TimeAll {
		return true
	}
	return BucketOf(kickoff) == s.Time
}

// Filter returns the matches accepted by the selection, keeping input order.
// The input slice is not modified.
func Filter(matches []Match, selection Selection) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if selection.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// Toggle adds the league to the selection, or removes it when already present.
func (s Selection) Toggle(league string) Selection {
	next := make([]string, 0, len(s.Leagues)+1)
	found := false
	for _, selected := range s.Leagues {
		if selected == league {
			found = true
			continue
		}
		next = append(next, selected)
	}
	if !found {
		next = append(next, league)
	}
	return Selection{Leagues: next, Time: s.Time}
}

// Contains reports whether the league is explicitly selected.
func (s Selection) Contains(league string) bool {
	for _, selected := range s.Leagues {
		if selected == league {
			return true
		}
	}
	return false
}
