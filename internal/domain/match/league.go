package match

import (
	"regexp"
	"strings"
)

// DefaultFlag is shown for league codes missing from the country table.
const DefaultFlag = "⚽️"

var countryFlags = map[string]string{
	"AUS": "\U0001F1E6\U0001F1FA",
	"BEL": "\U0001F1E7\U0001F1EA",
	"BRA": "\U0001F1E7\U0001F1F7",
	"ENG": "\U0001F3F4\U000E0067\U000E0062\U000E0065\U000E006E\U000E0067\U000E007F",
	"FRA": "\U0001F1EB\U0001F1F7",
	"GER": "\U0001F1E9\U0001F1EA",
	"GRE": "\U0001F1EC\U0001F1F7",
	"ITA": "\U0001F1EE\U0001F1F9",
	"MEX": "\U0001F1F2\U0001F1FD",
	"NED": "\U0001F1F3\U0001F1F1",
	"NOR": "\U0001F1F3\U0001F1F4",
	"POL": "\U0001F1F5\U0001F1F1",
	"POR": "\U0001F1F5\U0001F1F9",
	"RUM": "\U0001F1F7\U0001F1F4",
	"ARA": "\U0001F1F8\U0001F1E6",
	"SCO": "\U0001F3F4\U000E0067\U000E0062\U000E0073\U000E0063\U000E0074\U000E007F",
	"ESP": "\U0001F1EA\U0001F1F8",
	"TUR": "\U0001F1F9\U0001F1F7",
	"USA": "\U0001F1FA\U0001F1F8",
}

// The export turns the second-division marker into U+FFFD, or into its
// cp1252 mojibake when the file is decoded twice.
var brokenDivisionSuffix = regexp.MustCompile(`[\s\v\x{00a0}\x{feff}\p{Zs}]*(?:\x{fffd}|\x{00ef}\x{00bf}\x{00bd})[\s\v\x{00a0}\x{feff}\p{Zs}]*$`)

// SecondDivisionSuffix marks a second-tier league label.
const SecondDivisionSuffix = " 2"

// FlagForLeague looks up the country flag from the first three characters
// of a league label.
func FlagForLeague(label string) string {
	runes := []rune(label)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	code := strings.ToUpper(strings.TrimFunc(string(runes), isJSSpace))
	if flag, ok := countryFlags[code]; ok {
		return flag
	}
	return DefaultFlag
}

// RepairLeagueLabel restores the " 2" suffix lost by the spreadsheet export.
// Labels without the broken suffix are returned unchanged.
func RepairLeagueLabel(label string) string {
	loc := brokenDivisionSuffix.FindStringIndex(label)
	if loc == nil {
		return label
	}
	return label[:loc[0]] + SecondDivisionSuffix
}

// LeagueDisplay splits a label for rendering the division as a superscript.
type LeagueDisplay struct {
	Base     string
	Division string
}

func DisplayLeague(label string) LeagueDisplay {
	if strings.HasSuffix(label, SecondDivisionSuffix) {
		return LeagueDisplay{
			Base:     strings.TrimSuffix(label, SecondDivisionSuffix),
			Division: strings.TrimSpace(SecondDivisionSuffix),
		}
	}
	return LeagueDisplay{Base: label}
}

// Leagues returns the distinct league labels in order of first appearance.
func Leagues(matches []Match) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.League]; ok {
			continue
		}
		seen[m.League] = struct{}{}
		out = append(out, m.League)
	}
	return out
}
