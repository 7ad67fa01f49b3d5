package usecase

import (
	"strings"
	"testing"

	"github.com/riskibarqy/matchboard/internal/domain/match"
)

func TestBuildSummaryPrompt(t *testing.T) {
	t.Parallel()

	m := match.Match{
		HomeTeam:       "Milan",
		AwayTeam:       "Inter",
		League:         "ITA",
		Referee:        "Orsato",
		Probability1X2: "45%",
		Details: match.Details{
			Trends:    match.TrendPair{Home: "WWDLW", Away: "-"},
			Goals:     match.SidePair{Home: 1.8, Away: 2},
			Yellows:   match.RefereePair{Home: 2.125, Away: 1, Referee: 4.25},
			Penalties: match.RefereePair{Home: 0, Away: 0.1, Referee: 0.3},
		},
	}

	prompt := BuildSummaryPrompt(m)
	wantLines := []string{
		"Partido: Milan vs Inter",
		"Liga: ITA",
		"Árbitro: Orsato",
		"- Goles (Local/Visitante): 1.80 / 2.00",
		"- Tarjetas Amarillas (Local/Visitante/Árbitro): 2.13 / 1.00 / 4.25",
		"- Penaltis (Local/Visitante/Árbitro): 0.00 / 0.10 / 0.30",
		"- Milan (Local): WWDLW",
		"- Inter (Visitante): -",
		"Probabilidad 1X2 (según datos): 45%",
	}
	for _, line := range wantLines {
		if !strings.Contains(prompt, line+"\n") && !strings.HasSuffix(prompt, line) {
			t.Fatalf("prompt missing line %q:\n%s", line, prompt)
		}
	}
	if !strings.HasPrefix(prompt, "Analiza el siguiente partido de fútbol") {
		t.Fatalf("unexpected prompt start:\n%s", prompt)
	}
}
