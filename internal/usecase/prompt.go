package usecase

import (
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/valyala/bytebufferpool"
)

// BuildSummaryPrompt assembles the Spanish analysis prompt for one match.
// Stats are rendered with match.FormatNumber so the model sees the same
// values as the dashboard.
func BuildSummaryPrompt(m match.Match) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	d := m.Details
	lines := []string{
		"Analiza el siguiente partido de fútbol y proporciona un resumen conciso (máximo 100 palabras) para un aficionado a las apuestas.",
		"Enfócate en las tendencias clave, estadísticas del árbitro y posibles resultados. Sé breve y directo.",
		"",
		"Partido: " + m.HomeTeam + " vs " + m.AwayTeam,
		"Liga: " + m.League,
		"Árbitro: " + m.Referee,
		"",
		"Estadísticas Clave (Promedios por partido):",
		"- Goles (Local/Visitante): " + pair(d.Goals.Home, d.Goals.Away),
		"- Tarjetas Amarillas (Local/Visitante/Árbitro): " + triple(d.Yellows),
		"- Penaltis (Local/Visitante/Árbitro): " + triple(d.Penalties),
		"",
		"Tendencias recientes (últimos 5 partidos):",
		"- " + m.HomeTeam + " (Local): " + d.Trends.Home,
		"- " + m.AwayTeam + " (Visitante): " + d.Trends.Away,
		"",
		"Probabilidad 1X2 (según datos): " + m.Probability1X2,
	}
	for i, line := range lines {
		if i > 0 {
			_ = buf.WriteByte('\n')
		}
		_, _ = buf.WriteString(line)
	}

	return buf.String()
}

func pair(home, away float64) string {
	return match.FormatNumber(home) + " / " + match.FormatNumber(away)
}

func triple(p match.RefereePair) string {
	return pair(p.Home, p.Away) + " / " + match.FormatNumber(p.Referee)
}
