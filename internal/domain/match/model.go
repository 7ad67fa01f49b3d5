package match

// RawRecord is one row of the upstream spreadsheet export. Values are strings,
// float64 numbers, bools, or nil, exactly as decoded from JSON.
type RawRecord map[string]any

// Spreadsheet column names used by the feed.
const (
	FieldTime             = "HORA"
	FieldFlag             = "bandera"
	FieldLeague           = "liga"
	FieldHome             = "HOME"
	FieldAway             = "AWAY"
	FieldReferee          = "ARBITRO"
	FieldProbability1X2   = "1X2"
	FieldTrendHome        = "TEN HOME"
	FieldTrendAway        = "TEN AWAY"
	FieldShotsHome        = "TIROS HOME"
	FieldShotsAway        = "TIROS AWAY"
	FieldGoalsHome        = "GOLES HOME"
	FieldGoalsAway        = "GOLES AWAY"
	FieldGoalsTotal       = "GOLES TOTAL"
	FieldFoulsHome        = "FALTAS HOME"
	FieldFoulsAway        = "FALTAS AWAY"
	FieldYellowsHome      = "AMARILLAS HOME"
	FieldYellowsAway      = "AMARILLAS AWAY"
	FieldYellowsReferee   = "ARBITRO AMARILLAS"
	FieldYellowsTotal     = "AMARILLAS TOTAL"
	FieldRedsHome         = "ROJAS HOME"
	FieldRedsAway         = "ROJAS AWAY"
	FieldRedsReferee      = "ARBITRO ROJAS"
	FieldRedsTotal        = "ROJAS TOTAL"
	FieldPenaltiesHome    = "PENALTIS HOME"
	FieldPenaltiesAway    = "PENALTIS AWAY"
	FieldPenaltiesReferee = "ARBITRO PENALTIS"
	FieldPenaltiesTotal   = "PENALTIS TOTAL"
)

// Placeholders used when a descriptive field is missing.
const (
	PlaceholderNA       = "N/A"
	PlaceholderDash     = "-"
	PlaceholderLeague   = "Unknown League"
	PlaceholderHomeTeam = "Home Team"
	PlaceholderAwayTeam = "Away Team"
)

// Match is a normalized fixture row. All numeric fields are finite.
type Match struct {
	ID             int
	Time           string
	CountryFlag    string
	League         string
	HomeTeam       string
	AwayTeam       string
	Referee        string
	Probability1X2 string
	TotalGoals     float64
	TotalYellows   float64
	TotalReds      float64
	TotalPenalties float64
	Details        Details
}

// Details holds per-side breakdowns shown when a match row is expanded.
type Details struct {
	Trends    TrendPair
	Shots     SidePair
	Goals     SidePair
	Fouls     SidePair
	Yellows   RefereePair
	Reds      RefereePair
	Penalties RefereePair
}

type TrendPair struct {
	Home string
	Away string
}

type SidePair struct {
	Home float64
	Away float64
}

// RefereePair carries the referee's per-match average next to the team values.
type RefereePair struct {
	Home    float64
	Away    float64
	Referee float64
}
