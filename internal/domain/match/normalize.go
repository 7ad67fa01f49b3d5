package match

// Normalize maps raw spreadsheet rows to matches. Rows without a league,
// home team, or away team are dropped, and IDs follow the order of the rows
// that remain. Normalize never fails; every missing value gets a default.
func Normalize(records []RawRecord) []Match {
	out := make([]Match, 0, len(records))
	for _, record := range records {
		if !record.valid() {
			continue
		}
		out = append(out, record.toMatch(len(out)))
	}
	return out
}

func (r RawRecord) valid() bool {
	return truthy(r[FieldLeague]) && truthy(r[FieldHome]) && truthy(r[FieldAway])
}

func (r RawRecord) toMatch(id int) Match {
	league := r.text(FieldLeague, PlaceholderLeague)

	return Match{
		ID:             id,
		Time:           r.text(FieldTime, PlaceholderNA),
		CountryFlag:    FlagForLeague(league),
		League:         RepairLeagueLabel(league),
		HomeTeam:       r.text(FieldHome, PlaceholderHomeTeam),
		AwayTeam:       r.text(FieldAway, PlaceholderAwayTeam),
		Referee:        r.text(FieldReferee, PlaceholderNA),
		Probability1X2: r.probability(),
		TotalGoals:     r.number(FieldGoalsTotal),
		TotalYellows:   r.number(FieldYellowsTotal),
		TotalReds:      r.number(FieldRedsTotal),
		TotalPenalties: r.number(FieldPenaltiesTotal),
		Details: Details{
			Trends: TrendPair{
				Home: r.text(FieldTrendHome, PlaceholderDash),
				Away: r.text(FieldTrendAway, PlaceholderDash),
			},
			Shots: SidePair{
				Home: r.number(FieldShotsHome),
				Away: r.number(FieldShotsAway),
			},
			Goals: SidePair{
				Home: r.number(FieldGoalsHome),
				Away: r.number(FieldGoalsAway),
			},
			Fouls: SidePair{
				Home: r.number(FieldFoulsHome),
				Away: r.number(FieldFoulsAway),
			},
			Yellows: RefereePair{
				Home:    r.number(FieldYellowsHome),
				Away:    r.number(FieldYellowsAway),
				Referee: r.number(FieldYellowsReferee),
			},
			Reds: RefereePair{
				Home:    r.number(FieldRedsHome),
				Away:    r.number(FieldRedsAway),
				Referee: r.number(FieldRedsReferee),
			},
			Penalties: RefereePair{
				Home:    r.number(FieldPenaltiesHome),
				Away:    r.number(FieldPenaltiesAway),
				Referee: r.number(FieldPenaltiesReferee),
			},
		},
	}
}

// text returns the cell as a string, or fallback when the cell is falsy.
func (r RawRecord) text(field, fallback string) string {
	value := r[field]
	if !truthy(value) {
		return fallback
	}
	return stringify(value)
}

func (r RawRecord) number(field string) float64 {
	return ToNumber(r[field], 0)
}

// probability keeps string and numeric cells as text. Anything else, and an
// empty string, renders as N/A.
func (r RawRecord) probability() string {
	switch value := r[FieldProbability1X2].(type) {
	case string:
		if value == "" {
			return PlaceholderNA
		}
		return value
	case nil, bool:
		return PlaceholderNA
	case map[string]any, []any:
		return PlaceholderNA
	default:
		return stringify(value)
	}
}
