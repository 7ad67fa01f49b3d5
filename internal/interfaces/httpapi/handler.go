package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

type Handler struct {
	feedService    *usecase.FeedService
	summaryService *usecase.SummaryService
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	feedService *usecase.FeedService,
	summaryService *usecase.SummaryService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		feedService:    feedService,
		summaryService: summaryService,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type listMatchesRequest struct {
	Leagues []string `validate:"max=100,dive,required,max=200"`
	Time    string   `validate:"omitempty,oneof=all morning afternoon night"`
}

func (r listMatchesRequest) selection() match.Selection {
	bucket := match.TimeAll
	if r.Time != "" {
		bucket = match.TimeBucket(r.Time)
	}
	return match.Selection{Leagues: r.Leagues, Time: bucket}
}

// parseSelection reads repeated league params and the time bucket from a query.
func (h *Handler) parseSelection(ctx context.Context, r *http.Request) (match.Selection, error) {
	query := r.URL.Query()
	req := listMatchesRequest{
		Leagues: query["league"],
		Time:    strings.ToLower(strings.TrimSpace(query.Get("time"))),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		return match.Selection{}, err
	}
	return req.selection(), nil
}

func parseMatchID(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: match id must be an integer", usecase.ErrInvalidInput)
	}
	return value, nil
}

type feedStatusDTO struct {
	State      string `json:"state"`
	MatchCount int    `json:"matchCount"`
	LoadedAt   string `json:"loadedAt,omitempty"`
	Message    string `json:"message,omitempty"`
}

type leagueDTO struct {
	Name     string `json:"name"`
	Flag     string `json:"flag"`
	Base     string `json:"base"`
	Division string `json:"division,omitempty"`
}

type matchDTO struct {
	ID             int             `json:"id"`
	Time           string          `json:"time"`
	TimeBucket     string          `json:"timeBucket"`
	CountryFlag    string          `json:"countryFlag"`
	League         string          `json:"league"`
	HomeTeam       string          `json:"homeTeam"`
	AwayTeam       string          `json:"awayTeam"`
	Referee        string          `json:"referee"`
	Probability1X2 string          `json:"probability1x2"`
	TotalGoals     float64         `json:"totalGoals"`
	TotalYellows   float64         `json:"totalYellows"`
	TotalReds      float64         `json:"totalReds"`
	TotalPenalties float64         `json:"totalPenalties"`
	Display        matchDisplayDTO `json:"display"`
	Details        detailsDTO      `json:"details"`
}

// matchDisplayDTO carries the two-decimal strings shown in the dashboard.
type matchDisplayDTO struct {
	TotalGoals     string `json:"totalGoals"`
	TotalYellows   string `json:"totalYellows"`
	TotalReds      string `json:"totalReds"`
	TotalPenalties string `json:"totalPenalties"`
}

type detailsDTO struct {
	Trends    trendDTO   `json:"trends"`
	Shots     sideDTO    `json:"shots"`
	Goals     sideDTO    `json:"goals"`
	Fouls     sideDTO    `json:"fouls"`
	Yellows   refereeDTO `json:"yellows"`
	Reds      refereeDTO `json:"reds"`
	Penalties refereeDTO `json:"penalties"`
}

type trendDTO struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

type sideDTO struct {
	Home        float64 `json:"home"`
	Away        float64 `json:"away"`
	HomeDisplay string  `json:"homeDisplay"`
	AwayDisplay string  `json:"awayDisplay"`
}

type refereeDTO struct {
	Home           float64 `json:"home"`
	Away           float64 `json:"away"`
	Referee        float64 `json:"referee"`
	HomeDisplay    string  `json:"homeDisplay"`
	AwayDisplay    string  `json:"awayDisplay"`
	RefereeDisplay string  `json:"refereeDisplay"`
}

type summaryDTO struct {
	MatchID     int    `json:"matchId"`
	Text        string `json:"text"`
	GeneratedAt string `json:"generatedAt"`
}

func feedStatusToDTO(ctx context.Context, v usecase.FeedStatus) feedStatusDTO {
	ctx, span := startSpan(ctx, "httpapi.feedStatusToDTO")
	defer span.End()

	out := feedStatusDTO{
		State:      string(v.State),
		MatchCount: v.MatchCount,
		Message:    v.Message,
	}
	if !v.LoadedAt.IsZero() {
		out.LoadedAt = v.LoadedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func leagueToDTO(ctx context.Context, name string) leagueDTO {
	ctx, span := startSpan(ctx, "httpapi.leagueToDTO")
	defer span.End()

	display := match.DisplayLeague(name)
	return leagueDTO{
		Name:     name,
		Flag:     match.FlagForLeague(name),
		Base:     display.Base,
		Division: display.Division,
	}
}

func matchToDTO(ctx context.Context, m match.Match) matchDTO {
	ctx, span := startSpan(ctx, "httpapi.matchToDTO")
	defer span.End()

	return matchDTO{
		ID:             m.ID,
		Time:           m.Time,
		TimeBucket:     string(match.BucketOf(m.Time)),
		CountryFlag:    m.CountryFlag,
		League:         m.League,
		HomeTeam:       m.HomeTeam,
		AwayTeam:       m.AwayTeam,
		Referee:        m.Referee,
		Probability1X2: m.Probability1X2,
		TotalGoals:     m.TotalGoals,
		TotalYellows:   m.TotalYellows,
		TotalReds:      m.TotalReds,
		TotalPenalties: m.TotalPenalties,
		Display: matchDisplayDTO{
			TotalGoals:     match.FormatNumber(m.TotalGoals),
			TotalYellows:   match.FormatNumber(m.TotalYellows),
			TotalReds:      match.FormatNumber(m.TotalReds),
			TotalPenalties: match.FormatNumber(m.TotalPenalties),
		},
		Details: detailsDTO{
			Trends:    trendDTO{Home: m.Details.Trends.Home, Away: m.Details.Trends.Away},
			Shots:     sidePairToDTO(m.Details.Shots),
			Goals:     sidePairToDTO(m.Details.Goals),
			Fouls:     sidePairToDTO(m.Details.Fouls),
			Yellows:   refereePairToDTO(m.Details.Yellows),
			Reds:      refereePairToDTO(m.Details.Reds),
			Penalties: refereePairToDTO(m.Details.Penalties),
		},
	}
}

func sidePairToDTO(v match.SidePair) sideDTO {
	return sideDTO{
		Home:        v.Home,
		Away:        v.Away,
		HomeDisplay: match.FormatNumber(v.Home),
		AwayDisplay: match.FormatNumber(v.Away),
	}
}

func refereePairToDTO(v match.RefereePair) refereeDTO {
	return refereeDTO{
		Home:           v.Home,
		Away:           v.Away,
		Referee:        v.Referee,
		HomeDisplay:    match.FormatNumber(v.Home),
		AwayDisplay:    match.FormatNumber(v.Away),
		RefereeDisplay: match.FormatNumber(v.Referee),
	}
}

func summaryToDTO(ctx context.Context, v usecase.Summary) summaryDTO {
	ctx, span := startSpan(ctx, "httpapi.summaryToDTO")
	defer span.End()

	return summaryDTO{
		MatchID:     v.MatchID,
		Text:        v.Text,
		GeneratedAt: v.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
