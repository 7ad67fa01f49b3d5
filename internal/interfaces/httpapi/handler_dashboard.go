package httpapi

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTemplate = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"num": match.FormatNumber}).
		ParseFS(templatesFS, "templates/dashboard.html"),
)

type dashboardPage struct {
	Error        string
	EmptyMessage string
	Leagues      []leagueToggle
	Buckets      []bucketOption
	Matches      []matchRow
	Selected     []string
	Time         string
}

type leagueToggle struct {
	Name   string
	Active bool
	Href   string
}

type bucketOption struct {
	Label  string
	Active bool
	Href   string
}

type matchRow struct {
	match.Match
	League       match.LeagueDisplay
	Open         bool
	SummaryText  string
	SummaryError string
}

// summaryResult is rendered inside the expanded row of the match it belongs to.
type summaryResult struct {
	matchID int
	text    string
	err     string
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Dashboard")
	defer span.End()

	h.renderDashboard(ctx, w, dashboardSelection(r.URL.Query()), nil)
}

// DashboardReload refetches the feed and sends the browser back to the page
// with its filters intact.
func (h *Handler) DashboardReload(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DashboardReload")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: parse form: %v", usecase.ErrInvalidInput, err))
		return
	}
	selection := dashboardSelection(r.PostForm)
	if _, err := h.feedService.Load(ctx); err != nil {
		h.logger.WarnContext(ctx, "dashboard reload failed", "error", err)
	}

	http.Redirect(w, r, selectionHref(selection), http.StatusSeeOther)
}

func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DashboardSummary")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: parse form: %v", usecase.ErrInvalidInput, err))
		return
	}
	selection := dashboardSelection(r.PostForm)

	matchID, err := parseMatchID(r.PathValue("matchID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result := &summaryResult{matchID: matchID}
	summary, err := h.summaryService.Summarize(ctx, matchID)
	if err != nil {
		result.err = usecase.SummaryUnavailableMessage
	} else {
		result.text = summary.Text
	}

	h.renderDashboard(ctx, w, selection, result)
}

func (h *Handler) renderDashboard(ctx context.Context, w http.ResponseWriter, selection match.Selection, summary *summaryResult) {
	page := dashboardPage{
		Selected: selection.Leagues,
		Time:     string(selection.Time),
	}
	status := http.StatusOK

	snapshot, err := h.feedService.Snapshot(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "dashboard feed unavailable", "error", err)
		page.Error = publicMessage(err)
		status = mapError(ctx, err).HTTPStatus
		if status == http.StatusInternalServerError {
			page.Error = usecase.FeedUnavailableMessage
		}
	} else {
		page.Leagues = leagueToggles(snapshot.Leagues, selection)
		page.Buckets = bucketOptions(selection)
		page.Matches = matchRows(match.Filter(snapshot.Matches, selection), summary)
		if len(page.Matches) == 0 {
			page.EmptyMessage = usecase.NoMatchesMessage
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := dashboardTemplate.Execute(buf, page); err != nil {
		h.logger.ErrorContext(ctx, "render dashboard failed", "error", err)
		writeInternalError(ctx, w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.B)
}

// dashboardSelection is lenient: an unknown time bucket shows every match.
func dashboardSelection(values url.Values) match.Selection {
	bucket, err := match.ParseTimeBucket(values.Get("time"))
	if err != nil {
		bucket = match.TimeAll
	}

	leagues := make([]string, 0, len(values["league"]))
	for _, league := range values["league"] {
		if league != "" {
			leagues = append(leagues, league)
		}
	}
	return match.Selection{Leagues: leagues, Time: bucket}
}

func selectionHref(selection match.Selection) string {
	values := url.Values{}
	for _, league := range selection.Leagues {
		values.Add("league", league)
	}
	if selection.Time != "" && selection.Time != match.TimeAll {
		values.Set("time", string(selection.Time))
	}
	if len(values) == 0 {
		return "/"
	}
	return "/?" + values.Encode()
}

func leagueToggles(leagues []string, selection match.Selection) []leagueToggle {
	out := make([]leagueToggle, 0, len(leagues))
	for _, league := range leagues {
		out = append(out, leagueToggle{
			Name:   league,
			Active: selection.Contains(league),
			Href:   selectionHref(selection.Toggle(league)),
		})
	}
	return out
}

func bucketOptions(selection match.Selection) []bucketOption {
	out := make([]bucketOption, 0, len(match.TimeBuckets))
	for _, bucket := range match.TimeBuckets {
		next := match.Selection{Leagues: selection.Leagues, Time: bucket}
		out = append(out, bucketOption{
			Label:  bucket.Label(),
			Active: selection.Time == bucket || (selection.Time == "" && bucket == match.TimeAll),
			Href:   selectionHref(next),
		})
	}
	return out
}

func matchRows(matches []match.Match, summary *summaryResult) []matchRow {
	out := make([]matchRow, 0, len(matches))
	for _, m := range matches {
		row := matchRow{Match: m, League: match.DisplayLeague(m.League)}
		if summary != nil && summary.matchID == m.ID {
			row.Open = true
			row.SummaryText = strings.TrimSpace(summary.text)
			row.SummaryError = summary.err
		}
		out = append(out, row)
	}
	return out
}
