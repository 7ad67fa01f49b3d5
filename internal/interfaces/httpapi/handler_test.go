package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchboard/internal/domain/analysis"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	analysismock "github.com/riskibarqy/matchboard/internal/mocks/domain/analysis"
	matchmock "github.com/riskibarqy/matchboard/internal/mocks/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
	"github.com/stretchr/testify/mock"
)

func sampleRecords() []match.RawRecord {
	return []match.RawRecord{
		{
			match.FieldLeague:         "ESP \uFFFD",
			match.FieldHome:           "Eibar",
			match.FieldAway:           "Huesca",
			match.FieldTime:           "09:00",
			match.FieldReferee:        "Gil Manzano",
			match.FieldGoalsTotal:     2.5,
			match.FieldYellowsReferee: "4,25",
			match.FieldTrendHome:      "1,5",
		},
		{match.FieldLeague: "ITA", match.FieldHome: "Milan", match.FieldAway: "Inter", match.FieldTime: "15:30"},
		{match.FieldLeague: "ITA", match.FieldHome: "", match.FieldAway: "Roma"},
		{match.FieldLeague: "ESP \uFFFD", match.FieldHome: "Oviedo", match.FieldAway: "Gijon", match.FieldTime: "21:00"},
	}
}

type testEnv struct {
	router    http.Handler
	source    *matchmock.Source
	generator *analysismock.Generator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	source := matchmock.NewSource(t)
	generator := analysismock.NewGenerator(t)
	return newTestEnvWith(source, generator)
}

func newTestEnvWith(source *matchmock.Source, generator *analysismock.Generator) *testEnv {
	var gen analysis.Generator
	if generator != nil {
		gen = generator
	}

	logger := logging.NewNop()
	feed := usecase.NewFeedService(source, 0, logger)
	summaries := usecase.NewSummaryService(feed, gen, logger)
	handler := NewHandler(feed, summaries, logger)

	return &testEnv{
		router:    NewRouter(handler, logger, RouterConfig{ServiceName: "matchboard-test"}),
		source:    source,
		generator: generator,
	}
}

func (e *testEnv) do(method, target string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	APIVersion string              `json:"apiVersion"`
	Data       jsoniter.RawMessage `json:"data"`
	Error      *googleErrorBody    `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var out envelope
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	if out.APIVersion != googleAPIVersion {
		t.Fatalf("expected apiVersion %s, got %q", googleAPIVersion, out.APIVersion)
	}
	return out
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data map[string]string
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "ok" {
		t.Fatalf("unexpected healthz payload: %v", data)
	}
}

func TestHandler_ReadyzAfterReload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	rec := env.do(http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before load, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Error == nil || body.Error.Errors[0].Reason != "feedNotReady" {
		t.Fatalf("expected feedNotReady reason, got %+v", body.Error)
	}

	rec = env.do(http.MethodPost, "/v1/feed/reload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from reload, got %d body=%s", rec.Code, rec.Body.String())
	}
	var status feedStatusDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != "ready" || status.MatchCount != 3 || status.LoadedAt == "" {
		t.Fatalf("unexpected feed status: %+v", status)
	}

	if rec := env.do(http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after load, got %d", rec.Code)
	}
}

func TestHandler_GetFeedStatusDoesNotFetch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v1/feed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status feedStatusDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != "loading" || status.MatchCount != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	env.source.AssertNotCalled(t, "FetchRecords", mock.Anything)
}

func TestHandler_ListLeagues(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	rec := env.do(http.MethodGet, "/v1/leagues", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var leagues []leagueDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &leagues); err != nil {
		t.Fatalf("decode leagues: %v", err)
	}
	if len(leagues) != 2 {
		t.Fatalf("expected 2 leagues, got %+v", leagues)
	}
	if leagues[0].Name != "ESP 2" || leagues[0].Base != "ESP" || leagues[0].Division != "2" {
		t.Fatalf("unexpected first league: %+v", leagues[0])
	}
	if leagues[1].Name != "ITA" || leagues[1].Flag != match.FlagForLeague("ITA") || leagues[1].Division != "" {
		t.Fatalf("unexpected second league: %+v", leagues[1])
	}
}

func TestHandler_ListMatchesFiltersByLeagueAndTime(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	query := url.Values{}
	query.Add("league", "ESP 2")
	query.Set("time", "morning")
	rec := env.do(http.MethodGet, "/v1/matches?"+query.Encode(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var items []matchDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &items); err != nil {
		t.Fatalf("decode matches: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	got := items[0]
	if got.HomeTeam != "Eibar" || got.TimeBucket != "morning" || got.League != "ESP 2" {
		t.Fatalf("unexpected match: %+v", got)
	}
	if got.Display.TotalGoals != "2.50" || got.Details.Yellows.RefereeDisplay != "4.25" {
		t.Fatalf("unexpected display values: %+v %+v", got.Display, got.Details.Yellows)
	}
	if got.Details.Trends.Home != "1,5" || got.Details.Trends.Away != match.PlaceholderDash {
		t.Fatalf("trends must pass through verbatim, got %+v", got.Details.Trends)
	}
}

func TestHandler_ListMatchesWithoutFilterKeepsOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	rec := env.do(http.MethodGet, "/v1/matches", nil)
	var items []matchDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &items); err != nil {
		t.Fatalf("decode matches: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(items))
	}
	for i, item := range items {
		if item.ID != i {
			t.Fatalf("expected id %d at position %d, got %d", i, i, item.ID)
		}
	}
}

func TestHandler_ListMatchesRejectsUnknownTime(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v1/matches?time=evening", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body.Error == nil || body.Error.Status != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %+v", body.Error)
	}
	env.source.AssertNotCalled(t, "FetchRecords", mock.Anything)
}

func TestHandler_GetMatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "known", target: "/v1/matches/2", status: http.StatusOK},
		{name: "unknown", target: "/v1/matches/99", status: http.StatusNotFound},
		{name: "negative", target: "/v1/matches/-1", status: http.StatusBadRequest},
		{name: "not a number", target: "/v1/matches/abc", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := env.do(http.MethodGet, tt.target, nil)
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.status, rec.Code)
		}
	}

	rec := env.do(http.MethodGet, "/v1/matches/2", nil)
	var item matchDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &item); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if item.HomeTeam != "Oviedo" || item.TimeBucket != "night" {
		t.Fatalf("unexpected match: %+v", item)
	}
}

func TestHandler_FeedFailureShowsFixedMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	rec := env.do(http.MethodGet, "/v1/leagues", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Error == nil || body.Error.Message != usecase.FeedUnavailableMessage {
		t.Fatalf("expected fixed feed message, got %+v", body.Error)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("upstream error leaked to the client: %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/v1/feed", nil)
	var status feedStatusDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != "error" || status.Message != usecase.FeedUnavailableMessage {
		t.Fatalf("unexpected status after failure: %+v", status)
	}
}

func TestHandler_SummarizeMatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	env.generator.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Eibar vs Huesca")
	})).Return("  Partido cerrado, pocas tarjetas.  ", nil).Once()

	rec := env.do(http.MethodPost, "/v1/matches/0/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var summary summaryDTO
	if err := jsoniter.Unmarshal(decodeEnvelope(t, rec).Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.MatchID != 0 || summary.Text != "Partido cerrado, pocas tarjetas." || summary.GeneratedAt == "" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestHandler_SummarizeMatchFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	env.generator.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	rec := env.do(http.MethodPost, "/v1/matches/1/summary", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Error == nil || body.Error.Message != usecase.SummaryUnavailableMessage {
		t.Fatalf("expected fixed summary message, got %+v", body.Error)
	}
}

func TestHandler_SummarizeWithoutGenerator(t *testing.T) {
	t.Parallel()

	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	env := newTestEnvWith(source, nil)

	rec := env.do(http.MethodPost, "/v1/matches/0/summary", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandler_DashboardRendersMatches(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	rec := env.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("expected html content type, got %q", got)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"Partidos de Fútbol",
		"ESP<sup>2</sup>",
		"Eibar",
		"Oviedo",
		"Generar Resumen con IA",
		"Mañana",
		"Por Árbitro:",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard is missing %q", want)
		}
	}
}

func TestHandler_DashboardEmptyState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	rec := env.do(http.MethodGet, "/?league=ITA&time=night", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), usecase.NoMatchesMessage) {
		t.Fatalf("expected empty-state message")
	}
}

func TestHandler_DashboardFeedError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(nil, errors.New("relay down"))

	rec := env.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, usecase.FeedUnavailableMessage) {
		t.Fatalf("expected feed error banner")
	}
	if strings.Contains(body, "Filtrar por Liga") {
		t.Fatalf("filters must be hidden while the feed is failing")
	}
}

func TestHandler_DashboardSummaryForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	env.generator.On("Generate", mock.Anything, mock.Anything).Return("Resumen de prueba", nil).Once()

	form := url.Values{}
	form.Add("league", "ESP 2")
	rec := env.do(http.MethodPost, "/matches/2/summary", strings.NewReader(form.Encode()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Resumen de prueba") {
		t.Fatalf("expected summary text in the page")
	}
	if strings.Contains(body, "Milan") {
		t.Fatalf("league filter must survive the summary post")
	}
}

func TestHandler_DashboardSummaryFormFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	env.generator.On("Generate", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded).Once()

	rec := env.do(http.MethodPost, "/matches/0/summary", strings.NewReader(""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), usecase.SummaryUnavailableMessage) {
		t.Fatalf("expected fixed summary message in the page")
	}
}

func TestHandler_DashboardReloadRedirects(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	form := url.Values{}
	form.Set("time", "night")
	rec := env.do(http.MethodPost, "/reload", strings.NewReader(form.Encode()))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/?time=night" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestSelectionHref(t *testing.T) {
	tests := []struct {
		name      string
		selection match.Selection
		want      string
	}{
		{name: "empty", selection: match.Selection{}, want: "/"},
		{name: "all time is implicit", selection: match.Selection{Time: match.TimeAll}, want: "/"},
		{name: "leagues and time", selection: match.Selection{Leagues: []string{"ESP 2", "ITA"}, Time: match.TimeNight}, want: "/?league=ESP+2&league=ITA&time=night"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectionHref(tt.selection); got != tt.want {
				t.Fatalf("selectionHref()=%q want=%q", got, tt.want)
			}
		})
	}
}
