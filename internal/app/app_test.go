package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchboard/internal/config"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

const feedPayload = `[
	{"HORA":"10:00","liga":"ENG","HOME":"Leeds","AWAY":"Burnley","GOLES TOTAL":"2,75","1X2":"45/30/25"},
	{"HORA":"22:00","liga":"ENG","HOME":"","AWAY":"Hull"}
]`

func testConfig(sourceURL string) config.Config {
	return config.Config{
		ServiceName:     "matchboard-test",
		HTTPAddr:        "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
		FeedSourceURL:   sourceURL,
		FeedTimeout:     time.Second,
	}
}

func TestApp_ServesFeedThroughRouter(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedPayload))
	}))
	defer upstream.Close()

	application, err := New(testConfig(upstream.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches?time=morning", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data []struct {
			HomeTeam       string `json:"homeTeam"`
			Probability1X2 string `json:"probability1x2"`
			Display        struct {
				TotalGoals string `json:"totalGoals"`
			} `json:"display"`
		} `json:"data"`
	}
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].HomeTeam != "Leeds" || body.Data[0].Display.TotalGoals != "2.75" {
		t.Fatalf("unexpected matches: %+v", body.Data)
	}
}

func TestApp_SummariesDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedPayload))
	}))
	defer upstream.Close()

	application, err := New(testConfig(upstream.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/matches/0/summary", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No se pudo generar el análisis") {
		t.Fatalf("expected fixed summary message, got %s", rec.Body.String())
	}
}

func TestNew_RequiresAddr(t *testing.T) {
	cfg := testConfig("https://example.com/feed.json")
	cfg.HTTPAddr = ""
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewServices_RejectsInvalidSource(t *testing.T) {
	if _, err := NewServices(testConfig("::not a url"), logging.NewNop()); err == nil {
		t.Fatalf("expected error for invalid source url")
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	application, err := New(testConfig("https://example.com/feed.json"), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}
