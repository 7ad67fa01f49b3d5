// Command feedcheck fetches the match feed once and prints the filtered matches.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchboard/internal/app"
	"github.com/riskibarqy/matchboard/internal/config"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

type options struct {
	League    []string `long:"league" short:"l" description:"League label to keep (repeatable)"`
	Time      string   `long:"time" short:"t" default:"all" choice:"all" choice:"morning" choice:"afternoon" choice:"night" description:"Kickoff time bucket"`
	Brief     bool     `long:"brief" short:"b" description:"Print one line per match instead of JSON"`
	Summarize bool     `long:"summarize" short:"s" description:"Request an AI summary for every printed match"`
	Workers   int      `long:"workers" short:"w" default:"4" description:"Concurrent summary requests"`
	Source    string   `long:"source" description:"Feed source URL (overrides FEED_SOURCE_URL)"`
	Relay     string   `long:"relay" description:"CORS relay URL, or 'direct' to skip the relay (overrides FEED_RELAY_URL)"`
	Verbose   bool     `long:"verbose" short:"v" description:"Log to stderr"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "feedcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
		}
		return err
	}
	if opts.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logger := logging.NewNop()
	if opts.Verbose {
		logger = logging.New(logging.Options{Level: cfg.LogLevel, Service: "feedcheck", Output: stderr})
	}
	defer func() { _ = logger.Sync() }()

	services, err := app.NewServices(cfg, logger)
	if err != nil {
		return err
	}

	selection := match.Selection{Leagues: opts.League, Time: match.TimeBucket(opts.Time)}
	matches, err := services.Feed.Matches(ctx, selection)
	if err != nil {
		return fmt.Errorf("feed unavailable: %w", err)
	}
	snapshot, err := services.Feed.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("feed unavailable: %w", err)
	}

	var summaries []summaryOutcome
	if opts.Summarize {
		summaries, err = summarizeAll(ctx, services.Summaries, matches, opts.Workers)
		if err != nil {
			return err
		}
	}

	if opts.Brief {
		return writeBrief(stdout, matches, summaries)
	}
	return writeJSON(stdout, buildReport(snapshot, matches, summaries))
}

func applyOverrides(cfg *config.Config, opts options) {
	if source := strings.TrimSpace(opts.Source); source != "" {
		cfg.FeedSourceURL = source
	}
	switch relay := strings.TrimSpace(opts.Relay); strings.ToLower(relay) {
	case "":
	case "direct", "none":
		cfg.FeedRelayURL = ""
	default:
		cfg.FeedRelayURL = relay
	}
}

type summaryOutcome struct {
	Text  string
	Error string
}

// summarizeAll runs one independent summary request per match on a bounded
// pool. Failures are reported per match and never abort the others.
func summarizeAll(ctx context.Context, service *usecase.SummaryService, matches []match.Match, workers int) ([]summaryOutcome, error) {
	out := make([]summaryOutcome, len(matches))
	if len(matches) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, m := range matches {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()

			summary, err := service.SummarizeMatch(ctx, m)
			if err != nil {
				out[i] = summaryOutcome{Error: usecase.SummaryUnavailableMessage}
				return
			}
			out[i] = summaryOutcome{Text: summary.Text}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit summary task: %w", err)
		}
	}
	wg.Wait()

	return out, nil
}

type report struct {
	LoadedAt   string        `json:"loadedAt"`
	MatchCount int           `json:"matchCount"`
	Shown      int           `json:"shown"`
	Leagues    []string      `json:"leagues"`
	Matches    []matchReport `json:"matches"`
}

type matchReport struct {
	ID             int    `json:"id"`
	Time           string `json:"time"`
	TimeBucket     string `json:"timeBucket"`
	Flag           string `json:"flag"`
	League         string `json:"league"`
	HomeTeam       string `json:"homeTeam"`
	AwayTeam       string `json:"awayTeam"`
	Referee        string `json:"referee"`
	Probability1X2 string `json:"probability1x2"`
	Goals          string `json:"goals"`
	Yellows        string `json:"yellows"`
	Reds           string `json:"reds"`
	Penalties      string `json:"penalties"`
	Summary        string `json:"summary,omitempty"`
	SummaryError   string `json:"summaryError,omitempty"`
}

func buildReport(snapshot usecase.Snapshot, matches []match.Match, summaries []summaryOutcome) report {
	out := report{
		LoadedAt:   snapshot.LoadedAt.UTC().Format(time.RFC3339),
		MatchCount: len(snapshot.Matches),
		Shown:      len(matches),
		Leagues:    snapshot.Leagues,
		Matches:    make([]matchReport, 0, len(matches)),
	}
	for i, m := range matches {
		row := matchReport{
			ID:             m.ID,
			Time:           m.Time,
			TimeBucket:     string(match.BucketOf(m.Time)),
			Flag:           m.CountryFlag,
			League:         m.League,
			HomeTeam:       m.HomeTeam,
			AwayTeam:       m.AwayTeam,
			Referee:        m.Referee,
			Probability1X2: m.Probability1X2,
			Goals:          match.FormatNumber(m.TotalGoals),
			Yellows:        match.FormatNumber(m.TotalYellows),
			Reds:           match.FormatNumber(m.TotalReds),
			Penalties:      match.FormatNumber(m.TotalPenalties),
		}
		if i < len(summaries) {
			row.Summary = summaries[i].Text
			row.SummaryError = summaries[i].Error
		}
		out.Matches = append(out.Matches, row)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", encoded)
	return err
}

func writeBrief(w io.Writer, matches []match.Match, summaries []summaryOutcome) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, usecase.NoMatchesMessage)
		return err
	}
	for i, m := range matches {
		if _, err := fmt.Fprintf(w, "%-5s %-8s %s vs %s  goles=%s amarillas=%s rojas=%s penaltis=%s\n",
			m.Time,
			m.League,
			m.HomeTeam,
			m.AwayTeam,
			match.FormatNumber(m.TotalGoals),
			match.FormatNumber(m.TotalYellows),
			match.FormatNumber(m.TotalReds),
			match.FormatNumber(m.TotalPenalties),
		); err != nil {
			return err
		}
		if i < len(summaries) {
			text := summaries[i].Text
			if text == "" {
				text = summaries[i].Error
			}
			if _, err := fmt.Fprintf(w, "      %s\n", text); err != nil {
				return err
			}
		}
	}
	return nil
}
