package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/matchboard/internal/domain/analysis"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

type Summary struct {
	MatchID     int
	Text        string
	GeneratedAt time.Time
}

type matchLookup interface {
	Match(ctx context.Context, matchID int) (match.Match, error)
}

// SummaryService requests one AI summary per call. Results are never
// cached and failed requests are not retried.
type SummaryService struct {
	matches   matchLookup
	generator analysis.Generator
	logger    *logging.Logger
}

func NewSummaryService(matches matchLookup, generator analysis.Generator, logger *logging.Logger) *SummaryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SummaryService{
		matches:   matches,
		generator: generator,
		logger:    logger.With("component", "summary_service"),
	}
}

func (s *SummaryService) Summarize(ctx context.Context, matchID int) (Summary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.Summarize")
	var err error
	defer func() { finishUsecaseSpan(span, err) }()

	m, err := s.matches.Match(ctx, matchID)
	if err != nil {
		return Summary{}, err
	}

	summary, err := s.SummarizeMatch(ctx, m)
	return summary, err
}

// SummarizeMatch runs the generator for an already resolved match.
func (s *SummaryService) SummarizeMatch(ctx context.Context, m match.Match) (Summary, error) {
	if s.generator == nil {
		s.logger.ErrorContext(ctx, "summary requested without a generator", "match_id", m.ID)
		return Summary{}, newPublicError(ErrDependencyUnavailable, SummaryUnavailableMessage, fmt.Errorf("summary generator is not configured"))
	}

	started := time.Now()
	text, err := s.generator.Generate(ctx, BuildSummaryPrompt(m))
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("generator returned empty text")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "summary generation failed",
			"match_id", m.ID,
			"home", m.HomeTeam,
			"away", m.AwayTeam,
			"error", err,
			"duration", time.Since(started),
		)
		return Summary{}, newPublicError(ErrDependencyUnavailable, SummaryUnavailableMessage, fmt.Errorf("generate summary: %w", err))
	}

	s.logger.InfoContext(ctx, "summary generated", "match_id", m.ID, "duration", time.Since(started))
	return Summary{
		MatchID:     m.ID,
		Text:        strings.TrimSpace(text),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
