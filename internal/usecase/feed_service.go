package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/cache"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
)

const feedSnapshotKey = "feed:snapshot"

type FeedState string

const (
	FeedStateLoading FeedState = "loading"
	FeedStateError   FeedState = "error"
	FeedStateReady   FeedState = "ready"
)

// Snapshot is one immutable normalized feed. Callers must not modify
// the slices.
type Snapshot struct {
	Matches  []match.Match
	Leagues  []string
	LoadedAt time.Time
}

type FeedStatus struct {
	State      FeedState
	MatchCount int
	LoadedAt   time.Time
	Message    string
}

type FeedService struct {
	source match.Source
	store  *cache.Store[Snapshot]
	logger *logging.Logger

	mu      sync.RWMutex
	lastErr error
	// last is the most recent successful snapshot. It outlives the cache
	// entry so an expired ttl does not read as a load in progress.
	last   Snapshot
	loaded bool
}

// NewFeedService keeps the loaded snapshot for ttl. A ttl of zero keeps it
// until the next explicit Load.
func NewFeedService(source match.Source, ttl time.Duration, logger *logging.Logger) *FeedService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FeedService{
		source: source,
		store:  cache.NewStore[Snapshot](ttl),
		logger: logger.With("component", "feed_service"),
	}
}

// Load discards the current snapshot and fetches the feed again.
func (s *FeedService) Load(ctx context.Context) (FeedStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedService.Load")
	var err error
	defer func() { finishUsecaseSpan(span, err) }()

	s.store.Delete(ctx, feedSnapshotKey)
	if _, err = s.snapshot(ctx); err != nil {
		return s.Status(ctx), err
	}
	return s.Status(ctx), nil
}

// Status reports the loader state without triggering a fetch. After the
// ttl expires it keeps reporting the last outcome until the next fetch.
func (s *FeedService) Status(ctx context.Context) FeedStatus {
	if s.store.Loading(feedSnapshotKey) {
		return FeedStatus{State: FeedStateLoading}
	}
	if entry, ok := s.store.Lookup(ctx, feedSnapshotKey); ok {
		return readyStatus(entry.Value)
	}

	s.mu.RLock()
	lastErr, last, loaded := s.lastErr, s.last, s.loaded
	s.mu.RUnlock()
	switch {
	case lastErr != nil:
		return FeedStatus{State: FeedStateError, Message: FeedUnavailableMessage}
	case loaded:
		return readyStatus(last)
	default:
		return FeedStatus{State: FeedStateLoading}
	}
}

func readyStatus(snapshot Snapshot) FeedStatus {
	return FeedStatus{
		State:      FeedStateReady,
		MatchCount: len(snapshot.Matches),
		LoadedAt:   snapshot.LoadedAt,
	}
}

// Snapshot returns the current snapshot, fetching the feed when none is held.
func (s *FeedService) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.snapshot(ctx)
}

// Current returns the held snapshot without fetching. Once the ttl has
// expired it returns the last successful snapshot, unless a later fetch failed.
func (s *FeedService) Current(ctx context.Context) (Snapshot, error) {
	if entry, ok := s.store.Lookup(ctx, feedSnapshotKey); ok {
		return entry.Value, nil
	}

	s.mu.RLock()
	lastErr, last, loaded := s.lastErr, s.last, s.loaded
	s.mu.RUnlock()
	if loaded && lastErr == nil && !s.store.Loading(feedSnapshotKey) {
		return last, nil
	}
	return Snapshot{}, fmt.Errorf("%w: state=%s", ErrFeedNotReady, s.Status(ctx).State)
}

func (s *FeedService) Matches(ctx context.Context, selection match.Selection) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedService.Matches")
	var err error
	defer func() { finishUsecaseSpan(span, err) }()

	if selection.Time != "" && !selection.Time.Valid() {
		err = fmt.Errorf("%w: time=%s", ErrInvalidInput, selection.Time)
		return nil, err
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return match.Filter(snapshot.Matches, selection), nil
}

func (s *FeedService) Leagues(ctx context.Context) ([]string, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Leagues, nil
}

func (s *FeedService) Match(ctx context.Context, matchID int) (match.Match, error) {
	if matchID < 0 {
		return match.Match{}, fmt.Errorf("%w: match id must not be negative", ErrInvalidInput)
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return match.Match{}, err
	}
	if matchID >= len(snapshot.Matches) {
		return match.Match{}, fmt.Errorf("%w: match=%d", ErrNotFound, matchID)
	}
	return snapshot.Matches[matchID], nil
}

func (s *FeedService) snapshot(ctx context.Context) (Snapshot, error) {
	entry, err := s.store.GetOrLoad(ctx, feedSnapshotKey, s.fetch)
	if err != nil {
		return Snapshot{}, err
	}
	return entry.Value, nil
}

// fetch is shared by every caller waiting on the same load, so it must not
// fail because the first caller went away.
func (s *FeedService) fetch(ctx context.Context) (Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedService.fetch")
	var err error
	defer func() { finishUsecaseSpan(span, err) }()

	started := time.Now()
	records, err := s.source.FetchRecords(ctx)
	if err != nil {
		s.setLastErr(err)
		s.logger.ErrorContext(ctx, "feed load failed", "error", err, "duration", time.Since(started))
		err = newPublicError(ErrDependencyUnavailable, FeedUnavailableMessage, fmt.Errorf("fetch feed records: %w", err))
		return Snapshot{}, err
	}

	matches := match.Normalize(records)
	snapshot := Snapshot{
		Matches:  matches,
		Leagues:  match.Leagues(matches),
		LoadedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.lastErr = nil
	s.last, s.loaded = snapshot, true
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "feed loaded",
		"records", len(records),
		"matches", len(matches),
		"leagues", len(snapshot.Leagues),
		"duration", time.Since(started),
	)
	return snapshot, nil
}

func (s *FeedService) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
