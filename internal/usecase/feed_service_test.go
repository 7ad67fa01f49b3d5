package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/matchboard/internal/domain/match"
	matchmock "github.com/riskibarqy/matchboard/internal/mocks/domain/match"
	"github.com/stretchr/testify/mock"
)

func sampleRecords() []match.RawRecord {
	return []match.RawRecord{
		{match.FieldLeague: "ESP \uFFFD", match.FieldHome: "Eibar", match.FieldAway: "Huesca", match.FieldTime: "09:00"},
		{match.FieldLeague: "ITA", match.FieldHome: "Milan", match.FieldAway: "Inter", match.FieldTime: "15:30"},
		{match.FieldLeague: "ITA", match.FieldHome: "", match.FieldAway: "Roma"},
		{match.FieldLeague: "ESP \uFFFD", match.FieldHome: "Oviedo", match.FieldAway: "Gijon", match.FieldTime: "21:00"},
	}
}

func TestFeedService_LoadAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	service := NewFeedService(source, 0, nil)

	if status := service.Status(ctx); status.State != FeedStateLoading {
		t.Fatalf("expected loading before first fetch, got %s", status.State)
	}

	status, err := service.Load(ctx)
	if err != nil {
		t.Fatalf("load feed: %v", err)
	}
	if status.State != FeedStateReady || status.MatchCount != 3 || status.LoadedAt.IsZero() {
		t.Fatalf("unexpected status: %+v", status)
	}

	leagues, err := service.Leagues(ctx)
	if err != nil {
		t.Fatalf("leagues: %v", err)
	}
	if len(leagues) != 2 || leagues[0] != "ESP 2" || leagues[1] != "ITA" {
		t.Fatalf("unexpected leagues: %v", leagues)
	}

	got, err := service.Matches(ctx, match.Selection{Leagues: []string{"ESP 2"}, Time: match.TimeAll})
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(got) != 2 || got[0].HomeTeam != "Eibar" || got[1].HomeTeam != "Oviedo" {
		t.Fatalf("unexpected filtered matches: %+v", got)
	}

	night, err := service.Matches(ctx, match.Selection{Time: match.TimeNight})
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(night) != 1 || night[0].ID != 2 {
		t.Fatalf("unexpected night matches: %+v", night)
	}

	one, err := service.Match(ctx, 1)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if one.HomeTeam != "Milan" {
		t.Fatalf("unexpected match: %+v", one)
	}
	if _, err := service.Match(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.Match(ctx, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFeedService_InvalidTimeBucket(t *testing.T) {
	t.Parallel()

	service := NewFeedService(matchmock.NewSource(t), 0, nil)
	_, err := service.Matches(context.Background(), match.Selection{Time: "noon"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFeedService_FailureSurfacesFixedMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errUpstream := errors.New("status 502")
	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(nil, errUpstream).Once()

	service := NewFeedService(source, 0, nil)
	status, err := service.Load(ctx)
	if err == nil {
		t.Fatalf("expected load error")
	}
	if !errors.Is(err, ErrDependencyUnavailable) || !errors.Is(err, errUpstream) {
		t.Fatalf("expected dependency error wrapping cause, got %v", err)
	}

	var publicErr *PublicError
	if !errors.As(err, &publicErr) || publicErr.Message != FeedUnavailableMessage {
		t.Fatalf("expected public feed message, got %v", err)
	}
	if status.State != FeedStateError || status.Message != FeedUnavailableMessage {
		t.Fatalf("unexpected status: %+v", status)
	}
	if _, err := service.Current(ctx); !errors.Is(err, ErrFeedNotReady) {
		t.Fatalf("expected ErrFeedNotReady, got %v", err)
	}
}

func TestFeedService_ReloadReplacesSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(sampleRecords()[:1], nil).Once()
	source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	service := NewFeedService(source, 0, nil)
	if _, err := service.Load(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	first, err := service.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if len(first.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(first.Matches))
	}

	// Cached until reloaded.
	if _, err := service.Matches(ctx, match.Selection{}); err != nil {
		t.Fatalf("matches: %v", err)
	}

	status, err := service.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if status.MatchCount != 3 {
		t.Fatalf("expected reloaded snapshot with 3 matches, got %+v", status)
	}
	if len(first.Matches) != 1 {
		t.Fatalf("previous snapshot must stay intact, got %d matches", len(first.Matches))
	}
}

func TestFeedService_ConcurrentFirstLoadFetchesOnce(t *testing.T) {
	t.Parallel()

	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(sampleRecords(), nil).
		Once()

	service := NewFeedService(source, time.Minute, nil)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			if _, err := service.Leagues(context.Background()); err != nil {
				t.Errorf("leagues: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
}

func TestFeedService_CanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	t.Parallel()

	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).
		Return(sampleRecords(), nil).
		Once()

	service := NewFeedService(source, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := service.Load(ctx); err != nil {
		t.Fatalf("load with canceled caller: %v", err)
	}
}

func TestFeedService_ExpiredSnapshotKeepsLastState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(sampleRecords()[:1], nil).Once()
	source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()

	service := NewFeedService(source, 20*time.Millisecond, nil)
	first, err := service.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	status := service.Status(ctx)
	if status.State != FeedStateReady || status.MatchCount != 1 || !status.LoadedAt.Equal(first.LoadedAt) {
		t.Fatalf("expected last ready state after expiry, got %+v", status)
	}
	if current, err := service.Current(ctx); err != nil || len(current.Matches) != 1 {
		t.Fatalf("expected last snapshot after expiry, got %d matches err=%v", len(current.Matches), err)
	}

	got, err := service.Matches(ctx, match.Selection{})
	if err != nil {
		t.Fatalf("matches after expiry: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected expired snapshot to be refetched, got %d matches", len(got))
	}
}

func TestFeedService_FailedReloadAfterSuccessReportsError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := matchmock.NewSource(t)
	source.On("FetchRecords", mock.Anything).Return(sampleRecords(), nil).Once()
	source.On("FetchRecords", mock.Anything).Return(nil, errors.New("timeout")).Once()

	service := NewFeedService(source, 0, nil)
	if _, err := service.Load(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := service.Load(ctx); err == nil {
		t.Fatalf("expected reload error")
	}
	if status := service.Status(ctx); status.State != FeedStateError {
		t.Fatalf("expected error state, got %+v", status)
	}
	if _, err := service.Current(ctx); !errors.Is(err, ErrFeedNotReady) {
		t.Fatalf("expected ErrFeedNotReady after failed reload, got %v", err)
	}
}
