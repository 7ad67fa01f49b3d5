package match

import "context"

// Source exposes the raw rows of the match feed.
type Source interface {
	FetchRecords(ctx context.Context) ([]RawRecord, error)
}
