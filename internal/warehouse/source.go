package warehouse

import (
	"context"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/hotstore"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

// Source abstracts the origin a sync run drains from: either the hot event
// store (the normal case) or a stream log treated as a virtual row source,
// using the stream entry id itself as the creation key.
type Source interface {
	// Fetch returns up to limit rows with creation key greater than after,
	// ordered ascending by creation key.
	Fetch(ctx context.Context, after string, limit int64) ([]Row, error)
	// Sample returns up to n rows from the start of the source. Syncer does
	// not call it: batch size comes from the config's stored row size and
	// the table schema from the first fetched batch.
	Sample(ctx context.Context, n int) ([]Row, error)
}

// RowStoreSource drains the hot event store (C4).
type RowStoreSource struct {
	store *hotstore.Store
}

func NewRowStoreSource(store *hotstore.Store) *RowStoreSource {
	return &RowStoreSource{store: store}
}

func (s *RowStoreSource) Fetch(ctx context.Context, after string, limit int64) ([]Row, error) {
	rows, err := s.store.FetchAfter(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{
			"id":             r.ID,
			"site":           r.Site,
			"name":           r.Name,
			"app":            r.App,
			"app_version":    r.AppVersion,
			"frappe_version": r.FrappeVersion,
			"timestamp":      r.Timestamp.UTC().Format(time.RFC3339),
			"data":           r.Data,
		})
	}
	return out, nil
}

func (s *RowStoreSource) Sample(ctx context.Context, n int) ([]Row, error) {
	return s.Fetch(ctx, "", int64(n))
}

// StreamSource treats a tenant's stream log itself as the sync origin,
// bypassing the hot store entirely. The stream entry id is both the
// creation key and the primary key.
type StreamSource struct {
	log *streamlog.Log
}

func NewStreamSource(log *streamlog.Log) *StreamSource {
	return &StreamSource{log: log}
}

func (s *StreamSource) Fetch(ctx context.Context, after string, limit int64) ([]Row, error) {
	minID := "-"
	if after != "" {
		minID = "(" + after
	}
	entries := s.log.Range(ctx, minID, "+", limit, streamlog.Ascending)
	out := make([]Row, 0, len(entries))
	for _, e := range entries {
		row := Row{"id": e.ID}
		for k, v := range e.Data {
			row[k] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *StreamSource) Sample(ctx context.Context, n int) ([]Row, error) {
	return s.Fetch(ctx, "", int64(n))
}

// estimateRowSize averages the byte size (key plus value lengths) of the
// given rows, returning 0 when there are none; batchSizeForRowSize treats 0
// as an unknown row size.
func estimateRowSize(rows []Row) int64 {
	if len(rows) == 0 {
		return 0
	}
	var total int64
	for _, row := range rows {
		for k, v := range row {
			total += int64(len(k) + len(v))
		}
	}
	return total / int64(len(rows))
}

// batchSizeForRowSize implements the ~256MiB-target batch estimation: the
// number of rows that keep one batch near 256MiB, falling back to 1000 rows
// when the row size is unknown (zero).
func batchSizeForRowSize(rowSize int64) int64 {
	const target = 256 * 1024 * 1024
	if rowSize <= 0 {
		return 1000
	}
	n := target / rowSize
	if n < 1 {
		n = 1
	}
	return n
}
