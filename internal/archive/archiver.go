// Package archive periodically dumps executed trades to blob storage as
// JSONL, one file per UTC day.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fhuezo/solarb/internal/domain"
)

// Archiver uploads the previous UTC day's trades on a fixed interval. Records
// stay in the primary store; the dump is a backup, not a migration.
type Archiver struct {
	store    domain.TradeStore
	writer   domain.BlobWriter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Archiver that runs every interval.
func New(store domain.TradeStore, writer domain.BlobWriter, interval time.Duration, logger *slog.Logger) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("archive: trade store is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("archive: blob writer is required")
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Archiver{
		store:    store,
		writer:   writer,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
		now:      time.Now,
	}, nil
}

// Run uploads once at startup, then on every tick, until ctx is cancelled.
// Upload failures are logged and retried on the next tick; they never stop
// the loop.
func (a *Archiver) Run(ctx context.Context) error {
	if err := a.ArchiveDay(ctx, a.now().UTC().AddDate(0, 0, -1)); err != nil {
		a.logger.Error("archive failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveDay(ctx, a.now().UTC().AddDate(0, 0, -1)); err != nil {
				a.logger.Error("archive failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ArchiveDay uploads all trades executed on the UTC day containing t to
// archive/trades/YYYY-MM-DD.jsonl. Days with no trades upload nothing.
func (a *Archiver) ArchiveDay(ctx context.Context, t time.Time) error {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	recs, err := a.store.ListSince(ctx, day)
	if err != nil {
		return fmt.Errorf("archive: list trades: %w", err)
	}

	var dayRecs []domain.TradeRecord
	for _, rec := range recs {
		if rec.ExecutedAt.Before(next) {
			dayRecs = append(dayRecs, rec)
		}
	}
	if len(dayRecs) == 0 {
		a.logger.Debug("nothing to archive", slog.String("day", day.Format("2006-01-02")))
		return nil
	}

	buf, err := marshalJSONL(dayRecs)
	if err != nil {
		return fmt.Errorf("archive: marshal trades: %w", err)
	}

	key := fmt.Sprintf("archive/trades/%s.jsonl", day.Format("2006-01-02"))
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}

	a.logger.Info("trades archived",
		slog.String("key", key),
		slog.Int("count", len(dayRecs)))
	return nil
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL(records []domain.TradeRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
