package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
)

type fakeStore struct {
	recs []domain.TradeRecord
	err  error
}

func (s *fakeStore) Create(context.Context, domain.TradeRecord) error { return nil }

func (s *fakeStore) GetByID(context.Context, string) (domain.TradeRecord, error) {
	return domain.TradeRecord{}, domain.ErrNotFound
}

func (s *fakeStore) ListSince(_ context.Context, since time.Time) ([]domain.TradeRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.TradeRecord
	for _, r := range s.recs {
		if !r.ExecutedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeWriter struct {
	keys []string
	data [][]byte
	err  error
}

func (w *fakeWriter) Write(_ context.Context, key string, data []byte, _ string) error {
	if w.err != nil {
		return w.err
	}
	w.keys = append(w.keys, key)
	w.data = append(w.data, data)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(id string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID:         id,
		Status:     domain.TradeCompleted,
		ExecutedAt: at,
	}
}

func TestArchiveDayUploadsOneFilePerDay(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{recs: []domain.TradeRecord{
		rec("t1", day.Add(2*time.Hour)),
		rec("t2", day.Add(20*time.Hour)),
		rec("t3", day.AddDate(0, 0, 1).Add(time.Hour)), // next day, excluded
	}}
	writer := &fakeWriter{}

	a, err := New(store, writer, time.Hour, discard())
	require.NoError(t, err)

	require.NoError(t, a.ArchiveDay(context.Background(), day.Add(5*time.Hour)))

	require.Len(t, writer.keys, 1)
	assert.Equal(t, "archive/trades/2026-08-29.jsonl", writer.keys[0])

	lines := bytes.Split(bytes.TrimSpace(writer.data[0]), []byte("\n"))
	require.Len(t, lines, 2)
	var first domain.TradeRecord
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "t1", first.ID)
}

func TestArchiveDaySkipsEmptyDays(t *testing.T) {
	writer := &fakeWriter{}
	a, err := New(&fakeStore{}, writer, time.Hour, discard())
	require.NoError(t, err)

	require.NoError(t, a.ArchiveDay(context.Background(), time.Now()))
	assert.Empty(t, writer.keys)
}

func TestArchiveDayPropagatesStoreError(t *testing.T) {
	a, err := New(&fakeStore{err: errors.New("db down")}, &fakeWriter{}, time.Hour, discard())
	require.NoError(t, err)

	err = a.ArchiveDay(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
