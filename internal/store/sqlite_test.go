package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/store"
)

func newSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	d := testDraft("draft-2024-01-08", 8)
	require.NoError(t, s.Put(ctx, d))

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
	require.Equal(t, d.Topics, got.Topics)
	require.Equal(t, d.Kind, got.Kind)
	require.Equal(t, d.Content, got.Content)
	require.Equal(t, d.IssueNumber, got.IssueNumber)
	require.True(t, d.ReferenceDate.Equal(got.ReferenceDate))
}

func TestSQLiteGetUnknown(t *testing.T) {
	s := newSQLite(t)
	_, err := s.Get(context.Background(), "draft-nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteUpdate(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	d := testDraft("draft-2024-01-08", 8)
	require.NoError(t, s.Put(ctx, d))

	d.ApprovalState = models.StateRejected
	d.Content = "novo corpo"
	require.NoError(t, s.Update(ctx, d))

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateRejected, got.ApprovalState)
	require.Equal(t, "novo corpo", got.Content)

	require.ErrorIs(t, s.Update(ctx, testDraft("draft-missing", 9)), store.ErrNotFound)
}

func TestSQLiteList(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	require.NoError(t, s.Put(ctx, testDraft("draft-2024-01-09", 9)))
	require.NoError(t, s.Put(ctx, testDraft("draft-2024-01-08", 8)))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "draft-2024-01-08", all[0].ID)
}
