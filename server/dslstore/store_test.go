package dslstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_Create_thenGet_roundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "client-1", "let x = 1", `{"target":"linux-x64"}`)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, created.Status)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, "let x = 1", got.Source)
}

func Test_Finish_updatesStatusAndResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "client-1", "let x = 1", "{}")
	require.NoError(t, err)

	err = s.Finish(ctx, created.ID, StatusSucceeded, "no diagnostics", "QkFTRTY0", "")
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "QkFTRTY0", got.ArtifactB64)
	assert.False(t, got.FinishedAt.IsZero())
}

func Test_Finish_unknownJobReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	id, err := uuid.NewRandom()
	require.NoError(t, err)

	err = s.Finish(context.Background(), id, StatusFailed, "", "", "boom")
	assert.Error(t, err)
}

func Test_Get_unknownJobReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	id, err := uuid.NewRandom()
	require.NoError(t, err)

	_, err = s.Get(context.Background(), id)
	assert.Error(t, err)
}
