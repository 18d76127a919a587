package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/game/resource"
)

func sampleGame() *GameRecord {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &GameRecord{
		ID:         "Ab12Cd34",
		Players:    []string{"alice", "bob"},
		Winner:     27,
		LastSeq:    3,
		CreatedAt:  created,
		FinishedAt: created.Add(15 * time.Minute),
		Changes: []game.Change{
			{Seq: 1, Kind: game.ChangeResource, Player: 26, Delta: resource.Amount{resource.Metal: 2}},
			{Seq: 2, Kind: game.ChangeDamageShip, Entity: 67, Amount: 10},
			{Seq: 3, Kind: game.ChangeGameOver, Player: 27},
		},
	}
}

func exercise(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.GetUser(ctx, "alice")
	assert.True(t, IsNotFound(err))

	user := &UserRecord{Username: "alice", PasswordHash: []byte("hash"), CreatedAt: time.Now()}
	require.NoError(t, repo.SaveUser(ctx, user))
	got, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	// a second registration of the same name keeps the first
	require.NoError(t, repo.SaveUser(ctx, &UserRecord{Username: "alice", PasswordHash: []byte("other"), CreatedAt: time.Now()}))
	got, err = repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	_, err = repo.GetGame(ctx, "Ab12Cd34")
	assert.True(t, IsNotFound(err))

	record := sampleGame()
	require.NoError(t, repo.SaveGame(ctx, record))
	loaded, err := repo.GetGame(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Players, loaded.Players)
	assert.Equal(t, record.Winner, loaded.Winner)
	assert.Equal(t, record.LastSeq, loaded.LastSeq)
	assert.True(t, record.FinishedAt.Equal(loaded.FinishedAt))
	require.Len(t, loaded.Changes, 3)
	assert.Equal(t, game.ChangeGameOver, loaded.Changes[2].Kind)
	assert.Equal(t, 10, loaded.Changes[1].Amount)
	assert.True(t, record.Changes[0].Delta.Equal(loaded.Changes[0].Delta))

	// saving again replaces the record
	record.Players = []string{"alice", "carol"}
	require.NoError(t, repo.SaveGame(ctx, record))
	loaded, err = repo.GetGame(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, loaded.Players)

	require.NoError(t, repo.Close(ctx))
}

func TestMemoryRepository(t *testing.T) {
	exercise(t, NewMemoryRepository())
}

func TestMemoryRepositoryCopiesRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	record := sampleGame()
	require.NoError(t, repo.SaveGame(ctx, record))

	record.Players[0] = "mallory"
	loaded, err := repo.GetGame(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Players[0])
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "warpfront.db"))
	require.NoError(t, err)
	exercise(t, repo)
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	repo, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)

	repo, err = New(ctx, Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepository{}, repo)
	require.NoError(t, repo.Close(ctx))

	_, err = New(ctx, Config{Driver: "cassandra"})
	assert.Error(t, err)
}
