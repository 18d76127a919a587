package repository

import (
	"context"
	"sync"

	"github.com/warpfront/warpfront-server-go/internal/game"
)

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]UserRecord
	games map[string]GameRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]UserRecord),
		games: make(map[string]GameRecord),
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) SaveUser(ctx context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil
	}
	u := *user
	u.PasswordHash = append([]byte(nil), user.PasswordHash...)
	r.users[user.Username] = u
	return nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, &ErrNotFound{Kind: "user", Key: username}
	}
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &u, nil
}

func (r *MemoryRepository) SaveGame(ctx context.Context, record *GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := *record
	g.Players = append([]string(nil), record.Players...)
	g.Changes = append([]game.Change(nil), record.Changes...)
	r.games[record.ID] = g
	return nil
}

func (r *MemoryRepository) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[gameID]
	if !ok {
		return nil, &ErrNotFound{Kind: "game", Key: gameID}
	}
	g.Players = append([]string(nil), g.Players...)
	g.Changes = append([]game.Change(nil), g.Changes...)
	return &g, nil
}
