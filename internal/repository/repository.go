// Package repository archives users and finished games.
package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

//go:embed migrations
var migrations embed.FS

// Repository stores users and the change logs of finished games.
type Repository interface {
	Close(ctx context.Context) error
	// SaveUser inserts user unless the username is already taken, in which
	// case the stored record is kept and no error is returned.
	SaveUser(ctx context.Context, user *UserRecord) error
	GetUser(ctx context.Context, username string) (*UserRecord, error)
	SaveGame(ctx context.Context, record *GameRecord) error
	GetGame(ctx context.Context, gameID string) (*GameRecord, error)
}

// UserRecord is a registered username. PasswordHash is empty for users who
// logged in without a password.
type UserRecord struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// GameRecord is an archived game. Players lists usernames in seat order.
type GameRecord struct {
	ID         string
	Players    []string
	Winner     game.ID
	LastSeq    uint64
	CreatedAt  time.Time
	FinishedAt time.Time
	Changes    []game.Change
}

type ErrNotFound struct {
	Kind string
	Key  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func IsNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// Config selects and configures a repository.
type Config struct {
	Driver string
	DSN    string
}

// New opens the repository named by cfg.Driver: "memory" (the default),
// "sqlite" or "postgres".
func New(ctx context.Context, cfg Config) (Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryRepository(), nil
	case "sqlite", "sqlite3":
		repo, err := NewSQLiteRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres", "postgresql":
		repo, err := NewPostgresRepository(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func encodeChanges(changes []game.Change) ([]byte, error) {
	batch := wire.Changes(changes)
	return wire.Pack(&batch)
}

func decodeChanges(data []byte) ([]game.Change, error) {
	var batch wire.Changes
	if err := wire.Unpack(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode changes: %v", err)
	}
	return batch, nil
}

// readMigrations returns the migration scripts for a driver in name order.
func readMigrations(driver string) ([]string, error) {
	dir := "migrations/" + driver
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, err := fs.ReadFile(migrations, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", entry.Name(), err)
		}
		scripts = append(scripts, string(b))
	}
	return scripts, nil
}
