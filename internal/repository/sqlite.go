package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path and applies the schema.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// a single connection keeps writers from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	scripts, err := readMigrations("sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	for i, migration := range scripts {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, user *UserRecord) error {
	q := `
	INSERT OR IGNORE INTO users (username, password_hash, created_at)
	VALUES (?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, user.Username, user.PasswordHash, user.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	q := `
	SELECT password_hash, created_at FROM users WHERE username = ?;
	`
	user := &UserRecord{Username: username}
	var created int64
	if err := r.db.QueryRowContext(ctx, q, username).Scan(&user.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "user", Key: username}
		}
		return nil, fmt.Errorf("failed to scan user: %v", err)
	}
	user.CreatedAt = time.Unix(0, created)
	return user, nil
}

func (r *SQLiteRepository) SaveGame(ctx context.Context, record *GameRecord) error {
	changes, err := encodeChanges(record.Changes)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	q := `
	INSERT OR REPLACE INTO games (game_id, winner, last_seq, created_at, finished_at, changes)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, q, record.ID, int64(record.Winner), int64(record.LastSeq),
		record.CreatedAt.UnixNano(), record.FinishedAt.UnixNano(), changes)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_players WHERE game_id = ?;`, record.ID); err != nil {
		return fmt.Errorf("failed to clear players: %v", err)
	}
	for seat, username := range record.Players {
		q := `
		INSERT INTO game_players (game_id, seat, username) VALUES (?, ?, ?);
		`
		if _, err := tx.ExecContext(ctx, q, record.ID, seat, username); err != nil {
			return fmt.Errorf("failed to insert player: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	q := `
	SELECT winner, last_seq, created_at, finished_at, changes FROM games WHERE game_id = ?;
	`
	var (
		winner, lastSeq, created, finished int64
		changes                            []byte
	)
	err := r.db.QueryRowContext(ctx, q, gameID).Scan(&winner, &lastSeq, &created, &finished, &changes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "game", Key: gameID}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	record := &GameRecord{
		ID:         gameID,
		Winner:     uint64(winner),
		LastSeq:    uint64(lastSeq),
		CreatedAt:  time.Unix(0, created),
		FinishedAt: time.Unix(0, finished),
	}
	if record.Changes, err = decodeChanges(changes); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT username FROM game_players WHERE game_id = ? ORDER BY seat;`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan player: %v", err)
		}
		record.Players = append(record.Players, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %v", err)
	}
	return record, nil
}
