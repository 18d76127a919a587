package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to connStr, checks the connection and
// applies the schema. The caller is responsible for calling Close.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %v", err)
	}

	scripts, err := readMigrations("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	for i, migration := range scripts {
		if _, err := pool.Exec(ctx, migration); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) SaveUser(ctx context.Context, user *UserRecord) error {
	q := `
	INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)
	ON CONFLICT (username) DO NOTHING;
	`
	if _, err := r.pool.Exec(ctx, q, user.Username, user.PasswordHash, user.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	q := `
	SELECT password_hash, created_at FROM users WHERE username = $1;
	`
	user := &UserRecord{Username: username}
	if err := r.pool.QueryRow(ctx, q, username).Scan(&user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "user", Key: username}
		}
		return nil, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *PostgresRepository) SaveGame(ctx context.Context, record *GameRecord) error {
	changes, err := encodeChanges(record.Changes)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := `
	INSERT INTO games (game_id, winner, last_seq, created_at, finished_at, changes)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (game_id) DO UPDATE SET winner = $2, last_seq = $3, finished_at = $5, changes = $6;
	`
	_, err = tx.Exec(ctx, q, record.ID, int64(record.Winner), int64(record.LastSeq),
		record.CreatedAt, record.FinishedAt, changes)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM game_players WHERE game_id = $1;`, record.ID); err != nil {
		return fmt.Errorf("failed to clear players: %v", err)
	}
	batch := &pgx.Batch{}
	for seat, username := range record.Players {
		batch.Queue(`INSERT INTO game_players (game_id, seat, username) VALUES ($1, $2, $3);`, record.ID, seat, username)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert players: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	q := `
	SELECT winner, last_seq, created_at, finished_at, changes FROM games WHERE game_id = $1;
	`
	record := &GameRecord{ID: gameID}
	var (
		winner, lastSeq int64
		changes         []byte
	)
	err := r.pool.QueryRow(ctx, q, gameID).Scan(&winner, &lastSeq, &record.CreatedAt, &record.FinishedAt, &changes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{Kind: "game", Key: gameID}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}
	record.Winner = uint64(winner)
	record.LastSeq = uint64(lastSeq)
	if record.Changes, err = decodeChanges(changes); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT username FROM game_players WHERE game_id = $1 ORDER BY seat;`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %v", err)
	}
	record.Players, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read players: %v", err)
	}
	return record, nil
}
