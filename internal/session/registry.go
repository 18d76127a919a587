// Package session tracks logged in users and running games.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/repository"
)

var (
	ErrUnknownToken   = errors.New("unknown token")
	ErrUnknownGame    = errors.New("unknown game")
	ErrUnknownUser    = errors.New("unknown user")
	ErrGameFull       = errors.New("game is full")
	ErrBadCredentials = errors.New("bad credentials")
	ErrNotInGame      = errors.New("user has not joined a game")
)

const defaultArchiveTimeout = 10 * time.Second

// Options configures new games and archiving.
type Options struct {
	// Game is used as the template for every new game. A zero Seed picks a
	// random seed per game.
	Game           game.Options
	ArchiveTimeout time.Duration
}

// User is a logged in player. GameID and PlayerID are empty until the user
// creates or joins a game.
type User struct {
	Username     string
	PasswordHash []byte
	GameID       string
	PlayerID     game.ID
}

// Seat is the game and player slot a user occupies.
type Seat struct {
	GameID   string
	PlayerID game.ID
}

// ActionResult is the outcome of a submitted action. Rejected actions carry
// the reason and leave the game untouched.
type ActionResult struct {
	Accepted bool
	Reason   string
	LastSeq  uint64
	Changes  []game.Change
}

// Listener is told the newest change sequence of a game after every accepted
// action. It runs outside every lock and must not block.
type Listener func(gameID string, lastSeq uint64)

// ActiveGame is one running game. Every access to state holds mu.
type ActiveGame struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	state    *game.State
	initial  *game.State
	users    []string
	archived bool
}

// Registry maps game ids to games and tokens to users. The registry lock
// only guards the maps; game state is guarded by each game's own lock.
type Registry struct {
	mu     sync.RWMutex
	games  map[string]*ActiveGame
	tokens map[string]string
	users  map[string]*User

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int

	opts    Options
	repo    repository.Repository
	replays *game.ReplayArchiver
	logger  *zap.Logger
}

// NewRegistry creates an empty registry. repo and replays may be nil.
func NewRegistry(opts Options, repo repository.Repository, replays *game.ReplayArchiver, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = defaultArchiveTimeout
	}
	return &Registry{
		games:     make(map[string]*ActiveGame),
		tokens:    make(map[string]string),
		users:     make(map[string]*User),
		listeners: make(map[int]Listener),
		opts:      opts,
		repo:      repo,
		replays:   replays,
		logger:    logger,
	}
}

// Login issues a new token for username. The first login stores a bcrypt
// hash of the password when one is given; later logins must present the same
// password. Logging in again returns a fresh token for the same user.
func (r *Registry) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrBadCredentials)
	}

	r.mu.RLock()
	u, known := r.users[username]
	r.mu.RUnlock()

	if !known {
		loaded, err := r.loadUser(ctx, username, password)
		if err != nil {
			return "", err
		}
		u = loaded
	}
	if len(u.PasswordHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
			r.logger.Warn("login failed", zap.String("username", username))
			return "", ErrBadCredentials
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[username]; ok && existing != u {
		// Another login registered the name first; its password wins.
		if len(existing.PasswordHash) > 0 && !bytes.Equal(existing.PasswordHash, u.PasswordHash) {
			if err := bcrypt.CompareHashAndPassword(existing.PasswordHash, []byte(password)); err != nil {
				r.logger.Warn("login failed", zap.String("username", username))
				return "", ErrBadCredentials
			}
		}
		u = existing
	} else if !ok {
		r.users[username] = u
	}
	token, err := r.uniqueID(func(id string) bool { _, taken := r.tokens[id]; return taken })
	if err != nil {
		return "", err
	}
	r.tokens[token] = username

	r.logger.Info("user logged in", zap.String("username", username))
	return token, nil
}

// loadUser reads a user from the repository or registers a new one.
func (r *Registry) loadUser(ctx context.Context, username, password string) (*User, error) {
	if r.repo != nil {
		rec, err := r.repo.GetUser(ctx, username)
		if err == nil {
			return &User{Username: rec.Username, PasswordHash: rec.PasswordHash}, nil
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("load user: %w", err)
		}
	}

	u := &User{Username: username}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if r.repo != nil {
		rec := &repository.UserRecord{Username: username, PasswordHash: u.PasswordHash, CreatedAt: time.Now()}
		if err := r.repo.SaveUser(ctx, rec); err != nil {
			return nil, fmt.Errorf("save user: %w", err)
		}
		// Re-read: a concurrent registration may have stored its hash first.
		stored, err := r.repo.GetUser(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		u.PasswordHash = stored.PasswordHash
	}
	r.logger.Info("user registered", zap.String("username", username))
	return u, nil
}

// uniqueID draws random ids until taken reports a free one. Callers hold mu.
func (r *Registry) uniqueID(taken func(string) bool) (string, error) {
	for {
		id, err := RandomID()
		if err != nil {
			return "", err
		}
		if !taken(id) {
			return id, nil
		}
	}
}

// User returns a copy of the user behind token.
func (r *Registry) User(token string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, err := r.userLocked(token)
	if err != nil {
		return User{}, err
	}
	return *u, nil
}

func (r *Registry) userLocked(token string) (*User, error) {
	username, ok := r.tokens[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return r.users[username], nil
}

// CreateGame starts a new game with the caller as its first player.
func (r *Registry) CreateGame(token string) (Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.userLocked(token)
	if err != nil {
		return Seat{}, err
	}
	id, err := r.uniqueID(func(id string) bool { _, taken := r.games[id]; return taken })
	if err != nil {
		return Seat{}, err
	}

	opts := r.opts.Game
	opts.GameID = id
	if opts.Seed == 0 {
		if opts.Seed, err = randomSeed(); err != nil {
			return Seat{}, err
		}
	}
	state, err := game.NewGame(opts, r.logger.With(zap.String("game_id", id)))
	if err != nil {
		return Seat{}, fmt.Errorf("create game: %w", err)
	}

	g := &ActiveGame{
		ID:        id,
		CreatedAt: time.Now(),
		state:     state,
		initial:   state.Clone(),
		users:     []string{u.Username},
	}
	r.games[id] = g
	u.GameID = id
	u.PlayerID = state.Players[0].ID

	r.logger.Info("game registered",
		zap.String("game_id", id),
		zap.String("creator", u.Username),
		zap.Int("players", len(state.Players)),
	)
	return Seat{GameID: id, PlayerID: u.PlayerID}, nil
}

// JoinGame seats the caller in a game. The Nth user to join gets the Nth
// player slot. A user already seated in the game keeps their slot.
func (r *Registry) JoinGame(token, gameID string) (Seat, error) {
	r.mu.RLock()
	u, err := r.userLocked(token)
	g, ok := r.games[gameID]
	var username string
	if err == nil {
		username = u.Username
	}
	r.mu.RUnlock()
	if err != nil {
		return Seat{}, err
	}
	if !ok {
		return Seat{}, ErrUnknownGame
	}

	g.mu.Lock()
	slot := -1
	for i, name := range g.users {
		if name == username {
			slot = i
			break
		}
	}
	if slot < 0 {
		if len(g.users) >= len(g.state.Players) {
			g.mu.Unlock()
			r.logger.Warn("join rejected", zap.String("game_id", gameID), zap.String("username", username), zap.Error(ErrGameFull))
			return Seat{}, ErrGameFull
		}
		slot = len(g.users)
		g.users = append(g.users, username)
	}
	playerID := g.state.Players[slot].ID
	g.mu.Unlock()

	r.mu.Lock()
	u.GameID = gameID
	u.PlayerID = playerID
	r.mu.Unlock()

	r.logger.Info("user joined game",
		zap.String("game_id", gameID),
		zap.String("username", username),
		zap.Uint64("player_id", playerID),
	)
	return Seat{GameID: gameID, PlayerID: playerID}, nil
}

// JoinByUsername joins the game the named opponent is seated in.
func (r *Registry) JoinByUsername(token, opponent string) (Seat, error) {
	r.mu.RLock()
	other, ok := r.users[opponent]
	var gameID string
	if ok {
		gameID = other.GameID
	}
	r.mu.RUnlock()

	if !ok {
		return Seat{}, ErrUnknownUser
	}
	if gameID == "" {
		return Seat{}, fmt.Errorf("%s: %w", opponent, ErrNotInGame)
	}
	return r.JoinGame(token, gameID)
}

// seat resolves a token to its user's seat and game.
func (r *Registry) seat(token string) (Seat, *ActiveGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, err := r.userLocked(token)
	if err != nil {
		return Seat{}, nil, err
	}
	if u.GameID == "" {
		return Seat{}, nil, ErrNotInGame
	}
	g, ok := r.games[u.GameID]
	if !ok {
		return Seat{}, nil, ErrUnknownGame
	}
	return Seat{GameID: u.GameID, PlayerID: u.PlayerID}, g, nil
}

// WithGame runs fn while holding the game's lock.
func (r *Registry) WithGame(gameID string, fn func(*game.State) error) error {
	r.mu.RLock()
	g, ok := r.games[gameID]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownGame
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.state)
}

// HasGame reports whether a game id is registered.
func (r *Registry) HasGame(gameID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[gameID]
	return ok
}

// State returns a copy of the caller's game.
func (r *Registry) State(token string) (*game.State, error) {
	_, g, err := r.seat(token)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone(), nil
}

// Actions returns the caller's possible actions.
func (r *Registry) Actions(token string) ([]game.Action, error) {
	seat, g, err := r.seat(token)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.PossibleActions(seat.PlayerID), nil
}

// ChangesAfter returns the caller's game changes after seq.
func (r *Registry) ChangesAfter(token string, seq uint64) ([]game.Change, error) {
	_, g, err := r.seat(token)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.ChangesAfter(seq), nil
}

// Perform submits an action on behalf of the caller. The acting player is
// always the caller's seat, whatever the action says. Rule violations are
// reported in the result, not as an error.
func (r *Registry) Perform(ctx context.Context, token string, action game.Action) (ActionResult, error) {
	seat, g, err := r.seat(token)
	if err != nil {
		return ActionResult{}, err
	}
	action.Player = seat.PlayerID

	g.mu.Lock()
	changes, err := g.state.PerformAction(action)
	res := ActionResult{LastSeq: g.state.LastSeq()}
	var finished *archive
	if err == nil && g.state.Over && !g.archived {
		g.archived = true
		finished = g.archiveLocked()
	}
	g.mu.Unlock()

	if err != nil {
		if game.IsLogicError(err) {
			res.Reason = err.Error()
			return res, nil
		}
		return ActionResult{}, err
	}
	res.Accepted = true
	res.Changes = changes

	if finished != nil {
		r.archive(ctx, finished)
	}
	r.notify(seat.GameID, res.LastSeq)
	return res, nil
}

type archive struct {
	record *repository.GameRecord
	replay *game.Replay
}

func (g *ActiveGame) archiveLocked() *archive {
	changes := g.state.ChangesAfter(0)
	return &archive{
		record: &repository.GameRecord{
			ID:         g.ID,
			Players:    append([]string(nil), g.users...),
			Winner:     g.state.Winner,
			LastSeq:    g.state.LastSeq(),
			CreatedAt:  g.CreatedAt,
			FinishedAt: time.Now(),
			Changes:    changes,
		},
		replay: game.NewReplay(g.ID, g.initial, changes),
	}
}

// archive stores a finished game. Failures are logged; the game itself is
// already complete.
func (r *Registry) archive(ctx context.Context, a *archive) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.ArchiveTimeout)
	defer cancel()

	if r.repo != nil {
		if err := r.repo.SaveGame(ctx, a.record); err != nil {
			r.logger.Error("failed to archive game", zap.String("game_id", a.record.ID), zap.Error(err))
		}
	}
	if err := r.replays.Save(a.replay); err != nil {
		r.logger.Error("failed to write replay", zap.String("game_id", a.record.ID), zap.Error(err))
	}
	r.logger.Info("game finished",
		zap.String("game_id", a.record.ID),
		zap.Uint64("winner", a.record.Winner),
		zap.Uint64("last_seq", a.record.LastSeq),
	)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (r *Registry) Subscribe(fn Listener) func() {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	return func() {
		r.listenersMu.Lock()
		defer r.listenersMu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Registry) notify(gameID string, lastSeq uint64) {
	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()
	for _, fn := range r.listeners {
		fn(gameID, lastSeq)
	}
}
