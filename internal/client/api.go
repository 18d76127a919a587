package client

import (
	"context"
	"sync"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/server"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

// API is a blocking, typed view of the remote calls. It remembers the token
// issued by Login and sends it with every later call.
type API struct {
	transport Transport

	mu    sync.RWMutex
	token string
}

func NewAPI(transport Transport) *API {
	return &API{transport: transport}
}

// Token returns the current login token.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) call(ctx context.Context, op server.Operation, req, resp wire.Message) error {
	return a.transport.Call(ctx, op, a.Token(), req, resp)
}

func (a *API) Login(ctx context.Context, username, password string) error {
	var sess wire.Session
	if err := a.call(ctx, server.OpLogin, &wire.Credentials{Username: username, Password: password}, &sess); err != nil {
		return err
	}
	a.mu.Lock()
	a.token = sess.Token
	a.mu.Unlock()
	return nil
}

func (a *API) CreateGame(ctx context.Context) (wire.Seat, error) {
	var seat wire.Seat
	err := a.call(ctx, server.OpCreateGame, nil, &seat)
	return seat, err
}

func (a *API) JoinGame(ctx context.Context, gameID string) (wire.Seat, error) {
	var seat wire.Seat
	err := a.call(ctx, server.OpJoinGame, &wire.JoinRequest{GameID: gameID}, &seat)
	return seat, err
}

func (a *API) JoinByUsername(ctx context.Context, opponent string) (wire.Seat, error) {
	var seat wire.Seat
	err := a.call(ctx, server.OpJoinUser, &wire.JoinRequest{Username: opponent}, &seat)
	return seat, err
}

// State fetches a snapshot. Its change log is empty and starts at the
// snapshot's last sequence number.
func (a *API) State(ctx context.Context) (*game.State, error) {
	var snap wire.Snapshot
	if err := a.call(ctx, server.OpState, nil, &snap); err != nil {
		return nil, err
	}
	return snap.State, nil
}

func (a *API) Actions(ctx context.Context) ([]game.Action, error) {
	var actions wire.Actions
	if err := a.call(ctx, server.OpActions, nil, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func (a *API) Perform(ctx context.Context, action game.Action) (wire.ActionResult, error) {
	var res wire.ActionResult
	err := a.call(ctx, server.OpPerform, &wire.ActionRequest{Action: action}, &res)
	return res, err
}

func (a *API) ChangesAfter(ctx context.Context, seq uint64) ([]game.Change, error) {
	var changes wire.Changes
	if err := a.call(ctx, server.OpChanges, &wire.ChangesRequest{After: seq}, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func (a *API) Close() error {
	return a.transport.Close()
}
