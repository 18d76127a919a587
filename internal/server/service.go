// Package server exposes the session registry over HTTP, gRPC and a
// WebSocket change feed. Every transport moves the same wire envelopes and
// dispatches them through Service.
package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/session"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

// Operation names one remote call.
type Operation string

const (
	OpLogin      Operation = "login"
	OpCreateGame Operation = "create"
	OpJoinGame   Operation = "join"
	OpJoinUser   Operation = "join-user"
	OpState      Operation = "state"
	OpActions    Operation = "actions"
	OpPerform    Operation = "perform"
	OpChanges    Operation = "changes"
)

// Operations lists every call in a stable order.
var Operations = []Operation{OpLogin, OpCreateGame, OpJoinGame, OpJoinUser, OpState, OpActions, OpPerform, OpChanges}

// Path returns the HTTP route of an operation.
func (op Operation) Path() string {
	if op == OpLogin {
		return "/login"
	}
	return "/games/" + string(op)
}

var errUnknownOperation = errors.New("unknown operation")

// Service decodes request payloads, calls the registry and encodes replies.
// It holds no state of its own.
type Service struct {
	registry *session.Registry
	logger   *zap.Logger
}

func NewService(registry *session.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, logger: logger}
}

type handlerFunc func(s *Service, ctx context.Context, token string, payload []byte) (wire.Message, error)

var handlers = map[Operation]handlerFunc{
	OpLogin:      (*Service).login,
	OpCreateGame: (*Service).createGame,
	OpJoinGame:   (*Service).joinGame,
	OpJoinUser:   (*Service).joinUser,
	OpState:      (*Service).state,
	OpActions:    (*Service).actions,
	OpPerform:    (*Service).perform,
	OpChanges:    (*Service).changes,
}

// Handle runs one call and always returns a response envelope.
func (s *Service) Handle(ctx context.Context, op Operation, req *wire.Request) *wire.Response {
	h, ok := handlers[op]
	if !ok {
		return failure(errUnknownOperation)
	}
	msg, err := h(s, ctx, req.Token, req.Payload)
	if err != nil {
		resp := failure(err)
		level := s.logger.Debug
		if resp.Status >= wire.StatusInternal {
			level = s.logger.Error
		}
		level("request failed",
			zap.String("operation", string(op)),
			zap.Int("status", resp.Status),
			zap.Error(err),
		)
		return resp
	}
	return &wire.Response{Status: wire.StatusOK, Payload: wire.Marshal(msg)}
}

func failure(err error) *wire.Response {
	return &wire.Response{Status: StatusFor(err), Error: err.Error()}
}

// StatusFor maps an error to a response status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return wire.StatusOK
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, errUnknownOperation):
		return wire.StatusBadRequest
	case errors.Is(err, session.ErrUnknownToken), errors.Is(err, session.ErrBadCredentials):
		return wire.StatusUnauthorized
	case errors.Is(err, session.ErrUnknownGame), errors.Is(err, session.ErrUnknownUser), errors.Is(err, session.ErrNotInGame):
		return wire.StatusNotFound
	case errors.Is(err, session.ErrGameFull):
		return wire.StatusConflict
	default:
		return wire.StatusInternal
	}
}

func (s *Service) login(ctx context.Context, _ string, payload []byte) (wire.Message, error) {
	var creds wire.Credentials
	if err := wire.Unmarshal(payload, &creds); err != nil {
		return nil, err
	}
	token, err := s.registry.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}
	return &wire.Session{Token: token}, nil
}

func seatMessage(seat session.Seat) *wire.Seat {
	return &wire.Seat{GameID: seat.GameID, PlayerID: seat.PlayerID}
}

func (s *Service) createGame(_ context.Context, token string, _ []byte) (wire.Message, error) {
	seat, err := s.registry.CreateGame(token)
	if err != nil {
		return nil, err
	}
	return seatMessage(seat), nil
}

func (s *Service) joinGame(_ context.Context, token string, payload []byte) (wire.Message, error) {
	var req wire.JoinRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	seat, err := s.registry.JoinGame(token, req.GameID)
	if err != nil {
		return nil, err
	}
	return seatMessage(seat), nil
}

func (s *Service) joinUser(_ context.Context, token string, payload []byte) (wire.Message, error) {
	var req wire.JoinRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	seat, err := s.registry.JoinByUsername(token, req.Username)
	if err != nil {
		return nil, err
	}
	return seatMessage(seat), nil
}

func (s *Service) state(_ context.Context, token string, _ []byte) (wire.Message, error) {
	state, err := s.registry.State(token)
	if err != nil {
		return nil, err
	}
	return &wire.Snapshot{State: state}, nil
}

func (s *Service) actions(_ context.Context, token string, _ []byte) (wire.Message, error) {
	actions, err := s.registry.Actions(token)
	if err != nil {
		return nil, err
	}
	list := wire.Actions(actions)
	return &list, nil
}

func (s *Service) perform(ctx context.Context, token string, payload []byte) (wire.Message, error) {
	var req wire.ActionRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	res, err := s.registry.Perform(ctx, token, req.Action)
	if err != nil {
		return nil, err
	}
	return &wire.ActionResult{Accepted: res.Accepted, Reason: res.Reason, LastSeq: res.LastSeq}, nil
}

func (s *Service) changes(_ context.Context, token string, payload []byte) (wire.Message, error) {
	var req wire.ChangesRequest
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	changes, err := s.registry.ChangesAfter(token, req.After)
	if err != nil {
		return nil, err
	}
	batch := wire.Changes(changes)
	if batch == nil {
		batch = wire.Changes{}
	}
	return &batch, nil
}
