package game

import "errors"

var (
	// ErrGameOver is returned for any action submitted after the game ended.
	ErrGameOver = errors.New("game is over")
	// ErrNotActivePlayer is returned when someone other than the active player acts.
	ErrNotActivePlayer = errors.New("player does not have priority")
	// ErrIllegalAction is returned when an action does not fit the current phase.
	ErrIllegalAction = errors.New("illegal action for current phase")
	// ErrInvalidTargets is returned when chosen targets are not candidates or
	// their count is outside the allowed range.
	ErrInvalidTargets = errors.New("invalid targets")
	// ErrCannotAfford is returned when a card costs more than the player holds.
	ErrCannotAfford  = errors.New("cannot afford card")
	ErrUnknownCard   = errors.New("unknown card")
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrPlayerLost is returned for actions from a player who is out of the game.
	ErrPlayerLost = errors.New("player has lost")
	// ErrChangeOutOfOrder is returned when a mirror receives a change that does
	// not directly follow the last applied one.
	ErrChangeOutOfOrder = errors.New("change out of order")
)
