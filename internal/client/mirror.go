package client

import (
	"errors"
	"fmt"

	"github.com/warpfront/warpfront-server-go/internal/game"
)

// Mirror is a local copy of a game kept current by applying the server's
// changes in order. It is not safe for concurrent mutation; readers may
// share State between calls to Apply.
type Mirror struct {
	state *game.State
}

// NewMirror starts from a snapshot whose change log begins at its last
// sequence number.
func NewMirror(snapshot *game.State) *Mirror {
	return &Mirror{state: snapshot}
}

func (m *Mirror) State() *game.State {
	return m.state
}

func (m *Mirror) LastSeq() uint64 {
	return m.state.LastSeq()
}

// Apply applies changes in order and returns how many advanced the state.
// Changes at or below LastSeq are skipped. It stops at the first gap.
func (m *Mirror) Apply(changes []game.Change) (int, error) {
	applied := 0
	for _, c := range changes {
		before := m.state.LastSeq()
		if err := m.state.ApplyChange(c); err != nil {
			if errors.Is(err, game.ErrChangeOutOfOrder) {
				return applied, err
			}
			return applied, fmt.Errorf("mirror %s: %w", m.state.GameID, err)
		}
		if m.state.LastSeq() != before {
			applied++
		}
	}
	return applied, nil
}

// Reset replaces the mirrored state with a fresh snapshot.
func (m *Mirror) Reset(snapshot *game.State) {
	m.state = snapshot
}
