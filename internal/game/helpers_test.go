package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

func newTestGame(t *testing.T) *State {
	t.Helper()
	s, err := NewGame(Options{GameID: "TESTGAME", Seed: 42}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

// giveCard moves the first card called name from the player's deck into the
// hand, unless one is already held.
func giveCard(t *testing.T, s *State, player ID, name string) *Card {
	t.Helper()
	p := s.Player(player)
	require.NotNil(t, p)
	for _, id := range p.Hand {
		if s.Cards[id].Name == name {
			return s.Cards[id]
		}
	}
	for _, id := range p.Deck {
		if s.Cards[id].Name == name {
			p.Deck, _ = removeID(p.Deck, id)
			p.Hand = append(p.Hand, id)
			s.Cards[id].Zone = ZoneHand
			return s.Cards[id]
		}
	}
	t.Fatalf("player %d has no %q left", player, name)
	return nil
}

func perform(t *testing.T, s *State, action Action) []Change {
	t.Helper()
	changes, err := s.PerformAction(action)
	require.NoError(t, err)
	return changes
}

func pass(t *testing.T, s *State) []Change {
	t.Helper()
	return perform(t, s, Action{Kind: ActionNone, Player: s.Turn.Active})
}

// toMain moves the game out of UPKEEP.
func toMain(t *testing.T, s *State) {
	t.Helper()
	require.Equal(t, rules.PhaseUpkeep, s.Turn.Phase())
	pass(t, s)
	require.Equal(t, rules.PhaseMain, s.Turn.Phase())
}

func findAction(actions []Action, kind ActionKind, target ID) (Action, bool) {
	for _, a := range actions {
		if a.Kind == kind && (target == 0 || a.Target == target) {
			return a, true
		}
	}
	return Action{}, false
}

func kinds(changes []Change) []ChangeKind {
	out := make([]ChangeKind, len(changes))
	for i, c := range changes {
		out[i] = c.Kind
	}
	return out
}

func indexOf(changes []Change, kind ChangeKind) int {
	for i, c := range changes {
		if c.Kind == kind {
			return i
		}
	}
	return -1
}
