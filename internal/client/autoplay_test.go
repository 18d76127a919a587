package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warpfront/warpfront-server-go/internal/game"
)

func TestRandomPolicyAnswersSelections(t *testing.T) {
	policy := NewRandomPolicy(1)
	sel := game.Action{
		Kind:       game.ActionSelectShips,
		MinTargets: 1,
		MaxTargets: 2,
		Candidates: []game.ID{10, 11, 12},
	}
	for i := 0; i < 50; i++ {
		a, ok := policy.Choose([]game.Action{{Kind: game.ActionNone}, sel})
		require.True(t, ok)
		require.Equal(t, game.ActionSelectShips, a.Kind)
		assert.GreaterOrEqual(t, len(a.Targets), 1)
		assert.LessOrEqual(t, len(a.Targets), 2)
		for _, id := range a.Targets {
			assert.Contains(t, sel.Candidates, id)
		}
	}

	impossible := sel
	impossible.MinTargets = 4
	a, ok := policy.Choose([]game.Action{{Kind: game.ActionNone}, impossible})
	require.True(t, ok)
	assert.Equal(t, game.ActionNone, a.Kind)

	_, ok = policy.Choose(nil)
	assert.False(t, ok)
}

func TestRandomPolicyPlaysLegalGames(t *testing.T) {
	s, err := game.NewGame(game.Options{GameID: "autoplay", Seed: 11}, zaptest.NewLogger(t))
	require.NoError(t, err)
	policy := NewRandomPolicy(11)

	for i := 0; i < 500 && !s.Over; i++ {
		a, ok := policy.Choose(s.PossibleActions(s.Turn.Active))
		require.True(t, ok)
		a.Player = s.Turn.Active
		_, err := s.PerformAction(a)
		require.NoError(t, err, "step %d: %s", i, a)
	}
	assert.NotZero(t, s.LastSeq())
}
