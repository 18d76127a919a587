package client

import (
	"math/rand/v2"

	"github.com/warpfront/warpfront-server-go/internal/game"
)

// Policy picks the next move from a freshly fetched action list.
type Policy interface {
	Choose(actions []game.Action) (game.Action, bool)
}

// RandomPolicy plays a random legal move. It always answers a pending
// selection and otherwise passes now and then so turns keep moving.
type RandomPolicy struct {
	rng *rand.Rand
}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPolicy) Choose(actions []game.Action) (game.Action, bool) {
	if len(actions) == 0 {
		return game.Action{}, false
	}
	pass := actions[0]

	var moves []game.Action
	for _, a := range actions {
		switch a.Kind {
		case game.ActionSelectShips, game.ActionSelectSystem:
			return p.selectTargets(a, pass), true
		case game.ActionNone:
		default:
			moves = append(moves, a)
		}
	}
	if len(moves) == 0 || p.rng.IntN(4) == 0 {
		return pass, true
	}
	return moves[p.rng.IntN(len(moves))], true
}

// selectTargets fills Targets with a random subset of the candidates whose
// size is within the allowed range, or passes when that is impossible.
func (p *RandomPolicy) selectTargets(a, pass game.Action) game.Action {
	hi := min(a.MaxTargets, len(a.Candidates))
	if a.MinTargets > hi {
		return pass
	}
	n := a.MinTargets + p.rng.IntN(hi-a.MinTargets+1)
	picked := append([]game.ID(nil), a.Candidates...)
	p.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	a.Targets = picked[:n]
	return a
}
