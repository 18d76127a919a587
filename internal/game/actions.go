package game

import (
	"fmt"

	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

// ActionKind enumerates the moves a player can submit.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionEndTurn
	ActionPlayCard
	ActionPlaceBeacon
	ActionSelectShips
	ActionSelectSystem
)

var actionKindNames = map[ActionKind]string{
	ActionNone:         "ACTION_NONE",
	ActionEndTurn:      "ACTION_END_TURN",
	ActionPlayCard:     "ACTION_PLAY_CARD",
	ActionPlaceBeacon:  "ACTION_PLACE_BEACON",
	ActionSelectShips:  "ACTION_SELECT_SHIPS",
	ActionSelectSystem: "ACTION_SELECT_SYSTEM",
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ACTION_%d", int(k))
}

// Action is a legal move offered to a player. Clients send one back with
// Targets filled in for the SELECT_* kinds.
type Action struct {
	Kind       ActionKind
	Player     ID
	Target     ID
	Name       string
	MinTargets int
	MaxTargets int
	Candidates []ID
	Targets    []ID
}

func (a Action) String() string {
	return fmt.Sprintf("%s player=%d target=%d", a.Kind, a.Player, a.Target)
}

// PossibleActions lists the moves player may make right now. It always
// contains an ACTION_NONE entry and is rebuilt on every call.
func (s *State) PossibleActions(player ID) []Action {
	actions := []Action{{Kind: ActionNone, Player: player, Name: "Pass"}}
	if p := s.Player(player); s.Over || p == nil || p.Lost || s.Turn.Active != player {
		return actions
	}

	switch phase := s.Turn.Phase(); phase {
	case rules.PhaseMain:
		if s.Turn.WhoseTurn == player {
			actions = append(actions, Action{Kind: ActionEndTurn, Player: player, Name: "End turn"})
		}
		actions = append(actions, s.playableCards(player, false)...)
		if s.Turn.WhoseTurn == player {
			for _, sys := range s.beaconSystems(player) {
				actions = append(actions, Action{
					Kind:   ActionPlaceBeacon,
					Player: player,
					Target: sys,
					Name:   "Place warp beacon",
				})
			}
		}

	case rules.PhaseResolveStack:
		actions = append(actions, s.playableCards(player, true)...)

	case rules.PhaseSelectCardTargets, rules.PhaseSelectBeaconTargets:
		sel := s.Turn.Selection
		if sel == nil {
			break
		}
		kind := ActionSelectShips
		if sel.Domain == rules.TargetSystems {
			kind = ActionSelectSystem
		}
		actions = append(actions, Action{
			Kind:       kind,
			Player:     player,
			Target:     sel.SourceID,
			Name:       s.selectionName(sel),
			MinTargets: sel.Min,
			MaxTargets: sel.Max,
			Candidates: s.selectionCandidates(sel),
		})
	}
	return actions
}

// playableCards returns a PLAY_CARD entry for every card in hand the player
// can afford and has legal targets for. In RESOLVE_STACK only fast cards
// qualify.
func (s *State) playableCards(player ID, fastOnly bool) []Action {
	p := s.Player(player)
	var out []Action
	for _, id := range p.Hand {
		card := s.Cards[id]
		if s.checkPlayable(p, card, fastOnly) != nil {
			continue
		}
		out = append(out, Action{Kind: ActionPlayCard, Player: player, Target: id, Name: card.Name})
	}
	return out
}

func (s *State) checkPlayable(p *Player, card *Card, fastOnly bool) error {
	if card == nil || card.Owner != p.ID || card.Zone != ZoneHand {
		return ErrUnknownCard
	}
	if fastOnly && !card.Fast {
		return fmt.Errorf("%w: %s is not fast", ErrIllegalAction, card.Name)
	}
	if !card.Cost.LessEqual(p.Current) {
		return fmt.Errorf("%w: %s costs %s, have %s", ErrCannotAfford, card.Name, card.Cost, p.Current)
	}
	behavior, ok := BehaviorFor(card.Kind)
	if !ok {
		return fmt.Errorf("%w: no behaviour for %s", ErrUnknownCard, card.Kind)
	}
	if spec := behavior.Targets(s, card); len(spec.Candidates) < spec.Min {
		return fmt.Errorf("%w: %s has no legal targets", ErrIllegalAction, card.Name)
	}
	return nil
}

// beaconSystems returns the systems a beacon may be placed in: any system
// at least one of the player's ships can warp to.
func (s *State) beaconSystems(player ID) []ID {
	ships := s.ShipsOf(player)
	var out []ID
	for _, sys := range s.SystemList() {
		for _, ship := range ships {
			if s.canWarp(ship, sys.ID) {
				out = append(out, sys.ID)
				break
			}
		}
	}
	return out
}

// canWarp reports whether ship may jump to system this turn.
func (s *State) canWarp(ship *Ship, system ID) bool {
	if ship.System == system {
		return false
	}
	from, ok := s.Systems[ship.System]
	if !ok {
		return false
	}
	to, ok := s.Systems[system]
	if !ok {
		return false
	}
	return from.Distance(*to) <= ship.Movement || s.hasRelay(ship.Controller, system)
}

// warpCandidates returns the player's ships able to reach the beacon.
func (s *State) warpCandidates(beacon *WarpBeacon) []ID {
	var out []ID
	for _, ship := range s.ShipsOf(beacon.Owner) {
		if s.canWarp(ship, beacon.System) {
			out = append(out, ship.ID)
		}
	}
	return out
}

// selectionCandidates recomputes the legal targets of a pending selection.
func (s *State) selectionCandidates(sel *rules.Selection) []ID {
	if beacon, ok := s.Beacons[sel.SourceID]; ok {
		return s.warpCandidates(beacon)
	}
	card, ok := s.Cards[sel.SourceID]
	if !ok {
		return nil
	}
	behavior, ok := BehaviorFor(card.Kind)
	if !ok {
		return nil
	}
	return behavior.Targets(s, card).Candidates
}

func (s *State) selectionName(sel *rules.Selection) string {
	if _, ok := s.Beacons[sel.SourceID]; ok {
		return "Warp ships"
	}
	if card, ok := s.Cards[sel.SourceID]; ok {
		return card.Name
	}
	return ""
}
