package game

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

// PerformAction validates and applies one action, returning the changes it
// appended. A rejected action is logged, appends nothing and leaves the
// state as it was.
func (s *State) PerformAction(action Action) ([]Change, error) {
	before := s.Log.LastSeq()

	err := s.perform(action)
	if err != nil {
		s.log().Warn("action rejected",
			zap.String("game_id", s.GameID),
			zap.Stringer("action", action.Kind),
			zap.Uint64("player_id", action.Player),
			zap.Uint64("target_id", action.Target),
			zap.Stringer("phase", s.Turn.Phase()),
			zap.Error(err),
		)
		return nil, err
	}
	s.handOverFromLost()

	changes := s.Log.After(before)
	s.log().Debug("action performed",
		zap.String("game_id", s.GameID),
		zap.Stringer("action", action.Kind),
		zap.Uint64("player_id", action.Player),
		zap.Int("changes", len(changes)),
		zap.Stringer("phase", s.Turn.Phase()),
	)
	return changes, nil
}

func (s *State) perform(action Action) error {
	if s.Over {
		return ErrGameOver
	}
	p := s.Player(action.Player)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, action.Player)
	}
	if p.Lost {
		return fmt.Errorf("%w: %d", ErrPlayerLost, action.Player)
	}
	if action.Player != s.Turn.Active {
		return fmt.Errorf("%w: active player is %d", ErrNotActivePlayer, s.Turn.Active)
	}

	// Each phase handles its own actions; none falls through to another.
	switch phase := s.Turn.Phase(); phase {
	case rules.PhaseUpkeep:
		return s.performUpkeep(action)
	case rules.PhaseMain:
		return s.performMain(action)
	case rules.PhaseMove:
		return s.performMove(action)
	case rules.PhaseEnd:
		return s.performEnd(action)
	case rules.PhaseResolveStack:
		return s.performResolveStack(action)
	case rules.PhaseSelectCardTargets, rules.PhaseSelectBeaconTargets:
		return s.performSelect(action)
	default:
		return fmt.Errorf("%w: unknown phase %s", ErrIllegalAction, phase)
	}
}

func (s *State) performUpkeep(Action) error {
	turn := s.Turn.Clone()
	_ = turn.Phases.ReplaceRoot(rules.PhaseMain)
	s.emitTurn(turn)
	return nil
}

func (s *State) performMain(action Action) error {
	switch action.Kind {
	case ActionPlayCard:
		return s.playCard(action, false)
	case ActionPlaceBeacon:
		return s.placeBeacon(action)
	case ActionNone, ActionEndTurn:
		turn := s.Turn.Clone()
		_ = turn.Phases.ReplaceRoot(rules.PhaseEnd)
		s.emitTurn(turn)
		return nil
	case ActionSelectShips, ActionSelectSystem:
		return fmt.Errorf("%w: %s outside a selection phase", ErrIllegalAction, action.Kind)
	default:
		return fmt.Errorf("%w: %s in MAIN", ErrIllegalAction, action.Kind)
	}
}

func (s *State) performMove(action Action) error {
	switch action.Kind {
	case ActionNone, ActionEndTurn:
		turn := s.Turn.Clone()
		_ = turn.Phases.ReplaceRoot(rules.PhaseEnd)
		s.emitTurn(turn)
		return nil
	default:
		return fmt.Errorf("%w: %s in MOVE", ErrIllegalAction, action.Kind)
	}
}

func (s *State) performEnd(Action) error {
	s.endTurn()
	return nil
}

func (s *State) performResolveStack(action Action) error {
	switch action.Kind {
	case ActionPlayCard:
		return s.playCard(action, true)
	case ActionNone:
		return s.resolveTop()
	default:
		return fmt.Errorf("%w: %s in RESOLVE_STACK", ErrIllegalAction, action.Kind)
	}
}

// playCard pays for a card and moves it onto the stack. Cards that need
// targets push a selection phase for the caster; otherwise priority passes.
func (s *State) playCard(action Action, fastOnly bool) error {
	p := s.Player(action.Player)
	card, ok := s.Cards[action.Target]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCard, action.Target)
	}
	if err := s.checkPlayable(p, card, fastOnly); err != nil {
		return err
	}
	behavior, _ := BehaviorFor(card.Kind)
	spec := behavior.Targets(s, card)

	left, paid := p.Current.Pay(card.Cost)
	if !paid {
		return ErrCannotAfford
	}
	if delta := left.Sub(p.Current); !delta.IsZero() {
		s.emit(Change{Kind: ChangeResource, Player: p.ID, Pool: PoolCurrent, Delta: delta})
	}
	s.emit(Change{Kind: ChangePlayCard, Player: p.ID, Entity: card.ID})

	turn := s.Turn.Clone()
	if turn.Phases.Top() != rules.PhaseResolveStack {
		_ = turn.Phases.Push(rules.PhaseResolveStack)
	}
	if spec.NeedsTargets() {
		phase := rules.PhaseSelectCardTargets
		if spec.Domain == rules.TargetSystems {
			phase = rules.PhaseSelectBeaconTargets
		}
		_ = turn.Phases.Push(phase)
		turn.Selection = &rules.Selection{SourceID: card.ID, Domain: spec.Domain, Min: spec.Min, Max: spec.Max}
	} else {
		turn.Active = s.NextPlayer(p.ID)
	}
	s.emitTurn(turn)
	return nil
}

// placeBeacon drops a warp beacon in MAIN, moves the turn into MOVE and asks
// the player which ships jump to it.
func (s *State) placeBeacon(action Action) error {
	if action.Player != s.Turn.WhoseTurn {
		return fmt.Errorf("%w: only the turn player may place a beacon", ErrIllegalAction)
	}
	if !containsID(s.beaconSystems(action.Player), action.Target) {
		return fmt.Errorf("%w: system %d is out of range", ErrIllegalAction, action.Target)
	}

	beacon := &WarpBeacon{ID: s.IDs.Allocate(), Owner: action.Player, System: action.Target}
	s.emit(Change{Kind: ChangePlaceBeacon, Player: action.Player, Beacon: beacon})

	candidates := s.warpCandidates(s.Beacons[beacon.ID])
	turn := s.Turn.Clone()
	_ = turn.Phases.ReplaceRoot(rules.PhaseMove)
	_ = turn.Phases.Push(rules.PhaseSelectCardTargets)
	turn.Selection = &rules.Selection{
		SourceID: beacon.ID,
		Domain:   rules.TargetShips,
		Min:      0,
		Max:      len(candidates),
	}
	s.emitTurn(turn)
	return nil
}

// performSelect applies the targets chosen for the pending selection.
// ACTION_NONE chooses nothing.
func (s *State) performSelect(action Action) error {
	sel := s.Turn.Selection
	if sel == nil {
		return fmt.Errorf("%w: no pending selection", ErrIllegalAction)
	}
	want := ActionSelectShips
	if sel.Domain == rules.TargetSystems {
		want = ActionSelectSystem
	}

	var targets []ID
	switch action.Kind {
	case ActionNone:
	case want:
		if action.Target != 0 && action.Target != sel.SourceID {
			return fmt.Errorf("%w: selection is for %d, not %d", ErrIllegalAction, sel.SourceID, action.Target)
		}
		if err := validateTargets(action.Targets, sel.Min, sel.Max, s.selectionCandidates(sel)); err != nil {
			return err
		}
		targets = action.Targets
	default:
		return fmt.Errorf("%w: %s during %s", ErrIllegalAction, action.Kind, s.Turn.Phase())
	}

	if beacon, ok := s.Beacons[sel.SourceID]; ok {
		s.warpShips(beacon, targets)
		return nil
	}
	card, ok := s.Cards[sel.SourceID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCard, sel.SourceID)
	}
	s.finishCardSelection(card, targets, sel.Min)
	return nil
}

func validateTargets(targets []ID, lo, hi int, candidates []ID) error {
	if len(targets) < lo || len(targets) > hi {
		return fmt.Errorf("%w: chose %d, need between %d and %d", ErrInvalidTargets, len(targets), lo, hi)
	}
	seen := make(map[ID]bool, len(targets))
	for _, id := range targets {
		if seen[id] {
			return fmt.Errorf("%w: %d chosen twice", ErrInvalidTargets, id)
		}
		seen[id] = true
		if !containsID(candidates, id) {
			return fmt.Errorf("%w: %d is not a candidate", ErrInvalidTargets, id)
		}
	}
	return nil
}

func (s *State) warpShips(beacon *WarpBeacon, ships []ID) {
	for _, id := range sortedIDs(ships) {
		ship := s.Ships[id]
		s.emit(Change{Kind: ChangeMoveShip, Player: ship.Controller, Entity: id, From: ship.System, To: beacon.System})
	}
	if len(ships) > 0 {
		s.resolveCombat(beacon.System)
	}
	if s.Over {
		return
	}
	turn := s.Turn.Clone()
	_, _ = turn.Phases.Pop()
	turn.Selection = nil
	s.emitTurn(turn)
}

// finishCardSelection records a card's targets and hands priority on. A card
// left without its minimum number of targets fizzles to the discard pile.
func (s *State) finishCardSelection(card *Card, targets []ID, minTargets int) {
	turn := s.Turn.Clone()
	_, _ = turn.Phases.Pop()
	turn.Selection = nil

	if len(targets) < minTargets {
		s.emit(Change{Kind: ChangeCounterCard, Player: card.Owner, Entity: card.ID, Reason: "no targets"})
		s.afterStackChange(&turn, card.Owner)
		s.emitTurn(turn)
		return
	}

	if len(targets) > 0 {
		s.emit(Change{Kind: ChangeSetTargets, Player: card.Owner, Entity: card.ID, Targets: append([]ID(nil), targets...)})
	}
	turn.Active = s.NextPlayer(card.Owner)
	s.emitTurn(turn)
}

// resolveTop resolves the card on top of the stack. The card leaves the
// stack before its effect runs and reaches the discard pile right after.
func (s *State) resolveTop() error {
	id, ok := s.Stack.Peek()
	if !ok {
		turn := s.Turn.Clone()
		_, _ = turn.Phases.Pop()
		turn.Active = turn.WhoseTurn
		s.emitTurn(turn)
		return nil
	}
	card := s.Cards[id]
	behavior, ok := BehaviorFor(card.Kind)
	if !ok {
		return fmt.Errorf("%w: no behaviour for %s", ErrUnknownCard, card.Kind)
	}

	s.emit(Change{Kind: ChangeResolveCard, Player: card.Owner, Entity: card.ID})
	if err := behavior.Resolve(s, card); err != nil {
		s.log().Error("card resolution failed",
			zap.String("game_id", s.GameID),
			zap.Uint64("card_id", card.ID),
			zap.String("card", card.Name),
			zap.Error(err),
		)
	}
	if card.Zone == ZoneResolving {
		s.emit(Change{Kind: ChangeDiscardCard, Player: card.Owner, Entity: card.ID})
	}
	if s.Over {
		return nil
	}

	turn := s.Turn.Clone()
	s.afterStackChange(&turn, card.Owner)
	s.emitTurn(turn)
	return nil
}

// afterStackChange leaves RESOLVE_STACK once the stack is empty and decides
// who holds priority next.
func (s *State) afterStackChange(turn *rules.TurnInfo, lastController ID) {
	top, ok := s.Stack.Peek()
	if !ok {
		if turn.Phases.Top() == rules.PhaseResolveStack {
			_, _ = turn.Phases.Pop()
		}
		turn.Active = turn.WhoseTurn
		return
	}
	owner := lastController
	if card, found := s.Cards[top]; found {
		owner = card.Owner
	}
	turn.Active = s.NextPlayer(owner)
}

// endTurn clears the finishing player's beacons, passes the turn to the next
// player and runs their upkeep: resource gain capped at max and one draw.
func (s *State) endTurn() {
	current := s.Turn.WhoseTurn
	for _, b := range s.BeaconList() {
		if b.Owner == current {
			s.emit(Change{Kind: ChangeRemoveBeacon, Player: current, Entity: b.ID})
		}
	}

	next := s.NextPlayer(current)
	turn := rules.TurnInfo{
		Number:    s.Turn.Number + 1,
		WhoseTurn: next,
		Active:    next,
		Phases:    rules.NewPhaseStack(rules.PhaseUpkeep),
	}
	s.emitTurn(turn)

	p := s.Player(next)
	gained := p.Current.Add(p.Gain).Cap(p.Max)
	if delta := gained.Sub(p.Current); !delta.IsZero() {
		s.emit(Change{Kind: ChangeResource, Player: next, Pool: PoolCurrent, Delta: delta})
	}
	s.drawCards(next, 1)

	if !s.Over && p.Lost && next != current {
		s.endTurn()
	}
}

// drawCards draws n cards from the top of a player's deck. Drawing from an
// empty deck loses the game.
func (s *State) drawCards(player ID, n int) {
	p := s.Player(player)
	if p == nil || p.Lost {
		return
	}
	for i := 0; i < n; i++ {
		if len(p.Deck) == 0 {
			s.eliminate(player, "deck exhausted")
			return
		}
		s.emit(Change{Kind: ChangeDrawCard, Player: player, Entity: p.Deck[0]})
	}
}

// eliminate marks a player as lost and ends the game once at most one
// player remains.
func (s *State) eliminate(player ID, reason string) {
	p := s.Player(player)
	if p == nil || p.Lost || s.Over {
		return
	}
	s.emit(Change{Kind: ChangePlayerLost, Player: player, Reason: reason})
	s.log().Info("player lost",
		zap.String("game_id", s.GameID),
		zap.Uint64("player_id", player),
		zap.String("reason", reason),
	)

	remaining := s.Remaining()
	if len(remaining) > 1 {
		return
	}
	var winner ID
	if len(remaining) == 1 {
		winner = remaining[0].ID
	}
	s.emit(Change{Kind: ChangeGameOver, Player: winner})
	s.log().Info("game over",
		zap.String("game_id", s.GameID),
		zap.Uint64("winner_id", winner),
	)
}

// handOverFromLost moves play away from a player who lost during the last
// action. A lost turn player's turn ends at once and whatever is left on the
// stack is countered; a lost priority holder passes priority on.
func (s *State) handOverFromLost() {
	if s.Over {
		return
	}
	if p := s.Player(s.Turn.WhoseTurn); p != nil && p.Lost {
		pending := s.Stack.List()
		for i := len(pending) - 1; i >= 0; i-- {
			id := pending[i]
			s.emit(Change{Kind: ChangeCounterCard, Player: s.Cards[id].Owner, Entity: id})
		}
		s.endTurn()
		return
	}
	if p := s.Player(s.Turn.Active); p != nil && p.Lost {
		turn := s.Turn.Clone()
		turn.Active = s.NextPlayer(p.ID)
		s.emitTurn(turn)
	}
}

func (s *State) emitTurn(turn rules.TurnInfo) {
	t := turn.Clone()
	s.emit(Change{Kind: ChangePhase, Player: t.Active, Turn: &t})
}

// IsLogicError reports whether err is a rejected game action rather than a
// fault.
func IsLogicError(err error) bool {
	for _, target := range []error{ErrGameOver, ErrNotActivePlayer, ErrIllegalAction, ErrInvalidTargets, ErrCannotAfford, ErrUnknownCard, ErrUnknownPlayer, ErrPlayerLost} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
