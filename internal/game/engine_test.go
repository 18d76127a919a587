package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warpfront/warpfront-server-go/internal/game/resource"
	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

func TestNewGameSetup(t *testing.T) {
	s := newTestGame(t)

	require.Len(t, s.Players, 2)
	assert.Equal(t, 40, DeckSize())
	assert.Len(t, s.Systems, DefaultGridSize*DefaultGridSize)

	for _, p := range s.Players {
		assert.Len(t, p.Deck, 33)
		assert.Len(t, p.Hand, 7)
		assert.Empty(t, p.Discard)
		assert.NotZero(t, p.Flagship)

		ships := s.ShipsOf(p.ID)
		require.Len(t, ships, 1)
		assert.Equal(t, p.Flagship, ships[0].ID)
		assert.NotZero(t, ships[0].ID)

		for _, id := range p.Hand {
			assert.Equal(t, ZoneHand, s.Cards[id].Zone)
		}
		for _, id := range p.Deck {
			assert.Equal(t, ZoneDeck, s.Cards[id].Zone)
		}
	}

	assert.Equal(t, rules.PhaseUpkeep, s.Turn.Phase())
	assert.Equal(t, s.Players[0].ID, s.Turn.WhoseTurn)
	assert.Equal(t, s.Players[0].ID, s.Turn.Active)
	assert.Zero(t, s.LastSeq())
}

func TestNewGameRejectsBadOptions(t *testing.T) {
	_, err := NewGame(Options{Players: 1}, nil)
	assert.Error(t, err)
	_, err = NewGame(Options{Players: 5}, nil)
	assert.Error(t, err)
	_, err = NewGame(Options{GridSize: 1}, nil)
	assert.Error(t, err)
}

func TestIdentifiersArePerGame(t *testing.T) {
	a := newTestGame(t)
	b := newTestGame(t)

	assert.Equal(t, a.IDs.NextID, b.IDs.NextID, "allocation must not leak between games")

	seen := make(map[ID]bool)
	check := func(id ID) {
		assert.NotZero(t, id)
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
	for id := range a.Systems {
		check(id)
	}
	for _, p := range a.Players {
		check(p.ID)
	}
	for id := range a.Cards {
		check(id)
	}
	for id := range a.Ships {
		check(id)
	}
}

func TestUpkeepMovesToMain(t *testing.T) {
	s := newTestGame(t)

	changes := pass(t, s)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangePhase, changes[0].Kind)
	assert.Equal(t, rules.PhaseMain, changes[0].Turn.Phase())
	assert.Equal(t, uint64(1), changes[0].Seq)
}

func TestPossibleActionsInMain(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	scout := giveCard(t, s, p1, "Scout")
	toMain(t, s)

	actions := s.PossibleActions(p1)
	_, ok := findAction(actions, ActionNone, 0)
	assert.True(t, ok)
	_, ok = findAction(actions, ActionEndTurn, 0)
	assert.True(t, ok)
	play, ok := findAction(actions, ActionPlayCard, scout.ID)
	require.True(t, ok)
	assert.Equal(t, "Scout", play.Name)
	_, ok = findAction(actions, ActionPlaceBeacon, 0)
	assert.True(t, ok)

	other := s.PossibleActions(p2)
	require.Len(t, other, 1)
	assert.Equal(t, ActionNone, other[0].Kind)
}

func TestPossibleActionsLeaveOutUnaffordableCards(t *testing.T) {
	s := newTestGame(t)
	p1 := s.Players[0].ID
	scout := giveCard(t, s, p1, "Scout")
	toMain(t, s)
	s.Player(p1).Current = resource.Amount{}
	require.NotEmpty(t, s.Player(p1).Hand)

	actions := s.PossibleActions(p1)
	for _, a := range actions {
		assert.NotEqual(t, ActionPlayCard, a.Kind, "offered %s", a)
	}
	_, ok := findAction(actions, ActionEndTurn, 0)
	assert.True(t, ok)

	_, err := s.PerformAction(Action{Kind: ActionPlayCard, Player: p1, Target: scout.ID})
	require.ErrorIs(t, err, ErrCannotAfford)
	assert.Contains(t, s.Player(p1).Hand, scout.ID)
}

func TestPlayCardPushesResolveStack(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	scout := giveCard(t, s, p1, "Scout")
	toMain(t, s)

	_, ok := findAction(s.PossibleActions(p1), ActionPlayCard, scout.ID)
	require.True(t, ok)

	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: scout.ID})

	assert.Equal(t, rules.PhaseResolveStack, s.Turn.Phase())
	assert.Equal(t, rules.PhaseMain, s.Turn.Phases.Root())
	assert.Equal(t, p2, s.Turn.Active, "priority passes to the opponent")
	assert.Equal(t, p1, s.Turn.WhoseTurn)
	assert.NotContains(t, s.Player(p1).Hand, scout.ID)
	assert.Equal(t, ZoneStack, scout.Zone)
	assert.Equal(t, 2, s.Player(p1).Current.Get(resource.Metal))

	var played bool
	for _, c := range s.ChangesAfter(0) {
		if c.Kind == ChangePlayCard && c.Entity == scout.ID {
			played = true
		}
	}
	assert.True(t, played, "CHANGE_PLAY_CARD missing from log")
}

func TestPlayCardFromMainDoesNotRunMoveLogic(t *testing.T) {
	s := newTestGame(t)
	p1 := s.Players[0].ID
	scout := giveCard(t, s, p1, "Scout")
	toMain(t, s)

	changes := perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: scout.ID})

	assert.Equal(t, rules.PhaseStack{rules.PhaseMain, rules.PhaseResolveStack}, s.Turn.Phases)
	assert.Empty(t, s.Beacons)
	for _, c := range changes {
		assert.NotEqual(t, ChangeMoveShip, c.Kind)
		assert.NotEqual(t, ChangePlaceBeacon, c.Kind)
		if c.Kind == ChangePhase {
			assert.False(t, c.Turn.Phases.Contains(rules.PhaseMove), "MOVE entered while playing a card")
			assert.False(t, c.Turn.Phases.Contains(rules.PhaseEnd), "END entered while playing a card")
		}
	}
}

func TestResolveLastCardPopsResolveStack(t *testing.T) {
	s := newTestGame(t)
	p1 := s.Players[0].ID
	scout := giveCard(t, s, p1, "Scout")
	toMain(t, s)
	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: scout.ID})

	changes := pass(t, s)

	resolve := indexOf(changes, ChangeResolveCard)
	add := indexOf(changes, ChangeAddShip)
	discard := indexOf(changes, ChangeDiscardCard)
	require.NotEqual(t, -1, resolve)
	require.NotEqual(t, -1, add)
	require.NotEqual(t, -1, discard)
	assert.Less(t, resolve, add)
	assert.Less(t, add, discard)
	assert.Equal(t, scout.ID, changes[resolve].Entity)

	assert.Equal(t, rules.PhaseMain, s.Turn.Phase())
	assert.Equal(t, 1, s.Turn.Phases.Depth())
	assert.Equal(t, p1, s.Turn.Active)
	assert.True(t, s.Stack.IsEmpty())
	assert.Equal(t, ZoneDiscard, scout.Zone)
	assert.Contains(t, s.Player(p1).Discard, scout.ID)

	ships := s.ShipsOf(p1)
	require.Len(t, ships, 2)
	assert.Equal(t, "Scout", ships[1].Type)
	assert.Equal(t, s.Ships[s.Player(p1).Flagship].System, ships[1].System)
}

func TestEndTurnAdvancesPlayer(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	toMain(t, s)

	perform(t, s, Action{Kind: ActionEndTurn, Player: p1})
	assert.Equal(t, rules.PhaseEnd, s.Turn.Phase())
	assert.Equal(t, p1, s.Turn.WhoseTurn)

	handBefore := len(s.Player(p2).Hand)
	deckBefore := len(s.Player(p2).Deck)
	changes := pass(t, s)

	assert.Equal(t, p2, s.Turn.WhoseTurn)
	assert.Equal(t, p2, s.Turn.Active)
	assert.NotEqual(t, p1, s.Turn.WhoseTurn)
	assert.Equal(t, rules.PhaseUpkeep, s.Turn.Phase())
	assert.Equal(t, 2, s.Turn.Number)

	assert.Len(t, s.Player(p2).Hand, handBefore+1)
	assert.Len(t, s.Player(p2).Deck, deckBefore-1)
	assert.NotEqual(t, -1, indexOf(changes, ChangeDrawCard))

	want := StartingResources.Add(StartingGain)
	assert.True(t, s.Player(p2).Current.Equal(want), "got %s", s.Player(p2).Current)
}

func TestPassFromMainEndsTurn(t *testing.T) {
	s := newTestGame(t)
	toMain(t, s)
	pass(t, s)
	assert.Equal(t, rules.PhaseEnd, s.Turn.Phase())
}

func TestIncomeIsCappedAtMax(t *testing.T) {
	s := newTestGame(t)
	p2 := s.Player(s.Players[1].ID)
	p2.Current = resource.Amount{resource.Metal: 9, resource.Energy: 10}
	toMain(t, s)
	pass(t, s)
	pass(t, s)

	assert.Equal(t, 10, p2.Current.Get(resource.Metal))
	assert.Equal(t, 10, p2.Current.Get(resource.Energy))
	assert.Equal(t, 1, p2.Current.Get(resource.Crystal))
}

func TestRejectedActionsAppendNothing(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	torpedo := giveCard(t, s, p1, "Torpedo Salvo")
	toMain(t, s)

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{"select ships in main", Action{Kind: ActionSelectShips, Player: p1, Targets: []ID{s.Player(p2).Flagship}}, ErrIllegalAction},
		{"select system in main", Action{Kind: ActionSelectSystem, Player: p1}, ErrIllegalAction},
		{"not active player", Action{Kind: ActionNone, Player: p2}, ErrNotActivePlayer},
		{"unknown player", Action{Kind: ActionNone, Player: 99999}, ErrUnknownPlayer},
		{"card not in hand", Action{Kind: ActionPlayCard, Player: p1, Target: s.Player(p2).Hand[0]}, ErrUnknownCard},
		{"missing card", Action{Kind: ActionPlayCard, Player: p1, Target: 123456}, ErrUnknownCard},
		{"beacon out of range", Action{Kind: ActionPlaceBeacon, Player: p1, Target: s.SystemAt(4, 4).ID}, ErrIllegalAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := s.LastSeq()
			sum := s.Checksum()

			changes, err := s.PerformAction(tt.action)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsLogicError(err))
			assert.Nil(t, changes)
			assert.Equal(t, seq, s.LastSeq())
			assert.Equal(t, sum, s.Checksum())
		})
	}

	t.Run("cannot afford", func(t *testing.T) {
		s.Player(p1).Current = resource.Amount{resource.Metal: 5}
		seq := s.LastSeq()
		_, err := s.PerformAction(Action{Kind: ActionPlayCard, Player: p1, Target: torpedo.ID})
		require.ErrorIs(t, err, ErrCannotAfford)
		assert.Equal(t, seq, s.LastSeq())
		_, ok := findAction(s.PossibleActions(p1), ActionPlayCard, torpedo.ID)
		assert.False(t, ok, "unaffordable cards are not offered")
	})
}

func TestTorpedoSelectsAndDamagesTargets(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	enemy := s.Player(p2).Flagship
	torpedo := giveCard(t, s, p1, "Torpedo Salvo")
	toMain(t, s)

	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: torpedo.ID})
	assert.Equal(t, rules.PhaseSelectCardTargets, s.Turn.Phase())
	assert.Equal(t, p1, s.Turn.Active, "caster chooses targets")

	sel, ok := findAction(s.PossibleActions(p1), ActionSelectShips, torpedo.ID)
	require.True(t, ok)
	assert.Equal(t, 1, sel.MinTargets)
	assert.Equal(t, 2, sel.MaxTargets)
	assert.Equal(t, []ID{enemy}, sel.Candidates)

	_, err := s.PerformAction(Action{Kind: ActionSelectShips, Player: p1, Target: torpedo.ID, Targets: []ID{s.Player(p1).Flagship}})
	require.ErrorIs(t, err, ErrInvalidTargets)

	sel.Targets = []ID{enemy}
	changes := perform(t, s, sel)
	assert.Equal(t, []ChangeKind{ChangeSetTargets, ChangePhase}, kinds(changes))
	assert.Equal(t, rules.PhaseResolveStack, s.Turn.Phase())
	assert.Equal(t, p2, s.Turn.Active)

	changes = pass(t, s)
	assert.Equal(t, []ChangeKind{ChangeResolveCard, ChangeDamageShip, ChangeDiscardCard, ChangePhase}, kinds(changes))
	assert.Equal(t, FlagshipTemplate.Armour-2, s.Ships[enemy].Armour)
	assert.Equal(t, rules.PhaseMain, s.Turn.Phase())
}

func TestTorpedoFizzlesWithoutTargets(t *testing.T) {
	s := newTestGame(t)
	p1 := s.Players[0].ID
	torpedo := giveCard(t, s, p1, "Torpedo Salvo")
	toMain(t, s)
	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: torpedo.ID})

	changes := pass(t, s)
	assert.Equal(t, []ChangeKind{ChangeCounterCard, ChangePhase}, kinds(changes))
	assert.Equal(t, ZoneDiscard, torpedo.Zone)
	assert.Equal(t, rules.PhaseMain, s.Turn.Phase())
	assert.Equal(t, p1, s.Turn.Active)
}

func TestDestroyingFlagshipEndsGame(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	enemy := s.Player(p2).Flagship
	s.Ships[enemy].Armour = 2
	torpedo := giveCard(t, s, p1, "Torpedo Salvo")
	toMain(t, s)
	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: torpedo.ID})
	perform(t, s, Action{Kind: ActionSelectShips, Player: p1, Targets: []ID{enemy}})

	changes := pass(t, s)
	assert.Equal(t, []ChangeKind{
		ChangeResolveCard, ChangeDamageShip, ChangeRemoveShip, ChangePlayerLost, ChangeGameOver, ChangeDiscardCard,
	}, kinds(changes))
	assert.True(t, s.Over)
	assert.Equal(t, p1, s.Winner)
	assert.True(t, s.Player(p2).Lost)

	_, err := s.PerformAction(Action{Kind: ActionNone, Player: s.Turn.Active})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestCountermeasureCountersCardBelow(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	scout := giveCard(t, s, p1, "Scout")
	counter := giveCard(t, s, p2, "Countermeasure")
	giveCard(t, s, p2, "Scout")
	toMain(t, s)
	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: scout.ID})

	actions := s.PossibleActions(p2)
	_, ok := findAction(actions, ActionPlayCard, counter.ID)
	require.True(t, ok, "fast card offered while resolving")
	for _, a := range actions {
		if a.Kind == ActionPlayCard {
			assert.True(t, s.Cards[a.Target].Fast, "%s is not fast", s.Cards[a.Target].Name)
		}
	}

	perform(t, s, Action{Kind: ActionPlayCard, Player: p2, Target: counter.ID})
	assert.Equal(t, rules.PhaseStack{rules.PhaseMain, rules.PhaseResolveStack}, s.Turn.Phases)
	assert.Equal(t, p1, s.Turn.Active)

	changes := pass(t, s)
	assert.Equal(t, []ChangeKind{ChangeResolveCard, ChangeCounterCard, ChangeDiscardCard, ChangePhase}, kinds(changes))
	assert.Equal(t, scout.ID, changes[1].Entity)
	assert.Equal(t, ZoneDiscard, scout.Zone)
	assert.Equal(t, ZoneDiscard, counter.Zone)
	assert.Len(t, s.ShipsOf(p1), 1)
	assert.Equal(t, rules.PhaseMain, s.Turn.Phase())
	assert.Equal(t, p1, s.Turn.Active)
}

func TestPlaceBeaconWarpsShips(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	flagship := s.Player(p1).Flagship
	target := s.SystemAt(1, 0).ID
	toMain(t, s)

	place, ok := findAction(s.PossibleActions(p1), ActionPlaceBeacon, target)
	require.True(t, ok)
	_, ok = findAction(s.PossibleActions(p1), ActionPlaceBeacon, s.SystemAt(2, 0).ID)
	assert.False(t, ok, "flagship moves one system")

	perform(t, s, place)
	assert.Equal(t, rules.PhaseMove, s.Turn.Phases.Root())
	assert.Equal(t, rules.PhaseSelectCardTargets, s.Turn.Phase())
	require.Len(t, s.Beacons, 1)

	sel, ok := findAction(s.PossibleActions(p1), ActionSelectShips, 0)
	require.True(t, ok)
	assert.Equal(t, 0, sel.MinTargets)
	assert.Equal(t, []ID{flagship}, sel.Candidates)

	sel.Targets = []ID{flagship}
	changes := perform(t, s, sel)
	assert.Equal(t, []ChangeKind{ChangeMoveShip, ChangePhase}, kinds(changes))
	assert.Equal(t, target, s.Ships[flagship].System)
	assert.Equal(t, rules.PhaseStack{rules.PhaseMove}, s.Turn.Phases)

	pass(t, s)
	assert.Equal(t, rules.PhaseEnd, s.Turn.Phase())
	changes = pass(t, s)
	assert.Equal(t, ChangeRemoveBeacon, changes[0].Kind)
	assert.Empty(t, s.Beacons)
	assert.Equal(t, p2, s.Turn.WhoseTurn)
}

func TestWarpIntoEnemyTriggersCombat(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	mine := s.Player(p1).Flagship
	theirs := s.Player(p2).Flagship
	target := s.SystemAt(1, 0).ID
	s.Ships[theirs].System = target
	toMain(t, s)

	perform(t, s, Action{Kind: ActionPlaceBeacon, Player: p1, Target: target})
	changes := perform(t, s, Action{Kind: ActionSelectShips, Player: p1, Targets: []ID{mine}})

	assert.Equal(t, []ChangeKind{ChangeMoveShip, ChangeDamageShip, ChangeDamageShip, ChangePhase}, kinds(changes))
	// attack 3 against shield 1 on both sides
	assert.Equal(t, 8, s.Ships[mine].Armour)
	assert.Equal(t, 8, s.Ships[theirs].Armour)
}

func TestDeckExhaustionIsALoss(t *testing.T) {
	s := newTestGame(t)
	p1, p2 := s.Players[0].ID, s.Players[1].ID
	opp := s.Player(p2)
	for _, id := range opp.Deck {
		s.Cards[id].Zone = ZoneDiscard
	}
	opp.Discard = append(opp.Discard, opp.Deck...)
	opp.Deck = nil

	toMain(t, s)
	pass(t, s)
	changes := pass(t, s)

	lost := indexOf(changes, ChangePlayerLost)
	require.NotEqual(t, -1, lost)
	assert.Equal(t, p2, changes[lost].Player)
	assert.Equal(t, "deck exhausted", changes[lost].Reason)
	assert.Equal(t, ChangeGameOver, changes[len(changes)-1].Kind)
	assert.True(t, s.Over)
	assert.Equal(t, p1, s.Winner)
	assert.Equal(t, -1, indexOf(changes, ChangeDrawCard))
}

func TestFullRoundOfTurns(t *testing.T) {
	s := newTestGame(t)
	for turn := 0; turn < 6; turn++ {
		whose := s.Turn.WhoseTurn
		toMain(t, s)
		pass(t, s)
		pass(t, s)
		assert.NotEqual(t, whose, s.Turn.WhoseTurn)
	}
	assert.Equal(t, 7, s.Turn.Number)

	var last uint64
	for _, c := range s.ChangesAfter(0) {
		assert.Equal(t, last+1, c.Seq)
		last = c.Seq
	}
}

func TestLostTurnPlayerHandsOverTheTurn(t *testing.T) {
	s, err := NewGame(Options{GameID: "THREEWAY", Seed: 42, Players: 3}, zaptest.NewLogger(t))
	require.NoError(t, err)
	p1 := s.Turn.WhoseTurn
	p2 := s.NextPlayer(p1)
	p3 := s.NextPlayer(p2)

	scan := giveCard(t, s, p1, "Deep Space Scan")
	me := s.Player(p1)
	for _, id := range me.Deck {
		s.Cards[id].Zone = ZoneDiscard
	}
	me.Discard = append(me.Discard, me.Deck...)
	me.Deck = nil

	toMain(t, s)
	perform(t, s, Action{Kind: ActionPlayCard, Player: p1, Target: scan.ID})
	require.Equal(t, p2, s.Turn.Active)
	changes := pass(t, s)

	lost := indexOf(changes, ChangePlayerLost)
	require.NotEqual(t, -1, lost)
	assert.Equal(t, p1, changes[lost].Player)
	assert.True(t, me.Lost)
	assert.False(t, s.Over)
	assert.Equal(t, p2, s.Turn.WhoseTurn)
	assert.Equal(t, p2, s.Turn.Active)
	assert.Equal(t, rules.PhaseUpkeep, s.Turn.Phase())
	assert.Empty(t, s.Stack)

	assert.Equal(t, []Action{{Kind: ActionNone, Player: p1, Name: "Pass"}}, s.PossibleActions(p1))
	_, err = s.PerformAction(Action{Kind: ActionEndTurn, Player: p1})
	require.ErrorIs(t, err, ErrPlayerLost)
	assert.True(t, IsLogicError(err))

	// Play continues between the two survivors only.
	toMain(t, s)
	pass(t, s)
	pass(t, s)
	assert.Equal(t, p3, s.Turn.WhoseTurn)
	toMain(t, s)
	pass(t, s)
	pass(t, s)
	assert.Equal(t, p2, s.Turn.WhoseTurn)
}
