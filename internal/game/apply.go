package game

import (
	"fmt"

	"go.uber.org/zap"
)

// emit appends c to the log and applies it. The engine mutates state only
// through emit so a mirror replaying the log ends up in the same state.
func (s *State) emit(c Change) Change {
	c = s.Log.Append(c)
	if err := s.apply(c); err != nil {
		s.log().Error("failed to apply emitted change",
			zap.String("game_id", s.GameID),
			zap.Uint64("seq", c.Seq),
			zap.Stringer("kind", c.Kind),
			zap.Error(err),
		)
	}
	return c
}

// ApplyChange advances a mirrored state by one change received from the
// server. Changes already applied are ignored; a gap returns
// ErrChangeOutOfOrder and leaves the state untouched.
func (s *State) ApplyChange(c Change) error {
	last := s.Log.LastSeq()
	if c.Seq <= last {
		return nil
	}
	if c.Seq != last+1 {
		return fmt.Errorf("%w: have %d, got %d", ErrChangeOutOfOrder, last, c.Seq)
	}
	if err := s.apply(c); err != nil {
		return fmt.Errorf("apply %s: %w", c, err)
	}
	s.Log.Entries = append(s.Log.Entries, c)
	return nil
}

// apply performs the mutation described by c.
func (s *State) apply(c Change) error {
	s.ensureMaps()

	switch c.Kind {
	case ChangePhase:
		if c.Turn == nil {
			return fmt.Errorf("phase change without turn info")
		}
		s.Turn = c.Turn.Clone()

	case ChangeDrawCard:
		p, card, err := s.playerCard(c.Player, c.Entity)
		if err != nil {
			return err
		}
		var ok bool
		if p.Deck, ok = removeID(p.Deck, card.ID); !ok {
			return fmt.Errorf("card %d not in deck of player %d", card.ID, p.ID)
		}
		p.Hand = append(p.Hand, card.ID)
		card.Zone = ZoneHand

	case ChangePlayCard:
		p, card, err := s.playerCard(c.Player, c.Entity)
		if err != nil {
			return err
		}
		var ok bool
		if p.Hand, ok = removeID(p.Hand, card.ID); !ok {
			return fmt.Errorf("card %d not in hand of player %d", card.ID, p.ID)
		}
		s.Stack.Push(card.ID)
		card.Zone = ZoneStack

	case ChangeSetTargets:
		card, ok := s.Cards[c.Entity]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownCard, c.Entity)
		}
		card.Targets = append([]ID(nil), c.Targets...)

	case ChangeResolveCard:
		card, ok := s.Cards[c.Entity]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownCard, c.Entity)
		}
		if !s.Stack.Remove(card.ID) {
			return fmt.Errorf("card %d not on stack", card.ID)
		}
		card.Zone = ZoneResolving

	case ChangeDiscardCard, ChangeCounterCard:
		p, card, err := s.playerCard(c.Player, c.Entity)
		if err != nil {
			return err
		}
		if c.Kind == ChangeCounterCard && !s.Stack.Remove(card.ID) {
			return fmt.Errorf("card %d not on stack", card.ID)
		}
		card.Targets = nil
		card.Zone = ZoneDiscard
		p.Discard = append(p.Discard, card.ID)

	case ChangeResource:
		p := s.Player(c.Player)
		if p == nil {
			return fmt.Errorf("%w: %d", ErrUnknownPlayer, c.Player)
		}
		p.setPool(c.Pool, p.Pool(c.Pool).Add(c.Delta))

	case ChangeAddShip:
		if c.Ship == nil {
			return fmt.Errorf("add ship without payload")
		}
		ship := *c.Ship
		s.Ships[ship.ID] = &ship
		s.IDs.Observe(ship.ID)

	case ChangeMoveShip:
		ship, ok := s.Ships[c.Entity]
		if !ok {
			return fmt.Errorf("unknown ship %d", c.Entity)
		}
		if _, ok := s.Systems[c.To]; !ok {
			return fmt.Errorf("unknown system %d", c.To)
		}
		ship.System = c.To

	case ChangeDamageShip:
		ship, ok := s.Ships[c.Entity]
		if !ok {
			return fmt.Errorf("unknown ship %d", c.Entity)
		}
		ship.Armour -= c.Amount

	case ChangeRepairShip:
		ship, ok := s.Ships[c.Entity]
		if !ok {
			return fmt.Errorf("unknown ship %d", c.Entity)
		}
		ship.Armour = min(ship.Armour+c.Amount, ship.MaxArmour)

	case ChangeRemoveShip:
		if _, ok := s.Ships[c.Entity]; !ok {
			return fmt.Errorf("unknown ship %d", c.Entity)
		}
		delete(s.Ships, c.Entity)

	case ChangePlaceBeacon:
		if c.Beacon == nil {
			return fmt.Errorf("place beacon without payload")
		}
		beacon := *c.Beacon
		s.Beacons[beacon.ID] = &beacon
		s.IDs.Observe(beacon.ID)

	case ChangeRemoveBeacon:
		delete(s.Beacons, c.Entity)

	case ChangePlayerLost:
		p := s.Player(c.Player)
		if p == nil {
			return fmt.Errorf("%w: %d", ErrUnknownPlayer, c.Player)
		}
		p.Lost = true

	case ChangeGameOver:
		s.Over = true
		s.Winner = c.Player

	default:
		return fmt.Errorf("unknown change kind %s", c.Kind)
	}
	return nil
}

func (s *State) playerCard(playerID, cardID ID) (*Player, *Card, error) {
	p := s.Player(playerID)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	card, ok := s.Cards[cardID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownCard, cardID)
	}
	return p, card, nil
}
