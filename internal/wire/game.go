package wire

import (
	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/game/resource"
	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

func appendAmount(b []byte, a resource.Amount) []byte {
	for _, kind := range a.Kinds() {
		var entry []byte
		entry = appendString(entry, 1, string(kind))
		entry = appendInt(entry, 2, a[kind])
		b = appendMessage(b, 1, entry)
	}
	return b
}

func decodeAmount(b []byte) (resource.Amount, error) {
	a := resource.Amount{}
	err := eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var kind resource.Kind
		var qty int
		err := eachField(f.bytes, func(e field) error {
			switch e.num {
			case 1:
				kind = resource.Kind(e.str())
			case 2:
				qty = e.int()
			}
			return nil
		})
		if err != nil {
			return err
		}
		if qty != 0 {
			a[kind] = qty
		}
		return nil
	})
	return a, err
}

func appendSelection(b []byte, s *rules.Selection) []byte {
	b = appendUint(b, 1, s.SourceID)
	b = appendUint(b, 2, uint64(s.Domain))
	b = appendInt(b, 3, s.Min)
	return appendInt(b, 4, s.Max)
}

func decodeSelection(b []byte) (*rules.Selection, error) {
	s := &rules.Selection{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			s.SourceID = f.v
		case 2:
			s.Domain = rules.TargetDomain(f.v)
		case 3:
			s.Min = f.int()
		case 4:
			s.Max = f.int()
		}
		return nil
	})
	return s, err
}

func appendTurn(b []byte, t *rules.TurnInfo) []byte {
	b = appendInt(b, 1, t.Number)
	b = appendUint(b, 2, t.WhoseTurn)
	b = appendUint(b, 3, t.Active)
	phases := make([]uint64, len(t.Phases))
	for i, p := range t.Phases {
		phases[i] = uint64(p)
	}
	b = appendIDs(b, 4, phases)
	if t.Selection != nil {
		b = appendMessage(b, 5, appendSelection(nil, t.Selection))
	}
	return b
}

func decodeTurn(b []byte) (*rules.TurnInfo, error) {
	t := &rules.TurnInfo{}
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			t.Number = f.int()
		case 2:
			t.WhoseTurn = f.v
		case 3:
			t.Active = f.v
		case 4:
			var raw []uint64
			raw, err = f.ids(nil)
			for _, v := range raw {
				t.Phases = append(t.Phases, rules.Phase(v))
			}
		case 5:
			t.Selection, err = decodeSelection(f.bytes)
		}
		return err
	})
	return t, err
}

func appendShip(b []byte, s *game.Ship) []byte {
	b = appendUint(b, 1, s.ID)
	b = appendString(b, 2, s.Type)
	b = appendInt(b, 3, s.Attack)
	b = appendInt(b, 4, s.Shield)
	b = appendInt(b, 5, s.Armour)
	b = appendInt(b, 6, s.MaxArmour)
	b = appendInt(b, 7, s.Movement)
	b = appendUint(b, 8, s.Owner)
	b = appendUint(b, 9, s.Controller)
	return appendUint(b, 10, s.System)
}

func decodeShip(b []byte) (*game.Ship, error) {
	s := &game.Ship{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			s.ID = f.v
		case 2:
			s.Type = f.str()
		case 3:
			s.Attack = f.int()
		case 4:
			s.Shield = f.int()
		case 5:
			s.Armour = f.int()
		case 6:
			s.MaxArmour = f.int()
		case 7:
			s.Movement = f.int()
		case 8:
			s.Owner = f.v
		case 9:
			s.Controller = f.v
		case 10:
			s.System = f.v
		}
		return nil
	})
	return s, err
}

func appendBeacon(b []byte, w *game.WarpBeacon) []byte {
	b = appendUint(b, 1, w.ID)
	b = appendUint(b, 2, w.Owner)
	b = appendUint(b, 3, w.System)
	return appendBool(b, 4, w.Relay)
}

func decodeBeacon(b []byte) (*game.WarpBeacon, error) {
	w := &game.WarpBeacon{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			w.ID = f.v
		case 2:
			w.Owner = f.v
		case 3:
			w.System = f.v
		case 4:
			w.Relay = f.bool()
		}
		return nil
	})
	return w, err
}

func appendTemplate(b []byte, t *game.ShipTemplate) []byte {
	b = appendString(b, 1, t.Type)
	b = appendInt(b, 2, t.Attack)
	b = appendInt(b, 3, t.Shield)
	b = appendInt(b, 4, t.Armour)
	return appendInt(b, 5, t.Movement)
}

func decodeTemplate(b []byte) (*game.ShipTemplate, error) {
	t := &game.ShipTemplate{}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			t.Type = f.str()
		case 2:
			t.Attack = f.int()
		case 3:
			t.Shield = f.int()
		case 4:
			t.Armour = f.int()
		case 5:
			t.Movement = f.int()
		}
		return nil
	})
	return t, err
}

func appendCard(b []byte, c *game.Card) []byte {
	b = appendUint(b, 1, c.ID)
	b = appendString(b, 2, c.Name)
	b = appendString(b, 3, string(c.Kind))
	if len(c.Cost) > 0 {
		b = appendMessage(b, 4, appendAmount(nil, c.Cost))
	}
	b = appendBool(b, 5, c.Fast)
	b = appendInt(b, 6, c.Power)
	b = appendString(b, 7, string(c.Income))
	if c.Creates != nil {
		b = appendMessage(b, 8, appendTemplate(nil, c.Creates))
	}
	b = appendUint(b, 9, c.Owner)
	b = appendUint(b, 10, uint64(c.Zone))
	return appendIDs(b, 11, c.Targets)
}

func decodeCard(b []byte) (*game.Card, error) {
	c := &game.Card{Cost: resource.Amount{}}
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.ID = f.v
		case 2:
			c.Name = f.str()
		case 3:
			c.Kind = game.CardKind(f.str())
		case 4:
			c.Cost, err = decodeAmount(f.bytes)
		case 5:
			c.Fast = f.bool()
		case 6:
			c.Power = f.int()
		case 7:
			c.Income = resource.Kind(f.str())
		case 8:
			c.Creates, err = decodeTemplate(f.bytes)
		case 9:
			c.Owner = f.v
		case 10:
			c.Zone = game.Zone(f.v)
		case 11:
			c.Targets, err = f.ids(c.Targets)
		}
		return err
	})
	return c, err
}

func appendPlayer(b []byte, p *game.Player) []byte {
	b = appendUint(b, 1, p.ID)
	b = appendString(b, 2, p.Name)
	b = appendMessage(b, 3, appendAmount(nil, p.Current))
	b = appendMessage(b, 4, appendAmount(nil, p.Max))
	b = appendMessage(b, 5, appendAmount(nil, p.Gain))
	b = appendIDs(b, 6, p.Deck)
	b = appendIDs(b, 7, p.Hand)
	b = appendIDs(b, 8, p.Discard)
	b = appendUint(b, 9, p.Flagship)
	return appendBool(b, 10, p.Lost)
}

func decodePlayer(b []byte) (*game.Player, error) {
	p := &game.Player{Current: resource.Amount{}, Max: resource.Amount{}, Gain: resource.Amount{}}
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.ID = f.v
		case 2:
			p.Name = f.str()
		case 3:
			p.Current, err = decodeAmount(f.bytes)
		case 4:
			p.Max, err = decodeAmount(f.bytes)
		case 5:
			p.Gain, err = decodeAmount(f.bytes)
		case 6:
			p.Deck, err = f.ids(p.Deck)
		case 7:
			p.Hand, err = f.ids(p.Hand)
		case 8:
			p.Discard, err = f.ids(p.Discard)
		case 9:
			p.Flagship = f.v
		case 10:
			p.Lost = f.bool()
		}
		return err
	})
	return p, err
}

func appendChange(b []byte, c *game.Change) []byte {
	b = appendUint(b, 1, c.Seq)
	b = appendUint(b, 2, uint64(c.Kind))
	b = appendUint(b, 3, c.Player)
	b = appendUint(b, 4, c.Entity)
	b = appendUint(b, 5, c.From)
	b = appendUint(b, 6, c.To)
	b = appendInt(b, 7, c.Amount)
	b = appendUint(b, 8, uint64(c.Pool))
	if len(c.Delta) > 0 {
		b = appendMessage(b, 9, appendAmount(nil, c.Delta))
	}
	b = appendIDs(b, 10, c.Targets)
	if c.Ship != nil {
		b = appendMessage(b, 11, appendShip(nil, c.Ship))
	}
	if c.Beacon != nil {
		b = appendMessage(b, 12, appendBeacon(nil, c.Beacon))
	}
	if c.Turn != nil {
		b = appendMessage(b, 13, appendTurn(nil, c.Turn))
	}
	return appendString(b, 14, c.Reason)
}

func decodeChange(b []byte) (game.Change, error) {
	var c game.Change
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			c.Seq = f.v
		case 2:
			c.Kind = game.ChangeKind(f.v)
		case 3:
			c.Player = f.v
		case 4:
			c.Entity = f.v
		case 5:
			c.From = f.v
		case 6:
			c.To = f.v
		case 7:
			c.Amount = f.int()
		case 8:
			c.Pool = game.PoolKind(f.v)
		case 9:
			c.Delta, err = decodeAmount(f.bytes)
		case 10:
			c.Targets, err = f.ids(c.Targets)
		case 11:
			c.Ship, err = decodeShip(f.bytes)
		case 12:
			c.Beacon, err = decodeBeacon(f.bytes)
		case 13:
			c.Turn, err = decodeTurn(f.bytes)
		case 14:
			c.Reason = f.str()
		}
		return err
	})
	return c, err
}

func appendAction(b []byte, a *game.Action) []byte {
	b = appendUint(b, 1, uint64(a.Kind))
	b = appendUint(b, 2, a.Player)
	b = appendUint(b, 3, a.Target)
	b = appendString(b, 4, a.Name)
	b = appendInt(b, 5, a.MinTargets)
	b = appendInt(b, 6, a.MaxTargets)
	b = appendIDs(b, 7, a.Candidates)
	return appendIDs(b, 8, a.Targets)
}

func decodeAction(b []byte) (game.Action, error) {
	var a game.Action
	err := eachField(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			a.Kind = game.ActionKind(f.v)
		case 2:
			a.Player = f.v
		case 3:
			a.Target = f.v
		case 4:
			a.Name = f.str()
		case 5:
			a.MinTargets = f.int()
		case 6:
			a.MaxTargets = f.int()
		case 7:
			a.Candidates, err = f.ids(a.Candidates)
		case 8:
			a.Targets, err = f.ids(a.Targets)
		}
		return err
	})
	return a, err
}

// Snapshot is a full game state as sent to clients. The state's change log
// is not transferred; the receiver starts its own log at the snapshot's last
// sequence number.
type Snapshot struct {
	State *game.State
}

func (m *Snapshot) appendTo(b []byte) []byte {
	s := m.State
	b = appendString(b, 1, s.GameID)
	b = appendInt(b, 2, s.GridSize)
	b = appendInt(b, 3, int(s.Seed))
	b = appendUint(b, 4, s.IDs.NextID)
	for _, sys := range s.SystemList() {
		var sb []byte
		sb = appendUint(sb, 1, sys.ID)
		sb = appendInt(sb, 2, sys.X)
		sb = appendInt(sb, 3, sys.Y)
		b = appendMessage(b, 5, sb)
	}
	for _, ship := range s.ShipList() {
		b = appendMessage(b, 6, appendShip(nil, ship))
	}
	for _, p := range s.Players {
		b = appendMessage(b, 7, appendPlayer(nil, p))
	}
	for _, c := range s.CardList() {
		b = appendMessage(b, 8, appendCard(nil, c))
	}
	for _, w := range s.BeaconList() {
		b = appendMessage(b, 9, appendBeacon(nil, w))
	}
	b = appendMessage(b, 10, appendTurn(nil, &s.Turn))
	b = appendIDs(b, 11, s.Stack.List())
	b = appendUint(b, 12, s.LastSeq())
	b = appendBool(b, 13, s.Over)
	return appendUint(b, 14, s.Winner)
}

func (m *Snapshot) decode(b []byte) error {
	s := &game.State{
		Systems: map[game.ID]*game.System{},
		Ships:   map[game.ID]*game.Ship{},
		Cards:   map[game.ID]*game.Card{},
		Beacons: map[game.ID]*game.WarpBeacon{},
	}
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			s.GameID = f.str()
		case 2:
			s.GridSize = f.int()
		case 3:
			s.Seed = int64(f.int())
		case 4:
			s.IDs.NextID = f.v
		case 5:
			sys := &game.System{}
			err := eachField(f.bytes, func(e field) error {
				switch e.num {
				case 1:
					sys.ID = e.v
				case 2:
					sys.X = e.int()
				case 3:
					sys.Y = e.int()
				}
				return nil
			})
			if err != nil {
				return err
			}
			s.Systems[sys.ID] = sys
		case 6:
			ship, err := decodeShip(f.bytes)
			if err != nil {
				return err
			}
			s.Ships[ship.ID] = ship
		case 7:
			p, err := decodePlayer(f.bytes)
			if err != nil {
				return err
			}
			s.Players = append(s.Players, p)
		case 8:
			c, err := decodeCard(f.bytes)
			if err != nil {
				return err
			}
			s.Cards[c.ID] = c
		case 9:
			w, err := decodeBeacon(f.bytes)
			if err != nil {
				return err
			}
			s.Beacons[w.ID] = w
		case 10:
			t, err := decodeTurn(f.bytes)
			if err != nil {
				return err
			}
			s.Turn = *t
		case 11:
			stack, err := f.ids(nil)
			if err != nil {
				return err
			}
			s.Stack = rules.CardStack(stack)
		case 12:
			s.Log.Base = f.v
		case 13:
			s.Over = f.bool()
		case 14:
			s.Winner = f.v
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.State = s
	return nil
}

// Changes is a batch of changes in sequence order.
type Changes []game.Change

func (m *Changes) appendTo(b []byte) []byte {
	for i := range *m {
		b = appendMessage(b, 1, appendChange(nil, &(*m)[i]))
	}
	return b
}

func (m *Changes) decode(b []byte) error {
	out := Changes{}
	err := eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		c, err := decodeChange(f.bytes)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Actions is a list of possible actions.
type Actions []game.Action

func (m *Actions) appendTo(b []byte) []byte {
	for i := range *m {
		b = appendMessage(b, 1, appendAction(nil, &(*m)[i]))
	}
	return b
}

func (m *Actions) decode(b []byte) error {
	out := Actions{}
	err := eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		a, err := decodeAction(f.bytes)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// ActionRequest carries one chosen action.
type ActionRequest struct {
	Action game.Action
}

func (m *ActionRequest) appendTo(b []byte) []byte {
	return appendMessage(b, 1, appendAction(nil, &m.Action))
}

func (m *ActionRequest) decode(b []byte) error {
	return eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		a, err := decodeAction(f.bytes)
		m.Action = a
		return err
	})
}
