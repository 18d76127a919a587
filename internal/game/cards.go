package game

import (
	"sort"

	"github.com/warpfront/warpfront-server-go/internal/game/resource"
	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

// CardKind selects the behaviour a card runs when it resolves.
type CardKind string

const (
	CardShip    CardKind = "SHIP"
	CardIncome  CardKind = "INCOME"
	CardDraw    CardKind = "DRAW"
	CardTorpedo CardKind = "TORPEDO"
	CardRelay   CardKind = "RELAY"
	CardCounter CardKind = "COUNTER"
	CardRepair  CardKind = "REPAIR"
)

// CardDef describes a card printed in the deck list.
type CardDef struct {
	Name    string
	Kind    CardKind
	Cost    resource.Amount
	Fast    bool
	Power   int
	Income  resource.Kind
	Creates *ShipTemplate
	Copies  int
}

func (d CardDef) instantiate(id, owner ID) *Card {
	card := &Card{
		ID:     id,
		Name:   d.Name,
		Kind:   d.Kind,
		Cost:   d.Cost.Clone(),
		Fast:   d.Fast,
		Power:  d.Power,
		Income: d.Income,
		Owner:  owner,
		Zone:   ZoneDeck,
	}
	if d.Creates != nil {
		tpl := *d.Creates
		card.Creates = &tpl
	}
	return card
}

var catalog = []CardDef{
	{Name: "Scout", Kind: CardShip, Cost: resource.Amount{resource.Metal: 1}, Copies: 6,
		Creates: &ShipTemplate{Type: "Scout", Attack: 1, Shield: 0, Armour: 2, Movement: 2}},
	{Name: "Frigate", Kind: CardShip, Cost: resource.Amount{resource.Metal: 2, resource.Energy: 1}, Copies: 5,
		Creates: &ShipTemplate{Type: "Frigate", Attack: 2, Shield: 1, Armour: 4, Movement: 1}},
	{Name: "Dreadnought", Kind: CardShip, Cost: resource.Amount{resource.Metal: 3, resource.Energy: 2, resource.Any: 1}, Copies: 2,
		Creates: &ShipTemplate{Type: "Dreadnought", Attack: 4, Shield: 2, Armour: 8, Movement: 1}},
	{Name: "Mining Colony", Kind: CardIncome, Cost: resource.Amount{resource.Any: 1}, Power: 1, Income: resource.Metal, Copies: 5},
	{Name: "Reactor", Kind: CardIncome, Cost: resource.Amount{resource.Metal: 1}, Power: 1, Income: resource.Energy, Copies: 5},
	{Name: "Crystal Refinery", Kind: CardIncome, Cost: resource.Amount{resource.Metal: 1, resource.Energy: 1}, Power: 1, Income: resource.Crystal, Copies: 3},
	{Name: "Deep Space Scan", Kind: CardDraw, Cost: resource.Amount{resource.Energy: 1}, Power: 2, Copies: 4},
	{Name: "Torpedo Salvo", Kind: CardTorpedo, Cost: resource.Amount{resource.Energy: 2}, Power: 2, Copies: 4},
	{Name: "Subspace Relay", Kind: CardRelay, Cost: resource.Amount{resource.Crystal: 1}, Copies: 2},
	{Name: "Countermeasure", Kind: CardCounter, Cost: resource.Amount{resource.Energy: 1, resource.Crystal: 1}, Fast: true, Copies: 2},
	{Name: "Emergency Repairs", Kind: CardRepair, Cost: resource.Amount{resource.Any: 1}, Fast: true, Power: 3, Copies: 2},
}

// Catalog returns the deck list every player starts with.
func Catalog() []CardDef {
	out := make([]CardDef, len(catalog))
	copy(out, catalog)
	return out
}

// DeckSize is the number of cards in a starting deck.
func DeckSize() int {
	n := 0
	for _, d := range catalog {
		n += d.Copies
	}
	return n
}

// TargetSpec is what a card asks for before it can resolve.
type TargetSpec struct {
	Domain     rules.TargetDomain
	Min        int
	Max        int
	Candidates []ID
}

// NeedsTargets reports whether a selection phase is required.
func (ts TargetSpec) NeedsTargets() bool {
	return ts.Max > 0
}

// Behavior is the rules text of a card kind. Targets is consulted when the
// card is played and again when targets are chosen; Resolve runs after the
// card has left the stack and before it reaches the discard pile.
type Behavior interface {
	Targets(s *State, card *Card) TargetSpec
	Resolve(s *State, card *Card) error
}

var behaviors = map[CardKind]Behavior{
	CardShip:    shipBehavior{},
	CardIncome:  incomeBehavior{},
	CardDraw:    drawBehavior{},
	CardTorpedo: torpedoBehavior{},
	CardRelay:   relayBehavior{},
	CardCounter: counterBehavior{},
	CardRepair:  repairBehavior{},
}

// BehaviorFor returns the behaviour registered for kind.
func BehaviorFor(kind CardKind) (Behavior, bool) {
	b, ok := behaviors[kind]
	return b, ok
}

type noTargets struct{}

func (noTargets) Targets(*State, *Card) TargetSpec {
	return TargetSpec{}
}

type shipBehavior struct{ noTargets }

func (shipBehavior) Resolve(s *State, card *Card) error {
	p := s.Player(card.Owner)
	if p == nil || card.Creates == nil {
		return nil
	}
	flagship, ok := s.Ships[p.Flagship]
	if !ok {
		return nil
	}
	ship := newShip(s.IDs.Allocate(), *card.Creates, p.ID, flagship.System)
	s.emit(Change{Kind: ChangeAddShip, Player: p.ID, Ship: ship})
	return nil
}

type incomeBehavior struct{ noTargets }

func (incomeBehavior) Resolve(s *State, card *Card) error {
	s.emit(Change{
		Kind:   ChangeResource,
		Player: card.Owner,
		Pool:   PoolGain,
		Delta:  resource.Amount{card.Income: card.Power},
	})
	return nil
}

type drawBehavior struct{ noTargets }

func (drawBehavior) Resolve(s *State, card *Card) error {
	s.drawCards(card.Owner, card.Power)
	return nil
}

type torpedoBehavior struct{}

func (torpedoBehavior) Targets(s *State, card *Card) TargetSpec {
	var candidates []ID
	for _, ship := range s.ShipList() {
		if ship.Controller != card.Owner {
			candidates = append(candidates, ship.ID)
		}
	}
	return TargetSpec{Domain: rules.TargetShips, Min: 1, Max: 2, Candidates: candidates}
}

func (torpedoBehavior) Resolve(s *State, card *Card) error {
	damage := make(map[ID]int)
	for _, id := range card.Targets {
		if _, ok := s.Ships[id]; ok {
			damage[id] += card.Power
		}
	}
	s.applyDamage(damage)
	return nil
}

type relayBehavior struct{}

func (relayBehavior) Targets(s *State, card *Card) TargetSpec {
	var candidates []ID
	for _, sys := range s.SystemList() {
		if !s.hasRelay(card.Owner, sys.ID) {
			candidates = append(candidates, sys.ID)
		}
	}
	return TargetSpec{Domain: rules.TargetSystems, Min: 1, Max: 1, Candidates: candidates}
}

func (relayBehavior) Resolve(s *State, card *Card) error {
	for _, id := range card.Targets {
		if _, ok := s.Systems[id]; !ok {
			continue
		}
		beacon := &WarpBeacon{ID: s.IDs.Allocate(), Owner: card.Owner, System: id, Relay: true}
		s.emit(Change{Kind: ChangePlaceBeacon, Player: card.Owner, Beacon: beacon})
	}
	return nil
}

type counterBehavior struct{ noTargets }

// Resolve counters whatever is now on top of the stack, which is the card
// this one was played in response to.
func (counterBehavior) Resolve(s *State, card *Card) error {
	top, ok := s.Stack.Peek()
	if !ok {
		return nil
	}
	countered := s.Cards[top]
	s.emit(Change{Kind: ChangeCounterCard, Player: countered.Owner, Entity: countered.ID})
	return nil
}

type repairBehavior struct{ noTargets }

func (repairBehavior) Resolve(s *State, card *Card) error {
	p := s.Player(card.Owner)
	if p == nil {
		return nil
	}
	flagship, ok := s.Ships[p.Flagship]
	if !ok || flagship.Armour >= flagship.MaxArmour {
		return nil
	}
	amount := min(card.Power, flagship.MaxArmour-flagship.Armour)
	s.emit(Change{Kind: ChangeRepairShip, Player: p.ID, Entity: flagship.ID, Amount: amount})
	return nil
}

// hasRelay reports whether player owns a relay beacon in system.
func (s *State) hasRelay(player, system ID) bool {
	for _, b := range s.Beacons {
		if b.Owner == player && b.System == system && b.Relay {
			return true
		}
	}
	return false
}

func sortedIDs(ids []ID) []ID {
	out := append([]ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
