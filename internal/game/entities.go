package game

import (
	"fmt"

	"github.com/warpfront/warpfront-server-go/internal/game/resource"
)

// System is one cell of the NxN map grid.
type System struct {
	ID ID
	X  int
	Y  int
}

// Distance returns the Manhattan distance between two systems.
func (s System) Distance(o System) int {
	return abs(s.X-o.X) + abs(s.Y-o.Y)
}

// Adjacent reports whether two systems share an edge.
func (s System) Adjacent(o System) bool {
	return s.Distance(o) == 1
}

// ShipTemplate holds the stats a card uses to build a ship.
type ShipTemplate struct {
	Type     string
	Attack   int
	Shield   int
	Armour   int
	Movement int
}

// Ship is a unit on the map.
type Ship struct {
	ID         ID
	Type       string
	Attack     int
	Shield     int
	Armour     int
	MaxArmour  int
	Movement   int
	Owner      ID
	Controller ID
	System     ID
}

func newShip(id ID, tpl ShipTemplate, owner, system ID) *Ship {
	return &Ship{
		ID:         id,
		Type:       tpl.Type,
		Attack:     tpl.Attack,
		Shield:     tpl.Shield,
		Armour:     tpl.Armour,
		MaxArmour:  tpl.Armour,
		Movement:   tpl.Movement,
		Owner:      owner,
		Controller: owner,
		System:     system,
	}
}

// Zone is the location of a card. A card is in exactly one zone.
type Zone int

const (
	ZoneDeck Zone = iota
	ZoneHand
	ZoneStack
	ZoneDiscard
	// ZoneResolving holds a card between leaving the stack and reaching the
	// discard pile.
	ZoneResolving
)

var zoneNames = map[Zone]string{
	ZoneDeck:      "DECK",
	ZoneHand:      "HAND",
	ZoneStack:     "STACK",
	ZoneDiscard:   "DISCARD",
	ZoneResolving: "RESOLVING",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// Card is one card instance.
type Card struct {
	ID      ID
	Name    string
	Kind    CardKind
	Cost    resource.Amount
	Fast    bool
	Power   int
	Income  resource.Kind
	Creates *ShipTemplate
	Owner   ID
	Zone    Zone
	Targets []ID
}

// Player is one seat at the table.
type Player struct {
	ID       ID
	Name     string
	Current  resource.Amount
	Max      resource.Amount
	Gain     resource.Amount
	Deck     []ID
	Hand     []ID
	Discard  []ID
	Flagship ID
	Lost     bool
}

// Pool returns the resource pool selected by kind.
func (p *Player) Pool(kind PoolKind) resource.Amount {
	switch kind {
	case PoolMax:
		return p.Max
	case PoolGain:
		return p.Gain
	default:
		return p.Current
	}
}

func (p *Player) setPool(kind PoolKind, a resource.Amount) {
	switch kind {
	case PoolMax:
		p.Max = a
	case PoolGain:
		p.Gain = a
	default:
		p.Current = a
	}
}

// PoolKind selects one of a player's resource pools.
type PoolKind int

const (
	PoolCurrent PoolKind = iota
	PoolMax
	PoolGain
)

func (k PoolKind) String() string {
	switch k {
	case PoolMax:
		return "MAX"
	case PoolGain:
		return "GAIN"
	default:
		return "CURRENT"
	}
}

// WarpBeacon marks a system ships may warp to. Relay beacons also let every
// ship of their owner reach the system regardless of distance.
type WarpBeacon struct {
	ID     ID
	Owner  ID
	System ID
	Relay  bool
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func removeID(ids []ID, id ID) ([]ID, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
