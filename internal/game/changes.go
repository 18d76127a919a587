package game

import (
	"fmt"

	"github.com/warpfront/warpfront-server-go/internal/game/resource"
	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

// ChangeKind tags the payload of a Change.
type ChangeKind int

const (
	ChangePhase ChangeKind = iota + 1
	ChangeDrawCard
	ChangePlayCard
	ChangeSetTargets
	ChangeResolveCard
	ChangeDiscardCard
	ChangeCounterCard
	ChangeResource
	ChangeAddShip
	ChangeMoveShip
	ChangeDamageShip
	ChangeRepairShip
	ChangeRemoveShip
	ChangePlaceBeacon
	ChangeRemoveBeacon
	ChangePlayerLost
	ChangeGameOver
)

var changeKindNames = map[ChangeKind]string{
	ChangePhase:        "CHANGE_PHASE",
	ChangeDrawCard:     "CHANGE_DRAW_CARD",
	ChangePlayCard:     "CHANGE_PLAY_CARD",
	ChangeSetTargets:   "CHANGE_SET_TARGETS",
	ChangeResolveCard:  "CHANGE_RESOLVE_CARD",
	ChangeDiscardCard:  "CHANGE_DISCARD_CARD",
	ChangeCounterCard:  "CHANGE_COUNTER_CARD",
	ChangeResource:     "CHANGE_RESOURCE",
	ChangeAddShip:      "CHANGE_ADD_SHIP",
	ChangeMoveShip:     "CHANGE_MOVE_SHIP",
	ChangeDamageShip:   "CHANGE_DAMAGE_SHIP",
	ChangeRepairShip:   "CHANGE_REPAIR_SHIP",
	ChangeRemoveShip:   "CHANGE_REMOVE_SHIP",
	ChangePlaceBeacon:  "CHANGE_PLACE_BEACON",
	ChangeRemoveBeacon: "CHANGE_REMOVE_BEACON",
	ChangePlayerLost:   "CHANGE_PLAYER_LOST",
	ChangeGameOver:     "CHANGE_GAME_OVER",
}

func (k ChangeKind) String() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CHANGE_%d", int(k))
}

// Change records one state mutation. Which fields are set depends on Kind:
//
//	PHASE          Turn
//	DRAW_CARD      Player, Entity (card)
//	PLAY_CARD      Player, Entity (card)
//	SET_TARGETS    Entity (card), Targets
//	RESOLVE_CARD   Entity (card)
//	DISCARD_CARD   Player (owner), Entity (card)
//	COUNTER_CARD   Player (owner), Entity (card)
//	RESOURCE       Player, Pool, Delta
//	ADD_SHIP       Ship
//	MOVE_SHIP      Entity (ship), From, To (systems)
//	DAMAGE_SHIP    Entity (ship), Amount
//	REPAIR_SHIP    Entity (ship), Amount
//	REMOVE_SHIP    Entity (ship)
//	PLACE_BEACON   Beacon
//	REMOVE_BEACON  Entity (beacon)
//	PLAYER_LOST    Player, Reason
//	GAME_OVER      Player (winner, zero for none)
//
// A Change is immutable once appended; pointer payloads must not be modified.
type Change struct {
	Seq     uint64
	Kind    ChangeKind
	Player  ID
	Entity  ID
	From    ID
	To      ID
	Amount  int
	Pool    PoolKind
	Delta   resource.Amount
	Targets []ID
	Ship    *Ship
	Beacon  *WarpBeacon
	Turn    *rules.TurnInfo
	Reason  string
}

func (c Change) String() string {
	return fmt.Sprintf("#%d %s player=%d entity=%d", c.Seq, c.Kind, c.Player, c.Entity)
}

// ChangeLog is the append-only history of a game. Sequence numbers start at
// Base+1 and increase by one per entry. Base is zero on the server; a client
// mirror bootstrapped from a snapshot starts at the snapshot's sequence.
type ChangeLog struct {
	Base    uint64
	Entries []Change
}

// Append assigns the next sequence number to c and stores it.
func (l *ChangeLog) Append(c Change) Change {
	c.Seq = l.LastSeq() + 1
	l.Entries = append(l.Entries, c)
	return c
}

// LastSeq returns the sequence number of the newest entry, or Base.
func (l *ChangeLog) LastSeq() uint64 {
	return l.Base + uint64(len(l.Entries))
}

// Len returns the number of entries held.
func (l *ChangeLog) Len() int {
	return len(l.Entries)
}

// After returns every held change with a sequence number greater than seq,
// in append order. The returned slice is a copy.
func (l *ChangeLog) After(seq uint64) []Change {
	start := 0
	if seq > l.Base {
		if seq >= l.LastSeq() {
			return []Change{}
		}
		start = int(seq - l.Base)
	}
	out := make([]Change, len(l.Entries)-start)
	copy(out, l.Entries[start:])
	return out
}

func (l *ChangeLog) clone() ChangeLog {
	entries := make([]Change, len(l.Entries))
	copy(entries, l.Entries)
	return ChangeLog{Base: l.Base, Entries: entries}
}
