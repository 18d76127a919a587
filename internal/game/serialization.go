package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Checksum computes a SHA-256 over a canonical rendering of the state.
// Map iteration order, the logger and the change entries themselves do not
// affect it; only the last sequence number does. A client mirror that has
// applied the same prefix of the log produces the same checksum.
func (s *State) Checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

func (s *State) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%t|%d|%d\n", s.GameID, s.GridSize, s.IDs.NextID, s.Over, s.Winner, s.LastSeq())
	fmt.Fprintf(&buf, "TURN:%s|%s\n", s.Turn, formatSelection(s))
	fmt.Fprintf(&buf, "STACK:%s\n", joinIDs(s.Stack.List()))

	for _, p := range s.Players {
		fmt.Fprintf(&buf, "PLAYER:%d|%s|%s|%s|%s|%d|%t\n", p.ID, p.Name, p.Current, p.Max, p.Gain, p.Flagship, p.Lost)
		fmt.Fprintf(&buf, "  DECK:%s\n", joinIDs(p.Deck))
		fmt.Fprintf(&buf, "  HAND:%s\n", joinIDs(p.Hand))
		fmt.Fprintf(&buf, "  DISCARD:%s\n", joinIDs(p.Discard))
	}
	for _, sys := range s.SystemList() {
		fmt.Fprintf(&buf, "SYSTEM:%d|%d|%d\n", sys.ID, sys.X, sys.Y)
	}
	for _, ship := range s.ShipList() {
		fmt.Fprintf(&buf, "SHIP:%d|%s|%d|%d|%d/%d|%d|%d|%d|%d\n",
			ship.ID, ship.Type, ship.Attack, ship.Shield, ship.Armour, ship.MaxArmour,
			ship.Movement, ship.Owner, ship.Controller, ship.System)
	}
	for _, card := range s.CardList() {
		fmt.Fprintf(&buf, "CARD:%d|%s|%s|%s|%t|%d|%d|%s|%s\n",
			card.ID, card.Name, card.Kind, card.Cost, card.Fast, card.Power, card.Owner, card.Zone, joinIDs(card.Targets))
	}
	for _, b := range s.BeaconList() {
		fmt.Fprintf(&buf, "BEACON:%d|%d|%d|%t\n", b.ID, b.Owner, b.System, b.Relay)
	}
	return buf.String()
}

func formatSelection(s *State) string {
	sel := s.Turn.Selection
	if sel == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%s/%d-%d", sel.SourceID, sel.Domain, sel.Min, sel.Max)
}

func joinIDs(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
