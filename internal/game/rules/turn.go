package rules

import (
	"fmt"
	"strings"
)

// Phase is one entry of the phase stack.
type Phase int

const (
	PhaseUpkeep Phase = iota
	PhaseMain
	PhaseMove
	PhaseEnd
	PhaseSelectCardTargets
	PhaseSelectBeaconTargets
	PhaseResolveStack
)

var phaseNames = map[Phase]string{
	PhaseUpkeep:              "UPKEEP",
	PhaseMain:                "MAIN",
	PhaseMove:                "MOVE",
	PhaseEnd:                 "END",
	PhaseSelectCardTargets:   "SELECT_CARD_TARGETS",
	PhaseSelectBeaconTargets: "SELECT_BEACON_TARGETS",
	PhaseResolveStack:        "RESOLVE_STACK",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// IsRoot reports whether the phase may sit at the bottom of the phase stack.
func (p Phase) IsRoot() bool {
	switch p {
	case PhaseUpkeep, PhaseMain, PhaseMove, PhaseEnd:
		return true
	}
	return false
}

// IsSelection reports whether the phase waits for a target choice.
func (p Phase) IsSelection() bool {
	return p == PhaseSelectCardTargets || p == PhaseSelectBeaconTargets
}

// PhaseStack is a non-empty stack of phases. Index 0 is the root phase and
// the last element is the phase currently in effect.
type PhaseStack []Phase

// NewPhaseStack returns a stack holding only root.
func NewPhaseStack(root Phase) PhaseStack {
	if !root.IsRoot() {
		panic(fmt.Sprintf("rules: %s is not a root phase", root))
	}
	return PhaseStack{root}
}

// Top returns the phase in effect.
func (ps PhaseStack) Top() Phase {
	if len(ps) == 0 {
		return PhaseUpkeep
	}
	return ps[len(ps)-1]
}

// Root returns the bottom phase.
func (ps PhaseStack) Root() Phase {
	if len(ps) == 0 {
		return PhaseUpkeep
	}
	return ps[0]
}

// Depth returns the number of phases on the stack.
func (ps PhaseStack) Depth() int {
	return len(ps)
}

// Contains reports whether p is anywhere on the stack.
func (ps PhaseStack) Contains(p Phase) bool {
	for _, phase := range ps {
		if phase == p {
			return true
		}
	}
	return false
}

// Push enters a sub-phase. Root phases cannot be pushed.
func (ps *PhaseStack) Push(p Phase) error {
	if p.IsRoot() {
		return fmt.Errorf("cannot push root phase %s", p)
	}
	*ps = append(*ps, p)
	return nil
}

// Pop leaves the current sub-phase. The root phase is never popped.
func (ps *PhaseStack) Pop() (Phase, error) {
	if len(*ps) <= 1 {
		return ps.Top(), fmt.Errorf("cannot pop root phase %s", ps.Root())
	}
	idx := len(*ps) - 1
	top := (*ps)[idx]
	*ps = (*ps)[:idx]
	return top, nil
}

// ReplaceRoot swaps the root phase, keeping any sub-phases above it.
func (ps *PhaseStack) ReplaceRoot(p Phase) error {
	if !p.IsRoot() {
		return fmt.Errorf("%s is not a root phase", p)
	}
	if len(*ps) == 0 {
		*ps = PhaseStack{p}
		return nil
	}
	(*ps)[0] = p
	return nil
}

// Clone returns an independent copy.
func (ps PhaseStack) Clone() PhaseStack {
	cpy := make(PhaseStack, len(ps))
	copy(cpy, ps)
	return cpy
}

func (ps PhaseStack) String() string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.String()
	}
	return "[" + strings.Join(names, " > ") + "]"
}

// TargetDomain tells what kind of entity a selection picks.
type TargetDomain int

const (
	TargetShips TargetDomain = iota
	TargetSystems
)

func (d TargetDomain) String() string {
	if d == TargetSystems {
		return "SYSTEMS"
	}
	return "SHIPS"
}

// Selection describes a pending target choice while a SELECT_* phase is on
// top of the stack. SourceID is the card (or beacon) asking for targets.
type Selection struct {
	SourceID uint64
	Domain   TargetDomain
	Min      int
	Max      int
}

// TurnInfo is the turn bookkeeping carried by the game state and by every
// phase change.
type TurnInfo struct {
	Number    int
	WhoseTurn uint64
	Active    uint64
	Phases    PhaseStack
	Selection *Selection
}

// NewTurnInfo starts turn 1 in UPKEEP for the given player.
func NewTurnInfo(first uint64) TurnInfo {
	return TurnInfo{
		Number:    1,
		WhoseTurn: first,
		Active:    first,
		Phases:    NewPhaseStack(PhaseUpkeep),
	}
}

// Phase returns the phase currently in effect.
func (ti TurnInfo) Phase() Phase {
	return ti.Phases.Top()
}

// Clone returns a deep copy.
func (ti TurnInfo) Clone() TurnInfo {
	cpy := ti
	cpy.Phases = ti.Phases.Clone()
	if ti.Selection != nil {
		sel := *ti.Selection
		cpy.Selection = &sel
	}
	return cpy
}

func (ti TurnInfo) String() string {
	return fmt.Sprintf("turn=%d whose=%d active=%d phases=%s", ti.Number, ti.WhoseTurn, ti.Active, ti.Phases)
}
