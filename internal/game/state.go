package game

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/game/resource"
	"github.com/warpfront/warpfront-server-go/internal/game/rules"
)

const (
	DefaultPlayers  = 2
	MaxPlayers      = 4
	DefaultGridSize = 5
	OpeningHandSize = 7
)

// Starting pools for every player.
var (
	StartingResources = resource.Amount{resource.Metal: 3, resource.Energy: 2, resource.Crystal: 1}
	StartingMax       = resource.Amount{resource.Metal: 10, resource.Energy: 10, resource.Crystal: 10}
	StartingGain      = resource.Amount{resource.Metal: 2, resource.Energy: 1, resource.Crystal: 1}
)

// FlagshipTemplate is the ship every player starts with.
var FlagshipTemplate = ShipTemplate{Type: "Flagship", Attack: 3, Shield: 1, Armour: 10, Movement: 1}

// Options configures a new game.
type Options struct {
	GameID      string
	Players     int
	PlayerNames []string
	GridSize    int
	Seed        int64
}

func (o *Options) applyDefaults() {
	if o.Players == 0 {
		o.Players = DefaultPlayers
	}
	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
}

// State is the authoritative state of one game. It is not safe for
// concurrent use; callers serialize access per game.
type State struct {
	GameID   string
	GridSize int
	Seed     int64
	IDs      IDAllocator
	Systems  map[ID]*System
	Ships    map[ID]*Ship
	Players  []*Player
	Cards    map[ID]*Card
	Beacons  map[ID]*WarpBeacon
	Turn     rules.TurnInfo
	Stack    rules.CardStack
	Log      ChangeLog
	Over     bool
	Winner   ID

	logger *zap.Logger
}

// NewGame builds a fresh game: the system grid, one flagship per player in a
// corner, a shuffled deck per player and an opening hand. The first player
// starts in UPKEEP. Setup appends no changes.
func NewGame(opts Options, logger *zap.Logger) (*State, error) {
	opts.applyDefaults()
	if opts.Players < 2 || opts.Players > MaxPlayers {
		return nil, fmt.Errorf("player count %d out of range [2,%d]", opts.Players, MaxPlayers)
	}
	if opts.GridSize < 2 {
		return nil, fmt.Errorf("grid size %d too small", opts.GridSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &State{
		GameID:   opts.GameID,
		GridSize: opts.GridSize,
		Seed:     opts.Seed,
		IDs:      NewIDAllocator(),
		logger:   logger,
	}
	s.ensureMaps()

	for y := 0; y < opts.GridSize; y++ {
		for x := 0; x < opts.GridSize; x++ {
			id := s.IDs.Allocate()
			s.Systems[id] = &System{ID: id, X: x, Y: y}
		}
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)>>32|0x9e3779b9))
	corners := s.corners()

	for i := 0; i < opts.Players; i++ {
		name := fmt.Sprintf("Player %d", i+1)
		if i < len(opts.PlayerNames) && opts.PlayerNames[i] != "" {
			name = opts.PlayerNames[i]
		}
		p := &Player{
			ID:      s.IDs.Allocate(),
			Name:    name,
			Current: StartingResources.Clone(),
			Max:     StartingMax.Clone(),
			Gain:    StartingGain.Clone(),
		}
		s.Players = append(s.Players, p)

		for _, def := range Catalog() {
			for n := 0; n < def.Copies; n++ {
				card := def.instantiate(s.IDs.Allocate(), p.ID)
				s.Cards[card.ID] = card
				p.Deck = append(p.Deck, card.ID)
			}
		}
		rng.Shuffle(len(p.Deck), func(a, b int) { p.Deck[a], p.Deck[b] = p.Deck[b], p.Deck[a] })

		hand := min(OpeningHandSize, len(p.Deck))
		p.Hand = append([]ID(nil), p.Deck[:hand]...)
		p.Deck = append([]ID(nil), p.Deck[hand:]...)
		for _, id := range p.Hand {
			s.Cards[id].Zone = ZoneHand
		}

		flagship := newShip(s.IDs.Allocate(), FlagshipTemplate, p.ID, corners[i%len(corners)])
		s.Ships[flagship.ID] = flagship
		p.Flagship = flagship.ID
	}

	s.Turn = rules.NewTurnInfo(s.Players[0].ID)

	logger.Info("game created",
		zap.String("game_id", s.GameID),
		zap.Int("players", len(s.Players)),
		zap.Int("grid_size", s.GridSize),
	)
	return s, nil
}

// SetLogger replaces the logger used for rejected actions and diagnostics.
func (s *State) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.logger = logger
}

func (s *State) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *State) ensureMaps() {
	if s.Systems == nil {
		s.Systems = make(map[ID]*System)
	}
	if s.Ships == nil {
		s.Ships = make(map[ID]*Ship)
	}
	if s.Cards == nil {
		s.Cards = make(map[ID]*Card)
	}
	if s.Beacons == nil {
		s.Beacons = make(map[ID]*WarpBeacon)
	}
}

func (s *State) corners() []ID {
	n := s.GridSize - 1
	return []ID{
		s.SystemAt(0, 0).ID,
		s.SystemAt(n, n).ID,
		s.SystemAt(n, 0).ID,
		s.SystemAt(0, n).ID,
	}
}

// SystemAt returns the system at grid position x,y or nil.
func (s *State) SystemAt(x, y int) *System {
	for _, sys := range s.Systems {
		if sys.X == x && sys.Y == y {
			return sys
		}
	}
	return nil
}

// Player returns the player with the given id or nil.
func (s *State) Player(id ID) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerIndex returns the seat of a player, or -1.
func (s *State) PlayerIndex(id ID) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// NextPlayer returns the next player after id in seat order who has not
// lost, wrapping around. It returns id itself when nobody else remains.
func (s *State) NextPlayer(id ID) ID {
	idx := s.PlayerIndex(id)
	if idx < 0 {
		return id
	}
	for step := 1; step <= len(s.Players); step++ {
		p := s.Players[(idx+step)%len(s.Players)]
		if !p.Lost {
			return p.ID
		}
	}
	return id
}

// Remaining returns the players still in the game.
func (s *State) Remaining() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if !p.Lost {
			out = append(out, p)
		}
	}
	return out
}

// SystemList returns the systems ordered by id.
func (s *State) SystemList() []*System {
	out := make([]*System, 0, len(s.Systems))
	for _, sys := range s.Systems {
		out = append(out, sys)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShipList returns every ship ordered by id.
func (s *State) ShipList() []*Ship {
	out := make([]*Ship, 0, len(s.Ships))
	for _, ship := range s.Ships {
		out = append(out, ship)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShipsAt returns the ships in a system ordered by id.
func (s *State) ShipsAt(system ID) []*Ship {
	var out []*Ship
	for _, ship := range s.ShipList() {
		if ship.System == system {
			out = append(out, ship)
		}
	}
	return out
}

// ShipsOf returns the ships a player controls ordered by id.
func (s *State) ShipsOf(player ID) []*Ship {
	var out []*Ship
	for _, ship := range s.ShipList() {
		if ship.Controller == player {
			out = append(out, ship)
		}
	}
	return out
}

// BeaconList returns the beacons ordered by id.
func (s *State) BeaconList() []*WarpBeacon {
	out := make([]*WarpBeacon, 0, len(s.Beacons))
	for _, b := range s.Beacons {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CardList returns every card ordered by id.
func (s *State) CardList() []*Card {
	out := make([]*Card, 0, len(s.Cards))
	for _, c := range s.Cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LastSeq returns the sequence number of the newest change.
func (s *State) LastSeq() uint64 {
	return s.Log.LastSeq()
}

// ChangesAfter returns the changes with a sequence number above seq.
func (s *State) ChangesAfter(seq uint64) []Change {
	return s.Log.After(seq)
}

// Clone returns a deep copy sharing nothing mutable with s. Change payloads
// are shared since they are immutable.
func (s *State) Clone() *State {
	cpy := &State{
		GameID:   s.GameID,
		GridSize: s.GridSize,
		Seed:     s.Seed,
		IDs:      s.IDs,
		Systems:  make(map[ID]*System, len(s.Systems)),
		Ships:    make(map[ID]*Ship, len(s.Ships)),
		Cards:    make(map[ID]*Card, len(s.Cards)),
		Beacons:  make(map[ID]*WarpBeacon, len(s.Beacons)),
		Turn:     s.Turn.Clone(),
		Stack:    rules.CardStack(s.Stack.List()),
		Log:      s.Log.clone(),
		Over:     s.Over,
		Winner:   s.Winner,
		logger:   s.logger,
	}
	for id, sys := range s.Systems {
		v := *sys
		cpy.Systems[id] = &v
	}
	for id, ship := range s.Ships {
		v := *ship
		cpy.Ships[id] = &v
	}
	for id, card := range s.Cards {
		cpy.Cards[id] = cloneCard(card)
	}
	for id, b := range s.Beacons {
		v := *b
		cpy.Beacons[id] = &v
	}
	for _, p := range s.Players {
		v := *p
		v.Current = p.Current.Clone()
		v.Max = p.Max.Clone()
		v.Gain = p.Gain.Clone()
		v.Deck = append([]ID(nil), p.Deck...)
		v.Hand = append([]ID(nil), p.Hand...)
		v.Discard = append([]ID(nil), p.Discard...)
		cpy.Players = append(cpy.Players, &v)
	}
	return cpy
}

func cloneCard(c *Card) *Card {
	v := *c
	v.Cost = c.Cost.Clone()
	v.Targets = append([]ID(nil), c.Targets...)
	if c.Creates != nil {
		tpl := *c.Creates
		v.Creates = &tpl
	}
	return &v
}
