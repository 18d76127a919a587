package game

import "sort"

// resolveCombat runs one simultaneous round of fire in system. Every
// controller's total attack is spent on enemy ships in id order; a ship
// absorbs its shield plus remaining armour from the pool before the rest
// carries on to the next ship. Damage is applied after all sides fired.
func (s *State) resolveCombat(system ID) {
	ships := s.ShipsAt(system)
	if len(ships) < 2 {
		return
	}

	attack := make(map[ID]int)
	var sides []ID
	for _, ship := range ships {
		if _, ok := attack[ship.Controller]; !ok {
			sides = append(sides, ship.Controller)
		}
		attack[ship.Controller] += ship.Attack
	}
	if len(sides) < 2 {
		return
	}
	sort.Slice(sides, func(i, j int) bool { return s.PlayerIndex(sides[i]) < s.PlayerIndex(sides[j]) })

	damage := make(map[ID]int)
	for _, side := range sides {
		pool := attack[side]
		for _, target := range ships {
			if pool <= 0 {
				break
			}
			if target.Controller == side {
				continue
			}
			remaining := target.Armour - damage[target.ID]
			if remaining <= 0 {
				continue
			}
			used := min(pool, target.Shield+remaining)
			pool -= used
			if dealt := used - target.Shield; dealt > 0 {
				damage[target.ID] += dealt
			}
		}
	}

	s.applyDamage(damage)
}

// applyDamage emits damage for every ship in id order, then removes the
// destroyed ones. Losing a flagship loses the game for its owner.
func (s *State) applyDamage(damage map[ID]int) {
	ids := make([]ID, 0, len(damage))
	for id, amount := range damage {
		if amount > 0 {
			ids = append(ids, id)
		}
	}
	ids = sortedIDs(ids)

	for _, id := range ids {
		ship := s.Ships[id]
		s.emit(Change{Kind: ChangeDamageShip, Player: ship.Controller, Entity: id, Amount: damage[id]})
	}

	var fallen []ID
	for _, id := range ids {
		ship := s.Ships[id]
		if ship.Armour > 0 {
			continue
		}
		owner := ship.Owner
		isFlagship := false
		if p := s.Player(owner); p != nil && p.Flagship == id {
			isFlagship = true
		}
		s.emit(Change{Kind: ChangeRemoveShip, Player: ship.Controller, Entity: id})
		if isFlagship {
			fallen = append(fallen, owner)
		}
	}
	for _, owner := range fallen {
		s.eliminate(owner, "flagship destroyed")
	}
}
