package resource

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a resource type.
type Kind string

const (
	// Any is an unallocated quantity usable as any other kind.
	Any     Kind = "ANY"
	Metal   Kind = "METAL"
	Energy  Kind = "ENERGY"
	Crystal Kind = "CRYSTAL"
)

// Specific lists the concrete kinds in payment order.
var Specific = []Kind{Metal, Energy, Crystal}

// Amount maps resource kinds to quantities. Missing kinds are zero.
type Amount map[Kind]int

// Get returns the quantity stored for kind.
func (a Amount) Get(kind Kind) int {
	return a[kind]
}

// Clone returns an independent copy without zero entries.
func (a Amount) Clone() Amount {
	out := make(Amount, len(a))
	for k, v := range a {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Add returns a + b, kind by kind.
func (a Amount) Add(b Amount) Amount {
	out := a.Clone()
	for k, v := range b {
		out[k] += v
	}
	return out.normalize()
}

// Sub returns a - b, kind by kind. Quantities may become negative.
func (a Amount) Sub(b Amount) Amount {
	out := a.Clone()
	for k, v := range b {
		out[k] -= v
	}
	return out.normalize()
}

// Total sums every kind, ANY included.
func (a Amount) Total() int {
	total := 0
	for _, v := range a {
		total += v
	}
	return total
}

// IsZero reports whether every quantity is zero.
func (a Amount) IsZero() bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// Equal compares kind by kind. ANY is only equal to ANY.
func (a Amount) Equal(b Amount) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}

// LessEqual reports whether cost (the receiver) can be covered by amount.
//
// Every specific kind in cost must be matched by the same kind in amount;
// a shortfall may only be filled from amount's own ANY bucket. The ANY part
// of cost is then covered by whatever amount has left over in total.
// Surplus of one specific kind never stands in for another specific kind.
func (a Amount) LessEqual(amount Amount) bool {
	_, ok := cover(a, amount)
	return ok
}

// Pay deducts cost from the pool and returns the remaining pool. It returns
// false and leaves the pool untouched when the cost cannot be covered.
func (a Amount) Pay(cost Amount) (Amount, bool) {
	spent, ok := cover(cost, a)
	if !ok {
		return a, false
	}
	return a.Sub(spent), true
}

// Cap clamps every kind to the matching kind in limit. Kinds missing from
// limit are left as they are.
func (a Amount) Cap(limit Amount) Amount {
	out := a.Clone()
	for k, v := range out {
		if ceiling, ok := limit[k]; ok && v > ceiling {
			out[k] = ceiling
		}
	}
	return out.normalize()
}

// Kinds returns the non-zero kinds in a deterministic order.
func (a Amount) Kinds() []Kind {
	kinds := make([]Kind, 0, len(a))
	for k, v := range a {
		if v != 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (a Amount) String() string {
	kinds := a.Kinds()
	if len(kinds) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k)+":"+strconv.Itoa(a[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (a Amount) normalize() Amount {
	for k, v := range a {
		if v == 0 {
			delete(a, k)
		}
	}
	return a
}

// cover computes what amount must give up to pay cost. Specific kinds are
// matched first, shortfalls draw on the ANY bucket, and the ANY part of cost
// takes leftovers in Specific order, then other kinds, then ANY.
func cover(cost, amount Amount) (Amount, bool) {
	spent := Amount{}
	left := amount.Clone()

	for _, k := range cost.Kinds() {
		if k == Any {
			continue
		}
		need := cost[k]
		if need <= 0 {
			continue
		}
		have := left[k]
		if have < 0 {
			have = 0
		}
		take := min(have, need)
		if take > 0 {
			left[k] -= take
			spent[k] += take
		}
		if short := need - take; short > 0 {
			if left[Any] < short {
				return nil, false
			}
			left[Any] -= short
			spent[Any] += short
		}
	}

	need := cost[Any]
	if need <= 0 {
		return spent.normalize(), true
	}
	for _, k := range payOrder(left) {
		if need == 0 {
			break
		}
		if left[k] <= 0 {
			continue
		}
		take := min(left[k], need)
		left[k] -= take
		spent[k] += take
		need -= take
	}
	if need > 0 {
		return nil, false
	}
	return spent.normalize(), true
}

func payOrder(a Amount) []Kind {
	order := make([]Kind, 0, len(a)+1)
	seen := map[Kind]bool{Any: true}
	for _, k := range Specific {
		order = append(order, k)
		seen[k] = true
	}
	for _, k := range a.Kinds() {
		if !seen[k] {
			order = append(order, k)
		}
	}
	return append(order, Any)
}
