// Package economy holds the mutable numbers of a game session: resource
// balances, passive accrual rates, and the player stat block that upgrades
// adjust and gameplay systems read every tick.
package economy

import (
	"errors"
	"fmt"
	"sort"
)

// Resource identifies a kind of resource.
type Resource string

const (
	Metal   Resource = "metal"
	Crystal Resource = "crystal"
)

// Resources lists every resource kind in display order.
var Resources = []Resource{Metal, Crystal}

var (
	// ErrInsufficientResources is returned when a debit would drive a balance negative.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrUnknownResource is returned for a resource kind outside Resources.
	ErrUnknownResource = errors.New("unknown resource")
)

// Valid reports whether r is a known resource kind.
func (r Resource) Valid() bool {
	for _, k := range Resources {
		if k == r {
			return true
		}
	}
	return false
}

// Amounts maps resource kinds to quantities. It is used for balances, rates
// and costs alike.
type Amounts map[Resource]float64

// Clone returns an independent copy of a.
func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Covers reports whether a holds at least cost of every kind in cost.
func (a Amounts) Covers(cost Amounts) bool {
	for k, v := range cost {
		if a[k] < v {
			return false
		}
	}
	return true
}

// Shortfall returns how much of each kind in cost is missing from a.
// Kinds that are fully covered are omitted.
func (a Amounts) Shortfall(cost Amounts) Amounts {
	out := Amounts{}
	for k, v := range cost {
		if a[k] < v {
			out[k] = v - a[k]
		}
	}
	return out
}

// Validate checks that every key is a known resource and every value is
// non-negative.
func (a Amounts) Validate() error {
	for k, v := range a {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownResource, k)
		}
		if v < 0 {
			return fmt.Errorf("negative %s amount %g", k, v)
		}
	}
	return nil
}

// String formats a in resource order, e.g. "metal=10 crystal=5".
func (a Amounts) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, string(k))
	}
	sort.Slice(keys, func(i, j int) bool { return order(Resource(keys[i])) < order(Resource(keys[j])) })

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, a[Resource(k)])
	}
	return s
}

func order(r Resource) int {
	for i, k := range Resources {
		if k == r {
			return i
		}
	}
	return len(Resources)
}
