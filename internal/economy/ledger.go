package economy

import "fmt"

// minTick is the smallest delta (in seconds) Tick treats as elapsed time.
const minTick = 1e-9

// Snapshot is a read-only copy of a ledger.
type Snapshot struct {
	Amounts Amounts `json:"resources"`
	Rates   Amounts `json:"rates"`
}

// Ledger holds resource balances and their passive per-second accrual rates.
// A Ledger is not safe for concurrent use; the progression engine serializes
// access to it.
type Ledger struct {
	amounts Amounts
	rates   Amounts
}

// NewLedger creates a ledger with every known resource present. Missing
// entries in amounts or rates start at zero.
func NewLedger(amounts, rates Amounts) *Ledger {
	l := &Ledger{amounts: Amounts{}, rates: Amounts{}}
	for _, k := range Resources {
		l.amounts[k] = clampNonNegative(amounts[k])
		l.rates[k] = clampNonNegative(rates[k])
	}
	return l
}

// Clone returns an independent copy of l.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{amounts: l.amounts.Clone(), rates: l.rates.Clone()}
}

// Tick accrues rate*deltaSeconds of every resource. Zero, negative or
// near-zero deltas are ignored.
func (l *Ledger) Tick(deltaSeconds float64) {
	if deltaSeconds < minTick {
		return
	}
	for k, r := range l.rates {
		l.amounts[k] += r * deltaSeconds
	}
}

// Add adds delta (which may be negative) to the balance of kind. If the
// result would be negative the ledger is left unchanged and
// ErrInsufficientResources is returned.
func (l *Ledger) Add(kind Resource, delta float64) error {
	cur, ok := l.amounts[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResource, kind)
	}
	next := cur + delta
	if next < 0 {
		return fmt.Errorf("%w: %s has %g, needs %g", ErrInsufficientResources, kind, cur, -delta)
	}
	l.amounts[kind] = next
	return nil
}

// CanAfford reports whether every kind in cost is covered by the balances.
func (l *Ledger) CanAfford(cost Amounts) bool {
	return l.amounts.Covers(cost)
}

// Spend debits every kind in cost, or nothing at all.
func (l *Ledger) Spend(cost Amounts) error {
	if err := cost.Validate(); err != nil {
		return err
	}
	if !l.amounts.Covers(cost) {
		return fmt.Errorf("%w: short %s", ErrInsufficientResources, l.amounts.Shortfall(cost))
	}
	for k, v := range cost {
		l.amounts[k] -= v
	}
	return nil
}

// Amount returns the balance of kind.
func (l *Ledger) Amount(kind Resource) float64 {
	return l.amounts[kind]
}

// Rate returns the per-second accrual rate of kind.
func (l *Ledger) Rate(kind Resource) float64 {
	return l.rates[kind]
}

// AddRate increases the accrual rate of kind by delta. The rate never drops
// below zero.
func (l *Ledger) AddRate(kind Resource, delta float64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResource, kind)
	}
	l.rates[kind] = clampNonNegative(l.rates[kind] + delta)
	return nil
}

// ScaleRate multiplies the accrual rate of kind by factor.
func (l *Ledger) ScaleRate(kind Resource, factor float64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResource, kind)
	}
	l.rates[kind] = clampNonNegative(l.rates[kind] * factor)
	return nil
}

// Snapshot returns a copy of the current balances and rates.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{Amounts: l.amounts.Clone(), Rates: l.rates.Clone()}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
