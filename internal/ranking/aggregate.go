package ranking

import (
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
)

// Accumulator holds full-precision weekly totals for one identity.
type Accumulator struct {
	ConfigID  int64
	HeadCount int
	TotalBill float64
	TotalPay  float64
}

// Aggregates keeps accumulators in the order identities were first seen.
type Aggregates struct {
	order []int64
	byID  map[int64]*Accumulator
}

func (a *Aggregates) Len() int {
	return len(a.order)
}

func (a *Aggregates) Get(configID int64) (*Accumulator, bool) {
	acc, ok := a.byID[configID]
	return acc, ok
}

// Each visits accumulators in insertion order.
func (a *Aggregates) Each(fn func(*Accumulator)) {
	for _, id := range a.order {
		fn(a.byID[id])
	}
}

// LookupFunc reads an already-resolved identity without discovery.
type LookupFunc func(sys ats.System, localID string) (*userconfig.UserConfig, bool)

// Owner reports whether a system is authoritative for a division.
type Owner interface {
	Owns(sys ats.System, divisionID int64) bool
}

// Aggregate sums placement facts per canonical identity. Facts that resolve
// to no active identity are dropped silently. When owner is set, a fact is
// also dropped unless its system owns the fact's division, or the
// identity's division when the ATS reported none.
func Aggregate(facts []ats.PlacementFact, lookup LookupFunc, owner Owner) *Aggregates {
	agg := &Aggregates{byID: make(map[int64]*Accumulator)}

	for _, fact := range facts {
		u, ok := lookup(fact.System, fact.LocalID)
		if !ok || u == nil || !u.IsActive {
			continue
		}

		if owner != nil {
			divisionID := u.DivisionID
			if fact.DivisionID != nil {
				divisionID = *fact.DivisionID
			}
			if !owner.Owns(fact.System, divisionID) {
				continue
			}
		}

		acc, exists := agg.byID[u.ConfigID]
		if !exists {
			acc = &Accumulator{ConfigID: u.ConfigID}
			agg.byID[u.ConfigID] = acc
			agg.order = append(agg.order, u.ConfigID)
		}
		acc.HeadCount += fact.HeadCount
		acc.TotalBill += fact.TotalBill
		acc.TotalPay += fact.TotalPay
	}

	return agg
}
