package division

import (
	"fmt"
	"sort"

	"github.com/frahmantamala/recruiter-reports/internal/ats"
)

// Mapping pairs a division with the ATS authoritative for it.
type Mapping struct {
	DivisionID int64
	System     ats.System
}

// Router answers which ATS owns which divisions. The per-system division
// sets are disjoint.
type Router struct {
	owner    map[int64]ats.System
	bySystem map[ats.System][]int64
}

func NewRouter(mappings []Mapping) (*Router, error) {
	r := &Router{
		owner:    make(map[int64]ats.System, len(mappings)),
		bySystem: make(map[ats.System][]int64),
	}
	for _, m := range mappings {
		if existing, ok := r.owner[m.DivisionID]; ok {
			if existing == m.System {
				continue
			}
			return nil, fmt.Errorf("division %d mapped to both %s and %s", m.DivisionID, existing, m.System)
		}
		r.owner[m.DivisionID] = m.System
		r.bySystem[m.System] = append(r.bySystem[m.System], m.DivisionID)
	}
	for sys := range r.bySystem {
		ids := r.bySystem[sys]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return r, nil
}

// Divisions returns the sorted division ids owned by sys.
func (r *Router) Divisions(sys ats.System) []int64 {
	ids := r.bySystem[sys]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func (r *Router) Owns(sys ats.System, divisionID int64) bool {
	owner, ok := r.owner[divisionID]
	return ok && owner == sys
}

// Systems lists the ATS systems owning at least one division.
func (r *Router) Systems() []ats.System {
	var out []ats.System
	for _, sys := range ats.Systems {
		if len(r.bySystem[sys]) > 0 {
			out = append(out, sys)
		}
	}
	return out
}

func (r *Router) Empty() bool {
	return len(r.owner) == 0
}
