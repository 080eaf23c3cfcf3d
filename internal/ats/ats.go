// Package ats defines the normalized facts read from the applicant tracking
// system mirrors and the source interfaces each adapter implements.
package ats

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type System string

const (
	Symplr   System = "symplr"
	Bullhorn System = "bullhorn"
)

var Systems = []System{Symplr, Bullhorn}

func ParseSystem(s string) (System, error) {
	switch System(strings.ToLower(strings.TrimSpace(s))) {
	case Symplr:
		return Symplr, nil
	case Bullhorn:
		return Bullhorn, nil
	}
	return "", fmt.Errorf("unknown ats system %q", s)
}

// Label is the display form stored as a user config's ats_source.
func (s System) Label() string {
	switch s {
	case Symplr:
		return "Symplr"
	case Bullhorn:
		return "Bullhorn"
	}
	return string(s)
}

// PlacementFact is one recruiter's placement totals for a week as reported by
// a single ATS. DivisionID is nil when the ATS does not carry one.
type PlacementFact struct {
	System     System
	LocalID    string
	Name       string
	DivisionID *int64
	HeadCount  int
	TotalBill  float64
	TotalPay   float64
}

func (f PlacementFact) Key() string {
	return string(f.System) + ":" + f.LocalID
}

// ShiftFact is one filled order used by the hours report.
type ShiftFact struct {
	OrderID            string
	SpecialistID       string
	SpecialistName     string
	DivisionID         *int64
	ShiftDate          time.Time
	ShiftStart         time.Time
	ShiftEnd           time.Time
	ClientLunchMinutes int
	OrderLunchMinutes  *int
}

type PlacementSource interface {
	System() System
	GetPlacements(ctx context.Context, weekStart, weekEnd time.Time) ([]PlacementFact, error)
}

// ProfileSource returns a recruiter's job title, or "" when the ATS has none.
type ProfileSource interface {
	System() System
	GetTitle(ctx context.Context, localID string) (string, error)
}

type DepartmentSource interface {
	GetDepartment(ctx context.Context, localID string) (string, error)
}

type OrderSource interface {
	GetOrders(ctx context.Context, dateStart, dateEnd time.Time) ([]ShiftFact, error)
}
