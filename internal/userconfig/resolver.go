package userconfig

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
)

// DivisionFinder resolves division names and ids to active divisions.
type DivisionFinder interface {
	FindActiveDivisionID(ctx context.Context, name string) (int64, bool, error)
	DivisionExists(ctx context.Context, id int64) (bool, error)
}

// DiscoveryObserver is told about every identity created by discovery.
type DiscoveryObserver interface {
	IdentityDiscovered(system string)
}

// Directory holds what identity discovery needs and hands out one Resolver
// per report run.
type Directory struct {
	repo              RepositoryAPI
	divisions         DivisionFinder
	profiles          map[ats.System]ats.ProfileSource
	departments       map[ats.System]ats.DepartmentSource
	defaultDivisionID int64
	observer          DiscoveryObserver
	logger            *slog.Logger
}

type DirectoryOption func(*Directory)

func WithProfileSource(src ats.ProfileSource) DirectoryOption {
	return func(d *Directory) { d.profiles[src.System()] = src }
}

func WithDepartmentSource(sys ats.System, src ats.DepartmentSource) DirectoryOption {
	return func(d *Directory) { d.departments[sys] = src }
}

func WithDiscoveryObserver(o DiscoveryObserver) DirectoryOption {
	return func(d *Directory) { d.observer = o }
}

func NewDirectory(repo RepositoryAPI, divisions DivisionFinder, defaultDivisionID int64, logger *slog.Logger, opts ...DirectoryOption) *Directory {
	if defaultDivisionID <= 0 {
		defaultDivisionID = 1
	}
	d := &Directory{
		repo:              repo,
		divisions:         divisions,
		profiles:          make(map[ats.System]ats.ProfileSource),
		departments:       make(map[ats.System]ats.DepartmentSource),
		defaultDivisionID: defaultDivisionID,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewResolver loads every active identity and returns a resolver scoped to a
// single run. Failing to load is a setup error and aborts the run.
func (d *Directory) NewResolver(ctx context.Context) (*Resolver, error) {
	rows, err := d.repo.ListActive(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("load active user configs", err)
	}

	r := &Resolver{
		dir:      d,
		resolved: make(map[key]*UserConfig),
		checked:  make(map[key]struct{}),
		byID:     make(map[int64]*UserConfig, len(rows)),
	}
	for _, row := range rows {
		r.remember(FromDataModel(row))
	}
	return r, nil
}

type key struct {
	system  ats.System
	localID string
}

// Resolver maps ATS-local ids to canonical identities for one run. Each
// (system, id) pair hits storage at most once per run, so repeated facts for
// an unseen recruiter create at most one identity.
type Resolver struct {
	dir *Directory

	mu       sync.Mutex
	resolved map[key]*UserConfig
	checked  map[key]struct{}
	byID     map[int64]*UserConfig
	created  int
}

func (r *Resolver) remember(u *UserConfig) {
	r.byID[u.ConfigID] = u
	for _, sys := range ats.Systems {
		if id := u.ATSID(sys); id != "" {
			r.resolved[key{sys, id}] = u
		}
	}
}

// ResolveOrCreate returns the active identity for (sys, localID), creating
// one on first sight. It returns nil without error when the id belongs to a
// deactivated identity, which keeps deactivated recruiters out of reports.
func (r *Resolver) ResolveOrCreate(ctx context.Context, sys ats.System, localID, observedName string, observedDivisionID *int64) (*UserConfig, error) {
	k := key{sys, localID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.resolved[k]; ok {
		return u, nil
	}
	if _, ok := r.checked[k]; ok {
		return nil, nil
	}

	existing, err := r.dir.repo.FindByATSID(ctx, sys, localID)
	if err != nil {
		return nil, internal.NewUpstreamError(fmt.Sprintf("look up %s id %s", sys, localID), err)
	}
	if existing != nil {
		r.checked[k] = struct{}{}
		u := FromDataModel(existing)
		if !u.IsActive {
			return nil, nil
		}
		r.remember(u)
		return u, nil
	}

	u, err := r.discover(ctx, sys, localID, observedName, observedDivisionID)
	if err != nil {
		return nil, err
	}
	r.checked[k] = struct{}{}
	r.remember(u)
	r.created++
	return u, nil
}

func (r *Resolver) discover(ctx context.Context, sys ats.System, localID, observedName string, observedDivisionID *int64) (*UserConfig, error) {
	log := logger.FromOr(ctx, r.dir.logger).With("ats", string(sys), "ats_local_id", localID)

	var title string
	if src, ok := r.dir.profiles[sys]; ok {
		t, err := src.GetTitle(ctx, localID)
		if err != nil {
			log.Warn("title lookup failed, role left unknown", "error", err)
		}
		title = t
	}

	divisionID := r.dir.defaultDivisionID
	if observedDivisionID != nil && *observedDivisionID > 0 {
		ok, err := r.knownDivision(ctx, *observedDivisionID)
		if err != nil {
			return nil, internal.NewUpstreamError(fmt.Sprintf("check division %d", *observedDivisionID), err)
		}
		if ok {
			divisionID = *observedDivisionID
		} else {
			log.Warn("observed division is not active, using default", "observed_division_id", *observedDivisionID, "division_id", divisionID)
		}
	}
	if src, ok := r.dir.departments[sys]; ok && r.dir.divisions != nil {
		if dept, err := src.GetDepartment(ctx, localID); err != nil {
			log.Warn("department lookup failed, keeping observed division", "error", err)
		} else if dept != "" {
			id, found, err := r.dir.divisions.FindActiveDivisionID(ctx, dept)
			if err != nil {
				log.Warn("department match failed", "department", dept, "error", err)
			} else if found {
				divisionID = id
			}
		}
	}

	u := NewDiscovered(sys, localID, observedName, divisionID, title)
	row := ToDataModel(u)
	if err := r.dir.repo.Create(ctx, row); err != nil {
		return nil, internal.NewUpstreamError(fmt.Sprintf("create user config for %s id %s", sys, localID), err)
	}
	created := FromDataModel(row)

	if r.dir.observer != nil {
		r.dir.observer.IdentityDiscovered(string(sys))
	}
	log.Info("discovered recruiter",
		"config_id", created.ConfigID,
		"name", created.Name,
		"role", created.Role,
		"division_id", created.DivisionID)
	return created, nil
}

func (r *Resolver) knownDivision(ctx context.Context, id int64) (bool, error) {
	if r.dir.divisions == nil {
		return true, nil
	}
	return r.dir.divisions.DivisionExists(ctx, id)
}

// Lookup reads the already-resolved map without touching storage.
func (r *Resolver) Lookup(sys ats.System, localID string) (*UserConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.resolved[key{sys, localID}]
	return u, ok
}

// Identities returns every active identity known to this run keyed by config id.
func (r *Resolver) Identities() map[int64]*UserConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]*UserConfig, len(r.byID))
	for id, u := range r.byID {
		out[id] = u
	}
	return out
}

// Created counts identities discovered by this resolver.
func (r *Resolver) Created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}
