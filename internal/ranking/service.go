package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/validation"
	snapshotDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/snapshot"
	"github.com/frahmantamala/recruiter-reports/internal/core/events"
	"github.com/frahmantamala/recruiter-reports/internal/core/lock"
	"github.com/frahmantamala/recruiter-reports/internal/core/metrics"
	"github.com/frahmantamala/recruiter-reports/internal/division"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type DivisionProvider interface {
	Router(ctx context.Context) (*division.Router, error)
	Names(ctx context.Context) (map[int64]string, error)
}

type IdentityDirectory interface {
	NewResolver(ctx context.Context) (*userconfig.Resolver, error)
}

type SnapshotStore interface {
	SaveWeek(ctx context.Context, weekStart time.Time, rows []*snapshotDatamodel.WeeklyRanking) error
	GetWeek(ctx context.Context, weekStart time.Time) ([]*snapshotDatamodel.WeeklyRanking, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	History(ctx context.Context, canonicalUserID string, since time.Time) ([]*snapshotDatamodel.WeeklyRanking, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	RetentionWeeks int
	LockTTL        time.Duration
}

// Dependencies wires the ranking service. Locker, Publisher and Metrics are optional.
type Dependencies struct {
	Divisions  DivisionProvider
	Identities IdentityDirectory
	Sources    []ats.PlacementSource
	Store      SnapshotStore
	Locker     lock.Locker
	Publisher  Publisher
	Metrics    *metrics.Reports
}

type Service struct {
	divisions  DivisionProvider
	identities IdentityDirectory
	sources    map[ats.System]ats.PlacementSource
	store      SnapshotStore
	locker     lock.Locker
	publisher  Publisher
	metrics    *metrics.Reports
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(deps Dependencies, cfg Config, logger *slog.Logger) *Service {
	if cfg.RetentionWeeks <= 0 {
		cfg.RetentionWeeks = 12
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	sources := make(map[ats.System]ats.PlacementSource, len(deps.Sources))
	for _, src := range deps.Sources {
		sources[src.System()] = src
	}
	return &Service{
		divisions:  deps.Divisions,
		identities: deps.Identities,
		sources:    sources,
		store:      deps.Store,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the service clock; used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type Report struct {
	RunID      string               `json:"run_id,omitempty"`
	WeekStart  string               `json:"week_start"`
	WeekEnd    string               `json:"week_end"`
	Rows       []RankedRow          `json:"rows"`
	Totals     Totals               `json:"totals"`
	Discovered int                  `json:"discovered"`
	Errors     []internal.UnitError `json:"errors,omitempty"`
}

type FinancialsReport struct {
	RunID      string               `json:"run_id"`
	WeekStart  string               `json:"week_start"`
	WeekEnd    string               `json:"week_end"`
	Rows       []Row                `json:"rows"`
	Totals     Totals               `json:"totals"`
	Discovered int                  `json:"discovered"`
	Errors     []internal.UnitError `json:"errors,omitempty"`
}

type HistoryPoint struct {
	WeekStart          string  `json:"week_start"`
	Rank               int     `json:"rank"`
	HeadCount          int     `json:"head_count"`
	GrossMarginDollars float64 `json:"gross_margin_dollars"`
	GrossProfitPct     float64 `json:"gross_profit_pct"`
	Revenue            float64 `json:"revenue"`
}

// collection is everything gathered for one week before rows are built.
type collection struct {
	aggregates *Aggregates
	identities map[int64]*userconfig.UserConfig
	names      map[int64]string
	discovered int
	errors     []internal.UnitError
}

// CalculateRanking computes the stack ranking of weekStart..weekEnd,
// diffs it against last week's snapshot and replaces this week's snapshot.
// Per-ATS and per-fact failures are returned in Report.Errors; setup
// failures abort the run.
func (s *Service) CalculateRanking(ctx context.Context, weekStart, weekEnd time.Time) (report *Report, err error) {
	weekStart, weekEnd = calendar.Date(weekStart), calendar.Date(weekEnd)
	if appErr := validation.ValidateWeek(weekStart, weekEnd); appErr != nil {
		return nil, appErr
	}

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, metrics.RunKindRanking, runID)
	log := logger.FromOr(ctx, s.logger)
	started := time.Now()
	defer func() {
		var unitErrs []internal.UnitError
		if report != nil {
			unitErrs = report.Errors
		}
		s.metrics.ObserveRun(metrics.RunKindRanking, started, err, unitErrs)
	}()

	release, err := s.acquire(ctx, lock.RankingKey(weekStart))
	if err != nil {
		return nil, err
	}
	defer release()

	log.Info("ranking run started", "week_start", calendar.Format(weekStart), "week_end", calendar.Format(weekEnd))

	col, err := s.collect(ctx, weekStart, weekEnd)
	if err != nil {
		log.Error("ranking run aborted", "error", err)
		return nil, err
	}

	rows := BuildRows(col.aggregates, col.identities, col.names, true)

	prior, err := s.priorRanks(ctx, weekStart.AddDate(0, 0, -7))
	if err != nil {
		col.errors = append(col.errors, internal.UnitError{Unit: "prior week snapshot", Err: err})
		log.Warn("prior week unavailable, rank changes omitted", "error", err)
	}
	ranked := Rank(rows, prior)

	report = &Report{
		RunID:      runID,
		WeekStart:  calendar.Format(weekStart),
		WeekEnd:    calendar.Format(weekEnd),
		Rows:       ranked,
		Totals:     ComputeTotals(rows),
		Discovered: col.discovered,
	}

	saveStarted := time.Now()
	if err := s.store.SaveWeek(ctx, weekStart, toSnapshots(weekStart, ranked)); err != nil {
		col.errors = append(col.errors, internal.UnitError{Unit: "snapshot save", Err: err})
		log.Error("failed to save ranking snapshot", "error", err)
	}
	s.metrics.ObserveSnapshotWrite(metrics.RunKindRanking, saveStarted)

	if _, err := s.Prune(ctx); err != nil {
		col.errors = append(col.errors, internal.UnitError{Unit: "snapshot prune", Err: err})
	}

	report.Errors = col.errors
	s.metrics.SetRankedRows(len(ranked))
	s.publish(ctx, events.NewRankingCalculatedEvent(runID, weekStart, len(ranked), col.discovered, len(col.errors), report.Totals.GrossMarginDollars))

	log.Info("ranking run finished",
		"rows", len(ranked),
		"discovered", col.discovered,
		"unit_errors", len(col.errors),
		"duration", time.Since(started))
	return report, nil
}

// GetFinancials reports every active identity's financials for an arbitrary
// date range, including identities opted out of the ranking. Nothing is
// ranked or persisted.
func (s *Service) GetFinancials(ctx context.Context, start, end time.Time) (report *FinancialsReport, err error) {
	start, end = calendar.Date(start), calendar.Date(end)
	v := validation.NewValidator()
	v.Field("week_start", start).Required()
	v.Field("week_end", end).Required().Custom(func(value interface{}) *internal.AppError {
		if end.Before(start) {
			return internal.NewValidationFieldError("week_end", "week_end must not precede week_start", internal.ErrCodeInvalidWeek)
		}
		return nil
	})
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, metrics.RunKindFinancials, runID)
	started := time.Now()
	defer func() {
		var unitErrs []internal.UnitError
		if report != nil {
			unitErrs = report.Errors
		}
		s.metrics.ObserveRun(metrics.RunKindFinancials, started, err, unitErrs)
	}()

	col, err := s.collect(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rows := BuildRows(col.aggregates, col.identities, col.names, false)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DivisionName != rows[j].DivisionName {
			return rows[i].DivisionName < rows[j].DivisionName
		}
		return rows[i].GrossMarginDollars > rows[j].GrossMarginDollars
	})

	return &FinancialsReport{
		RunID:      runID,
		WeekStart:  calendar.Format(start),
		WeekEnd:    calendar.Format(end),
		Rows:       rows,
		Totals:     ComputeTotals(rows),
		Discovered: col.discovered,
		Errors:     col.errors,
	}, nil
}

// GetWeek reads a stored ranking and diffs it against the week before.
func (s *Service) GetWeek(ctx context.Context, weekStart time.Time) (*Report, error) {
	weekStart = calendar.Date(weekStart)
	if !calendar.IsSunday(weekStart) {
		return nil, internal.ErrInvalidWeek
	}

	stored, err := s.store.GetWeek(ctx, weekStart)
	if err != nil {
		return nil, internal.NewUpstreamError("load ranking snapshot", err)
	}
	prior, err := s.priorRanks(ctx, weekStart.AddDate(0, 0, -7))
	if err != nil {
		return nil, internal.NewUpstreamError("load prior ranking snapshot", err)
	}

	ranked := make([]RankedRow, 0, len(stored))
	for _, snap := range stored {
		r := RankedRow{Row: fromSnapshot(snap), Rank: snap.Rank}
		if p, ok := prior[snap.CanonicalUserID]; ok {
			priorRank := p
			change := p - snap.Rank
			r.PriorWeekRank = &priorRank
			r.RankChange = &change
		}
		ranked = append(ranked, r)
	}

	return &Report{
		WeekStart: calendar.Format(weekStart),
		WeekEnd:   calendar.Format(calendar.WeekEnd(weekStart)),
		Rows:      ranked,
		Totals:    ComputeTotals(rowsOf(ranked)),
	}, nil
}

// History returns up to weeks of stored rankings for one identity, oldest first.
func (s *Service) History(ctx context.Context, canonicalUserID string, weeks int) ([]HistoryPoint, error) {
	if weeks <= 0 || weeks > s.cfg.RetentionWeeks {
		weeks = s.cfg.RetentionWeeks
	}
	since := calendar.WeekStart(s.now()).AddDate(0, 0, -7*(weeks-1))

	stored, err := s.store.History(ctx, canonicalUserID, since)
	if err != nil {
		return nil, internal.NewUpstreamError("load ranking history", err)
	}
	points := make([]HistoryPoint, 0, len(stored))
	for _, snap := range stored {
		points = append(points, HistoryPoint{
			WeekStart:          calendar.Format(snap.WeekStart),
			Rank:               snap.Rank,
			HeadCount:          snap.HeadCount,
			GrossMarginDollars: snap.GrossMarginDollars,
			GrossProfitPct:     snap.GrossProfitPct,
			Revenue:            snap.Revenue,
		})
	}
	return points, nil
}

// Prune drops ranking snapshots older than the retention window.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	cutoff := calendar.WeekStart(s.now()).AddDate(0, 0, -7*s.cfg.RetentionWeeks)
	n, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune ranking snapshots", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned ranking snapshots", "before", calendar.Format(cutoff), "rows", n)
	}
	return n, nil
}

func (s *Service) collect(ctx context.Context, start, end time.Time) (*collection, error) {
	router, err := s.divisions.Router(ctx)
	if err != nil {
		return nil, err
	}

	facts, errs := s.fetch(ctx, router, start, end)
	facts = ownedFacts(facts, router)

	resolver, err := s.identities.NewResolver(ctx)
	if err != nil {
		return nil, err
	}
	for _, fact := range facts {
		if _, err := resolver.ResolveOrCreate(ctx, fact.System, fact.LocalID, fact.Name, fact.DivisionID); err != nil {
			errs = append(errs, internal.UnitError{Unit: "placement " + fact.Key(), Err: err})
		}
	}

	names, err := s.divisions.Names(ctx)
	if err != nil {
		return nil, err
	}

	return &collection{
		aggregates: Aggregate(facts, resolver.Lookup, router),
		identities: resolver.Identities(),
		names:      names,
		discovered: resolver.Created(),
		errors:     errs,
	}, nil
}

// fetch queries every routed ATS concurrently. A failing system is recorded
// and the others still contribute. Facts come back grouped by system in a
// fixed order.
func (s *Service) fetch(ctx context.Context, router *division.Router, start, end time.Time) ([]ats.PlacementFact, []internal.UnitError) {
	systems := router.Systems()
	results := make([][]ats.PlacementFact, len(systems))

	var (
		mu   sync.Mutex
		errs []internal.UnitError
	)
	record := func(sys ats.System, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, internal.UnitError{Unit: "ats " + string(sys), Err: err})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, sys := range systems {
		i, sys := i, sys
		src, ok := s.sources[sys]
		if !ok {
			record(sys, fmt.Errorf("no placement source configured"))
			continue
		}
		g.Go(func() error {
			facts, err := src.GetPlacements(gctx, start, end)
			if err != nil {
				record(sys, internal.NewUpstreamError("fetch placements", err))
				logger.FromOr(ctx, s.logger).Error("placement query failed", "ats", string(sys), "error", err)
				return nil
			}
			results[i] = facts
			return nil
		})
	}
	_ = g.Wait()

	var all []ats.PlacementFact
	for _, facts := range results {
		all = append(all, facts...)
	}
	return all, errs
}

// ownedFacts drops facts filed under a division their system does not own,
// so they never reach discovery. Facts without a division are checked
// against the identity's division during aggregation.
func ownedFacts(facts []ats.PlacementFact, router *division.Router) []ats.PlacementFact {
	out := make([]ats.PlacementFact, 0, len(facts))
	for _, fact := range facts {
		if fact.DivisionID != nil && !router.Owns(fact.System, *fact.DivisionID) {
			continue
		}
		out = append(out, fact)
	}
	return out
}

func (s *Service) priorRanks(ctx context.Context, weekStart time.Time) (map[string]int, error) {
	stored, err := s.store.GetWeek(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	prior := make(map[string]int, len(stored))
	for _, snap := range stored {
		prior[snap.CanonicalUserID] = snap.Rank
	}
	return prior, nil
}

// acquire takes the week lease when a locker is configured. A lock backend
// failure is logged and the run proceeds unguarded.
func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn("lock backend unavailable, running unguarded", "key", key, "error", err)
		return noop, nil
	}
	if !ok {
		s.metrics.RunSkipped(metrics.RunKindRanking)
		return nil, internal.ErrWeekLocked
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func toSnapshots(weekStart time.Time, ranked []RankedRow) []*snapshotDatamodel.WeeklyRanking {
	out := make([]*snapshotDatamodel.WeeklyRanking, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, &snapshotDatamodel.WeeklyRanking{
			WeekStart:          weekStart,
			CanonicalUserID:    r.CanonicalUserID,
			ConfigID:           r.ConfigID,
			Name:               r.Name,
			DivisionName:       r.DivisionName,
			HeadCount:          r.HeadCount,
			GrossMarginDollars: r.GrossMarginDollars,
			GrossProfitPct:     r.GrossProfitPct,
			Revenue:            r.Revenue,
			Rank:               r.Rank,
		})
	}
	return out
}

func fromSnapshot(s *snapshotDatamodel.WeeklyRanking) Row {
	return Row{
		ConfigID:           s.ConfigID,
		CanonicalUserID:    s.CanonicalUserID,
		Name:               s.Name,
		DivisionName:       s.DivisionName,
		HeadCount:          s.HeadCount,
		GrossMarginDollars: s.GrossMarginDollars,
		GrossProfitPct:     s.GrossProfitPct,
		Revenue:            s.Revenue,
	}
}
