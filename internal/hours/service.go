package hours

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/money"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/validation"
	snapshotDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/snapshot"
	"github.com/frahmantamala/recruiter-reports/internal/core/events"
	"github.com/frahmantamala/recruiter-reports/internal/core/lock"
	"github.com/frahmantamala/recruiter-reports/internal/core/metrics"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
	"github.com/google/uuid"
)

// ReasonNoHoursIdentities is returned when no active identity is on the hours report.
const ReasonNoHoursIdentities = "no active user configs are on the hours report"

// ErrNoOrderSource is returned when the Symplr mirror is disabled; shifts are
// only read from Symplr.
var ErrNoOrderSource = internal.NewConfigurationError("Hours require the Symplr mirror", internal.ErrCodeOrderSourceMissing)

type IdentityDirectory interface {
	NewResolver(ctx context.Context) (*userconfig.Resolver, error)
}

type Roster interface {
	ListActive(ctx context.Context) ([]*userconfig.UserConfig, error)
}

type Store interface {
	UpsertHours(ctx context.Context, rows []*snapshotDatamodel.WeeklyHours) error
	ReplaceHoursWeek(ctx context.Context, weekStart time.Time, rows []*snapshotDatamodel.WeeklyHours) error
	PurgeHours(ctx context.Context, before time.Time) (int64, error)
	ClearHoursWeek(ctx context.Context, weekStart time.Time) (int64, error)
	GetHoursWeek(ctx context.Context, weekStart time.Time) ([]*snapshotDatamodel.WeeklyHours, error)
	WeekLabels(ctx context.Context) (map[string]time.Time, error)
	SaveWeekLabels(ctx context.Context, labels map[string]time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	RetentionDays int
	LockTTL       time.Duration
}

type Dependencies struct {
	Identities IdentityDirectory
	Roster     Roster
	Orders     ats.OrderSource
	Store      Store
	Locker     lock.Locker
	Publisher  Publisher
	Metrics    *metrics.Reports
}

type Service struct {
	identities IdentityDirectory
	roster     Roster
	orders     ats.OrderSource
	store      Store
	locker     lock.Locker
	publisher  Publisher
	metrics    *metrics.Reports
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(deps Dependencies, cfg Config, logger *slog.Logger) *Service {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 28
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &Service{
		identities: deps.Identities,
		roster:     deps.Roster,
		orders:     deps.Orders,
		store:      deps.Store,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type RunResult struct {
	RunID       string               `json:"run_id"`
	WindowStart string               `json:"window_start"`
	WindowEnd   string               `json:"window_end"`
	Processed   int                  `json:"processed"`
	Shifts      int                  `json:"shifts"`
	Discovered  int                  `json:"discovered"`
	Cleared     []string             `json:"cleared_weeks,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Errors      []internal.UnitError `json:"errors,omitempty"`
}

type Row struct {
	ConfigID        int64            `json:"config_id"`
	CanonicalUserID string           `json:"canonical_user_id"`
	Name            string           `json:"name"`
	DivisionID      int64            `json:"division_id"`
	Buckets         [Buckets]float64 `json:"buckets"`
	Total           float64          `json:"total_hours"`
	WeeklyGoal      float64          `json:"weekly_goal"`
	GoalPct         float64          `json:"goal_pct"`
}

type Report struct {
	Label     string `json:"label"`
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Rows      []Row  `json:"rows"`
}

// weekHours accumulates one week: canonical id to bucket totals.
type weekHours struct {
	configIDs map[string]int64
	buckets   map[string]*[Buckets]float64
}

func newWeekHours() *weekHours {
	return &weekHours{
		configIDs: make(map[string]int64),
		buckets:   make(map[string]*[Buckets]float64),
	}
}

func (w *weekHours) add(u *userconfig.UserConfig, bucket int, hours float64) {
	b, ok := w.buckets[u.CanonicalUserID]
	if !ok {
		b = &[Buckets]float64{}
		w.buckets[u.CanonicalUserID] = b
	}
	b[bucket] += hours
	w.configIDs[u.CanonicalUserID] = u.ConfigID
}

func (w *weekHours) rows(weekStart time.Time) []*snapshotDatamodel.WeeklyHours {
	ids := make([]string, 0, len(w.buckets))
	for id := range w.buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows []*snapshotDatamodel.WeeklyHours
	for _, id := range ids {
		for bucket, total := range w.buckets[id] {
			if total == 0 {
				continue
			}
			rows = append(rows, &snapshotDatamodel.WeeklyHours{
				CanonicalUserID: id,
				WeekStart:       weekStart,
				DayBucket:       bucket,
				ConfigID:        w.configIDs[id],
				TotalHours:      money.Round2(total),
			})
		}
	}
	return rows
}

// CalculateAllHours recomputes the rolling window. Dates are processed one
// after another so identities discovered on one date are visible to the
// next. A week whose dates all succeeded is replaced; a week with a failed
// date only has its computed rows upserted so earlier totals survive.
func (s *Service) CalculateAllHours(ctx context.Context) (result *RunResult, err error) {
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, metrics.RunKindHours, runID)
	log := logger.FromOr(ctx, s.logger)
	started := time.Now()
	defer func() {
		var unitErrs []internal.UnitError
		if result != nil {
			unitErrs = result.Errors
		}
		s.metrics.ObserveRun(metrics.RunKindHours, started, err, unitErrs)
	}()

	if s.orders == nil {
		return nil, ErrNoOrderSource
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	window := Window(s.now())
	result = &RunResult{
		RunID:       runID,
		WindowStart: calendar.Format(window.Start()),
		WindowEnd:   calendar.Format(window.End()),
	}

	active, err := s.roster.ListActive(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("load active user configs", err)
	}
	if !anyOnHoursReport(active) {
		log.Warn("hours run skipped", "reason", ReasonNoHoursIdentities)
		result.Reason = ReasonNoHoursIdentities
		s.publish(ctx, events.NewHoursCalculatedEvent(runID, 0, 0, result.Reason))
		return result, nil
	}

	resolver, err := s.identities.NewResolver(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("hours run started", "window_start", result.WindowStart, "window_end", result.WindowEnd)

	weeks := make(map[string]*weekHours, len(window.Weeks))
	failed := make(map[string]bool)
	for _, wk := range window.Weeks {
		weeks[calendar.Format(wk.Start)] = newWeekHours()
	}

	for _, date := range window.Dates() {
		weekStart := calendar.Format(calendar.WeekStart(date))
		shifts, unitErrs := s.processDate(ctx, resolver, date, weeks[weekStart])
		result.Shifts += shifts
		if len(unitErrs) > 0 {
			result.Errors = append(result.Errors, unitErrs...)
			failed[weekStart] = true
			continue
		}
		result.Processed++
	}
	result.Discovered = resolver.Created()

	current := window.LabelMap()
	cleared, err := s.rollover(ctx, current, failed)
	if err != nil {
		result.Errors = append(result.Errors, internal.UnitError{Unit: "week labels", Err: err})
	}
	for _, wk := range cleared {
		result.Cleared = append(result.Cleared, calendar.Format(wk))
	}

	for _, wk := range window.Weeks {
		key := calendar.Format(wk.Start)
		rows := weeks[key].rows(wk.Start)
		var werr error
		if failed[key] {
			werr = s.store.UpsertHours(ctx, rows)
		} else {
			werr = s.store.ReplaceHoursWeek(ctx, wk.Start, rows)
		}
		if werr != nil {
			log.Error("failed to write hours week", "week_start", calendar.Format(wk.Start), "error", werr)
			result.Errors = append(result.Errors, internal.UnitError{Unit: "week " + calendar.Format(wk.Start), Err: werr})
		}
	}

	if _, err := s.Purge(ctx); err != nil {
		result.Errors = append(result.Errors, internal.UnitError{Unit: "hours purge", Err: err})
	}

	if err := s.store.SaveWeekLabels(ctx, current); err != nil {
		result.Errors = append(result.Errors, internal.UnitError{Unit: "week labels", Err: err})
	}

	s.publish(ctx, events.NewHoursCalculatedEvent(runID, result.Processed, len(result.Errors), ""))
	log.Info("hours run finished",
		"processed", result.Processed,
		"shifts", result.Shifts,
		"discovered", result.Discovered,
		"unit_errors", len(result.Errors),
		"duration", time.Since(started))
	return result, nil
}

func (s *Service) processDate(ctx context.Context, resolver *userconfig.Resolver, date time.Time, acc *weekHours) (int, []internal.UnitError) {
	log := logger.FromOr(ctx, s.logger).With("date", calendar.Format(date))
	unit := "date " + calendar.Format(date)

	shifts, err := s.orders.GetOrders(ctx, date, date)
	if err != nil {
		log.Error("order query failed", "error", err)
		return 0, []internal.UnitError{{Unit: unit, Err: internal.NewUpstreamError("fetch orders", err)}}
	}

	var errs []internal.UnitError
	bucket := DayBucket(date)
	for _, shift := range shifts {
		u, err := resolver.ResolveOrCreate(ctx, ats.Symplr, shift.SpecialistID, shift.SpecialistName, shift.DivisionID)
		if err != nil {
			errs = append(errs, internal.UnitError{Unit: fmt.Sprintf("%s order %s", unit, shift.OrderID), Err: err})
			continue
		}
		if u == nil {
			continue
		}

		hours := WorkedHours(shift)
		if hours < 0 {
			log.Warn("negative worked hours clamped to zero",
				"order_id", shift.OrderID,
				"shift_start", shift.ShiftStart,
				"shift_end", shift.ShiftEnd,
				"hours", hours)
			hours = 0
		}
		acc.add(u, bucket, hours)
	}
	return len(shifts), errs
}

// rollover clears weeks that moved under a new label since the last run and
// will not be fully replaced by this one, so stale totals never show under
// the new label.
func (s *Service) rollover(ctx context.Context, current map[string]time.Time, failed map[string]bool) ([]time.Time, error) {
	previous, err := s.store.WeekLabels(ctx)
	if err != nil {
		return nil, err
	}

	var cleared []time.Time
	for _, label := range Labels {
		prev, seen := previous[label]
		week := current[label]
		if !seen || prev.Equal(week) || !failed[calendar.Format(week)] {
			continue
		}
		if _, err := s.store.ClearHoursWeek(ctx, week); err != nil {
			return cleared, fmt.Errorf("clear week %s: %w", calendar.Format(week), err)
		}
		s.logger.Info("cleared relabeled hours week", "label", label, "week_start", calendar.Format(week))
		cleared = append(cleared, week)
	}
	return cleared, nil
}

// Purge drops hours rows older than the retention window.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	cutoff := calendar.AddDays(s.now(), -s.cfg.RetentionDays)
	n, err := s.store.PurgeHours(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge hours snapshots", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged hours snapshots", "before", calendar.Format(cutoff), "rows", n)
	}
	return n, nil
}

// GetHoursReport reads one labeled week for every active identity on the
// hours report.
func (s *Service) GetHoursReport(ctx context.Context, label string) (*Report, error) {
	v := validation.NewValidator()
	v.Field("week", label).Required().OneOf(Labels, internal.ErrCodeInvalidWeek)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	weekStart, _ := Window(s.now()).Week(label)

	stored, err := s.store.GetHoursWeek(ctx, weekStart)
	if err != nil {
		return nil, internal.NewUpstreamError("load hours week", err)
	}
	byUser := make(map[string][]*snapshotDatamodel.WeeklyHours)
	for _, row := range stored {
		byUser[row.CanonicalUserID] = append(byUser[row.CanonicalUserID], row)
	}

	active, err := s.roster.ListActive(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("load active user configs", err)
	}

	report := &Report{
		Label:     label,
		WeekStart: calendar.Format(weekStart),
		WeekEnd:   calendar.Format(calendar.WeekEnd(weekStart)),
		Rows:      []Row{},
	}
	for _, u := range active {
		if !u.OnHoursReport {
			continue
		}
		row := Row{
			ConfigID:        u.ConfigID,
			CanonicalUserID: u.CanonicalUserID,
			Name:            u.Name,
			DivisionID:      u.DivisionID,
			WeeklyGoal:      u.WeeklyGoal,
		}
		var total float64
		for _, h := range byUser[u.CanonicalUserID] {
			if h.DayBucket < 0 || h.DayBucket >= Buckets {
				continue
			}
			row.Buckets[h.DayBucket] += h.TotalHours
			total += h.TotalHours
		}
		row.Total = money.Round2(total)
		row.GoalPct = money.Round2(money.Percent(row.Total, row.WeeklyGoal))
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	key := lock.HoursKey()
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn("lock backend unavailable, running unguarded", "key", key, "error", err)
		return noop, nil
	}
	if !ok {
		s.metrics.RunSkipped(metrics.RunKindHours)
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

func anyOnHoursReport(identities []*userconfig.UserConfig) bool {
	for _, u := range identities {
		if u.OnHoursReport {
			return true
		}
	}
	return false
}
