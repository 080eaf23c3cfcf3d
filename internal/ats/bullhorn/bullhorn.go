// Package bullhorn reads active placements and corporate user profiles from
// the Bullhorn reporting mirror. Bullhorn carries rates rather than totals, so
// weekly amounts are derived from the weekdays a placement is active.
package bullhorn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/jmoiron/sqlx"
)

// ActiveStatuses are the placement statuses that count toward a week.
var ActiveStatuses = []string{"Started", "Approved", "Completed", "Cleared"}

const (
	placementsQuery = `
SELECT p.placement_id AS placement_id,
       p.candidate_id AS candidate_id,
       p.recruiter_user_id AS recruiter_user_id,
       u.full_name AS full_name,
       u.division_id AS division_id,
       p.date_begin AS date_begin,
       p.date_end AS date_end,
       COALESCE(p.client_bill_rate, 0) AS bill_rate,
       COALESCE(p.pay_rate, 0) AS pay_rate,
       p.hours_per_day AS hours_per_day
FROM placements p
JOIN corporate_users u ON u.user_id = p.recruiter_user_id
WHERE p.status IN (?)
  AND p.date_begin <= ?
  AND (p.date_end IS NULL OR p.date_end >= ?)
ORDER BY p.recruiter_user_id, p.placement_id`

	titleQuery      = `SELECT COALESCE(occupation, '') FROM corporate_users WHERE user_id = ?`
	departmentQuery = `SELECT COALESCE(department_name, '') FROM corporate_users WHERE user_id = ?`
)

type placementRow struct {
	PlacementID     string          `db:"placement_id"`
	CandidateID     string          `db:"candidate_id"`
	RecruiterUserID string          `db:"recruiter_user_id"`
	FullName        string          `db:"full_name"`
	DivisionID      sql.NullInt64   `db:"division_id"`
	DateBegin       time.Time       `db:"date_begin"`
	DateEnd         sql.NullTime    `db:"date_end"`
	BillRate        float64         `db:"bill_rate"`
	PayRate         float64         `db:"pay_rate"`
	HoursPerDay     sql.NullFloat64 `db:"hours_per_day"`
}

type Client struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	hoursPerDay  float64
	logger       *slog.Logger
}

func NewClient(db *sqlx.DB, queryTimeout time.Duration, hoursPerDay float64, logger *slog.Logger) *Client {
	if hoursPerDay <= 0 {
		hoursPerDay = 8
	}
	return &Client{
		db:           db,
		queryTimeout: queryTimeout,
		hoursPerDay:  hoursPerDay,
		logger:       logger.With("ats", string(ats.Bullhorn)),
	}
}

func (c *Client) System() ats.System {
	return ats.Bullhorn
}

// GetPlacements derives weekly bill and pay per recruiter from placements
// overlapping the week. Each placement contributes rate x hours per day x
// active weekdays; placements with no weekday in the week are skipped.
func (c *Client) GetPlacements(ctx context.Context, weekStart, weekEnd time.Time) ([]ats.PlacementFact, error) {
	query, args, err := sqlx.In(placementsQuery, ActiveStatuses,
		calendar.Format(weekEnd), calendar.Format(weekStart))
	if err != nil {
		return nil, fmt.Errorf("bullhorn placements: %w", err)
	}

	qctx, cancel := ats.QueryContext(ctx, c.queryTimeout)
	defer cancel()

	var rows []placementRow
	if err := c.db.SelectContext(qctx, &rows, c.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("bullhorn placements: %w", err)
	}

	var (
		order      []string
		byRecruit  = make(map[string]*ats.PlacementFact)
		candidates = make(map[string]map[string]struct{})
	)
	for _, row := range rows {
		var end *time.Time
		if row.DateEnd.Valid {
			end = &row.DateEnd.Time
		}
		from, to, ok := Clamp(row.DateBegin, end, weekStart, weekEnd)
		if !ok {
			continue
		}
		days := Weekdays(from, to)
		if days == 0 {
			continue
		}

		hours := c.hoursPerDay
		if row.HoursPerDay.Valid && row.HoursPerDay.Float64 > 0 {
			hours = row.HoursPerDay.Float64
		}

		fact, exists := byRecruit[row.RecruiterUserID]
		if !exists {
			fact = &ats.PlacementFact{
				System:  ats.Bullhorn,
				LocalID: row.RecruiterUserID,
				Name:    strings.TrimSpace(row.FullName),
			}
			if row.DivisionID.Valid {
				id := row.DivisionID.Int64
				fact.DivisionID = &id
			}
			byRecruit[row.RecruiterUserID] = fact
			candidates[row.RecruiterUserID] = make(map[string]struct{})
			order = append(order, row.RecruiterUserID)
		}

		fact.TotalBill += row.BillRate * hours * float64(days)
		fact.TotalPay += row.PayRate * hours * float64(days)
		candidates[row.RecruiterUserID][row.CandidateID] = struct{}{}
	}

	facts := make([]ats.PlacementFact, 0, len(order))
	for _, id := range order {
		fact := byRecruit[id]
		fact.HeadCount = len(candidates[id])
		facts = append(facts, *fact)
	}

	c.logger.Debug("fetched placements",
		"week_start", calendar.Format(weekStart),
		"placements", len(rows),
		"recruiters", len(facts))
	return facts, nil
}

func (c *Client) GetTitle(ctx context.Context, localID string) (string, error) {
	return c.lookup(ctx, titleQuery, localID, "title")
}

// GetDepartment returns the recruiter's department name, which is matched
// against division names during identity discovery.
func (c *Client) GetDepartment(ctx context.Context, localID string) (string, error) {
	return c.lookup(ctx, departmentQuery, localID, "department")
}

func (c *Client) lookup(ctx context.Context, query, localID, what string) (string, error) {
	qctx, cancel := ats.QueryContext(ctx, c.queryTimeout)
	defer cancel()

	var value string
	if err := c.db.GetContext(qctx, &value, c.db.Rebind(query), localID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("bullhorn %s for %s: %w", what, localID, err)
	}
	return strings.TrimSpace(value), nil
}
