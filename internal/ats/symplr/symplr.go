// Package symplr reads placements, specialist titles and filled orders from
// the Symplr reporting mirror.
package symplr

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

const (
	placementsQuery = `
SELECT o.staffing_specialist_id AS specialist_id,
       s.full_name AS full_name,
       s.division_id AS division_id,
       COUNT(DISTINCT o.candidate_id) AS head_count,
       COALESCE(SUM(o.total_bill_amount), 0) AS total_bill,
       COALESCE(SUM(o.total_pay_amount), 0) AS total_pay
FROM orders o
JOIN staffing_specialists s ON s.specialist_id = o.staffing_specialist_id
WHERE o.status = 'filled'
  AND o.shift_date >= ? AND o.shift_date <= ?
GROUP BY o.staffing_specialist_id, s.full_name, s.division_id
ORDER BY o.staffing_specialist_id`

	titleQuery = `SELECT COALESCE(title, '') FROM staffing_specialists WHERE specialist_id = ?`

	ordersQuery = `
SELECT o.order_id AS order_id,
       o.staffing_specialist_id AS specialist_id,
       s.full_name AS full_name,
       s.division_id AS division_id,
       o.shift_date AS shift_date,
       o.shift_start AS shift_start,
       o.shift_end AS shift_end,
       COALESCE(c.default_lunch_minutes, 0) AS client_lunch_minutes,
       o.lunch_minutes AS order_lunch_minutes
FROM orders o
JOIN staffing_specialists s ON s.specialist_id = o.staffing_specialist_id
LEFT JOIN clients c ON c.client_id = o.client_id
WHERE o.status = 'filled'
  AND o.shift_date >= ? AND o.shift_date <= ?
ORDER BY o.shift_date, o.order_id`
)

type placementRow struct {
	SpecialistID string        `db:"specialist_id"`
	FullName     string        `db:"full_name"`
	DivisionID   sql.NullInt64 `db:"division_id"`
	HeadCount    int           `db:"head_count"`
	TotalBill    float64       `db:"total_bill"`
	TotalPay     float64       `db:"total_pay"`
}

type orderRow struct {
	OrderID            string        `db:"order_id"`
	SpecialistID       string        `db:"specialist_id"`
	FullName           string        `db:"full_name"`
	DivisionID         sql.NullInt64 `db:"division_id"`
	ShiftDate          time.Time     `db:"shift_date"`
	ShiftStart         time.Time     `db:"shift_start"`
	ShiftEnd           time.Time     `db:"shift_end"`
	ClientLunchMinutes int           `db:"client_lunch_minutes"`
	OrderLunchMinutes  sql.NullInt64 `db:"order_lunch_minutes"`
}

type Client struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	logger       *slog.Logger
}

func NewClient(db *sqlx.DB, queryTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		db:           db,
		queryTimeout: queryTimeout,
		logger:       logger.With("ats", string(ats.Symplr)),
	}
}

func (c *Client) System() ats.System {
	return ats.Symplr
}

// GetPlacements sums filled orders per staffing specialist for the inclusive
// date range.
func (c *Client) GetPlacements(ctx context.Context, weekStart, weekEnd time.Time) ([]ats.PlacementFact, error) {
	qctx, cancel := ats.QueryContext(ctx, c.queryTimeout)
	defer cancel()

	var rows []placementRow
	err := c.db.SelectContext(qctx, &rows, c.db.Rebind(placementsQuery),
		calendar.Format(weekStart), calendar.Format(weekEnd))
	if err != nil {
		return nil, fmt.Errorf("symplr placements: %w", err)
	}

	facts := make([]ats.PlacementFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, ats.PlacementFact{
			System:     ats.Symplr,
			LocalID:    row.SpecialistID,
			Name:       strings.TrimSpace(row.FullName),
			DivisionID: nullableID(row.DivisionID),
			HeadCount:  row.HeadCount,
			TotalBill:  row.TotalBill,
			TotalPay:   row.TotalPay,
		})
	}

	c.logger.Debug("fetched placements", "week_start", calendar.Format(weekStart), "recruiters", len(facts))
	return facts, nil
}

func (c *Client) GetTitle(ctx context.Context, localID string) (string, error) {
	qctx, cancel := ats.QueryContext(ctx, c.queryTimeout)
	defer cancel()

	var title string
	err := c.db.GetContext(qctx, &title, c.db.Rebind(titleQuery), localID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("symplr title for %s: %w", localID, err)
	}
	return strings.TrimSpace(title), nil
}

// GetOrders returns filled orders whose shift date falls in the inclusive range.
func (c *Client) GetOrders(ctx context.Context, dateStart, dateEnd time.Time) ([]ats.ShiftFact, error) {
	qctx, cancel := ats.QueryContext(ctx, c.queryTimeout)
	defer cancel()

	var rows []orderRow
	err := c.db.SelectContext(qctx, &rows, c.db.Rebind(ordersQuery),
		calendar.Format(dateStart), calendar.Format(dateEnd))
	if err != nil {
		return nil, fmt.Errorf("symplr orders: %w", err)
	}

	facts := make([]ats.ShiftFact, 0, len(rows))
	for _, row := range rows {
		fact := ats.ShiftFact{
			OrderID:            row.OrderID,
			SpecialistID:       row.SpecialistID,
			SpecialistName:     strings.TrimSpace(row.FullName),
			DivisionID:         nullableID(row.DivisionID),
			ShiftDate:          calendar.Date(row.ShiftDate),
			ShiftStart:         row.ShiftStart,
			ShiftEnd:           row.ShiftEnd,
			ClientLunchMinutes: row.ClientLunchMinutes,
		}
		if row.OrderLunchMinutes.Valid {
			m := int(row.OrderLunchMinutes.Int64)
			fact.OrderLunchMinutes = &m
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
