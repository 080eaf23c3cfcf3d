package ranking

import (
	"sort"

	"github.com/frahmantamala/recruiter-reports/internal/core/common/money"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
)

// Row is one identity's financials for a week. Money and percentages are
// rounded to cents.
type Row struct {
	ConfigID           int64   `json:"config_id"`
	CanonicalUserID    string  `json:"canonical_user_id"`
	Name               string  `json:"name"`
	DivisionID         int64   `json:"division_id"`
	DivisionName       string  `json:"division_name"`
	HeadCount          int     `json:"head_count"`
	GrossMarginDollars float64 `json:"gross_margin_dollars"`
	GrossProfitPct     float64 `json:"gross_profit_pct"`
	Revenue            float64 `json:"revenue"`
}

type RankedRow struct {
	Row
	Rank          int  `json:"rank"`
	PriorWeekRank *int `json:"prior_week_rank"`
	// RankChange is prior minus current; positive means the recruiter moved up.
	RankChange *int `json:"rank_change"`
}

type Totals struct {
	HeadCount          int     `json:"total_head_count"`
	GrossMarginDollars float64 `json:"total_gm_dollars"`
	Revenue            float64 `json:"total_revenue"`
	OverallGPPct       float64 `json:"overall_gp_pct"`
}

// NewRow derives revenue, gross margin and gross profit percentage from full
// precision sums, rounding only the results.
func NewRow(acc *Accumulator, u *userconfig.UserConfig, divisionName string) Row {
	gm := acc.TotalBill - acc.TotalPay
	return Row{
		ConfigID:           u.ConfigID,
		CanonicalUserID:    u.CanonicalUserID,
		Name:               u.Name,
		DivisionID:         u.DivisionID,
		DivisionName:       divisionName,
		HeadCount:          acc.HeadCount,
		GrossMarginDollars: money.Round2(gm),
		GrossProfitPct:     money.Round2(money.Percent(gm, acc.TotalBill)),
		Revenue:            money.Round2(acc.TotalBill),
	}
}

// BuildRows turns aggregates into rows in insertion order. With
// rankingOnly set, identities opted out of the stack ranking are skipped.
func BuildRows(agg *Aggregates, identities map[int64]*userconfig.UserConfig, divisionNames map[int64]string, rankingOnly bool) []Row {
	rows := make([]Row, 0, agg.Len())
	agg.Each(func(acc *Accumulator) {
		u, ok := identities[acc.ConfigID]
		if !ok {
			return
		}
		if rankingOnly && !u.OnStackRanking {
			return
		}
		rows = append(rows, NewRow(acc, u, divisionNames[u.DivisionID]))
	})
	return rows
}

// Rank sorts rows by gross margin descending and numbers them 1..N. Ties
// fall back to canonical_user_id, then config_id, so the order is stable
// across runs. prior maps canonical_user_id to last week's rank.
func Rank(rows []Row, prior map[string]int) []RankedRow {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.GrossMarginDollars != b.GrossMarginDollars {
			return a.GrossMarginDollars > b.GrossMarginDollars
		}
		if a.CanonicalUserID != b.CanonicalUserID {
			return a.CanonicalUserID < b.CanonicalUserID
		}
		return a.ConfigID < b.ConfigID
	})

	ranked := make([]RankedRow, len(sorted))
	for i, row := range sorted {
		r := RankedRow{Row: row, Rank: i + 1}
		if p, ok := prior[row.CanonicalUserID]; ok {
			priorRank := p
			change := p - r.Rank
			r.PriorWeekRank = &priorRank
			r.RankChange = &change
		}
		ranked[i] = r
	}
	return ranked
}

// ComputeTotals sums the already rounded row values and rounds again.
func ComputeTotals(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		t.HeadCount += r.HeadCount
		t.GrossMarginDollars += r.GrossMarginDollars
		t.Revenue += r.Revenue
	}
	t.GrossMarginDollars = money.Round2(t.GrossMarginDollars)
	t.Revenue = money.Round2(t.Revenue)
	t.OverallGPPct = money.Round2(money.Percent(t.GrossMarginDollars, t.Revenue))
	return t
}

func rowsOf(ranked []RankedRow) []Row {
	rows := make([]Row, len(ranked))
	for i, r := range ranked {
		rows[i] = r.Row
	}
	return rows
}
