package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run report computations from the command line",
	Long:  `Compute rankings, financials and hours, or prune expired snapshots. Results are printed as JSON.`,
}

var (
	reportWeekStart string
	reportWeekEnd   string
	reportLabel     string
)

var rankingReportCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Compute and store the stack ranking of a week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd, func(ctx context.Context, deps *Dependencies) (interface{}, error) {
			start, end, err := reportWeek(time.Now())
			if err != nil {
				return nil, err
			}
			return deps.Ranking.CalculateRanking(ctx, start, end)
		})
	},
}

var financialsReportCmd = &cobra.Command{
	Use:   "financials",
	Short: "Compute financials of every active recruiter without storing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd, func(ctx context.Context, deps *Dependencies) (interface{}, error) {
			start, end, err := reportWeek(time.Now())
			if err != nil {
				return nil, err
			}
			return deps.Ranking.GetFinancials(ctx, start, end)
		})
	},
}

var hoursReportCmd = &cobra.Command{
	Use:   "hours",
	Short: "Recompute worked hours for last, this and next week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd, func(ctx context.Context, deps *Dependencies) (interface{}, error) {
			if reportLabel != "" {
				return deps.Hours.GetHoursReport(ctx, reportLabel)
			}
			return deps.Hours.CalculateAllHours(ctx)
		})
	},
}

type pruneResult struct {
	RankingRows int64 `json:"ranking_rows"`
	HoursRows   int64 `json:"hours_rows"`
}

var pruneReportCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete ranking and hours snapshots past retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd, func(ctx context.Context, deps *Dependencies) (interface{}, error) {
			ranking, err := deps.Ranking.Prune(ctx)
			if err != nil {
				return nil, err
			}
			hoursRows, err := deps.Hours.Purge(ctx)
			if err != nil {
				return nil, err
			}
			return pruneResult{RankingRows: ranking, HoursRows: hoursRows}, nil
		})
	},
}

// reportWeek resolves the flags to a week, defaulting to the last completed
// one. A start without an end covers seven days.
func reportWeek(now time.Time) (time.Time, time.Time, error) {
	start := calendar.AddDays(calendar.WeekStart(now), -7)
	if reportWeekStart != "" {
		t, err := calendar.Parse(reportWeekStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--week-start: %w", err)
		}
		start = t
	}
	end := calendar.WeekEnd(start)
	if reportWeekEnd != "" {
		t, err := calendar.Parse(reportWeekEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--week-end: %w", err)
		}
		end = t
	}
	return start, end, nil
}

func withDependencies(cmd *cobra.Command, run func(ctx context.Context, deps *Dependencies) (interface{}, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	result, err := run(ctx, deps)

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := deps.Bus.Wait(waitCtx); werr != nil {
		deps.Logger.Warn("event deliveries still running at exit", "error", werr)
	}

	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	for _, c := range []*cobra.Command{rankingReportCmd, financialsReportCmd} {
		c.Flags().StringVar(&reportWeekStart, "week-start", "", "Sunday opening the week (YYYY-MM-DD), defaults to the last completed week")
		c.Flags().StringVar(&reportWeekEnd, "week-end", "", "last day of the range (YYYY-MM-DD), defaults to week-start plus six days")
	}
	hoursReportCmd.Flags().StringVar(&reportLabel, "show", "", "print the stored report for last, this or next instead of recomputing")

	reportCmd.AddCommand(rankingReportCmd)
	reportCmd.AddCommand(financialsReportCmd)
	reportCmd.AddCommand(hoursReportCmd)
	reportCmd.AddCommand(pruneReportCmd)
}
