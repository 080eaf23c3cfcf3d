package ranking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	divisionDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/division"
	snapshotDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/snapshot"
	userconfigDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/userconfig"
	"github.com/frahmantamala/recruiter-reports/internal/core/events"
	"github.com/frahmantamala/recruiter-reports/internal/division"
	divisionPostgres "github.com/frahmantamala/recruiter-reports/internal/division/postgres"
	"github.com/frahmantamala/recruiter-reports/internal/ranking"
	"github.com/frahmantamala/recruiter-reports/internal/snapshot"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	userconfigPostgres "github.com/frahmantamala/recruiter-reports/internal/userconfig/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}

func (busyLocker) Release(context.Context, string, string) error { return nil }

var _ = Describe("Ranking Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		ucRepo    userconfig.RepositoryAPI
		store     *snapshot.Store
		divisions *division.Service
		symplrSrc *FakePlacements
		bhSrc     *FakePlacements
		bus       *events.EventBus
		service   *ranking.Service
		deps      ranking.Dependencies
		slogger   *slog.Logger

		week      = time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)
		weekEnd   = time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
		priorWeek = time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC)
		now       = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	)

	build := func() {
		service = ranking.NewService(deps, ranking.Config{RetentionWeeks: 12}, slogger)
		service.SetClock(func() time.Time { return now })
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(io.Discard, nil))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(
			&divisionDatamodel.Division{},
			&divisionDatamodel.ATSMapping{},
			&userconfigDatamodel.UserConfig{},
			&snapshotDatamodel.WeeklyRanking{},
		)).To(Succeed())

		divisions = division.NewService(divisionPostgres.NewDivisionRepository(db), slogger)
		Expect(divisions.Seed(ctx, []division.SeedDivision{
			{ID: 1, Name: "General", DisplayOrder: 1, ATSSystem: "symplr"},
			{ID: 2, Name: "Travel", DisplayOrder: 2, ATSSystem: "bullhorn"},
		})).To(Succeed())

		ucRepo = userconfigPostgres.NewUserConfigRepository(db)
		store = snapshot.NewStore(db, 10, slogger)
		bus = events.NewEventBus(slogger)

		symplrSrc = &FakePlacements{Sys: ats.Symplr, Facts: []ats.PlacementFact{
			{System: ats.Symplr, LocalID: "S100", Name: "Alice Smith", DivisionID: int64Ptr(1), HeadCount: 3, TotalBill: 10000, TotalPay: 6000},
		}}
		bhSrc = &FakePlacements{Sys: ats.Bullhorn, Facts: []ats.PlacementFact{
			{System: ats.Bullhorn, LocalID: "B200", Name: "Bob Jones", DivisionID: int64Ptr(2), HeadCount: 2, TotalBill: 8000, TotalPay: 5000},
		}}

		deps = ranking.Dependencies{
			Divisions:  divisions,
			Identities: userconfig.NewDirectory(ucRepo, divisions, 1, slogger),
			Sources:    []ats.PlacementSource{symplrSrc, bhSrc},
			Store:      store,
			Publisher:  bus,
		}
		build()
	})

	Describe("CalculateRanking", func() {
		It("should discover unseen recruiters, rank them and save the week", func() {
			report, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errors).To(BeEmpty())
			Expect(report.Discovered).To(Equal(2))
			Expect(report.WeekStart).To(Equal("2026-10-04"))
			Expect(report.Rows).To(HaveLen(2))
			Expect(report.Rows[0].CanonicalUserID).To(Equal("S100"))
			Expect(report.Rows[0].DivisionName).To(Equal("General"))
			Expect(report.Rows[1].CanonicalUserID).To(Equal("B200"))
			Expect(report.Totals.GrossMarginDollars).To(Equal(7000.0))
			Expect(report.Totals.OverallGPPct).To(Equal(38.89))

			stored, err := store.GetWeek(ctx, week)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(2))
			Expect(stored[0].Rank).To(Equal(1))
			Expect(stored[0].GrossMarginDollars).To(Equal(4000.0))
		})

		It("should be idempotent for the same week", func() {
			first, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			second, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Discovered).To(Equal(0))
			Expect(second.Rows).To(HaveLen(len(first.Rows)))
			for i := range first.Rows {
				Expect(second.Rows[i].Row).To(Equal(first.Rows[i].Row))
				Expect(second.Rows[i].Rank).To(Equal(first.Rows[i].Rank))
			}

			all, err := ucRepo.List(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			stored, err := store.GetWeek(ctx, week)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(2))
		})

		It("should diff against the prior week", func() {
			symplrSrc.Facts[0].TotalPay = 9500
			_, err := service.CalculateRanking(ctx, priorWeek, priorWeek.AddDate(0, 0, 6))
			Expect(err).NotTo(HaveOccurred())

			symplrSrc.Facts[0].TotalPay = 6000
			report, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Rows[0].CanonicalUserID).To(Equal("S100"))
			Expect(*report.Rows[0].PriorWeekRank).To(Equal(2))
			Expect(*report.Rows[0].RankChange).To(Equal(1))
			Expect(*report.Rows[1].RankChange).To(Equal(-1))
		})

		It("should not discover recruiters filed under a division their system does not own", func() {
			bhSrc.Facts = append(bhSrc.Facts, ats.PlacementFact{
				System: ats.Bullhorn, LocalID: "B999", Name: "Misfiled", DivisionID: int64Ptr(1), HeadCount: 1, TotalBill: 500, TotalPay: 100,
			})

			report, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Discovered).To(Equal(2))
			Expect(report.Rows).To(HaveLen(2))
			row, err := ucRepo.FindByATSID(ctx, ats.Bullhorn, "B999")
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(BeNil())
		})

		It("should record a failing ATS and keep the other system's rows", func() {
			bhSrc.Err = errors.New("mirror offline")

			report, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows).To(HaveLen(1))
			Expect(report.Rows[0].CanonicalUserID).To(Equal("S100"))
			Expect(report.Errors).To(HaveLen(1))
			Expect(report.Errors[0].Unit).To(Equal("ats bullhorn"))
			Expect(errors.Is(report.Errors[0], internal.NewUpstreamError("", nil))).To(BeTrue())
		})

		It("should leave deactivated recruiters out without recreating them", func() {
			_, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			row, err := ucRepo.FindByATSID(ctx, ats.Bullhorn, "B200")
			Expect(err).NotTo(HaveOccurred())
			row.IsActive = false
			Expect(ucRepo.Update(ctx, row)).To(Succeed())

			report, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Discovered).To(Equal(0))
			Expect(report.Rows).To(HaveLen(1))
			all, err := ucRepo.List(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("should abort when no division is mapped to an ATS", func() {
			Expect(db.Exec("DELETE FROM division_ats_mappings").Error).To(Succeed())

			_, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(errors.Is(err, internal.ErrDivisionMappingMissing)).To(BeTrue())
			Expect(symplrSrc.Calls()).To(Equal(0))
		})

		It("should reject a week that does not start on Sunday", func() {
			_, err := service.CalculateRanking(ctx, week.AddDate(0, 0, 1), weekEnd)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should refuse to run while another run holds the week", func() {
			deps.Locker = busyLocker{}
			build()

			_, err := service.CalculateRanking(ctx, week, weekEnd)

			Expect(errors.Is(err, internal.ErrWeekLocked)).To(BeTrue())
			Expect(symplrSrc.Calls()).To(Equal(0))
		})

		It("should publish a ranking.calculated event", func() {
			received := make(chan events.Event, 1)
			bus.Subscribe(events.EventTypeRankingCalculated, func(ctx context.Context, event events.Event) error {
				received <- event
				return nil
			})

			_, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			var event events.Event
			Eventually(received).Should(Receive(&event))
			calculated, ok := event.(*events.RankingCalculatedEvent)
			Expect(ok).To(BeTrue())
			Expect(calculated.Rows).To(Equal(2))
			Expect(calculated.TotalGM).To(Equal(7000.0))
		})

		It("should prune snapshots outside the retention window", func() {
			old := time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC)
			Expect(store.SaveWeek(ctx, old, []*snapshotDatamodel.WeeklyRanking{
				{CanonicalUserID: "S1", ConfigID: 9, Name: "Old", Rank: 1},
			})).To(Succeed())

			_, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())

			stored, err := store.GetWeek(ctx, old)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeEmpty())
		})
	})

	Describe("GetFinancials", func() {
		It("should include recruiters opted out of the ranking and save nothing", func() {
			_, err := service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Exec("DELETE FROM weekly_ranking_snapshots").Error).To(Succeed())

			row, err := ucRepo.FindByATSID(ctx, ats.Symplr, "S100")
			Expect(err).NotTo(HaveOccurred())
			row.OnStackRanking = false
			Expect(ucRepo.Update(ctx, row)).To(Succeed())

			report, err := service.GetFinancials(ctx, week, weekEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows).To(HaveLen(2))
			Expect(report.Totals.Revenue).To(Equal(18000.0))

			stored, err := store.GetWeek(ctx, week)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeEmpty())
		})

		It("should reject an inverted range", func() {
			_, err := service.GetFinancials(ctx, weekEnd, week)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("GetWeek and History", func() {
		BeforeEach(func() {
			symplrSrc.Facts[0].TotalPay = 9500
			_, err := service.CalculateRanking(ctx, priorWeek, priorWeek.AddDate(0, 0, 6))
			Expect(err).NotTo(HaveOccurred())
			symplrSrc.Facts[0].TotalPay = 6000
			_, err = service.CalculateRanking(ctx, week, weekEnd)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read a stored week with rank changes", func() {
			report, err := service.GetWeek(ctx, week)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows).To(HaveLen(2))
			Expect(report.Rows[0].CanonicalUserID).To(Equal("S100"))
			Expect(*report.Rows[0].RankChange).To(Equal(1))
			Expect(report.Totals.GrossMarginDollars).To(Equal(7000.0))
		})

		It("should return one point per stored week, oldest first", func() {
			points, err := service.History(ctx, "S100", 4)

			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(2))
			Expect(points[0].WeekStart).To(Equal("2026-09-27"))
			Expect(points[0].Rank).To(Equal(2))
			Expect(points[1].Rank).To(Equal(1))
		})
	})
})
