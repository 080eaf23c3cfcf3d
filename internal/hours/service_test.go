package hours_test

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
	"github.com/frahmantamala/recruiter-reports/internal/division"
	divisionPostgres "github.com/frahmantamala/recruiter-reports/internal/division/postgres"
	"github.com/frahmantamala/recruiter-reports/internal/hours"
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

var _ = Describe("Hours Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		ucRepo  userconfig.RepositoryAPI
		store   *snapshot.Store
		orders  *FakeOrders
		deps    hours.Dependencies
		service *hours.Service
		slogger *slog.Logger

		// Wednesday; the window is 2026-10-04 through 2026-10-24.
		now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	)

	build := func() {
		service = hours.NewService(deps, hours.Config{RetentionDays: 28}, slogger)
		service.SetClock(func() time.Time { return now })
	}

	seedIdentity := func(symplrID string, onHours bool, goal float64) {
		Expect(ucRepo.Create(ctx, &userconfigDatamodel.UserConfig{
			CanonicalUserID: symplrID,
			Name:            "Recruiter " + symplrID,
			DivisionID:      1,
			Role:            "recruiter",
			ATSSource:       ats.Symplr.Label(),
			SymplrID:        strPtr(symplrID),
			WeeklyGoal:      goal,
			OnHoursReport:   onHours,
			OnStackRanking:  true,
			IsActive:        true,
		})).To(Succeed())
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
			&snapshotDatamodel.WeeklyHours{},
			&snapshotDatamodel.HoursWeekLabel{},
		)).To(Succeed())

		divisions := division.NewService(divisionPostgres.NewDivisionRepository(db), slogger)
		Expect(divisions.Seed(ctx, []division.SeedDivision{{ID: 1, Name: "General", ATSSystem: "symplr"}})).To(Succeed())

		ucRepo = userconfigPostgres.NewUserConfigRepository(db)
		store = snapshot.NewStore(db, 10, slogger)
		orders = NewFakeOrders()

		deps = hours.Dependencies{
			Identities: userconfig.NewDirectory(ucRepo, divisions, 1, slogger),
			Roster:     userconfig.NewService(ucRepo, divisions, slogger),
			Orders:     orders,
			Store:      store,
		}
		build()
	})

	Describe("CalculateAllHours", func() {
		It("should short-circuit when nobody is on the hours report", func() {
			seedIdentity("S100", false, 40)

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(Equal(0))
			Expect(result.Reason).To(Equal(hours.ReasonNoHoursIdentities))
			Expect(orders.Dates()).To(BeEmpty())
		})

		It("should refuse to run without an order source", func() {
			seedIdentity("S100", true, 40)
			deps.Orders = nil
			build()

			_, err := service.CalculateAllHours(ctx)

			Expect(errors.Is(err, hours.ErrNoOrderSource)).To(BeTrue())
		})

		It("should walk every date of the window in order and bucket the hours", func() {
			seedIdentity("S100", true, 40)
			orders.Shifts["2026-10-11"] = []ats.ShiftFact{shift("O1", "S100", "2026-10-11", "07:00", "15:30", 30)}
			orders.Shifts["2026-10-12"] = []ats.ShiftFact{shift("O2", "S100", "2026-10-12", "07:00", "15:30", 30)}
			orders.Shifts["2026-10-13"] = []ats.ShiftFact{
				shift("O3", "S100", "2026-10-13", "07:00", "11:00", 0),
				shift("O4", "S100", "2026-10-13", "12:00", "16:00", 0),
			}

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Errors).To(BeEmpty())
			Expect(result.Processed).To(Equal(21))
			Expect(result.Shifts).To(Equal(4))
			Expect(result.WindowStart).To(Equal("2026-10-04"))
			Expect(result.WindowEnd).To(Equal("2026-10-24"))
			dates := orders.Dates()
			Expect(dates).To(HaveLen(21))
			Expect(dates[0]).To(Equal("2026-10-04"))
			Expect(dates[20]).To(Equal("2026-10-24"))

			report, err := service.GetHoursReport(ctx, hours.LabelThis)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.WeekStart).To(Equal("2026-10-11"))
			Expect(report.Rows).To(HaveLen(1))
			Expect(report.Rows[0].Buckets[0]).To(Equal(16.0))
			Expect(report.Rows[0].Buckets[1]).To(Equal(8.0))
			Expect(report.Rows[0].Total).To(Equal(24.0))
			Expect(report.Rows[0].GoalPct).To(Equal(60.0))
		})

		It("should discover an unseen specialist once across dates", func() {
			seedIdentity("S100", true, 40)
			orders.Shifts["2026-10-05"] = []ats.ShiftFact{shift("O1", "S300", "2026-10-05", "08:00", "12:00", 0)}
			orders.Shifts["2026-10-06"] = []ats.ShiftFact{shift("O2", "S300", "2026-10-06", "08:00", "12:00", 0)}

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Discovered).To(Equal(1))
			all, err := ucRepo.List(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			rows, err := store.GetHoursWeek(ctx, day("2026-10-04"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].CanonicalUserID).To(Equal("S300"))
		})

		It("should keep earlier totals of a week with a failed date", func() {
			seedIdentity("S100", true, 40)
			Expect(store.UpsertHours(ctx, []*snapshotDatamodel.WeeklyHours{
				{CanonicalUserID: "S100", WeekStart: day("2026-10-11"), DayBucket: 3, ConfigID: 1, TotalHours: 6.5},
				{CanonicalUserID: "S100", WeekStart: day("2026-10-04"), DayBucket: 2, ConfigID: 1, TotalHours: 9},
			})).To(Succeed())
			orders.Errs["2026-10-15"] = errors.New("mirror timeout")
			orders.Shifts["2026-10-13"] = []ats.ShiftFact{shift("O1", "S100", "2026-10-13", "08:00", "12:00", 0)}

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(Equal(20))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Unit).To(Equal("date 2026-10-15"))

			this, err := store.GetHoursWeek(ctx, day("2026-10-11"))
			Expect(err).NotTo(HaveOccurred())
			Expect(this).To(HaveLen(2))
			Expect(this[0].DayBucket).To(Equal(1))
			Expect(this[1].DayBucket).To(Equal(3))
			Expect(this[1].TotalHours).To(Equal(6.5))

			last, err := store.GetHoursWeek(ctx, day("2026-10-04"))
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(BeEmpty())
		})

		It("should clamp negative hours to zero", func() {
			seedIdentity("S100", true, 40)
			orders.Shifts["2026-10-13"] = []ats.ShiftFact{shift("O1", "S100", "2026-10-13", "15:00", "07:00", 0)}

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Errors).To(BeEmpty())
			report, err := service.GetHoursReport(ctx, hours.LabelThis)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Rows[0].Total).To(Equal(0.0))
		})

		It("should clear a relabeled week that could not be recomputed", func() {
			seedIdentity("S100", true, 40)
			Expect(store.SaveWeekLabels(ctx, map[string]time.Time{
				hours.LabelLast: day("2026-09-27"),
				hours.LabelThis: day("2026-10-04"),
				hours.LabelNext: day("2026-10-11"),
			})).To(Succeed())
			Expect(store.UpsertHours(ctx, []*snapshotDatamodel.WeeklyHours{
				{CanonicalUserID: "S100", WeekStart: day("2026-10-18"), DayBucket: 1, ConfigID: 1, TotalHours: 12},
			})).To(Succeed())
			orders.Errs["2026-10-20"] = errors.New("mirror timeout")

			result, err := service.CalculateAllHours(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cleared).To(ConsistOf("2026-10-18"))
			rows, err := store.GetHoursWeek(ctx, day("2026-10-18"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())

			labels, err := store.WeekLabels(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(labels[hours.LabelNext]).To(Equal(day("2026-10-18")))
		})

		It("should purge rows past the retention window", func() {
			seedIdentity("S100", true, 40)
			Expect(store.UpsertHours(ctx, []*snapshotDatamodel.WeeklyHours{
				{CanonicalUserID: "S100", WeekStart: day("2026-09-06"), DayBucket: 1, ConfigID: 1, TotalHours: 8},
			})).To(Succeed())

			_, err := service.CalculateAllHours(ctx)
			Expect(err).NotTo(HaveOccurred())

			rows, err := store.GetHoursWeek(ctx, day("2026-09-06"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("should refuse to run while another run holds the lock", func() {
			seedIdentity("S100", true, 40)
			deps.Locker = busyLocker{}
			build()

			_, err := service.CalculateAllHours(ctx)

			Expect(errors.Is(err, internal.ErrWeekLocked)).To(BeTrue())
			Expect(orders.Dates()).To(BeEmpty())
		})
	})

	Describe("GetHoursReport", func() {
		It("should list only identities on the hours report", func() {
			seedIdentity("S100", true, 0)
			seedIdentity("S200", false, 40)

			report, err := service.GetHoursReport(ctx, hours.LabelLast)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.WeekStart).To(Equal("2026-10-04"))
			Expect(report.WeekEnd).To(Equal("2026-10-10"))
			Expect(report.Rows).To(HaveLen(1))
			Expect(report.Rows[0].CanonicalUserID).To(Equal("S100"))
			Expect(report.Rows[0].GoalPct).To(Equal(0.0))
		})

		It("should reject an unknown label", func() {
			_, err := service.GetHoursReport(ctx, "someday")

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})
})
