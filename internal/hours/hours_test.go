package hours_test

import (
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/hours"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Hours", func() {
	Describe("Window", func() {
		It("should span last week's Sunday through next week's Saturday", func() {
			w := hours.Window(time.Date(2026, 10, 14, 18, 30, 0, 0, time.UTC))

			Expect(w.Start()).To(Equal(day("2026-10-04")))
			Expect(w.End()).To(Equal(day("2026-10-24")))

			this, ok := w.Week(hours.LabelThis)
			Expect(ok).To(BeTrue())
			Expect(this).To(Equal(day("2026-10-11")))
			next, _ := w.Week(hours.LabelNext)
			Expect(next).To(Equal(day("2026-10-18")))
			_, ok = w.Week("later")
			Expect(ok).To(BeFalse())
		})

		It("should list every date in order", func() {
			dates := hours.Window(day("2026-10-11")).Dates()

			Expect(dates).To(HaveLen(21))
			Expect(dates[0]).To(Equal(day("2026-10-04")))
			Expect(dates[20]).To(Equal(day("2026-10-24")))
		})
	})

	DescribeTable("DayBucket",
		func(date string, bucket int) {
			Expect(hours.DayBucket(day(date))).To(Equal(bucket))
		},
		Entry("Sunday", "2026-10-11", 0),
		Entry("Monday", "2026-10-12", 0),
		Entry("Tuesday", "2026-10-13", 1),
		Entry("Wednesday", "2026-10-14", 2),
		Entry("Thursday", "2026-10-15", 3),
		Entry("Friday", "2026-10-16", 4),
		Entry("Saturday", "2026-10-17", 5),
	)

	Describe("WorkedHours", func() {
		It("should subtract the client's default lunch", func() {
			Expect(hours.WorkedHours(shift("O1", "S1", "2026-10-13", "07:00", "15:30", 30))).To(Equal(8.0))
		})

		It("should ignore the per-order lunch", func() {
			s := shift("O1", "S1", "2026-10-13", "07:00", "15:30", 30)
			orderLunch := 60
			s.OrderLunchMinutes = &orderLunch

			Expect(hours.WorkedHours(s)).To(Equal(8.0))
		})

		It("should round to cents", func() {
			Expect(hours.WorkedHours(shift("O1", "S1", "2026-10-13", "07:00", "07:20", 0))).To(Equal(0.33))
		})

		It("should go negative when the shift ends before it starts", func() {
			Expect(hours.WorkedHours(shift("O1", "S1", "2026-10-13", "15:00", "07:00", 0))).To(Equal(-8.0))
		})
	})
})
