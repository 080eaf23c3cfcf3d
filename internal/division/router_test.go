package division_test

import (
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/division"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Router", func() {
	It("should split divisions into disjoint per-system sets", func() {
		router, err := division.NewRouter([]division.Mapping{
			{DivisionID: 3, System: ats.Symplr},
			{DivisionID: 1, System: ats.Symplr},
			{DivisionID: 2, System: ats.Bullhorn},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(router.Divisions(ats.Symplr)).To(Equal([]int64{1, 3}))
		Expect(router.Divisions(ats.Bullhorn)).To(Equal([]int64{2}))
		Expect(router.Owns(ats.Symplr, 1)).To(BeTrue())
		Expect(router.Owns(ats.Bullhorn, 1)).To(BeFalse())
		Expect(router.Owns(ats.Symplr, 99)).To(BeFalse())
		Expect(router.Systems()).To(Equal([]ats.System{ats.Symplr, ats.Bullhorn}))
	})

	It("should only list systems that own a division", func() {
		router, err := division.NewRouter([]division.Mapping{{DivisionID: 1, System: ats.Bullhorn}})

		Expect(err).NotTo(HaveOccurred())
		Expect(router.Systems()).To(Equal([]ats.System{ats.Bullhorn}))
		Expect(router.Divisions(ats.Symplr)).To(BeEmpty())
	})

	It("should reject a division owned by two systems", func() {
		_, err := division.NewRouter([]division.Mapping{
			{DivisionID: 1, System: ats.Symplr},
			{DivisionID: 1, System: ats.Bullhorn},
		})

		Expect(err).To(HaveOccurred())
	})

	It("should tolerate repeated identical mappings", func() {
		router, err := division.NewRouter([]division.Mapping{
			{DivisionID: 1, System: ats.Symplr},
			{DivisionID: 1, System: ats.Symplr},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(router.Divisions(ats.Symplr)).To(Equal([]int64{1}))
	})

	It("should not leak its internal slices", func() {
		router, _ := division.NewRouter([]division.Mapping{{DivisionID: 1, System: ats.Symplr}})

		ids := router.Divisions(ats.Symplr)
		ids[0] = 42

		Expect(router.Divisions(ats.Symplr)).To(Equal([]int64{1}))
	})

	It("should be empty without mappings", func() {
		router, err := division.NewRouter(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(router.Empty()).To(BeTrue())
		Expect(router.Systems()).To(BeEmpty())
	})
})
