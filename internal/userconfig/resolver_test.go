package userconfig_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	userconfigDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/userconfig"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeProfiles struct {
	system ats.System
	titles map[string]string
	depts  map[string]string
	err    error
	calls  int
}

func (f *fakeProfiles) System() ats.System { return f.system }

func (f *fakeProfiles) GetTitle(ctx context.Context, id string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.titles[id], nil
}

func (f *fakeProfiles) GetDepartment(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.depts[id], nil
}

type countingObserver struct{ discovered map[string]int }

func (c *countingObserver) IdentityDiscovered(system string) { c.discovered[system]++ }

var _ = Describe("Resolver", func() {
	var (
		ctx       context.Context
		repo      *MockRepository
		symplr    *fakeProfiles
		bullhorn  *fakeProfiles
		divisions *MockDivisions
		observer  *countingObserver
		dir       *userconfig.Directory
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		symplr = &fakeProfiles{system: ats.Symplr, titles: map[string]string{"S1": "Senior Recruiter"}}
		bullhorn = &fakeProfiles{
			system: ats.Bullhorn,
			titles: map[string]string{"B1": "Account Executive"},
			depts:  map[string]string{"B1": "travel nursing", "B2": "Unknown Dept"},
		}
		divisions = &MockDivisions{byName: map[string]int64{"Travel Nursing": 7}, active: map[int64]bool{1: true, 2: true, 3: true, 7: true}}
		observer = &countingObserver{discovered: map[string]int{}}
		dir = userconfig.NewDirectory(repo, divisions, 1, slog.New(slog.NewTextHandler(io.Discard, nil)),
			userconfig.WithProfileSource(symplr),
			userconfig.WithProfileSource(bullhorn),
			userconfig.WithDepartmentSource(ats.Bullhorn, bullhorn),
			userconfig.WithDiscoveryObserver(observer),
		)
	})

	It("should create an identity on first sight and reuse it afterwards", func() {
		r, err := dir.NewResolver(ctx)
		Expect(err).NotTo(HaveOccurred())

		first, err := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana Reyes", int64Ptr(2))
		Expect(err).NotTo(HaveOccurred())
		second, err := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana Reyes", int64Ptr(2))
		Expect(err).NotTo(HaveOccurred())

		Expect(second.ConfigID).To(Equal(first.ConfigID))
		Expect(repo.creates).To(Equal(1))
		Expect(repo.findCalls).To(Equal(1))
		Expect(r.Created()).To(Equal(1))
		Expect(observer.discovered["symplr"]).To(Equal(1))

		Expect(first.Role).To(Equal(userconfig.RoleRecruiter))
		Expect(first.DivisionID).To(Equal(int64(2)))
		Expect(first.CanonicalUserID).To(Equal("S1"))
		Expect(first.ATSSource).To(Equal("Symplr"))
	})

	It("should resolve preloaded identities without touching storage", func() {
		repo.rows[1] = &userconfigDatamodel.UserConfig{ConfigID: 1, CanonicalUserID: "S5", Name: "Existing", SymplrID: strPtr("S5"), BullhornID: strPtr("B5"), IsActive: true, OnStackRanking: true}
		repo.nextID = 2

		r, err := dir.NewResolver(ctx)
		Expect(err).NotTo(HaveOccurred())

		u, err := r.ResolveOrCreate(ctx, ats.Bullhorn, "B5", "Existing", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(u.ConfigID).To(Equal(int64(1)))
		Expect(repo.findCalls).To(Equal(0))
		Expect(repo.creates).To(Equal(0))
	})

	It("should override the division from a matching Bullhorn department", func() {
		r, _ := dir.NewResolver(ctx)

		u, err := r.ResolveOrCreate(ctx, ats.Bullhorn, "B1", "Cara Diaz", int64Ptr(3))

		Expect(err).NotTo(HaveOccurred())
		Expect(u.DivisionID).To(Equal(int64(7)))
		Expect(u.Role).To(Equal(userconfig.RoleAccountManager))
		Expect(*u.BullhornID).To(Equal("B1"))
	})

	It("should fall back to the observed division, then the default division", func() {
		r, _ := dir.NewResolver(ctx)

		observed, err := r.ResolveOrCreate(ctx, ats.Bullhorn, "B2", "Dev Patel", int64Ptr(3))
		Expect(err).NotTo(HaveOccurred())
		Expect(observed.DivisionID).To(Equal(int64(3)))

		fallback, err := r.ResolveOrCreate(ctx, ats.Bullhorn, "B3", "Eve Moss", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fallback.DivisionID).To(Equal(int64(1)))
		Expect(fallback.Role).To(Equal(userconfig.RoleUnknown))
	})

	It("should file under the default division when the observed one is not active", func() {
		r, _ := dir.NewResolver(ctx)

		u, err := r.ResolveOrCreate(ctx, ats.Symplr, "S9", "Gil Ortiz", int64Ptr(99))

		Expect(err).NotTo(HaveOccurred())
		Expect(u.DivisionID).To(Equal(int64(1)))
		Expect(repo.creates).To(Equal(1))
	})

	It("should not match Symplr recruiters by department", func() {
		r, _ := dir.NewResolver(ctx)

		u, err := r.ResolveOrCreate(ctx, ats.Symplr, "B1", "Same Id Other System", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(u.DivisionID).To(Equal(int64(1)))
	})

	It("should create with an unknown role when the title lookup fails", func() {
		symplr.err = errors.New("mirror down")
		r, _ := dir.NewResolver(ctx)

		u, err := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana Reyes", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(u.Role).To(Equal(userconfig.RoleUnknown))
		Expect(u.Title).To(BeNil())
	})

	It("should skip deactivated identities instead of recreating them", func() {
		repo.rows[1] = &userconfigDatamodel.UserConfig{ConfigID: 1, CanonicalUserID: "S1", SymplrID: strPtr("S1"), IsActive: false}
		repo.nextID = 2
		r, _ := dir.NewResolver(ctx)

		u, err := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNil())

		u, err = r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNil())
		Expect(repo.findCalls).To(Equal(1))
		Expect(repo.creates).To(Equal(0))
	})

	It("should surface storage failures as upstream errors", func() {
		r, _ := dir.NewResolver(ctx)
		repo.shouldFail = true
		repo.failError = errors.New("connection reset")

		_, err := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana", nil)

		Expect(err).To(HaveOccurred())
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeUpstream))
	})

	It("should fail to start a run when identities cannot be loaded", func() {
		repo.shouldFail = true
		repo.failError = errors.New("connection reset")

		_, err := dir.NewResolver(ctx)

		Expect(err).To(HaveOccurred())
	})

	It("should expose the resolved map through Lookup", func() {
		r, _ := dir.NewResolver(ctx)
		_, ok := r.Lookup(ats.Symplr, "S1")
		Expect(ok).To(BeFalse())

		created, _ := r.ResolveOrCreate(ctx, ats.Symplr, "S1", "Ana", nil)

		found, ok := r.Lookup(ats.Symplr, "S1")
		Expect(ok).To(BeTrue())
		Expect(found).To(Equal(created))
		Expect(r.Identities()).To(HaveKey(created.ConfigID))
	})
})
