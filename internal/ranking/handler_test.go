package ranking_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ranking"
	"github.com/frahmantamala/recruiter-reports/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockService struct {
	weekStart, weekEnd time.Time
	historyWeeks       int
	err                error
}

func (m *MockService) CalculateRanking(ctx context.Context, weekStart, weekEnd time.Time) (*ranking.Report, error) {
	m.weekStart, m.weekEnd = weekStart, weekEnd
	if m.err != nil {
		return nil, m.err
	}
	return &ranking.Report{WeekStart: weekStart.Format("2006-01-02"), WeekEnd: weekEnd.Format("2006-01-02")}, nil
}

func (m *MockService) GetFinancials(ctx context.Context, start, end time.Time) (*ranking.FinancialsReport, error) {
	m.weekStart, m.weekEnd = start, end
	return &ranking.FinancialsReport{}, m.err
}

func (m *MockService) GetWeek(ctx context.Context, weekStart time.Time) (*ranking.Report, error) {
	m.weekStart = weekStart
	if m.err != nil {
		return nil, m.err
	}
	return &ranking.Report{WeekStart: weekStart.Format("2006-01-02")}, nil
}

func (m *MockService) History(ctx context.Context, canonicalUserID string, weeks int) ([]ranking.HistoryPoint, error) {
	m.historyWeeks = weeks
	return []ranking.HistoryPoint{{WeekStart: "2026-10-04", Rank: 1}}, m.err
}

var _ = Describe("Ranking Handler", func() {
	var (
		mock   *MockService
		router chi.Router
	)

	BeforeEach(func() {
		mock = &MockService{}
		handler := ranking.NewHandler(&transport.BaseHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, mock)
		router = chi.NewRouter()
		router.Post("/reports/ranking/calculate", handler.CalculateRanking)
		router.Get("/reports/ranking", handler.GetRanking)
		router.Get("/reports/financials", handler.GetFinancials)
		router.Get("/reports/ranking/history/{canonicalUserID}", handler.GetHistory)
	})

	It("should calculate the requested week", func() {
		body := strings.NewReader(`{"week_start":"2026-10-04"}`)
		req := httptest.NewRequest(http.MethodPost, "/reports/ranking/calculate", body)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.weekStart).To(Equal(time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)))
		Expect(mock.weekEnd).To(Equal(time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)))

		var report ranking.Report
		Expect(json.NewDecoder(w.Body).Decode(&report)).To(Succeed())
		Expect(report.WeekEnd).To(Equal("2026-10-10"))
	})

	It("should default to the last completed week without a body", func() {
		req := httptest.NewRequest(http.MethodPost, "/reports/ranking/calculate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.weekStart.Weekday()).To(Equal(time.Sunday))
		Expect(mock.weekStart.Before(time.Now())).To(BeTrue())
		Expect(mock.weekEnd.Sub(mock.weekStart)).To(Equal(6 * 24 * time.Hour))
	})

	It("should reject a malformed date", func() {
		body := strings.NewReader(`{"week_start":"10/04/2026"}`)
		req := httptest.NewRequest(http.MethodPost, "/reports/ranking/calculate", body)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("INVALID_WEEK"))
	})

	It("should map a missing division mapping to 422", func() {
		mock.err = internal.ErrDivisionMappingMissing
		req := httptest.NewRequest(http.MethodPost, "/reports/ranking/calculate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(w.Body.String()).To(ContainSubstring("DIVISION_MAPPING_MISSING"))
	})

	It("should map a held lock to 409", func() {
		mock.err = internal.ErrWeekLocked
		req := httptest.NewRequest(http.MethodPost, "/reports/ranking/calculate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("should read a stored week", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/ranking?week_start=2026-09-27", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.weekStart).To(Equal(time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC)))
	})

	It("should default financials to a seven day range", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/financials?week_start=2026-09-27", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.weekEnd).To(Equal(time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)))
	})

	It("should pass the history window through", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/ranking/history/S100?weeks=6", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.historyWeeks).To(Equal(6))

		var resp ranking.HistoryResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.CanonicalUserID).To(Equal("S100"))
		Expect(resp.Weeks).To(HaveLen(1))
	})

	It("should reject a non-numeric history window", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/ranking/history/S100?weeks=many", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
