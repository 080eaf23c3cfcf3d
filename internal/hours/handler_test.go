package hours_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/hours"
	"github.com/frahmantamala/recruiter-reports/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockService struct {
	label string
	err   error
}

func (m *MockService) CalculateAllHours(ctx context.Context) (*hours.RunResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &hours.RunResult{RunID: "run-1", Processed: 21}, nil
}

func (m *MockService) GetHoursReport(ctx context.Context, label string) (*hours.Report, error) {
	m.label = label
	if m.err != nil {
		return nil, m.err
	}
	return &hours.Report{Label: label, Rows: []hours.Row{}}, nil
}

var _ = Describe("Hours Handler", func() {
	var (
		mock   *MockService
		router chi.Router
	)

	BeforeEach(func() {
		mock = &MockService{}
		handler := hours.NewHandler(&transport.BaseHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, mock)
		router = chi.NewRouter()
		router.Post("/reports/hours/calculate", handler.CalculateHours)
		router.Get("/reports/hours", handler.GetHours)
	})

	It("should return the run result", func() {
		req := httptest.NewRequest(http.MethodPost, "/reports/hours/calculate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var result hours.RunResult
		Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
		Expect(result.Processed).To(Equal(21))
	})

	It("should default to this week", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/hours", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.label).To(Equal(hours.LabelThis))
	})

	It("should pass the requested label", func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/hours?week=next", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(mock.label).To(Equal(hours.LabelNext))
	})

	It("should surface upstream failures as 502", func() {
		mock.err = internal.NewUpstreamError("load active user configs", context.DeadlineExceeded)
		req := httptest.NewRequest(http.MethodPost, "/reports/hours/calculate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(w.Body.String()).To(ContainSubstring("UPSTREAM_UNAVAILABLE"))
	})
})
