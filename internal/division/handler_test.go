package division_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/recruiter-reports/internal/division"
	"github.com/frahmantamala/recruiter-reports/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Division Handler", func() {
	var (
		router chi.Router
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := NewMockRepository()
		service := division.NewService(repo, slogger)
		Expect(service.Seed(context.Background(), []division.SeedDivision{
			{ID: 1, Name: "General", ATSSystem: "symplr"},
			{ID: 2, Name: "Travel Nursing", ATSSystem: "bullhorn"},
		})).To(Succeed())

		handler := division.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
		router = chi.NewRouter()
		router.Get("/divisions", handler.ListDivisions)
		router.Get("/divisions/{id}", handler.GetDivision)
	})

	It("should handle GET /divisions request successfully", func() {
		req := httptest.NewRequest(http.MethodGet, "/divisions", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response division.DivisionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Divisions).To(HaveLen(2))
		Expect(response.Divisions[1].Name).To(Equal("Travel Nursing"))
	})

	It("should return 404 for an unknown division", func() {
		req := httptest.NewRequest(http.MethodGet, "/divisions/7", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("DIVISION_NOT_FOUND"))
	})

	It("should reject a malformed id", func() {
		req := httptest.NewRequest(http.MethodGet, "/divisions/abc", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
