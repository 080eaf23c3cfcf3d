package ranking

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/frahmantamala/recruiter-reports/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CalculateRanking(ctx context.Context, weekStart, weekEnd time.Time) (*Report, error)
	GetFinancials(ctx context.Context, start, end time.Time) (*FinancialsReport, error)
	GetWeek(ctx context.Context, weekStart time.Time) (*Report, error)
	History(ctx context.Context, canonicalUserID string, weeks int) ([]HistoryPoint, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	now     func() time.Time
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		now:         time.Now,
	}
}

// CalculateRequest defaults to the last completed week when empty.
type CalculateRequest struct {
	WeekStart string `json:"week_start,omitempty"`
	WeekEnd   string `json:"week_end,omitempty"`
}

type HistoryResponse struct {
	CanonicalUserID string         `json:"canonical_user_id"`
	Weeks           []HistoryPoint `json:"weeks"`
}

func (h *Handler) lastCompletedWeek() (time.Time, time.Time) {
	start := calendar.AddDays(calendar.WeekStart(h.now()), -7)
	return start, calendar.WeekEnd(start)
}

func (h *Handler) CalculateRanking(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &req); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	start, end := h.lastCompletedWeek()
	if req.WeekStart != "" {
		t, err := calendar.Parse(req.WeekStart)
		if err != nil {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("week_start", "week_start must be YYYY-MM-DD", internal.ErrCodeInvalidWeek))
			return
		}
		start, end = t, calendar.WeekEnd(t)
	}
	if req.WeekEnd != "" {
		t, err := calendar.Parse(req.WeekEnd)
		if err != nil {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("week_end", "week_end must be YYYY-MM-DD", internal.ErrCodeInvalidWeek))
			return
		}
		end = t
	}

	report, err := h.Service.CalculateRanking(r.Context(), start, end)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	fallback, _ := h.lastCompletedWeek()
	weekStart, err := h.QueryDate(r, "week_start", fallback)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	report, err := h.Service.GetWeek(r.Context(), weekStart)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	defStart, defEnd := h.lastCompletedWeek()
	start, err := h.QueryDate(r, "week_start", defStart)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("week_end") == "" && r.URL.Query().Get("week_start") != "" {
		defEnd = calendar.AddDays(start, 6)
	}
	end, err := h.QueryDate(r, "week_end", defEnd)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	report, err := h.Service.GetFinancials(r.Context(), start, end)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	canonicalUserID := chi.URLParam(r, "canonicalUserID")
	if canonicalUserID == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("canonical_user_id", "canonical_user_id is required", internal.ErrCodeValidationFailed))
		return
	}

	weeks := 0
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("weeks", "weeks must be a positive integer", internal.ErrCodeValidationFailed))
			return
		}
		weeks = n
	}

	points, err := h.Service.History(r.Context(), canonicalUserID, weeks)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, HistoryResponse{CanonicalUserID: canonicalUserID, Weeks: points})
}
