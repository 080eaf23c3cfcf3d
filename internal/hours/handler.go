package hours

import (
	"context"
	"net/http"

	"github.com/frahmantamala/recruiter-reports/internal/transport"
)

type ServiceAPI interface {
	CalculateAllHours(ctx context.Context) (*RunResult, error)
	GetHoursReport(ctx context.Context, label string) (*Report, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CalculateHours(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.CalculateAllHours(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// GetHours serves ?week=last|this|next, defaulting to this week.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("week")
	if label == "" {
		label = LabelThis
	}
	report, err := h.Service.GetHoursReport(r.Context(), label)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}
